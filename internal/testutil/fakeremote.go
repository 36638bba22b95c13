// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/honesthomesales/TODO/internal/store/remote"
	"github.com/honesthomesales/TODO/internal/types"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected remote failure")

// Call records one invocation of a FakeRemote method.
type Call struct {
	Op     string // InsertTask, UpdateTask, DeleteTask, ListTasks, Ping, ...
	TaskID string
	Patch  *types.TaskPatch
}

// FakeRemote is an in-memory implementation of remote.Store for testing.
//
// Failures can be injected per operation (OpErr), per task id (TaskErr),
// for every call (Down), or through FailFunc for anything more specific.
// Every call is recorded in order.
type FakeRemote struct {
	mu         sync.Mutex
	tasks      map[string]types.Task
	members    map[string]types.TeamMember
	comments   []types.Comment
	activities []types.Activity
	calls      []Call

	// Error injection for testing
	Down     bool             // every call fails with ErrInjected
	OpErr    map[string]error // op name -> error
	TaskErr  map[string]error // task id -> error for task writes
	FailFunc func(c Call) error
}

var _ remote.Store = (*FakeRemote)(nil)

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		tasks:   make(map[string]types.Task),
		members: make(map[string]types.TeamMember),
		OpErr:   make(map[string]error),
		TaskErr: make(map[string]error),
	}
}

// Seed stores tasks directly without recording calls.
func (f *FakeRemote) Seed(tasks ...types.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.tasks[t.ID] = t.Clone()
	}
}

// SeedMembers stores members directly without recording calls.
func (f *FakeRemote) SeedMembers(members ...types.TeamMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		f.members[m.ID] = m
	}
}

// SetDown toggles the all-calls-fail switch.
func (f *FakeRemote) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Down = down
}

// FailOp makes every call to op return err. A nil err clears it.
func (f *FakeRemote) FailOp(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.OpErr, op)
		return
	}
	f.OpErr[op] = err
}

// FailTask makes writes to task id return err. A nil err clears it.
func (f *FakeRemote) FailTask(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.TaskErr, id)
		return
	}
	f.TaskErr[id] = err
}

// Calls returns the recorded calls in order.
func (f *FakeRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was called.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// WriteCalls returns the recorded task writes (insert, update, delete).
func (f *FakeRemote) WriteCalls() []Call {
	var out []Call
	for _, c := range f.Calls() {
		switch c.Op {
		case "InsertTask", "UpdateTask", "DeleteTask":
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (f *FakeRemote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// Snapshot returns the stored tasks ordered like ListTasks.
func (f *FakeRemote) Snapshot() []types.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked()
}

// Comments returns every stored comment.
func (f *FakeRemote) Comments() []types.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Comment(nil), f.comments...)
}

// Activities returns every stored activity record.
func (f *FakeRemote) Activities() []types.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Activity(nil), f.activities...)
}

// record logs c and returns the injected error for it, if any.
// Callers must hold f.mu.
func (f *FakeRemote) record(c Call) error {
	f.calls = append(f.calls, c)
	if f.Down {
		return ErrInjected
	}
	if err := f.OpErr[c.Op]; err != nil {
		return err
	}
	if c.TaskID != "" {
		if err := f.TaskErr[c.TaskID]; err != nil {
			return err
		}
	}
	if f.FailFunc != nil {
		return f.FailFunc(c)
	}
	return nil
}

func (f *FakeRemote) sortedLocked() []types.Task {
	out := make([]types.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ManualOrder != out[j].ManualOrder {
			return out[i].ManualOrder < out[j].ManualOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// InsertTask implements remote.TaskStore.
func (f *FakeRemote) InsertTask(ctx context.Context, task types.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "InsertTask", TaskID: task.ID}); err != nil {
		return err
	}
	task.SetDefaults()
	if err := task.Validate(); err != nil {
		return err
	}
	f.tasks[task.ID] = task.Clone()
	return nil
}

// UpdateTask implements remote.TaskStore.
func (f *FakeRemote) UpdateTask(ctx context.Context, id string, patch types.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := patch
	if err := f.record(Call{Op: "UpdateTask", TaskID: id, Patch: &p}); err != nil {
		return err
	}
	if t, ok := f.tasks[id]; ok {
		f.tasks[id] = patch.ApplyTo(t)
	}
	return nil
}

// DeleteTask implements remote.TaskStore.
func (f *FakeRemote) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "DeleteTask", TaskID: id}); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

// ListTasks implements remote.TaskStore.
func (f *FakeRemote) ListTasks(ctx context.Context) ([]types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListTasks"}); err != nil {
		return nil, err
	}
	return f.sortedLocked(), nil
}

// Ping implements remote.TaskStore.
func (f *FakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(Call{Op: "Ping"})
}

// InsertMember implements remote.MemberStore.
func (f *FakeRemote) InsertMember(ctx context.Context, m types.TeamMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "InsertMember"}); err != nil {
		return err
	}
	f.members[m.ID] = m
	return nil
}

// DeleteMember implements remote.MemberStore.
func (f *FakeRemote) DeleteMember(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "DeleteMember"}); err != nil {
		return err
	}
	delete(f.members, id)
	for tid, t := range f.tasks {
		if t.IsAssignedTo(id) {
			t.Assignee = nil
			f.tasks[tid] = t
		}
	}
	return nil
}

// ListMembers implements remote.MemberStore.
func (f *FakeRemote) ListMembers(ctx context.Context) ([]types.TeamMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListMembers"}); err != nil {
		return nil, err
	}
	out := make([]types.TeamMember, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddComment implements remote.CommentStore.
func (f *FakeRemote) AddComment(ctx context.Context, c types.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "AddComment", TaskID: c.TaskID}); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	f.comments = append(f.comments, c)
	return nil
}

// ListComments implements remote.CommentStore.
func (f *FakeRemote) ListComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListComments"}); err != nil {
		return nil, err
	}
	out := []types.Comment{}
	for _, c := range f.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddActivity implements remote.CommentStore.
func (f *FakeRemote) AddActivity(ctx context.Context, a types.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "AddActivity", TaskID: a.TaskID}); err != nil {
		return err
	}
	f.activities = append(f.activities, a)
	return nil
}

// ListActivity implements remote.CommentStore.
func (f *FakeRemote) ListActivity(ctx context.Context, taskID string) ([]types.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "ListActivity"}); err != nil {
		return nil, err
	}
	out := []types.Activity{}
	for _, a := range f.activities {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}
