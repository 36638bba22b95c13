// Package tasks is the single entry point for task mutations.
//
// Every mutation follows the same contract:
//
//  1. The new task set is computed with types.Apply, stored in app state
//     and written to the local mirror. This is the optimistic write.
//  2. If the remote store is reachable the mutation is sent right away.
//     A failed send turns into a pending action.
//  3. If the remote store is unreachable the pending action is queued
//     directly.
//
// Remote failures are logged and absorbed. Callers only see input errors
// (types.ErrInvalid) and unknown ids (types.ErrNotFound).
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/notify"
	"github.com/honesthomesales/TODO/internal/store/remote"
	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

// Mirror is the part of the local mirror store the facade writes to.
type Mirror interface {
	syncqueue.Persister
	SaveMembers(ctx context.Context, members []types.TeamMember) error
}

// Config holds optional facade settings.
type Config struct {
	// CurrentUser is the member id recorded on activity and comments.
	// Activity is not recorded when empty.
	CurrentUser string

	// Notifier receives assignment notifications. Nil disables them.
	Notifier notify.Sender

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Draft is the input for Add.
type Draft struct {
	Text     string
	DueDate  types.Date
	Priority types.Priority
	Assignee *string
}

// Change describes one applied mutation.
type Change struct {
	Kind types.ActionKind
	// Task is the task after the change. For deletes it is the task as it
	// was before removal.
	Task types.Task
	// Queued is true when the change went to the pending queue instead
	// of the remote store.
	Queued bool
}

// Service is the task mutation facade.
type Service struct {
	config  Config
	state   *appstate.State
	mirror  Mirror
	remote  remote.Store
	monitor *connectivity.Monitor
	queue   *syncqueue.Queue
	members *Members
	log     *log.Entry

	listenMu  sync.RWMutex
	listeners []func(Change)
}

// New creates the facade. If logger is nil the standard logger is used.
func New(config Config, state *appstate.State, mirror Mirror, store remote.Store, monitor *connectivity.Monitor, queue *syncqueue.Queue, logger *log.Logger) (*Service, error) {
	if state == nil {
		return nil, errors.New("state cannot be nil")
	}
	if mirror == nil {
		return nil, errors.New("mirror cannot be nil")
	}
	if store == nil {
		return nil, errors.New("remote store cannot be nil")
	}
	if monitor == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	if queue == nil {
		return nil, errors.New("queue cannot be nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &Service{
		config:  config,
		state:   state,
		mirror:  mirror,
		remote:  store,
		monitor: monitor,
		queue:   queue,
		log:     logger.WithField("component", "tasks"),
	}
	s.members = &Members{svc: s, log: logger.WithField("component", "members")}
	return s, nil
}

// OnChange registers fn to be called after every applied mutation.
// Listeners run after the state lock is released, in mutation order.
func (s *Service) OnChange(fn func(Change)) {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// OnReload registers fn to be called when the state is replaced by copies
// another process saved to the shared mirror. fn runs with the state lock
// held and must not call back into the Service.
func (s *Service) OnReload(fn func(appstate.Snapshot)) {
	s.state.OnReload(fn)
}

func (s *Service) emit(changes []Change) {
	s.listenMu.RLock()
	listeners := slices.Clone(s.listeners)
	s.listenMu.RUnlock()
	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func (s *Service) now() time.Time {
	return s.config.Now().UTC()
}

// Add creates a task from d.
func (s *Service) Add(ctx context.Context, d Draft) (types.Task, error) {
	priority := d.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	created := s.now()
	task := types.Task{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(d.Text),
		Status:    types.StatusTodo,
		DueDate:   d.DueDate,
		Priority:  priority,
		CreatedAt: &created,
	}
	if d.Assignee != nil && *d.Assignee != "" {
		task.Assignee = types.StringPtr(*d.Assignee)
	}
	if err := task.Validate(); err != nil {
		return types.Task{}, err
	}

	var change Change
	s.state.Do(func(tx *appstate.Tx) {
		task.ManualOrder = len(tx.Tasks())
		change = s.apply(ctx, tx, types.NewAddAction(task), types.Task{})
	})
	s.emit([]Change{change})
	return change.Task, nil
}

// Remove deletes task id.
func (s *Service) Remove(ctx context.Context, id string) error {
	var (
		change Change
		err    error
	)
	s.state.Do(func(tx *appstate.Tx) {
		var prev types.Task
		if prev, err = s.lookup(tx, id); err != nil {
			return
		}
		change = s.apply(ctx, tx, types.NewDeleteAction(id), prev)
	})
	if err != nil {
		return err
	}
	s.emit([]Change{change})
	return nil
}

// Toggle flips completion of task id. Completing records CompletedAt and
// moves status to complete; reopening clears it and moves back to todo.
func (s *Service) Toggle(ctx context.Context, id string) (types.Task, error) {
	var (
		change Change
		err    error
	)
	s.state.Do(func(tx *appstate.Tx) {
		var prev types.Task
		if prev, err = s.lookup(tx, id); err != nil {
			return
		}
		completed := !prev.Completed
		var at *time.Time
		if completed {
			at = types.TimePtr(s.now())
		}
		change = s.apply(ctx, tx, types.NewToggleAction(id, completed, at), prev)
	})
	if err != nil {
		return types.Task{}, err
	}
	s.emit([]Change{change})
	return change.Task, nil
}

// Update applies patch to task id. An empty patch changes nothing and
// returns the current task.
func (s *Service) Update(ctx context.Context, id string, patch types.TaskPatch) (types.Task, error) {
	if err := patch.Validate(); err != nil {
		return types.Task{}, err
	}
	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		patch.Text = &trimmed
	}
	if patch.Completed != nil && *patch.Completed && patch.CompletedAt == nil {
		patch.CompletedAt = types.TimePtr(s.now())
	}

	var (
		change Change
		err    error
	)
	s.state.Do(func(tx *appstate.Tx) {
		var prev types.Task
		if prev, err = s.lookup(tx, id); err != nil {
			return
		}
		if patch.IsEmpty() {
			change = Change{Kind: types.ActionUpdate, Task: prev}
			return
		}
		change = s.apply(ctx, tx, types.NewUpdateAction(id, patch), prev)
	})
	if err != nil {
		return types.Task{}, err
	}
	if !patch.IsEmpty() {
		s.emit([]Change{change})
	}
	return change.Task, nil
}

// Move shifts task id one step in the due-date ordered list. It swaps
// manual order with the neighbour and, when crossing into another date,
// adopts the neighbour's due date. Both tasks are written as separate
// updates. Moving past either end is a no-op.
func (s *Service) Move(ctx context.Context, id string, dir views.Direction) error {
	var (
		changes []Change
		err     error
	)
	s.state.Do(func(tx *appstate.Tx) {
		tasks := tx.Tasks()
		plan, ok, perr := views.MoveTarget(tasks, id, dir)
		if perr != nil || !ok {
			err = perr
			return
		}
		cur := tasks[types.FindTask(tasks, plan.TaskID)]
		changes = append(changes, s.apply(ctx, tx, types.NewUpdateAction(plan.TaskID, plan.Patch), cur))

		tasks = tx.Tasks()
		nb := tasks[types.FindTask(tasks, plan.NeighborID)]
		changes = append(changes, s.apply(ctx, tx, types.NewUpdateAction(plan.NeighborID, plan.NeighborPatch), nb))
	})
	if err != nil {
		return err
	}
	s.emit(changes)
	return nil
}

// Import adds tasks that keep their ids. Tasks whose id is already
// present are skipped. All tasks are validated before any is written.
// It returns how many were added.
func (s *Service) Import(ctx context.Context, tasks []types.Task) (int, error) {
	batch := types.CloneTasks(tasks)
	for i := range batch {
		batch[i].SetDefaults()
		if err := batch[i].Validate(); err != nil {
			return 0, fmt.Errorf("task %d (%s): %w", i+1, batch[i].ID, err)
		}
	}

	var changes []Change
	s.state.Do(func(tx *appstate.Tx) {
		seen := make(map[string]bool)
		for _, t := range tx.Tasks() {
			seen[t.ID] = true
		}
		for _, t := range batch {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			if t.CreatedAt == nil {
				t.CreatedAt = types.TimePtr(s.now())
			}
			changes = append(changes, s.apply(ctx, tx, types.NewAddAction(t), types.Task{}))
		}
	})
	s.emit(changes)
	if len(changes) > 0 {
		s.log.WithField("count", len(changes)).Info("imported tasks")
	}
	return len(changes), nil
}

// Resolve returns the id of the single task matching ref exactly or by
// prefix.
func (s *Service) Resolve(ref string) (string, error) {
	return types.ResolveID(s.Tasks(), ref)
}

// Get returns the task with id.
func (s *Service) Get(id string) (types.Task, error) {
	var (
		t   types.Task
		err error
	)
	s.state.Do(func(tx *appstate.Tx) { t, err = s.lookup(tx, id) })
	return t, err
}

// Tasks returns a copy of the current task set.
func (s *Service) Tasks() []types.Task {
	return s.state.Snapshot().Tasks
}

// Pending returns a copy of the pending action queue.
func (s *Service) Pending() []types.PendingAction {
	return s.state.Snapshot().Pending
}

// Online reports whether the remote store is considered reachable.
func (s *Service) Online() bool {
	return s.monitor.Reachable()
}

// Members returns the team member manager.
func (s *Service) Members() *Members {
	return s.members
}

// Refresh reloads the task set from the remote store. Pending actions are
// re-applied on top.
func (s *Service) Refresh(ctx context.Context) error {
	if !s.monitor.Reachable() {
		return types.ErrOffline
	}
	return s.queue.Refresh(ctx)
}

// Sync replays the pending queue, or refreshes when the queue is empty.
func (s *Service) Sync(ctx context.Context) (syncqueue.Result, error) {
	if !s.monitor.Reachable() {
		return syncqueue.Result{}, types.ErrOffline
	}
	if s.queue.Len() == 0 {
		start := time.Now()
		if err := s.queue.Refresh(ctx); err != nil {
			return syncqueue.Result{}, err
		}
		return syncqueue.Result{Refreshed: true, Duration: time.Since(start)}, nil
	}
	return s.queue.Replay(ctx)
}

func (s *Service) lookup(tx *appstate.Tx, id string) (types.Task, error) {
	tasks := tx.Tasks()
	i := types.FindTask(tasks, id)
	if i < 0 {
		return types.Task{}, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	return tasks[i], nil
}

// apply runs the write contract for a. prev is the task before the
// change, zero for adds. It must run inside state.Do.
func (s *Service) apply(ctx context.Context, tx *appstate.Tx, a types.PendingAction, prev types.Task) Change {
	next := types.Apply(tx.Tasks(), a)
	tx.SetTasks(next)
	_ = s.mirror.SaveTasks(ctx, next)

	change := Change{Kind: a.Kind, Task: prev}
	if i := types.FindTask(next, a.TaskID); i >= 0 {
		change.Task = next[i]
	}

	logger := s.log.WithField("action", a.String())

	switch {
	case !s.monitor.Reachable():
		logger.Debug("offline, queueing action")
	case hasPendingFor(tx, a.TaskID):
		// Earlier actions for this task are still queued; sending now
		// would overtake them.
		logger.Debug("task has queued actions, queueing behind them")
	default:
		err := s.queue.Send(ctx, a)
		if err == nil {
			s.afterWrite(ctx, tx, a, prev, change.Task)
			return change
		}
		logger.WithError(err).Warn("remote write failed, queueing action")
	}

	s.queue.Enqueue(ctx, tx, a)
	change.Queued = true
	return change
}

func hasPendingFor(tx *appstate.Tx, id string) bool {
	for _, p := range tx.Pending() {
		if p.TaskID == id {
			return true
		}
	}
	return false
}

// afterWrite records activity and sends assignment notifications after a
// successful remote write. Failures are logged only.
func (s *Service) afterWrite(ctx context.Context, tx *appstate.Tx, a types.PendingAction, prev, cur types.Task) {
	if s.config.CurrentUser != "" {
		act := activityFor(a, prev, cur)
		act.ID = uuid.NewString()
		act.UserID = s.config.CurrentUser
		act.CreatedAt = s.now()
		if err := s.remote.AddActivity(ctx, act); err != nil {
			s.log.WithError(err).WithField("task_id", a.TaskID).Warn("failed to record activity")
		}
	}

	if s.config.Notifier == nil || a.Kind == types.ActionDelete {
		return
	}
	assignee := cur.AssigneeID()
	if assignee == "" || assignee == prev.AssigneeID() || assignee == s.config.CurrentUser {
		return
	}
	members := tx.Members()
	i := types.FindMember(members, assignee)
	if i < 0 || members[i].PushToken == nil || *members[i].PushToken == "" {
		return
	}
	s.config.Notifier.Go(notify.Notification{
		To:    *members[i].PushToken,
		Title: "New task assigned",
		Body:  cur.Text,
		Data:  map[string]any{"task_id": cur.ID},
	})
}

func activityFor(a types.PendingAction, prev, cur types.Task) types.Activity {
	act := types.Activity{TaskID: a.TaskID, Detail: map[string]any{}}
	switch a.Kind {
	case types.ActionAdd:
		act.Type = types.ActivityCreated
		act.Detail["text"] = cur.Text
	case types.ActionDelete:
		act.Type = types.ActivityDeleted
		act.Detail["text"] = prev.Text
	case types.ActionToggle:
		act.Type = types.ActivityToggled
		act.Detail["completed"] = cur.Completed
	default:
		p := a.Patch
		switch {
		case p.Status != nil:
			act.Type = types.ActivityStatusChanged
			act.Detail["from"] = string(prev.Status)
			act.Detail["to"] = string(*p.Status)
		case p.Assignee != nil:
			act.Type = types.ActivityAssigned
			act.Detail["from"] = prev.AssigneeID()
			act.Detail["to"] = cur.AssigneeID()
		default:
			act.Type = types.ActivityUpdated
		}
	}
	return act
}
