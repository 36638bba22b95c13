// Package appstate holds the in-memory application state shared by the
// task facade and the sync queue.
//
// All reads and writes go through Do, which runs the callback while
// holding the state lock. Facade mutations and replay passes therefore
// run to completion one at a time, the way a single event loop would
// run them.
//
// When the backing mirror is shared with other processes, Share attaches
// it: Do then holds the mirror's lock for the duration of the callback
// and first picks up anything another process saved.
package appstate

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/types"
)

// State is the current task list, pending action queue and member cache.
type State struct {
	mu sync.Mutex
	tx Tx

	shared   Shared
	onReload []func(Snapshot)
	log      *log.Entry
}

// Shared is persistent storage that other processes also write.
type Shared interface {
	// Lock blocks until the caller holds the storage exclusively and
	// returns the func that releases it.
	Lock() (unlock func(), err error)
	// Reload returns the persisted state if another writer saved since
	// the last Reload or save.
	Reload() (Snapshot, bool)
}

// Tx is the view of State handed to a Do callback. It is only valid for
// the duration of the callback.
type Tx struct {
	tasks   []types.Task
	pending []types.PendingAction
	members []types.TeamMember
}

// New returns a State seeded with the given values, typically the
// mirror's persisted copies read at startup.
func New(tasks []types.Task, pending []types.PendingAction, members []types.TeamMember) *State {
	return &State{tx: Tx{
		tasks:   types.CloneTasks(tasks),
		pending: types.CloneActions(pending),
		members: cloneMembers(members),
	}}
}

// Share attaches storage other processes write to. It must be called
// before the State is used concurrently. If logger is nil the standard
// logger is used.
func (s *State) Share(shared Shared, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = shared
	s.log = logger.WithField("component", "appstate")
}

// OnReload registers fn to be called, with the state lock held, whenever
// Do replaces the state with copies another process saved.
func (s *State) OnReload(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// Do runs fn while holding the state lock.
func (s *State) Do(fn func(tx *Tx)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shared != nil {
		unlock, err := s.shared.Lock()
		if err != nil {
			s.log.WithError(err).Warn("running without the shared state lock")
		} else {
			defer unlock()
		}
		if snap, ok := s.shared.Reload(); ok {
			s.tx = Tx{
				tasks:   types.CloneTasks(snap.Tasks),
				pending: types.CloneActions(snap.Pending),
				members: cloneMembers(snap.Members),
			}
			for _, fn := range s.onReload {
				fn(snap)
			}
		}
	}
	fn(&s.tx)
}

// Snapshot is a point-in-time copy of State.
type Snapshot struct {
	Tasks   []types.Task
	Pending []types.PendingAction
	Members []types.TeamMember
}

// Snapshot returns deep copies of the current state.
func (s *State) Snapshot() Snapshot {
	var snap Snapshot
	s.Do(func(tx *Tx) {
		snap = Snapshot{
			Tasks:   tx.Tasks(),
			Pending: tx.Pending(),
			Members: tx.Members(),
		}
	})
	return snap
}

// Tasks returns a copy of the task list.
func (tx *Tx) Tasks() []types.Task { return types.CloneTasks(tx.tasks) }

// SetTasks replaces the task list.
func (tx *Tx) SetTasks(tasks []types.Task) { tx.tasks = types.CloneTasks(tasks) }

// Pending returns a copy of the pending action queue in enqueue order.
func (tx *Tx) Pending() []types.PendingAction { return types.CloneActions(tx.pending) }

// SetPending replaces the pending action queue.
func (tx *Tx) SetPending(actions []types.PendingAction) { tx.pending = types.CloneActions(actions) }

// PendingLen is the queue length.
func (tx *Tx) PendingLen() int { return len(tx.pending) }

// Members returns a copy of the cached team members.
func (tx *Tx) Members() []types.TeamMember { return cloneMembers(tx.members) }

// SetMembers replaces the cached team members.
func (tx *Tx) SetMembers(members []types.TeamMember) { tx.members = cloneMembers(members) }

func cloneMembers(members []types.TeamMember) []types.TeamMember {
	out := make([]types.TeamMember, len(members))
	for i, m := range members {
		c := m
		if m.PushToken != nil {
			tok := *m.PushToken
			c.PushToken = &tok
		}
		out[i] = c
	}
	return out
}
