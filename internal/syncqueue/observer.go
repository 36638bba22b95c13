package syncqueue

import "github.com/honesthomesales/TODO/internal/types"

// ActionState is where an action is in its replay lifecycle.
type ActionState int

const (
	// StateQueued means the action was just appended.
	StateQueued ActionState = iota
	// StateReplaying means its remote call is in flight.
	StateReplaying
	// StateApplied means the remote accepted it and it left the queue.
	StateApplied
	// StateRequeued means it stays queued for the next pass.
	StateRequeued
	// StateDropped means it failed and was discarded.
	StateDropped
)

// String returns a human-readable representation of the state.
func (s ActionState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateReplaying:
		return "replaying"
	case StateApplied:
		return "applied"
	case StateRequeued:
		return "requeued"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Observer receives queue events. Methods are called while the app-state
// lock is held (except OnReplayComplete), so they must not call back into
// the queue or the task service.
type Observer interface {
	OnQueueChanged(pending []types.PendingAction)
	OnActionState(a types.PendingAction, state ActionState, err error)
	OnTasksRefreshed(tasks []types.Task)
	OnReplayComplete(res Result, err error)
}

// ObserverFuncs adapts optional functions to Observer.
type ObserverFuncs struct {
	QueueChanged   func(pending []types.PendingAction)
	ActionState    func(a types.PendingAction, state ActionState, err error)
	TasksRefreshed func(tasks []types.Task)
	ReplayComplete func(res Result, err error)
}

func (f ObserverFuncs) OnQueueChanged(pending []types.PendingAction) {
	if f.QueueChanged != nil {
		f.QueueChanged(pending)
	}
}

func (f ObserverFuncs) OnActionState(a types.PendingAction, state ActionState, err error) {
	if f.ActionState != nil {
		f.ActionState(a, state, err)
	}
}

func (f ObserverFuncs) OnTasksRefreshed(tasks []types.Task) {
	if f.TasksRefreshed != nil {
		f.TasksRefreshed(tasks)
	}
}

func (f ObserverFuncs) OnReplayComplete(res Result, err error) {
	if f.ReplayComplete != nil {
		f.ReplayComplete(res, err)
	}
}

// AddObserver registers o for future events.
func (q *Queue) AddObserver(o Observer) {
	q.obsMu.Lock()
	defer q.obsMu.Unlock()
	q.observers = append(q.observers, o)
}

func (q *Queue) snapshotObservers() []Observer {
	q.obsMu.RLock()
	defer q.obsMu.RUnlock()
	return append([]Observer(nil), q.observers...)
}

func (q *Queue) notifyQueueChanged(pending []types.PendingAction) {
	for _, o := range q.snapshotObservers() {
		o.OnQueueChanged(types.CloneActions(pending))
	}
}

func (q *Queue) notifyActionState(a types.PendingAction, state ActionState, err error) {
	for _, o := range q.snapshotObservers() {
		o.OnActionState(a, state, err)
	}
}

func (q *Queue) notifyTasksRefreshed(tasks []types.Task) {
	for _, o := range q.snapshotObservers() {
		o.OnTasksRefreshed(types.CloneTasks(tasks))
	}
}

func (q *Queue) notifyReplayComplete(res Result, err error) {
	for _, o := range q.snapshotObservers() {
		o.OnReplayComplete(res, err)
	}
}
