package types

import (
	"fmt"
	"time"
)

// TaskPatch is a partial task update. Nil fields are left untouched.
// A non-nil Assignee pointing at "" clears the assignee.
type TaskPatch struct {
	Text        *string    `json:"text,omitempty"`
	DueDate     *Date      `json:"due_date,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	ManualOrder *int       `json:"manual_order,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Text == nil && p.DueDate == nil && p.Priority == nil &&
		p.Assignee == nil && p.Completed == nil && p.Status == nil &&
		p.ManualOrder == nil && p.CompletedAt == nil
}

// Validate rejects patches that would produce an invalid task.
func (p TaskPatch) Validate() error {
	if p.Text != nil {
		probe := Task{ID: "probe", Text: *p.Text, Priority: PriorityMedium, Status: StatusTodo}
		if err := probe.Validate(); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, *p.Priority)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, *p.Status)
	}
	return nil
}

// ApplyTo returns t with the patch applied. Setting Completed to false
// also clears CompletedAt.
func (p TaskPatch) ApplyTo(t Task) Task {
	out := t.Clone()
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.DueDate != nil {
		out.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Assignee != nil {
		if *p.Assignee == "" {
			out.Assignee = nil
		} else {
			a := *p.Assignee
			out.Assignee = &a
		}
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
		if !*p.Completed {
			out.CompletedAt = nil
		}
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ManualOrder != nil {
		out.ManualOrder = *p.ManualOrder
	}
	if p.CompletedAt != nil {
		ts := *p.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}

// ActionKind tags a PendingAction.
type ActionKind string

const (
	ActionAdd    ActionKind = "add"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
	ActionToggle ActionKind = "toggle"
)

// Valid reports whether k is a known kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionAdd, ActionUpdate, ActionDelete, ActionToggle:
		return true
	}
	return false
}

// PendingAction is a mutation that has not reached the remote store yet.
//
// Add actions carry the full task. Update and toggle carry the task id and
// the patch computed when the mutation happened, so a replay writes values
// instead of re-deriving them. Delete carries only the id.
type PendingAction struct {
	Kind   ActionKind `json:"kind"`
	TaskID string     `json:"task_id"`
	Task   *Task      `json:"task,omitempty"`
	Patch  *TaskPatch `json:"patch,omitempty"`

	QueuedAt  time.Time `json:"queued_at"`
	Attempts  int       `json:"attempts,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// NewAddAction queues the insertion of task.
func NewAddAction(task Task) PendingAction {
	c := task.Clone()
	return PendingAction{Kind: ActionAdd, TaskID: task.ID, Task: &c, QueuedAt: time.Now().UTC()}
}

// NewUpdateAction queues a partial update.
func NewUpdateAction(id string, patch TaskPatch) PendingAction {
	p := patch
	return PendingAction{Kind: ActionUpdate, TaskID: id, Patch: &p, QueuedAt: time.Now().UTC()}
}

// NewDeleteAction queues the removal of id.
func NewDeleteAction(id string) PendingAction {
	return PendingAction{Kind: ActionDelete, TaskID: id, QueuedAt: time.Now().UTC()}
}

// NewToggleAction queues a completion change. completedAt is recorded
// when completed is true.
func NewToggleAction(id string, completed bool, completedAt *time.Time) PendingAction {
	p := TogglePatch(completed, completedAt)
	return PendingAction{Kind: ActionToggle, TaskID: id, Patch: &p, QueuedAt: time.Now().UTC()}
}

// TogglePatch builds the patch written by a completion toggle.
// Completing moves status to complete; reopening moves it back to todo.
func TogglePatch(completed bool, completedAt *time.Time) TaskPatch {
	status := StatusTodo
	if completed {
		status = StatusComplete
	}
	p := TaskPatch{Completed: &completed, Status: &status}
	if completed && completedAt != nil {
		ts := *completedAt
		p.CompletedAt = &ts
	}
	return p
}

// Validate checks the action carries what its kind needs.
func (a *PendingAction) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalid, a.Kind)
	}
	if a.TaskID == "" {
		return fmt.Errorf("%w: %s action without task id", ErrInvalid, a.Kind)
	}
	switch a.Kind {
	case ActionAdd:
		if a.Task == nil {
			return fmt.Errorf("%w: add action without task payload", ErrInvalid)
		}
		if a.Task.ID != a.TaskID {
			return fmt.Errorf("%w: add action id mismatch (%s != %s)", ErrInvalid, a.Task.ID, a.TaskID)
		}
	case ActionUpdate, ActionToggle:
		if a.Patch == nil {
			return fmt.Errorf("%w: %s action without patch", ErrInvalid, a.Kind)
		}
	}
	return nil
}

// String is a short description for logs.
func (a PendingAction) String() string {
	return fmt.Sprintf("%s(%s)", a.Kind, a.TaskID)
}

// CloneActions deep-copies an action slice.
func CloneActions(actions []PendingAction) []PendingAction {
	out := make([]PendingAction, len(actions))
	for i, a := range actions {
		c := a
		if a.Task != nil {
			t := a.Task.Clone()
			c.Task = &t
		}
		if a.Patch != nil {
			p := *a.Patch
			c.Patch = &p
		}
		out[i] = c
	}
	return out
}
