// Package types defines the task tracker's domain model: tasks, team
// members, pending sync actions and the pure reductions over them.
package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxTextLength bounds task text.
const MaxTextLength = 500

// Priority is one of a fixed, ordered set of labels.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority accepts a label in any case. Empty input means Medium,
// the default the remote store falls back to.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "high", "h":
		return PriorityHigh, nil
	case "medium", "med", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q (want High, Medium or Low)", ErrInvalid, s)
}

// Valid reports whether p is one of the known labels.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Rank orders priorities: High=0, Medium=1, Low=2. Unknown labels rank
// as Medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Status is the workflow state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusComplete   Status = "complete"
)

// Statuses lists all workflow states in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusComplete}

// ParseStatus accepts the wire value plus common spellings.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "todo", "to-do", "to do":
		return StatusTodo, nil
	case "inprogress", "in-progress", "in_progress", "in progress", "doing":
		return StatusInProgress, nil
	case "complete", "completed", "done":
		return StatusComplete, nil
	}
	return "", fmt.Errorf("%w: unknown status %q (want todo, inprogress or complete)", ErrInvalid, s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusComplete
}

// Label is the human form of the status.
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusComplete:
		return "Complete"
	default:
		return "To Do"
	}
}

// Task is a single to-do item as stored locally and remotely.
// Field names on the wire match the remote todos table.
type Task struct {
	// ===== Core Identification =====
	ID string `json:"id" yaml:"id"`

	// ===== Content =====
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"completed"`
	Status    Status `json:"status" yaml:"status"`

	// ===== Scheduling & Ordering =====
	DueDate     Date     `json:"due_date" yaml:"due_date"`
	Priority    Priority `json:"priority" yaml:"priority"`
	ManualOrder int      `json:"manual_order" yaml:"manual_order"`

	// ===== Assignment =====
	Assignee *string `json:"assignee" yaml:"assignee"` // team member id, nil = unassigned

	// ===== Reporting =====
	CreatedAt   *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Validate checks that t can be stored.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalid)
	}
	if len(t.Text) > MaxTextLength {
		return fmt.Errorf("%w: text must be %d characters or less (got %d)", ErrInvalid, MaxTextLength, len(t.Text))
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, t.Priority)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, t.Status)
	}
	return nil
}

// SetDefaults fills fields the remote store may leave empty.
func (t *Task) SetDefaults() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
}

// AssigneeID returns the assignee id or "".
func (t *Task) AssigneeID() string {
	if t.Assignee == nil {
		return ""
	}
	return *t.Assignee
}

// IsAssignedTo reports whether the task belongs to memberID.
func (t *Task) IsAssignedTo(memberID string) bool {
	return t.Assignee != nil && *t.Assignee == memberID
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	if t.Assignee != nil {
		a := *t.Assignee
		c.Assignee = &a
	}
	if t.CreatedAt != nil {
		ts := *t.CreatedAt
		c.CreatedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return c
}

// CloneTasks deep-copies a task slice. A nil input yields an empty slice.
func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// FindTask returns the index of id in tasks, or -1.
func FindTask(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// ResolveID finds the single task whose id equals ref or starts with it.
func ResolveID(tasks []Task, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	var match string
	for _, t := range tasks {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%w: task id prefix %q is ambiguous", ErrInvalid, ref)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("task %s: %w", ref, ErrNotFound)
	}
	return match, nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
