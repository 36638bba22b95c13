package types

import (
	"testing"
	"time"
)

func sampleTask(id, text string, order int) Task {
	return Task{
		ID:          id,
		Text:        text,
		Priority:    PriorityMedium,
		Status:      StatusTodo,
		DueDate:     NewDate(2024, time.June, 1),
		ManualOrder: order,
	}
}

func TestApplyAdd(t *testing.T) {
	start := []Task{sampleTask("t1", "one", 0)}
	got := Apply(start, NewAddAction(sampleTask("t2", "two", 1)))

	if len(got) != 2 || got[1].ID != "t2" {
		t.Fatalf("Apply(add) = %+v", got)
	}
	if len(start) != 1 {
		t.Errorf("Apply mutated its input")
	}

	// Adding an existing id replaces it in place.
	replaced := Apply(got, NewAddAction(sampleTask("t1", "uno", 0)))
	if len(replaced) != 2 || replaced[0].Text != "uno" {
		t.Errorf("Apply(add existing) = %+v", replaced)
	}
}

func TestApplyUpdate(t *testing.T) {
	start := []Task{sampleTask("t1", "one", 0)}
	status := StatusInProgress
	prio := PriorityHigh
	got := Apply(start, NewUpdateAction("t1", TaskPatch{Status: &status, Priority: &prio}))

	if got[0].Status != StatusInProgress || got[0].Priority != PriorityHigh {
		t.Errorf("Apply(update) = %+v", got[0])
	}
	if got[0].Text != "one" {
		t.Errorf("untouched field changed: %q", got[0].Text)
	}
	if start[0].Status != StatusTodo {
		t.Errorf("Apply mutated its input")
	}
}

func TestApplyUpdateClearsAssignee(t *testing.T) {
	task := sampleTask("t1", "one", 0)
	task.Assignee = StringPtr("m1")

	got := Apply([]Task{task}, NewUpdateAction("t1", TaskPatch{Assignee: StringPtr("")}))
	if got[0].Assignee != nil {
		t.Errorf("assignee = %v, want nil", *got[0].Assignee)
	}
}

func TestApplyToggle(t *testing.T) {
	start := []Task{sampleTask("t1", "one", 0)}
	at := time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)

	done := Apply(start, NewToggleAction("t1", true, &at))
	if !done[0].Completed || done[0].Status != StatusComplete || done[0].CompletedAt == nil {
		t.Fatalf("toggle on = %+v", done[0])
	}

	reopened := Apply(done, NewToggleAction("t1", false, nil))
	if reopened[0].Completed || reopened[0].Status != StatusTodo || reopened[0].CompletedAt != nil {
		t.Errorf("toggle off = %+v", reopened[0])
	}
}

func TestApplyDelete(t *testing.T) {
	start := []Task{sampleTask("t1", "one", 0), sampleTask("t2", "two", 1)}
	got := Apply(start, NewDeleteAction("t1"))

	if len(got) != 1 || got[0].ID != "t2" {
		t.Errorf("Apply(delete) = %+v", got)
	}
	if len(start) != 2 || start[0].ID != "t1" {
		t.Errorf("Apply mutated its input: %+v", start)
	}
}

func TestApplyUnknownID(t *testing.T) {
	start := []Task{sampleTask("t1", "one", 0)}
	text := "changed"
	got := ApplyAll(start, []PendingAction{
		NewUpdateAction("missing", TaskPatch{Text: &text}),
		NewDeleteAction("missing"),
	})
	if len(got) != 1 || got[0].Text != "one" {
		t.Errorf("ApplyAll with unknown ids = %+v", got)
	}
}

func TestPendingActionValidate(t *testing.T) {
	task := sampleTask("t1", "one", 0)
	tests := []struct {
		name    string
		action  PendingAction
		wantErr bool
	}{
		{"add", NewAddAction(task), false},
		{"delete", NewDeleteAction("t1"), false},
		{"toggle", NewToggleAction("t1", true, nil), false},
		{"unknown kind", PendingAction{Kind: "merge", TaskID: "t1"}, true},
		{"missing id", PendingAction{Kind: ActionDelete}, true},
		{"add without payload", PendingAction{Kind: ActionAdd, TaskID: "t1"}, true},
		{"update without patch", PendingAction{Kind: ActionUpdate, TaskID: "t1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
