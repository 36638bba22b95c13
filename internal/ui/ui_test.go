package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

var (
	today   = types.NewDate(2024, time.June, 1)
	members = []types.TeamMember{{ID: "m1", Name: "Ada Lovelace"}}
)

func sample() []types.Task {
	return []types.Task{
		{ID: "0123456789abcdef", Text: "Buy milk", Status: types.StatusTodo, Priority: types.PriorityHigh, DueDate: today, Assignee: types.StringPtr("m1")},
		{ID: "fedcba9876543210", Text: "File taxes", Status: types.StatusComplete, Completed: true, Priority: types.PriorityLow},
		{ID: "ghost", Text: "Orphan", Status: types.StatusInProgress, Priority: types.PriorityMedium, Assignee: types.StringPtr("gone")},
	}
}

func TestTablePlain(t *testing.T) {
	p := New(&bytes.Buffer{})
	if p.Color() {
		t.Fatal("a buffer is not a terminal")
	}
	out := p.Table(sample(), members, today)
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain output contains escape codes:\n%s", out)
	}
	for _, want := range []string{"TASK", "01234567", "Buy milk", "[x]", "AL", "?", "Jun 1", "In Progress"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestGroups(t *testing.T) {
	p := New(&bytes.Buffer{})
	out := p.Groups(views.GroupByPriority(sample()), members, today)
	for _, want := range []string{"High Priority (1)", "Low Priority (1)", "Medium Priority (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("groups missing %q:\n%s", want, out)
		}
	}
	empty := p.Groups([]views.Group{{Title: "Completed"}}, nil, today)
	if !strings.Contains(empty, "no tasks") {
		t.Errorf("empty group = %q", empty)
	}
}

func TestDetail(t *testing.T) {
	p := New(&bytes.Buffer{})
	task := sample()[0]
	out := p.Detail(task, members, today)
	for _, want := range []string{"Buy milk", task.ID, "Ada Lovelace", "2024-06-01 (today)"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name string
		task types.Task
		who  string
		due  string
	}{
		{"unassigned undated", types.Task{}, "-", "-"},
		{"known member", types.Task{Assignee: types.StringPtr("m1"), DueDate: today}, "AL", "Jun 1"},
		{"dangling member", types.Task{Assignee: types.StringPtr("x")}, "?", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssigneeLabel(tt.task, members); got != tt.who {
				t.Errorf("AssigneeLabel() = %q, want %q", got, tt.who)
			}
			if got := DueLabel(tt.task); got != tt.due {
				t.Errorf("DueLabel() = %q, want %q", got, tt.due)
			}
		})
	}
	if ShortID("abc") != "abc" {
		t.Error("short ids should be kept whole")
	}
}

func TestParseDue(t *testing.T) {
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want types.Date
	}{
		{"2024-07-04", types.NewDate(2024, time.July, 4)},
		{"tomorrow", types.NewDate(2024, time.June, 2)},
		{"none", types.Date{}},
		{"", types.Date{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDue(tt.in, now)
			if err != nil {
				t.Fatalf("ParseDue(%q) failed: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDue(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseDue("qwzx", now); !errors.Is(err, types.ErrInvalid) {
		t.Errorf("ParseDue(qwzx) = %v, want ErrInvalid", err)
	}
}
