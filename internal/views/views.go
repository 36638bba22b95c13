// Package views derives the read-only presentations of a task list:
// sort orders, groupings, due-date state and the manual reorder plan.
// Every function is pure; inputs are never modified.
package views

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/honesthomesales/TODO/internal/types"
)

// View names a presentation of the task list.
type View string

const (
	ViewList     View = "list"
	ViewPriority View = "priority"
	ViewAssignee View = "assignee"
	ViewDate     View = "date"
)

// Views lists the known views.
var Views = []View{ViewList, ViewPriority, ViewAssignee, ViewDate}

// ParseView accepts a view name; empty means ViewList.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewList, nil
	case ViewList, ViewPriority, ViewAssignee, ViewDate:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown view %q (want list, priority, assignee or date)", types.ErrInvalid, s)
}

// Group is a titled run of tasks.
type Group struct {
	Key   string       `json:"key"`
	Title string       `json:"title"`
	Tasks []types.Task `json:"tasks"`
}

// Build returns the groups for view. The list view is a single group.
func Build(view View, tasks []types.Task, members []types.TeamMember) ([]Group, error) {
	switch view {
	case ViewList, "":
		return []Group{{Key: "all", Title: "All Tasks", Tasks: SortList(tasks)}}, nil
	case ViewPriority:
		return GroupByPriority(tasks), nil
	case ViewAssignee:
		return GroupByAssignee(tasks, members), nil
	case ViewDate:
		return GroupByDate(tasks), nil
	}
	return nil, fmt.Errorf("%w: unknown view %q", types.ErrInvalid, view)
}

// ===== Sort orders =====

func compareCompleted(a, b types.Task) int {
	switch {
	case a.Completed == b.Completed:
		return 0
	case a.Completed:
		return 1
	default:
		return -1
	}
}

func comparePriority(a, b types.Task) int {
	return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
}

// SortList orders tasks for the main list: incomplete first, then
// priority, then manual order.
func SortList(tasks []types.Task) []types.Task {
	out := types.CloneTasks(tasks)
	slices.SortStableFunc(out, func(a, b types.Task) int {
		return cmp.Or(
			compareCompleted(a, b),
			comparePriority(a, b),
			cmp.Compare(a.ManualOrder, b.ManualOrder),
		)
	})
	return out
}

// SortByDue orders tasks by schedule: incomplete first, then due date
// (undated last), then priority, then manual order. Manual reordering
// moves tasks within this order.
func SortByDue(tasks []types.Task) []types.Task {
	out := types.CloneTasks(tasks)
	slices.SortStableFunc(out, func(a, b types.Task) int {
		return cmp.Or(
			compareCompleted(a, b),
			a.DueDate.Compare(b.DueDate),
			comparePriority(a, b),
			cmp.Compare(a.ManualOrder, b.ManualOrder),
		)
	})
	return out
}

// ===== Groupings =====

// PriorityGroupTitle is the section title for p.
func PriorityGroupTitle(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return "High Priority"
	case types.PriorityMedium:
		return "Medium Priority"
	default:
		return "Low Priority"
	}
}

// GroupByPriority returns one group per priority present, most urgent
// first. Within a group incomplete tasks come first, then by due date.
func GroupByPriority(tasks []types.Task) []Group {
	sorted := types.CloneTasks(tasks)
	slices.SortStableFunc(sorted, func(a, b types.Task) int {
		return cmp.Or(
			comparePriority(a, b),
			compareCompleted(a, b),
			a.DueDate.Compare(b.DueDate),
		)
	})

	var groups []Group
	for _, t := range sorted {
		title := PriorityGroupTitle(t.Priority)
		if n := len(groups); n > 0 && groups[n-1].Title == title {
			groups[n-1].Tasks = append(groups[n-1].Tasks, t)
			continue
		}
		key := strings.ToLower(string(t.Priority))
		if !t.Priority.Valid() {
			key = "low"
		}
		groups = append(groups, Group{Key: key, Title: title, Tasks: []types.Task{t}})
	}
	return groups
}

// GroupByAssignee groups incomplete tasks by assignee in list order, with
// "Unassigned" for tasks without one and "Unknown" for ids that match no
// member. Completed tasks follow in a trailing "Completed" group.
func GroupByAssignee(tasks []types.Task, members []types.TeamMember) []Group {
	sorted := SortList(tasks)

	var groups []Group
	index := make(map[string]int)
	var completed []types.Task

	for _, t := range sorted {
		if t.Completed {
			completed = append(completed, t)
			continue
		}
		key, title := "unassigned", "Unassigned"
		if id := t.AssigneeID(); id != "" {
			key, title = id, "Unknown"
			if i := types.FindMember(members, id); i >= 0 {
				title = members[i].Name
			}
		}
		if i, ok := index[key]; ok {
			groups[i].Tasks = append(groups[i].Tasks, t)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Title: title, Tasks: []types.Task{t}})
	}

	if len(completed) > 0 {
		groups = append(groups, Group{Key: "completed", Title: "Completed", Tasks: completed})
	}
	return groups
}

// GroupByDate groups tasks by short due date ("Jan 2") in schedule order.
func GroupByDate(tasks []types.Task) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, t := range SortByDue(tasks) {
		key := t.DueDate.String()
		if t.DueDate.IsZero() {
			key = "none"
		}
		if i, ok := index[key]; ok {
			groups[i].Tasks = append(groups[i].Tasks, t)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, Group{Key: key, Title: t.DueDate.Short(), Tasks: []types.Task{t}})
	}
	return groups
}

// ForAssignee keeps the tasks assigned to memberID. An empty id keeps
// unassigned tasks.
func ForAssignee(tasks []types.Task, memberID string) []types.Task {
	out := []types.Task{}
	for _, t := range tasks {
		if t.AssigneeID() == memberID {
			out = append(out, t.Clone())
		}
	}
	return out
}
