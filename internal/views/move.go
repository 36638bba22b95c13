package views

import (
	"fmt"
	"strings"

	"github.com/honesthomesales/TODO/internal/types"
)

// Direction is a manual reorder step.
type Direction int

const (
	Up Direction = iota
	Down
)

// String returns "up" or "down".
func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	}
	return Up, fmt.Errorf("%w: unknown direction %q (want up or down)", types.ErrInvalid, s)
}

// MovePlan is the pair of updates that moves a task one step.
type MovePlan struct {
	TaskID        string
	Patch         types.TaskPatch
	NeighborID    string
	NeighborPatch types.TaskPatch
}

// MoveTarget plans moving task id one step in dir within SortByDue order.
//
// The task and its neighbour swap manual order. When they have the same
// manual order the sorted positions are used instead so the move is
// visible. If the neighbour has a different due date the moved task adopts
// it. ok is false when the task is already at the edge.
func MoveTarget(tasks []types.Task, id string, dir Direction) (plan MovePlan, ok bool, err error) {
	sorted := SortByDue(tasks)

	cur := types.FindTask(sorted, id)
	if cur < 0 {
		return MovePlan{}, false, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}

	next := cur - 1
	if dir == Down {
		next = cur + 1
	}
	if next < 0 || next >= len(sorted) {
		return MovePlan{}, false, nil
	}

	current, target := sorted[cur], sorted[next]

	curOrder, targetOrder := target.ManualOrder, current.ManualOrder
	if curOrder == targetOrder {
		curOrder, targetOrder = next, cur
	}

	plan = MovePlan{
		TaskID:        current.ID,
		Patch:         types.TaskPatch{ManualOrder: &curOrder},
		NeighborID:    target.ID,
		NeighborPatch: types.TaskPatch{ManualOrder: &targetOrder},
	}
	if !current.DueDate.Equal(target.DueDate) {
		due := target.DueDate
		plan.Patch.DueDate = &due
	}
	return plan, true, nil
}
