package views

import "github.com/honesthomesales/TODO/internal/types"

// DueState classifies a task against today.
type DueState string

const (
	DueComplete DueState = "complete"
	DueOverdue  DueState = "overdue"
	DueToday    DueState = "today"
	DueUpcoming DueState = "upcoming"
	DueNone     DueState = "none"
)

// DueStateOf classifies t. Completed tasks are complete regardless of
// date; undated tasks are none.
func DueStateOf(t types.Task, today types.Date) DueState {
	switch {
	case t.Completed:
		return DueComplete
	case t.DueDate.IsZero():
		return DueNone
	case t.DueDate.Equal(today):
		return DueToday
	case t.DueDate.Before(today):
		return DueOverdue
	default:
		return DueUpcoming
	}
}

// Label is the status text shown next to the due state.
func (s DueState) Label() string {
	if s == DueComplete {
		return "Complete"
	}
	return "To Do"
}

// Color is the accent for s. Due today and overdue share the alert red.
func (s DueState) Color() string {
	switch s {
	case DueComplete:
		return "#1abc9c"
	case DueToday, DueOverdue:
		return "#ff4d4f"
	case DueUpcoming:
		return "#faad14"
	default:
		return "#8c8c8c"
	}
}

// PriorityColor is the accent for p.
func PriorityColor(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return "#ff4d4f"
	case types.PriorityLow:
		return "#8c8c8c"
	default:
		return "#faad14"
	}
}

// TeamColors is the member avatar palette.
var TeamColors = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#feca57",
	"#ff9ff3", "#54a0ff", "#5f27cd", "#00d2d3", "#ff9f43",
}

// UnassignedColor is used for tasks without a known assignee.
const UnassignedColor = "#cccccc"

// MemberColor returns the palette color for the member at index in the
// member list. Negative indexes get UnassignedColor.
func MemberColor(index int) string {
	if index < 0 {
		return UnassignedColor
	}
	return TeamColors[index%len(TeamColors)]
}

// AssigneeColor returns the color for a task's assignee.
func AssigneeColor(t types.Task, members []types.TeamMember) string {
	if t.Assignee == nil {
		return UnassignedColor
	}
	return MemberColor(types.FindMember(members, *t.Assignee))
}
