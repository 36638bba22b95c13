// Package ui renders task lists and status lines for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

const (
	colorPass   = "#1abc9c"
	colorWarn   = "#faad14"
	colorFail   = "#ff4d4f"
	colorAccent = "#45b7d1"
	colorMuted  = "#8c8c8c"
)

// Printer styles output for one writer. Colors are dropped when the
// writer isn't a terminal or NO_COLOR is set.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	color    bool
}

// New creates a printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	color := isTerminal(w) && !termenv.EnvNoColor()
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{out: w, renderer: r, color: color}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Color reports whether the printer emits colors.
func (p *Printer) Color() bool { return p.color }

// Out is the underlying writer.
func (p *Printer) Out() io.Writer { return p.out }

func (p *Printer) fg(hex string) lipgloss.Style {
	return p.renderer.NewStyle().Foreground(lipgloss.Color(hex))
}

func (p *Printer) Pass(s string) string   { return p.fg(colorPass).Render(s) }
func (p *Printer) Warn(s string) string   { return p.fg(colorWarn).Render(s) }
func (p *Printer) Fail(s string) string   { return p.fg(colorFail).Render(s) }
func (p *Printer) Accent(s string) string { return p.fg(colorAccent).Bold(true).Render(s) }
func (p *Printer) Muted(s string) string  { return p.fg(colorMuted).Render(s) }

// Colored renders s in the hex color.
func (p *Printer) Colored(hex, s string) string { return p.fg(hex).Render(s) }

// Printf writes to the printer's writer.
func (p *Printer) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// ===== Task rendering =====

// Checkbox is the completion marker for t.
func Checkbox(t types.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

// ShortID is the id prefix shown in lists; Resolve accepts it back.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// AssigneeLabel is the assignee's initials, "?" for an unknown id, or
// "-" when unassigned.
func AssigneeLabel(t types.Task, members []types.TeamMember) string {
	if t.Assignee == nil {
		return "-"
	}
	i := types.FindMember(members, *t.Assignee)
	if i < 0 {
		return "?"
	}
	return members[i].Initials()
}

// DueLabel is the short due date, or "-" when undated.
func DueLabel(t types.Task) string {
	if t.DueDate.IsZero() {
		return "-"
	}
	return t.DueDate.Short()
}

// Groups renders view groups as one table per group.
func (p *Printer) Groups(groups []views.Group, members []types.TeamMember, today types.Date) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s\n", p.Accent(g.Title), p.Muted(fmt.Sprintf("(%d)", len(g.Tasks))))
		if len(g.Tasks) == 0 {
			b.WriteString(p.Muted("  no tasks") + "\n")
			continue
		}
		b.WriteString(p.Table(g.Tasks, members, today))
		b.WriteString("\n")
	}
	return b.String()
}

// Table renders tasks in the given order.
func (p *Printer) Table(tasks []types.Task, members []types.TeamMember, today types.Date) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		state := views.DueStateOf(t, today)
		text := t.Text
		if t.Completed {
			text = p.renderer.NewStyle().Strikethrough(true).Foreground(lipgloss.Color(colorMuted)).Render(text)
		}
		rows = append(rows, []string{
			p.Muted(ShortID(t.ID)),
			Checkbox(t),
			text,
			p.fg(views.PriorityColor(t.Priority)).Render(string(t.Priority)),
			p.fg(state.Color()).Render(DueLabel(t)),
			p.fg(views.AssigneeColor(t, members)).Render(AssigneeLabel(t, members)),
			t.Status.Label(),
		})
	}

	header := p.renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := p.renderer.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.fg(colorMuted)).
		Headers("ID", "", "TASK", "PRIORITY", "DUE", "WHO", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}

// Detail renders one task with every field.
func (p *Printer) Detail(t types.Task, members []types.TeamMember, today types.Date) string {
	state := views.DueStateOf(t, today)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", Checkbox(t), p.Accent(t.Text))
	fmt.Fprintf(&b, "  id:        %s\n", t.ID)
	fmt.Fprintf(&b, "  status:    %s\n", t.Status.Label())
	fmt.Fprintf(&b, "  priority:  %s\n", p.fg(views.PriorityColor(t.Priority)).Render(string(t.Priority)))
	if !t.DueDate.IsZero() {
		fmt.Fprintf(&b, "  due:       %s (%s)\n", p.fg(state.Color()).Render(t.DueDate.String()), state)
	}
	assignee := "unassigned"
	if t.Assignee != nil {
		assignee = *t.Assignee
		if i := types.FindMember(members, *t.Assignee); i >= 0 {
			assignee = members[i].Name
		}
	}
	fmt.Fprintf(&b, "  assignee:  %s\n", assignee)
	if t.CompletedAt != nil {
		fmt.Fprintf(&b, "  completed: %s\n", t.CompletedAt.Local().Format("Jan 2 15:04"))
	}
	return b.String()
}
