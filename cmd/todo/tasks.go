package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/tasks"
	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/ui"
	"github.com/honesthomesales/TODO/internal/views"
)

var addCmd = &cobra.Command{
	Use:     "add [text...]",
	GroupID: "tasks",
	Short:   "Add a task",
	Long: `Add a task. The due date accepts YYYY-MM-DD or phrases such as
"tomorrow" or "next friday".

Examples:
  todo add Buy milk --due tomorrow --priority high
  todo add "Call the plumber" --assign ada
  todo add -i`,
	RunE: runAdd,
}

var listCmd = &cobra.Command{
	Use:     "list [view]",
	Aliases: []string{"ls"},
	GroupID: "tasks",
	Short:   "List tasks (views: list, priority, assignee, date)",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runList,
}

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "tasks",
	Short:   "Show one task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		t, err := svc.Get(id)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), printer(cmd).Detail(t, svc.Members().Cached(), types.Today()))
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:     "toggle <id>",
	Aliases: []string{"done"},
	GroupID: "tasks",
	Short:   "Toggle a task between complete and not complete",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		t, err := svc.Toggle(ctxOf(cmd), id)
		if err != nil {
			return err
		}
		p := printer(cmd)
		state := "reopened"
		if t.Completed {
			state = "completed"
		}
		p.Printf("%s %s %s%s\n", p.Pass("✓"), state, t.Text, onlineNote(p))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove", "delete"},
	GroupID: "tasks",
	Short:   "Remove a task",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		t, _ := svc.Get(id)
		if err := svc.Remove(ctxOf(cmd), id); err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s removed %s%s\n", p.Pass("✓"), t.Text, onlineNote(p))
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Aliases: []string{"edit"},
	GroupID: "tasks",
	Short:   "Change a task's text, due date, priority, assignee or status",
	Args:    cobra.ExactArgs(1),
	RunE:    runUpdate,
}

var moveCmd = &cobra.Command{
	Use:     "move <id> <up|down>",
	GroupID: "tasks",
	Short:   "Move a task one step in the list order",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		dir, err := views.ParseDirection(args[1])
		if err != nil {
			return err
		}
		if err := svc.Move(ctxOf(cmd), id, dir); err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s moved %s%s\n", p.Pass("✓"), dir, onlineNote(p))
		return nil
	},
}

func init() {
	addCmd.Flags().String("due", "", "Due date (YYYY-MM-DD, today, tomorrow, next friday, ...)")
	addCmd.Flags().StringP("priority", "p", "Medium", "Priority: high, medium or low")
	addCmd.Flags().StringP("assign", "a", "", "Assignee (member id, name or email)")
	addCmd.Flags().BoolP("interactive", "i", false, "Fill in the task with a form")

	listCmd.Flags().String("view", "", "View: list, priority, assignee or date")
	listCmd.Flags().String("format", "table", "Output format: table, json or yaml")
	listCmd.Flags().String("assignee", "", "Only tasks assigned to this member")
	listCmd.Flags().Bool("open", false, "Hide completed tasks")

	updateCmd.Flags().String("text", "", "New text")
	updateCmd.Flags().String("due", "", "New due date, or none to clear it")
	updateCmd.Flags().StringP("priority", "p", "", "New priority")
	updateCmd.Flags().StringP("assign", "a", "", "New assignee")
	updateCmd.Flags().Bool("unassign", false, "Clear the assignee")
	updateCmd.Flags().StringP("status", "s", "", "New status: todo, inprogress or complete")

	rootCmd.AddCommand(addCmd, listCmd, showCmd, toggleCmd, rmCmd, updateCmd, moveCmd)
}

// resolveMember finds a member by id, name or email, refreshing the
// member cache first when online.
func resolveMember(cmd *cobra.Command, ref string) (string, error) {
	members := application.Tasks.Members()
	members.List(ctxOf(cmd))
	m, err := members.Resolve(ref)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	dueStr, _ := cmd.Flags().GetString("due")
	prioStr, _ := cmd.Flags().GetString("priority")
	assignRef, _ := cmd.Flags().GetString("assign")
	text := strings.Join(args, " ")

	if interactive {
		var err error
		text, dueStr, prioStr, assignRef, err = addForm(cmd, text, dueStr, prioStr)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: task text is required", types.ErrInvalid)
	}

	draft := tasks.Draft{Text: text}
	var err error
	if draft.DueDate, err = ui.ParseDue(dueStr, time.Now()); err != nil {
		return err
	}
	if draft.Priority, err = types.ParsePriority(prioStr); err != nil {
		return err
	}
	if assignRef != "" {
		id, err := resolveMember(cmd, assignRef)
		if err != nil {
			return err
		}
		draft.Assignee = &id
	}

	t, err := application.Tasks.Add(ctxOf(cmd), draft)
	if err != nil {
		return err
	}
	p := printer(cmd)
	p.Printf("%s added %s %s%s\n", p.Pass("✓"), p.Muted(ui.ShortID(t.ID)), t.Text, onlineNote(p))
	return nil
}

// addForm asks for the task fields with a huh form, starting from the
// values already given on the command line.
func addForm(cmd *cobra.Command, text, due, prio string) (string, string, string, string, error) {
	assignee := ""
	options := []huh.Option[string]{huh.NewOption("Unassigned", "")}
	for _, m := range application.Tasks.Members().List(ctxOf(cmd)) {
		options = append(options, huh.NewOption(m.Name, m.ID))
	}
	if p, err := types.ParsePriority(prio); err == nil {
		prio = string(p)
	}

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Task").
			Value(&text).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("task text is required")
				}
				return nil
			}),
		huh.NewInput().
			Title("Due").
			Placeholder("tomorrow, next friday, 2024-06-01").
			Value(&due).
			Validate(func(s string) error {
				_, err := ui.ParseDue(s, time.Now())
				return err
			}),
		huh.NewSelect[string]().
			Title("Priority").
			Options(huh.NewOptions(string(types.PriorityHigh), string(types.PriorityMedium), string(types.PriorityLow))...).
			Value(&prio),
		huh.NewSelect[string]().
			Title("Assignee").
			Options(options...).
			Value(&assignee),
	))
	if err := form.Run(); err != nil {
		return "", "", "", "", err
	}
	return text, due, prio, assignee, nil
}

func runList(cmd *cobra.Command, args []string) error {
	viewName, _ := cmd.Flags().GetString("view")
	if len(args) == 1 {
		viewName = args[0]
	}
	format, _ := cmd.Flags().GetString("format")
	assigneeRef, _ := cmd.Flags().GetString("assignee")
	openOnly, _ := cmd.Flags().GetBool("open")

	view, err := views.ParseView(viewName)
	if err != nil {
		return err
	}

	svc := application.Tasks
	list := svc.Tasks()
	if assigneeRef != "" {
		id, err := resolveMember(cmd, assigneeRef)
		if err != nil {
			return err
		}
		list = views.ForAssignee(list, id)
	}
	if openOnly {
		open := list[:0]
		for _, t := range list {
			if !t.Completed {
				open = append(open, t)
			}
		}
		list = open
	}

	members := svc.Members().Cached()
	groups, err := views.Build(view, list, members)
	if err != nil {
		return err
	}

	if format != "table" {
		return writeStructured(cmd.OutOrStdout(), format, groups)
	}
	p := printer(cmd)
	if len(list) == 0 {
		p.Printf("%s\n", p.Muted("No tasks."))
	} else {
		p.Printf("%s", p.Groups(groups, members, types.Today()))
	}
	if !svc.Online() {
		p.Printf("%s\n", p.Warn(fmt.Sprintf("offline: %d change(s) waiting to sync", len(svc.Pending()))))
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	svc := application.Tasks
	id, err := svc.Resolve(args[0])
	if err != nil {
		return err
	}

	var patch types.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("text") {
		s, _ := flags.GetString("text")
		patch.Text = &s
	}
	if flags.Changed("due") {
		s, _ := flags.GetString("due")
		d, err := ui.ParseDue(s, time.Now())
		if err != nil {
			return err
		}
		patch.DueDate = &d
	}
	if flags.Changed("priority") {
		s, _ := flags.GetString("priority")
		p, err := types.ParsePriority(s)
		if err != nil {
			return err
		}
		patch.Priority = &p
	}
	if flags.Changed("status") {
		s, _ := flags.GetString("status")
		st, err := types.ParseStatus(s)
		if err != nil {
			return err
		}
		patch.Status = &st
	}
	if unassign, _ := flags.GetBool("unassign"); unassign {
		patch.Assignee = types.StringPtr("")
	} else if flags.Changed("assign") {
		ref, _ := flags.GetString("assign")
		memberID, err := resolveMember(cmd, ref)
		if err != nil {
			return err
		}
		patch.Assignee = &memberID
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: nothing to update (see --help for flags)", types.ErrInvalid)
	}

	t, err := svc.Update(ctxOf(cmd), id, patch)
	if err != nil {
		return err
	}
	p := printer(cmd)
	p.Printf("%s updated %s%s\n", p.Pass("✓"), t.Text, onlineNote(p))
	return nil
}
