package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/types"
)

var commentCmd = &cobra.Command{
	Use:     "comment <id> <text...>",
	GroupID: "team",
	Short:   "Comment on a task (needs the remote store)",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		if _, err := svc.Comment(ctxOf(cmd), id, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s comment added\n", p.Pass("✓"))
		return nil
	},
}

var commentsCmd = &cobra.Command{
	Use:     "comments <id>",
	GroupID: "team",
	Short:   "List a task's comments",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		comments, err := svc.Comments(ctxOf(cmd), id)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "table" {
			return writeStructured(cmd.OutOrStdout(), format, comments)
		}
		p := printer(cmd)
		if len(comments) == 0 {
			p.Printf("%s\n", p.Muted("No comments."))
		}
		members := svc.Members().Cached()
		for _, c := range comments {
			p.Printf("%s %s\n  %s\n", p.Accent(memberName(members, c.UserID)), p.Muted(c.CreatedAt.Local().Format("Jan 2 15:04")), c.Text)
		}
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:     "activity <id>",
	GroupID: "team",
	Short:   "Show a task's activity log",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		id, err := svc.Resolve(args[0])
		if err != nil {
			return err
		}
		entries, err := svc.Activity(ctxOf(cmd), id)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "table" {
			return writeStructured(cmd.OutOrStdout(), format, entries)
		}
		p := printer(cmd)
		if len(entries) == 0 {
			p.Printf("%s\n", p.Muted("No activity."))
		}
		members := svc.Members().Cached()
		for _, a := range entries {
			p.Printf("%s %-15s %s %s\n",
				p.Muted(a.CreatedAt.Local().Format("Jan 2 15:04")),
				string(a.Type),
				memberName(members, a.UserID),
				p.Muted(formatDetail(a.Detail)))
		}
		return nil
	},
}

func init() {
	commentsCmd.Flags().String("format", "table", "Output format: table, json or yaml")
	activityCmd.Flags().String("format", "table", "Output format: table, json or yaml")
	rootCmd.AddCommand(commentCmd, commentsCmd, activityCmd)
}

func memberName(members []types.TeamMember, id string) string {
	if i := types.FindMember(members, id); i >= 0 {
		return members[i].Name
	}
	if id == "" {
		return "someone"
	}
	return id
}

func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return ""
	}
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, detail[k])
	}
	return strings.Join(parts, " ")
}
