package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/views"
)

var membersCmd = &cobra.Command{
	Use:     "members",
	Aliases: []string{"team"},
	GroupID: "team",
	Short:   "Manage team members",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List team members (cached copy when offline)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		members := application.Tasks.Members().List(ctxOf(cmd))
		if format != "table" {
			return writeStructured(cmd.OutOrStdout(), format, members)
		}

		p := printer(cmd)
		if len(members) == 0 {
			p.Printf("%s\n", p.Muted("No team members."))
			return nil
		}
		for i, m := range members {
			initials := p.Colored(views.MemberColor(i), fmt.Sprintf("%-3s", m.Initials()))
			p.Printf("%s %-24s %-28s %s\n", initials, m.Name, m.Email, p.Muted(m.ID))
		}
		if !application.Tasks.Online() {
			p.Printf("%s\n", p.Warn("offline: showing cached members"))
		}
		return nil
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a team member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		m, err := application.Tasks.Members().Add(ctxOf(cmd), args[0], email)
		if err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s added %s %s\n", p.Pass("✓"), m.Name, p.Muted(m.ID))
		return nil
	},
}

var membersRmCmd = &cobra.Command{
	Use:     "rm <member>",
	Aliases: []string{"remove"},
	Short:   "Remove a team member and unassign their tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveMember(cmd, args[0])
		if err != nil {
			return err
		}
		if err := application.Tasks.Members().Remove(ctxOf(cmd), id); err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s removed %s\n", p.Pass("✓"), args[0])
		return nil
	},
}

func init() {
	membersListCmd.Flags().String("format", "table", "Output format: table, json or yaml")
	membersAddCmd.Flags().String("email", "", "Email address")

	membersCmd.AddCommand(membersListCmd, membersAddCmd, membersRmCmd)
	rootCmd.AddCommand(membersCmd)
}
