package main

import (
	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/migrate"
)

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "advanced",
	Short:   "Import tasks from a JSONL or YAML file",
	Long: `Import tasks that keep their ids. Tasks whose id already exists are
skipped, so importing the same file twice is harmless. Each imported task
is written like 'todo add', so imports made offline are queued.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		backup, _ := cmd.Flags().GetBool("backup")

		res, err := migrate.Import(ctxOf(cmd), application.Tasks, migrate.ImportOptions{
			Path:   args[0],
			DryRun: dryRun,
			Backup: backup,
		})
		if err != nil {
			return err
		}

		p := printer(cmd)
		if dryRun {
			p.Printf("%s %d task(s) read, nothing written (dry run)\n", p.Accent("ℹ"), res.Read)
			return nil
		}
		p.Printf("%s imported %d task(s), skipped %d existing%s\n", p.Pass("✓"), res.Imported, res.Skipped, onlineNote(p))
		if res.BackupCreated != "" {
			p.Printf("backup: %s\n", res.BackupCreated)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "advanced",
	Short:   "Export tasks as JSONL or YAML (stdout when no file is given)",
	Args:    cobra.MaximumNArgs(1),
	Annotations: map[string]string{
		annotNoConnect: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		list := application.Tasks.Tasks()

		format := migrate.FormatJSONL
		if len(args) == 1 {
			format = migrate.FormatForPath(args[0])
		}
		if cmd.Flags().Changed("format") {
			s, _ := cmd.Flags().GetString("format")
			f, err := migrate.ParseFormat(s)
			if err != nil {
				return err
			}
			format = f
		}

		if len(args) == 0 {
			return migrate.Write(cmd.OutOrStdout(), format, list)
		}
		if err := migrate.WriteFile(args[0], format, list); err != nil {
			return err
		}
		p := printer(cmd)
		p.Printf("%s exported %d task(s) to %s\n", p.Pass("✓"), len(list), args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Parse and validate only")
	importCmd.Flags().Bool("backup", false, "Copy the input file aside first")
	exportCmd.Flags().String("format", "jsonl", "Format: jsonl or yaml")
	rootCmd.AddCommand(importCmd, exportCmd)
}
