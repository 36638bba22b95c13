package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/connectivity"
	"github.com/honesthomesales/TODO/internal/types"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Replay pending changes and refresh from the remote store",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := application.Tasks.Sync(ctxOf(cmd))
		if errors.Is(err, types.ErrOffline) {
			return fmt.Errorf("%w; %d change(s) stay queued", err, len(application.Tasks.Pending()))
		}
		p := printer(cmd)
		if err != nil {
			p.Printf("%s %v\n", p.Warn("⚠"), err)
		}
		switch {
		case res.Attempted == 0:
			p.Printf("%s up to date (%d tasks)\n", p.Pass("✓"), len(application.Tasks.Tasks()))
		default:
			p.Printf("%s replayed %d change(s): %d applied, %d requeued, %d dropped in %v\n",
				p.Pass("✓"), res.Attempted, res.Applied, res.Requeued, res.Dropped, res.Duration.Round(time.Millisecond))
		}
		if res.Remaining > 0 {
			p.Printf("%s %d change(s) still pending\n", p.Warn("⚠"), res.Remaining)
		}
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:     "queue",
	GroupID: "sync",
	Short:   "Show changes waiting to sync",
	Args:    cobra.NoArgs,
	Annotations: map[string]string{
		annotNoConnect: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		pending := application.Tasks.Pending()
		format, _ := cmd.Flags().GetString("format")
		if format != "table" {
			return writeStructured(cmd.OutOrStdout(), format, pending)
		}
		p := printer(cmd)
		if len(pending) == 0 {
			p.Printf("%s\n", p.Muted("Nothing pending."))
			return nil
		}
		for i, a := range pending {
			line := fmt.Sprintf("%3d. %-7s %s", i+1, a.Kind, a.TaskID)
			if a.Attempts > 0 {
				line += p.Warn(fmt.Sprintf("  %d failed attempt(s): %s", a.Attempts, a.LastError))
			}
			p.Printf("%s %s\n", line, p.Muted(a.QueuedAt.Local().Format("Jan 2 15:04:05")))
		}
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every pending change (local edits stay in the mirror)",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotNoConnect: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("%w: this discards %d pending change(s); rerun with --yes", types.ErrInvalid, len(application.Tasks.Pending()))
		}
		n := application.Queue.Clear(ctxOf(cmd))
		p := printer(cmd)
		p.Printf("%s discarded %d pending change(s)\n", p.Pass("✓"), n)
		return nil
	},
}

var offlineCmd = &cobra.Command{
	Use:     "offline [on|off]",
	GroupID: "sync",
	Short:   "Force offline mode on or off, or show it",
	Long: `While offline mode is on, no command or daemon contacts the remote
store; changes queue locally. Turning it off lets the next probe reconnect
and replay the queue.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	Annotations: map[string]string{
		annotNoApp: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		marker := cfg.MarkerPath()
		p := printer(cmd)
		if len(args) == 0 {
			state := "off"
			if connectivity.MarkerPresent(marker) {
				state = "on"
			}
			p.Printf("offline mode: %s\n", state)
			return nil
		}
		var on bool
		switch args[0] {
		case "on":
			on = true
		case "off":
		default:
			return fmt.Errorf("%w: want on or off, got %q", types.ErrInvalid, args[0])
		}
		if err := connectivity.SetMarker(marker, on); err != nil {
			return err
		}
		p.Printf("%s offline mode %s\n", p.Pass("✓"), args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show connectivity and sync state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := application.Tasks
		p := printer(cmd)
		online := p.Pass("online")
		if !svc.Online() {
			online = p.Warn("offline")
			if connectivity.MarkerPresent(cfg.MarkerPath()) {
				online += p.Muted(" (offline mode on)")
			}
		}
		p.Printf("remote:   %s %s\n", online, p.Muted(redactDSN(cfg.RemoteDSN())))
		p.Printf("tasks:    %d\n", len(svc.Tasks()))
		p.Printf("pending:  %d\n", len(svc.Pending()))
		p.Printf("data dir: %s\n", cfg.DataDir)
		return nil
	},
}

func init() {
	queueCmd.Flags().String("format", "table", "Output format: table, json or yaml")
	queueClearCmd.Flags().Bool("yes", false, "Confirm discarding the queue")
	queueCmd.AddCommand(queueClearCmd)

	rootCmd.AddCommand(syncCmd, queueCmd, offlineCmd, statusCmd)
}
