package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Run the background sync process",
	Long: `Run in the foreground until interrupted. The daemon:
  - probes the remote store and replays queued changes on reconnect
  - retries changes that failed while online every daemon.sync_interval
  - reacts at once to 'todo offline on|off'
  - with --dashboard, serves the web dashboard and its websocket feed

Example:
  todo daemon --dashboard --port 7878`,
	Args: cobra.NoArgs,
	Annotations: map[string]string{
		annotNoConnect: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		dash := application.DashboardConfig()
		if cmd.Flags().Changed("port") {
			dash.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			dash.Host, _ = cmd.Flags().GetString("host")
		}
		if !withDashboard {
			dash = nil
		}

		d, err := application.Daemon(dash)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := printer(cmd)
		go func() {
			select {
			case <-d.Ready():
			case <-ctx.Done():
				return
			}
			p.Printf("%s Sync daemon running (data dir %s)\n", p.Accent("🚀"), cfg.DataDir)
			if addr := d.DashboardAddr(); addr != "" {
				p.Printf("Dashboard:  http://%s\n", addr)
				p.Printf("WebSocket:  ws://%s/ws\n", addr)
			}
			p.Printf("\nPress Ctrl+C to stop...\n")
		}()

		if err := d.Start(ctx); err != nil {
			return err
		}
		p.Printf("\n%s Daemon stopped\n", p.Pass("✓"))
		return nil
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "Serve the web dashboard")
	daemonCmd.Flags().String("host", "", "Dashboard listen host (default from config)")
	daemonCmd.Flags().IntP("port", "p", 0, "Dashboard port (default from config)")
	rootCmd.AddCommand(daemonCmd)
}
