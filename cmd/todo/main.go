// Command todo is the team to-do tracker CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/honesthomesales/TODO/internal/app"
	"github.com/honesthomesales/TODO/internal/config"
	"github.com/honesthomesales/TODO/internal/logging"
	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/ui"
)

// Command annotations read by setup.
const (
	// annotNoApp marks commands that only need the config.
	annotNoApp = "no-app"
	// annotNoConnect marks commands that must not probe the remote store.
	annotNoConnect = "no-connect"
)

var (
	configPath string
	dataDir    string
	verbose    bool

	cfg         *config.Config
	logger      *log.Logger
	logCloser   io.Closer
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "todo",
	Short: "Team to-do tracker with offline sync",
	Long: `Create, assign and track team tasks.

Every change is written to the local mirror first and then to the shared
remote store. While the remote store is unreachable changes wait in the
pending queue and are replayed, in order, on the next reconnect.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <data-dir>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default ~/.todo)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Tasks:"},
		&cobra.Group{ID: "team", Title: "Team:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.Execute()
	teardown()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func resolveConfigPath() string {
	switch {
	case configPath != "":
		return config.ExpandHome(configPath)
	case dataDir != "":
		return filepath.Join(config.ExpandHome(dataDir), config.FileName)
	}
	return config.DefaultPath()
}

func loadConfig() (*config.Config, error) {
	c, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		c.DataDir = config.ExpandHome(dataDir)
	}
	return c, nil
}

// setup loads config and logging for every command, and opens the app
// unless the command is annotated otherwise. Opening the app probes the
// remote store, which replays anything queued while offline.
func setup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = c

	l, closer, err := logging.New(logging.Options{
		Level:      c.Log.Level,
		File:       c.LogPath(),
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Verbose:    verbose,
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer

	if cmd.Annotations[annotNoApp] != "" {
		return nil
	}
	a, err := app.New(c, l)
	if err != nil {
		return fmt.Errorf("failed to open task store: %w", err)
	}
	application = a

	if cmd.Annotations[annotNoConnect] == "" {
		a.Connect(cmd.Context())
	}
	return nil
}

func teardown() {
	if application != nil {
		if err := application.Close(); err != nil && logger != nil {
			logger.WithError(err).Warn("error closing app")
		}
		application = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	cfg, logger = nil, nil
}

// ===== Output helpers =====

func printer(cmd *cobra.Command) *ui.Printer {
	return ui.New(cmd.OutOrStdout())
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// writeStructured prints v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: unknown format %q (want table, json or yaml)", types.ErrInvalid, format)
}

// onlineNote is appended to mutation output so users know where the
// change went.
func onlineNote(p *ui.Printer) string {
	if application.Tasks.Online() {
		return ""
	}
	return " " + p.Warn(fmt.Sprintf("(offline, %d pending)", len(application.Tasks.Pending())))
}
