package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/honesthomesales/TODO/internal/config"
	"github.com/honesthomesales/TODO/internal/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and a config file",
	Long: `Write a config file with the given settings on top of the defaults.

Examples:
  todo init --remote-url libsql://team-todo.turso.io --auth-token $TOKEN --user m-123
  todo init --data-dir ./demo      # local-only store for trying things out`,
	Args: cobra.NoArgs,
	Annotations: map[string]string{
		annotNoApp: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := resolveConfigPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%w: %s already exists (use --force to overwrite)", types.ErrInvalid, path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		c := cfg
		flags := cmd.Flags()
		if flags.Changed("remote-url") {
			c.Remote.URL, _ = flags.GetString("remote-url")
		}
		if flags.Changed("auth-token") {
			c.Remote.AuthToken, _ = flags.GetString("auth-token")
		}
		if flags.Changed("user") {
			c.CurrentUser, _ = flags.GetString("user")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		if err := config.Write(path, c); err != nil {
			return err
		}

		p := printer(cmd)
		p.Printf("%s wrote %s\n", p.Pass("✓"), path)
		if c.Remote.URL == "" {
			p.Printf("%s no remote.url set; using a local store at %s\n", p.Warn("⚠"), c.RemoteDSN())
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "advanced",
	Short:   "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file, environment and flags)",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotNoApp: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *cfg
		if c.Remote.AuthToken != "" {
			c.Remote.AuthToken = "********"
		}
		if c.Notify.AccessToken != "" {
			c.Notify.AccessToken = "********"
		}
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(c)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Annotations: map[string]string{
		annotNoApp: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
		return nil
	},
}

func init() {
	initCmd.Flags().String("remote-url", "", "Remote store URL (libsql://, https://) or SQLite file")
	initCmd.Flags().String("auth-token", "", "Remote store auth token")
	initCmd.Flags().String("user", "", "Your team member id, recorded on activity")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(initCmd, configCmd)
}

// redactDSN drops credentials from a remote URL for display.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	q := u.Query()
	if q.Has("authToken") {
		q.Set("authToken", "redacted")
		u.RawQuery = q.Encode()
	}
	u.User = nil
	return u.String()
}
