package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/pkg/dialect"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "drift",
	Short: "Snapshot-based schema migrations",
	Long: `drift - Snapshot-based schema migrations

Drift keeps the desired database schema in declarative YAML snapshots and
derives migration operations by diffing consecutive snapshots. Migrations
are applied in order and recorded in a history ledger, so every database
converges on the same schema regardless of where it started.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupAuthoring = "authoring"
	groupDatabase  = "database"
	groupUtility   = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover drift.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupAuthoring, Title: "Authoring:"},
		&cobra.Group{ID: groupDatabase, Title: "Database:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Authoring commands
	newCmd.GroupID = groupAuthoring
	diffCmd.GroupID = groupAuthoring
	scriptCmd.GroupID = groupAuthoring
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(scriptCmd)

	// Database commands
	applyCmd.GroupID = groupDatabase
	revertCmd.GroupID = groupDatabase
	statusCmd.GroupID = groupDatabase
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(statusCmd)

	// Utility commands
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

// resolveDialect maps a dialect name from flag or config to an
// implementation.
func resolveDialect(flagValue string) (dialect.Dialect, error) {
	name := resolveString(flagValue, cfg.Dialect)
	switch name {
	case "postgres":
		return dialect.Postgres{}, nil
	case "generic":
		return dialect.Generic{}, nil
	default:
		return nil, cli.ConfigError(fmt.Sprintf("unknown dialect %q (supported: postgres, generic)", name), nil)
	}
}
