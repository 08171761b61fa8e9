package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/pkg/migrator"
	"github.com/driftsql/drift/pkg/source"
)

var (
	applyDB               string
	applyMigrationsDir    string
	applyDialect          string
	applyDryRun           bool
	applyAllowDestructive bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations",
	Long: `Apply every pending migration to the database, in order, recording
each one in the history ledger. Already-applied migrations are skipped, so
the command is safe to re-run.`,
	Example: `  # Apply pending migrations
  drift apply --db postgres://localhost/mydb

  # Preview the SQL without applying
  drift apply --db postgres://localhost/mydb --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveString(applyMigrationsDir, cfg.Migrations)
		dryRun := resolveBool(applyDryRun, cfg.Apply.DryRun)
		allowDestructive := resolveBool(applyAllowDestructive, cfg.Apply.AllowDestructive)

		dsn, err := resolveDSN(applyDB)
		if err != nil {
			return err
		}

		src, err := source.Load(dir)
		if err != nil {
			return cli.SnapshotError("loading migrations", err)
		}

		d, err := resolveDialect(applyDialect)
		if err != nil {
			return err
		}

		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		m := migrator.New(db, d, migrator.WithHistoryTable(cfg.History.Schema, cfg.History.Table))

		opts := migrator.Options{AllowDestructive: allowDestructive}
		if dryRun {
			opts.DryRun = os.Stdout
			if !quiet {
				fmt.Fprintln(os.Stderr, "-- Dry-run mode: SQL will be output but not applied")
				fmt.Fprintln(os.Stderr, "")
			}
		}

		applied, err := m.Apply(ctx, src, opts)
		if err != nil {
			return cli.GeneralError("applying migrations", err)
		}

		if dryRun || quiet {
			return nil
		}
		if len(applied) == 0 {
			fmt.Println("Database is up to date.")
			return nil
		}
		for _, id := range applied {
			fmt.Println("Applied", id)
		}
		return nil
	},
}

func init() {
	f := applyCmd.Flags()
	f.StringVar(&applyDB, "db", "", "database URL")
	f.StringVar(&applyMigrationsDir, "migrations", "", "migrations directory")
	f.StringVar(&applyDialect, "dialect", "", "SQL dialect (postgres, generic)")
	f.BoolVar(&applyDryRun, "dry-run", false, "output migration SQL without applying")
	f.BoolVar(&applyAllowDestructive, "allow-destructive", false, "apply plans that drop data")
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}
