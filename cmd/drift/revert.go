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
	revertDB            string
	revertMigrationsDir string
	revertDialect       string
	revertDryRun        bool
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Roll back the most recent migration",
	Long: `Roll back the most recently applied migration using its down plan and
remove it from the history ledger. Down plans drop what the migration
created, so revert always runs with destructive operations enabled.`,
	Example: `  # Roll back the last migration
  drift revert --db postgres://localhost/mydb

  # Preview the rollback SQL
  drift revert --db postgres://localhost/mydb --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveString(revertMigrationsDir, cfg.Migrations)

		dsn, err := resolveDSN(revertDB)
		if err != nil {
			return err
		}

		src, err := source.Load(dir)
		if err != nil {
			return cli.SnapshotError("loading migrations", err)
		}

		d, err := resolveDialect(revertDialect)
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

		opts := migrator.Options{AllowDestructive: true}
		if revertDryRun {
			opts.DryRun = os.Stdout
		}

		id, err := m.Revert(ctx, src, opts)
		if err != nil {
			return cli.GeneralError("reverting migration", err)
		}

		if revertDryRun || quiet {
			return nil
		}
		if id == "" {
			fmt.Println("Nothing to revert.")
			return nil
		}
		fmt.Println("Reverted", id)
		return nil
	},
}

func init() {
	f := revertCmd.Flags()
	f.StringVar(&revertDB, "db", "", "database URL")
	f.StringVar(&revertMigrationsDir, "migrations", "", "migrations directory")
	f.StringVar(&revertDialect, "dialect", "", "SQL dialect (postgres, generic)")
	f.BoolVar(&revertDryRun, "dry-run", false, "output rollback SQL without applying")
}
