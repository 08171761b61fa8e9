package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/pkg/migrator"
	"github.com/driftsql/drift/pkg/source"
)

var (
	statusDB            string
	statusMigrationsDir string
	statusDialect       string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Long:  `Show which migrations are recorded in the history ledger and which are still pending.`,
	Example: `  # Check status
  drift status --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveString(statusMigrationsDir, cfg.Migrations)

		dsn, err := resolveDSN(statusDB)
		if err != nil {
			return err
		}

		src, err := source.Load(dir)
		if err != nil {
			return cli.SnapshotError("loading migrations", err)
		}

		d, err := resolveDialect(statusDialect)
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

		st, err := m.Status(ctx, src)
		if err != nil {
			return cli.GeneralError("getting status", err)
		}

		for _, id := range st.Applied {
			fmt.Println("applied ", id)
		}
		for _, id := range st.Pending {
			fmt.Println("pending ", id)
		}
		for _, id := range st.Unknown {
			fmt.Println("unknown ", id)
		}

		if len(st.Unknown) > 0 {
			fmt.Println("\nThe ledger records migrations this build does not know about.")
			fmt.Println("The database was likely migrated by a newer build.")
		} else if len(st.Pending) == 0 {
			fmt.Println("\nDatabase is up to date.")
		}

		return nil
	},
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusDB, "db", "", "database URL")
	f.StringVar(&statusMigrationsDir, "migrations", "", "migrations directory")
	f.StringVar(&statusDialect, "dialect", "", "SQL dialect (postgres, generic)")
}
