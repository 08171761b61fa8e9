package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/pkg/migrator"
	"github.com/driftsql/drift/pkg/source"
)

var (
	scriptMigrationsDir    string
	scriptDialect          string
	scriptOutput           string
	scriptAllowDestructive bool
)

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Render the full migration script",
	Long: `Render the complete SQL script for every migration in the migrations
directory, including the history ledger bookkeeping. The output applies
cleanly to an empty database and documents exactly what apply would run.`,
	Example: `  # Print the full script
  drift script

  # Write it to a file for review
  drift script --output migrations.sql`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveString(scriptMigrationsDir, cfg.Migrations)
		output := resolveString(scriptOutput, cfg.Script.Output)

		src, err := source.Load(dir)
		if err != nil {
			return cli.SnapshotError("loading migrations", err)
		}

		d, err := resolveDialect(scriptDialect)
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return cli.GeneralError("creating output file", err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		opts := migrator.ScriptOptions{
			AllowDestructive: scriptAllowDestructive,
			HistorySchema:    cfg.History.Schema,
			HistoryTable:     cfg.History.Table,
		}
		if err := migrator.WriteScript(w, src, d, opts); err != nil {
			return cli.GeneralError("rendering script", err)
		}
		if output != "" && !quiet {
			fmt.Println("Wrote", output)
		}
		return nil
	},
}

func init() {
	f := scriptCmd.Flags()
	f.StringVar(&scriptMigrationsDir, "migrations", "", "migrations directory")
	f.StringVar(&scriptDialect, "dialect", "", "SQL dialect (postgres, generic)")
	f.StringVarP(&scriptOutput, "output", "o", "", "write script to file instead of stdout")
	f.BoolVar(&scriptAllowDestructive, "allow-destructive", false, "render plans that drop data")
}
