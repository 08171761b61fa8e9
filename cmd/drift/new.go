package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/source"
)

var newMigrationsDir string

var newCmd = &cobra.Command{
	Use:   "new <Name>",
	Short: "Create a new migration file",
	Long: `Create a new migration file in the migrations directory.

The file is seeded with the schema snapshot of the latest existing
migration. Edit its schema section to describe the desired state; the
operations are derived automatically when the migration is applied.`,
	Example: `  # Create a migration named AddPonyAge
  drift new AddPonyAge`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := resolveString(newMigrationsDir, cfg.Migrations)

		id := migrate.NewIDGenerator().GenerateID(args[0])
		if !migrate.IsValidID(id) {
			return cli.GeneralError(fmt.Sprintf("invalid migration name %q", args[0]), nil)
		}

		snap, _, err := source.Latest(dir)
		if err != nil {
			return cli.SnapshotError("reading latest migration", err)
		}

		path, err := source.WriteSkeleton(dir, id, snap)
		if err != nil {
			return cli.GeneralError("creating migration", err)
		}

		if !quiet {
			fmt.Println("Created", path)
		}
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newMigrationsDir, "migrations", "", "migrations directory")
}
