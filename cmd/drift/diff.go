package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftsql/drift/internal/cli"
	"github.com/driftsql/drift/internal/sqlgen"
	"github.com/driftsql/drift/pkg/diff"
	"github.com/driftsql/drift/pkg/schema"
)

var (
	diffDialect          string
	diffSummary          bool
	diffAllowDestructive bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <from.yaml> <to.yaml>",
	Short: "Show the operations between two snapshots",
	Long: `Diff two schema snapshot files and print the SQL that would migrate
the first into the second.`,
	Example: `  # SQL to migrate one snapshot into another
  drift diff db/old.yaml db/new.yaml

  # Operation summary instead of SQL
  drift diff db/old.yaml db/new.yaml --summary`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := schema.ParseSnapshotFile(args[0])
		if err != nil {
			return cli.SnapshotError("reading source snapshot", err)
		}
		to, err := schema.ParseSnapshotFile(args[1])
		if err != nil {
			return cli.SnapshotError("reading target snapshot", err)
		}

		plan, err := diff.Diff(from, to, diff.Options{})
		if err != nil {
			return cli.GeneralError("diffing snapshots", err)
		}

		for _, d := range plan.Diagnostics {
			fmt.Fprintln(os.Stderr, "WARNING:", d.Error())
		}

		if diffSummary {
			for _, op := range plan.Operations {
				fmt.Printf("%s %s\n", op.Kind(), op.Table())
			}
			return nil
		}

		d, err := resolveDialect(diffDialect)
		if err != nil {
			return err
		}
		script, err := sqlgen.Render(plan, d, sqlgen.Options{AllowDestructive: diffAllowDestructive})
		if err != nil {
			return cli.GeneralError("rendering SQL", err)
		}
		return script.WriteSQL(os.Stdout)
	},
}

func init() {
	f := diffCmd.Flags()
	f.StringVar(&diffDialect, "dialect", "", "SQL dialect (postgres, generic)")
	f.BoolVar(&diffSummary, "summary", false, "print operation kinds instead of SQL")
	f.BoolVar(&diffAllowDestructive, "allow-destructive", false, "render plans that drop data")
}
