package migrator

import (
	"context"
	"fmt"
	"io"

	"github.com/driftsql/drift/internal/sqlgen"
	"github.com/driftsql/drift/internal/version"
	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrate"
)

// Apply applies every pending unit from source to the database. This is
// the high-level API for application startup:
//
//	applied, err := migrator.Apply(ctx, db, dialect.Postgres{}, source)
//
// It is idempotent: already-recorded units are never re-applied, and
// re-running after a partial failure picks up at the first pending unit.
// Use New for history-table or product-version configuration.
func Apply(ctx context.Context, db Execer, d dialect.Dialect, source *migrate.Source) ([]string, error) {
	return New(db, d).Apply(ctx, source, Options{})
}

// ScriptOptions controls WriteScript output.
type ScriptOptions struct {
	// AllowDestructive renders plans that carry diagnostics.
	AllowDestructive bool

	// HistorySchema and HistoryTable place the ledger bookkeeping
	// statements. They must match the migrator configuration the script is
	// meant to mirror; empty values use the defaults.
	HistorySchema string
	HistoryTable  string
}

// WriteScript renders the complete migration script for every unit in
// source, without touching a database: the history-table DDL, then each
// unit's statements followed by its ledger insert. The output applies
// cleanly to an empty database and documents exactly what Apply would run.
func WriteScript(w io.Writer, source *migrate.Source, d dialect.Dialect, opts ScriptOptions) error {
	h := NewHistory(d, opts.HistorySchema, opts.HistoryTable)
	productVersion := version.Short()

	if _, err := fmt.Fprintf(w, "%s\n\n", h.EnsureStatement()); err != nil {
		return err
	}

	for _, unit := range source.All() {
		script, err := sqlgen.Render(unit.Up, d, sqlgen.Options{AllowDestructive: opts.AllowDestructive})
		if err != nil {
			return fmt.Errorf("rendering migration %s: %w", unit.ID, err)
		}
		if _, err := fmt.Fprintf(w, "-- Migration %s\n\n", unit.ID); err != nil {
			return err
		}
		if err := script.WriteSQL(w); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n\n", h.InsertStatement(unit.ID, productVersion)); err != nil {
			return err
		}
	}
	return nil
}
