// Package migrator applies pending migration units to a live database and
// maintains the persisted history ledger.
//
// The state machine per unit is Pending -> Applying -> Applied. There is no
// persisted failed state: a failed apply leaves the unit pending and is
// surfaced as an *ExecutionError. Re-running Apply after a partial failure
// re-attempts only the still-pending units, so the operation is idempotent
// with respect to the ledger.
//
// Units apply strictly in migration-id order, one at a time; a unit's DDL
// may depend on the prior unit's committed state. On dialects with
// transactional DDL the unit's batches and its ledger row commit in one
// transaction. Elsewhere statements run unwrapped and the ledger row is
// written immediately after the unit, so a mid-unit crash is visible as a
// partially-applied, still-pending unit for inspection.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/driftsql/drift/internal/sqlgen"
	"github.com/driftsql/drift/internal/version"
	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrate"
)

// Migrator orchestrates migration application for one database.
type Migrator struct {
	db      Execer
	dialect dialect.Dialect
	history *History
	version string
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithHistoryTable overrides the ledger's schema and table names.
func WithHistoryTable(schemaName, table string) Option {
	return func(m *Migrator) {
		m.history = NewHistory(m.dialect, schemaName, table)
	}
}

// WithProductVersion overrides the product version recorded with each
// applied unit. Defaults to the build's version.
func WithProductVersion(v string) Option {
	return func(m *Migrator) { m.version = v }
}

// New creates a migrator for the given connection and dialect.
// The Execer is typically *sql.DB; *sql.Tx works for tests but forfeits
// per-unit transactions.
func New(db Execer, d dialect.Dialect, opts ...Option) *Migrator {
	m := &Migrator{
		db:      db,
		dialect: d,
		version: version.Short(),
	}
	m.history = NewHistory(d, "", "")
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// History returns the migrator's ledger accessor.
func (m *Migrator) History() *History {
	return m.history
}

// Options controls Apply and Revert behavior.
type Options struct {
	// DryRun writes the SQL that would execute to the writer instead of
	// applying it. The ledger is not touched.
	DryRun io.Writer

	// AllowDestructive renders plans that carry diagnostics.
	AllowDestructive bool
}

// Pending returns the source's units not yet recorded in the ledger, in
// chronological order. A ledger row unknown to the source is a
// *HistoryInconsistencyError.
func (m *Migrator) Pending(ctx context.Context, source *migrate.Source) ([]*migrate.Migration, error) {
	if err := m.history.EnsureTable(ctx, m.db); err != nil {
		return nil, err
	}
	applied, err := m.history.AppliedIDs(ctx, m.db)
	if err != nil {
		return nil, err
	}
	pending, unknown := source.Pending(applied)
	if len(unknown) > 0 {
		return nil, &HistoryInconsistencyError{UnknownIDs: unknown}
	}
	return pending, nil
}

// Apply executes every pending unit in order and returns the ids that
// committed. It stops at the first failure; the returned ids are exactly
// the units whose batches and ledger rows committed. Cancellation is
// honored between units, never mid-unit.
func (m *Migrator) Apply(ctx context.Context, source *migrate.Source, opts Options) ([]string, error) {
	pending, err := m.Pending(ctx, source)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, unit := range pending {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		script, err := sqlgen.Render(unit.Up, m.dialect, sqlgen.Options{AllowDestructive: opts.AllowDestructive})
		if err != nil {
			return applied, fmt.Errorf("rendering migration %s: %w", unit.ID, err)
		}

		if opts.DryRun != nil {
			m.writeDryRun(opts.DryRun, unit, script)
			continue
		}

		if err := m.applyUnit(ctx, unit.ID, script); err != nil {
			var execErr *ExecutionError
			if errors.As(err, &execErr) {
				execErr.Applied = applied
			}
			return applied, err
		}
		applied = append(applied, unit.ID)
	}
	return applied, nil
}

// applyUnit executes one unit's batches and records its ledger row.
func (m *Migrator) applyUnit(ctx context.Context, id string, script *sqlgen.Script) error {
	record := func(db Execer) error {
		return m.history.Insert(ctx, db, id, m.version)
	}
	return m.runScript(ctx, id, script, record)
}

// runScript executes a script batch by batch, invoking record once all
// batches succeed — inside the final batch's transaction when there is
// one, immediately after otherwise.
func (m *Migrator) runScript(ctx context.Context, id string, script *sqlgen.Script, record func(Execer) error) error {
	txer, canTx := m.db.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	})

	recorded := false
	for i, batch := range script.Batches {
		if batch.Transactional && canTx {
			tx, err := txer.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("starting transaction for %s: %w", id, err)
			}
			if err := execBatch(ctx, tx, id, batch); err != nil {
				_ = tx.Rollback()
				return err
			}
			if i == len(script.Batches)-1 {
				if err := record(tx); err != nil {
					_ = tx.Rollback()
					return err
				}
				recorded = true
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("committing %s: %w", id, err)
			}
			continue
		}

		if err := execBatch(ctx, m.db, id, batch); err != nil {
			return err
		}
	}

	if !recorded {
		return record(m.db)
	}
	return nil
}

func execBatch(ctx context.Context, db Execer, id string, batch sqlgen.Batch) error {
	for _, stmt := range batch.Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &ExecutionError{ID: id, Statement: stmt, Err: err}
		}
	}
	return nil
}

func (m *Migrator) writeDryRun(w io.Writer, unit *migrate.Migration, script *sqlgen.Script) {
	_, _ = fmt.Fprintf(w, "-- Migration %s\n\n", unit.ID)
	_ = script.WriteSQL(w)
	_, _ = fmt.Fprintf(w, "%s\n\n", m.history.InsertStatement(unit.ID, m.version))
}

// Revert rolls back the most recently applied unit that the source knows
// and that carries a down plan, removing its ledger row. Returns the
// reverted id, or "" when nothing was applied.
func (m *Migrator) Revert(ctx context.Context, source *migrate.Source, opts Options) (string, error) {
	if err := m.history.EnsureTable(ctx, m.db); err != nil {
		return "", err
	}
	applied, err := m.history.AppliedIDs(ctx, m.db)
	if err != nil {
		return "", err
	}
	if len(applied) == 0 {
		return "", nil
	}

	last := applied[len(applied)-1]
	unit := source.Get(last)
	if unit == nil {
		return "", &HistoryInconsistencyError{UnknownIDs: []string{last}}
	}
	if !unit.Reversible() {
		return "", fmt.Errorf("migration %s has no down plan", last)
	}

	script, err := sqlgen.Render(unit.Down, m.dialect, sqlgen.Options{AllowDestructive: opts.AllowDestructive})
	if err != nil {
		return "", fmt.Errorf("rendering down migration %s: %w", last, err)
	}

	if opts.DryRun != nil {
		_, _ = fmt.Fprintf(opts.DryRun, "-- Revert %s\n\n", last)
		_ = script.WriteSQL(opts.DryRun)
		return last, nil
	}

	remove := func(db Execer) error {
		return m.history.Delete(ctx, db, last)
	}
	if err := m.runScript(ctx, last, script, remove); err != nil {
		return "", err
	}
	return last, nil
}

// Status describes the ledger's relationship to the available units.
type Status struct {
	Applied []string
	Pending []string

	// Unknown lists ledger rows no available unit matches; non-empty
	// means the history is inconsistent with this build.
	Unknown []string
}

// Status reports applied, pending, and unknown units without mutating
// anything beyond ensuring the ledger table exists.
func (m *Migrator) Status(ctx context.Context, source *migrate.Source) (*Status, error) {
	if err := m.history.EnsureTable(ctx, m.db); err != nil {
		return nil, err
	}
	applied, err := m.history.AppliedIDs(ctx, m.db)
	if err != nil {
		return nil, err
	}
	pending, unknown := source.Pending(applied)

	st := &Status{Applied: applied, Unknown: unknown}
	for _, u := range pending {
		st.Pending = append(st.Pending, u.ID)
	}
	return st, nil
}
