package migrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/driftsql/drift/pkg/dialect"
)

// DefaultHistoryTable is the history ledger's table name when none is
// configured.
const DefaultHistoryTable = "drift_migrations"

// History reads and writes the persisted migration ledger: one row per
// applied unit, (migration id, product version), never mutated, deleted
// only by explicit rollback. Table and schema names are configurable so
// several applications can share one database.
type History struct {
	Schema  string
	Table   string
	dialect dialect.Dialect
}

// NewHistory creates a ledger accessor. Empty table falls back to
// DefaultHistoryTable; empty schema means the connection's default schema.
func NewHistory(d dialect.Dialect, schemaName, table string) *History {
	if table == "" {
		table = DefaultHistoryTable
	}
	return &History{Schema: schemaName, Table: table, dialect: d}
}

func (h *History) ref() string {
	if h.Schema == "" {
		return h.dialect.QuoteIdentifier(h.Table)
	}
	return h.dialect.QuoteIdentifier(h.Schema) + "." + h.dialect.QuoteIdentifier(h.Table)
}

// EnsureTable creates the ledger table if it does not exist. Idempotent.
func (h *History) EnsureTable(ctx context.Context, db Execer) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    migration_id text NOT NULL PRIMARY KEY,
    product_version text NOT NULL
);`, h.ref())
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating history table: %w", err)
	}
	return nil
}

// AppliedIDs returns every recorded migration id in lexicographic (hence
// chronological) order.
func (h *History) AppliedIDs(ctx context.Context, db Execer) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT migration_id FROM %s ORDER BY migration_id", h.ref()))
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Insert records a successfully applied unit.
func (h *History) Insert(ctx context.Context, db Execer, id, productVersion string) error {
	_, err := db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (migration_id, product_version) VALUES ($1, $2)", h.ref()),
		id, productVersion)
	if err != nil {
		return fmt.Errorf("recording migration %s: %w", id, err)
	}
	return nil
}

// Delete removes a unit's ledger row. Used only by explicit rollback.
func (h *History) Delete(ctx context.Context, db Execer, id string) error {
	_, err := db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE migration_id = $1", h.ref()), id)
	if err != nil {
		return fmt.Errorf("deleting history row %s: %w", id, err)
	}
	return nil
}

// InsertStatement renders the ledger insert as a literal SQL statement for
// script output, where no parameterized execution happens.
func (h *History) InsertStatement(id, productVersion string) string {
	return fmt.Sprintf("INSERT INTO %s (migration_id, product_version) VALUES ('%s', '%s');",
		h.ref(), sqlEscape(id), sqlEscape(productVersion))
}

// EnsureStatement renders the ledger DDL for script output.
func (h *History) EnsureStatement() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    migration_id text NOT NULL PRIMARY KEY,
    product_version text NOT NULL
);`, h.ref())
}

func sqlEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}
