package test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrator"
	"github.com/driftsql/drift/pkg/source"
	"github.com/driftsql/drift/test/testutil"
)

const createPonyYAML = `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
          generated: identity
        - name: Name
          type: {kind: string, size: 100}
      primaryKey:
        columns: [Id]
      indexes:
        - columns: [Name]
          unique: true
`

const addRiderYAML = `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
          generated: identity
        - name: Name
          type: {kind: string, size: 100}
      primaryKey:
        columns: [Id]
      indexes:
        - columns: [Name]
          unique: true
    - name: Rider
      columns:
        - name: Id
          type: {kind: int}
          generated: identity
        - name: PonyId
          type: {kind: int}
      primaryKey:
        columns: [Id]
      foreignKeys:
        - columns: [PonyId]
          refTable: Pony
          refColumns: [Id]
          onDelete: cascade
`

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for id, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".yaml"), []byte(content), 0o644))
	}
	return dir
}

func TestApply_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
		"20150302100931_AddRider":   addRiderYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})

	applied, err := m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"20150302100930_CreatePony", "20150302100931_AddRider"}, applied)

	for _, table := range []string{"Pony", "Rider"} {
		var exists bool
		err := db.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	// The ledger carries one row per unit.
	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drift_migrations`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The foreign key made it across.
	_, err = db.ExecContext(ctx, `INSERT INTO "Rider" ("PonyId") VALUES (999)`)
	require.Error(t, err, "orphan rider should violate the foreign key")
}

func TestApply_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})

	applied, err := m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	applied, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)
	assert.Empty(t, applied, "second apply should be a no-op")
}

func TestApply_PicksUpNewUnits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})
	_, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "20150302100931_AddRider.yaml"), []byte(addRiderYAML), 0o644))
	src, err = source.Load(dir)
	require.NoError(t, err)

	applied, err := m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"20150302100931_AddRider"}, applied)
}

func TestApply_DryRunTouchesNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})

	var buf bytes.Buffer
	_, err = m.Apply(ctx, src, migrator.Options{DryRun: &buf})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `CREATE TABLE "Pony"`)
	assert.Contains(t, buf.String(), "INSERT INTO \"drift_migrations\"")

	var exists bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'Pony'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists, "dry run must not create tables")
}

func TestApply_FailedUnitStaysPending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	// A conflicting table makes the second unit fail mid-plan.
	_, err := db.ExecContext(ctx, `CREATE TABLE "Rider" (id int)`)
	require.NoError(t, err)

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
		"20150302100931_AddRider":   addRiderYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})

	applied, err := m.Apply(ctx, src, migrator.Options{})
	require.Error(t, err)
	assert.Equal(t, []string{"20150302100930_CreatePony"}, applied)

	var execErr *migrator.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "20150302100931_AddRider", execErr.ID)
	assert.Equal(t, []string{"20150302100930_CreatePony"}, execErr.Applied)

	// The failed unit left no ledger row and no partial DDL.
	st, err := m.Status(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"20150302100930_CreatePony"}, st.Applied)
	assert.Equal(t, []string{"20150302100931_AddRider"}, st.Pending)
}

func TestRevert_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
		"20150302100931_AddRider":   addRiderYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})
	_, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)

	id, err := m.Revert(ctx, src, migrator.Options{AllowDestructive: true})
	require.NoError(t, err)
	assert.Equal(t, "20150302100931_AddRider", id)

	var exists bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'Rider'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	assert.False(t, exists, "revert should drop the Rider table")

	st, err := m.Status(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"20150302100930_CreatePony"}, st.Applied)
	assert.Equal(t, []string{"20150302100931_AddRider"}, st.Pending)

	// Nothing left to revert after rolling back the remaining unit.
	_, err = m.Revert(ctx, src, migrator.Options{AllowDestructive: true})
	require.NoError(t, err)
	id, err = m.Revert(ctx, src, migrator.Options{AllowDestructive: true})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestPending_HistoryInconsistency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})
	_, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)

	// A row from a newer build the source does not know.
	_, err = db.ExecContext(ctx,
		`INSERT INTO drift_migrations (migration_id, product_version) VALUES ($1, $2)`,
		"20990101000000_FromTheFuture", "9.9.9")
	require.NoError(t, err)

	_, err = m.Pending(ctx, src)
	require.Error(t, err)
	var histErr *migrator.HistoryInconsistencyError
	require.ErrorAs(t, err, &histErr)
	assert.Equal(t, []string{"20990101000000_FromTheFuture"}, histErr.UnknownIDs)

	// Status reports rather than errors.
	st, err := m.Status(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"20990101000000_FromTheFuture"}, st.Unknown)
}

func TestApply_CustomHistoryTable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{},
		migrator.WithHistoryTable("", "my_ledger"),
		migrator.WithProductVersion("7.0.0"))

	_, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)

	var version string
	err = db.QueryRowContext(ctx,
		`SELECT product_version FROM my_ledger WHERE migration_id = $1`,
		"20150302100930_CreatePony").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, "7.0.0", version)
}

func TestAlterColumn_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := testutil.DB(t)
	ctx := context.Background()

	widened := `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
          generated: identity
        - name: Name
          type: {kind: string, size: 200}
          nullable: true
      primaryKey:
        columns: [Id]
      indexes:
        - columns: [Name]
          unique: true
`
	dir := writeMigrations(t, map[string]string{
		"20150302100930_CreatePony": createPonyYAML,
		"20150302100931_WidenName":  widened,
	})
	src, err := source.Load(dir)
	require.NoError(t, err)

	m := migrator.New(db, dialect.Postgres{})
	_, err = m.Apply(ctx, src, migrator.Options{})
	require.NoError(t, err)

	var maxLen int
	var nullable string
	err = db.QueryRowContext(ctx, `
		SELECT character_maximum_length, is_nullable
		FROM information_schema.columns
		WHERE table_name = 'Pony' AND column_name = 'Name'
	`).Scan(&maxLen, &nullable)
	require.NoError(t, err)
	assert.Equal(t, 200, maxLen)
	assert.Equal(t, "YES", nullable)
}
