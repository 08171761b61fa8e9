package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/source"
)

func writeMigration(t *testing.T, dir, id, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".yaml"), []byte(content), 0o644))
}

const createPonyYAML = `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
        - name: Name
          type: {kind: string, size: 100}
      primaryKey:
        columns: [Id]
`

const addAgeYAML = `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
        - name: Name
          type: {kind: string, size: 100}
        - name: Age
          type: {kind: int}
          nullable: true
      primaryKey:
        columns: [Id]
`

const renameToUnicornYAML = `
renames:
  tables:
    Pony: Unicorn
schema:
  tables:
    - name: Unicorn
      columns:
        - name: Id
          type: {kind: int}
        - name: Name
          type: {kind: string, size: 100}
        - name: Age
          type: {kind: int}
          nullable: true
      primaryKey:
        columns: [Id]
`

func TestLoad_EmptyDirectory(t *testing.T) {
	src, err := source.Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, src.IDs())
}

func TestLoad_MissingDirectory(t *testing.T) {
	src, err := source.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, src.IDs())
}

func TestLoad_DiffsConsecutiveSnapshots(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_CreatePony", createPonyYAML)
	writeMigration(t, dir, "20150302100931_AddAge", addAgeYAML)

	src, err := source.Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"20150302100930_CreatePony", "20150302100931_AddAge"}, src.IDs())

	first := src.Get("20150302100930_CreatePony")
	require.NotNil(t, first)
	assert.Equal(t, "CreatePony", first.Name)
	require.Len(t, first.Up.Operations, 1)
	assert.Equal(t, migrate.OpCreateTable, first.Up.Operations[0].Kind())
	require.True(t, first.Reversible())
	require.Len(t, first.Down.Operations, 1)
	assert.Equal(t, migrate.OpDropTable, first.Down.Operations[0].Kind())

	second := src.Get("20150302100931_AddAge")
	require.NotNil(t, second)
	require.Len(t, second.Up.Operations, 1)
	assert.Equal(t, migrate.OpAddColumn, second.Up.Operations[0].Kind())
	require.Len(t, second.Down.Operations, 1)
	assert.Equal(t, migrate.OpDropColumn, second.Down.Operations[0].Kind())
}

func TestLoad_RenameAnnotationsShapeBothDirections(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_CreatePony", addAgeYAML)
	writeMigration(t, dir, "20150302100931_RenameToUnicorn", renameToUnicornYAML)

	src, err := source.Load(dir)
	require.NoError(t, err)

	unit := src.Get("20150302100931_RenameToUnicorn")
	require.NotNil(t, unit)
	require.Len(t, unit.Up.Operations, 1)
	up := unit.Up.Operations[0].(migrate.RenameTable)
	assert.Equal(t, "Pony", up.Name)
	assert.Equal(t, "Unicorn", up.NewName)

	require.Len(t, unit.Down.Operations, 1)
	down := unit.Down.Operations[0].(migrate.RenameTable)
	assert.Equal(t, "Unicorn", down.Name)
	assert.Equal(t, "Pony", down.NewName)
}

func TestLoad_RejectsMalformedFileName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte(createPonyYAML), 0o644))

	_, err := source.Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, migrate.ErrMalformedID)
}

func TestLoad_IgnoresNonYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_CreatePony", createPonyYAML)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# migrations"), 0o644))

	src, err := source.Load(dir)
	require.NoError(t, err)
	assert.Len(t, src.IDs(), 1)
}

func TestLoad_RejectsInvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_Broken", `
schema:
  tables:
    - name: Pony
      columns:
        - name: Id
          type: {kind: int}
      primaryKey:
        columns: [Missing]
`)

	_, err := source.Load(dir)
	require.Error(t, err)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()

	snap, id, err := source.Latest(dir)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, snap.Tables)

	writeMigration(t, dir, "20150302100930_CreatePony", createPonyYAML)
	writeMigration(t, dir, "20150302100931_AddAge", addAgeYAML)

	snap, id, err = source.Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "20150302100931_AddAge", id)
	require.Len(t, snap.Tables, 1)
	assert.Len(t, snap.Tables[0].Columns, 3)
}

func TestWriteSkeleton(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_CreatePony", createPonyYAML)

	snap, _, err := source.Latest(dir)
	require.NoError(t, err)

	path, err := source.WriteSkeleton(dir, "20150302100931_Next", snap)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20150302100931_Next.yaml"), path)

	// The skeleton carries the previous snapshot unchanged, so its diff
	// against the predecessor is empty.
	src, err := source.Load(dir)
	require.NoError(t, err)
	unit := src.Get("20150302100931_Next")
	require.NotNil(t, unit)
	assert.True(t, unit.Up.Empty())
}

func TestWriteSkeleton_RejectsExistingFile(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20150302100930_CreatePony", createPonyYAML)

	snap, id, err := source.Latest(dir)
	require.NoError(t, err)

	_, err = source.WriteSkeleton(dir, id, snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestWriteSkeleton_RejectsMalformedID(t *testing.T) {
	_, err := source.WriteSkeleton(t.TempDir(), "NotAnID", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, migrate.ErrMalformedID)
}
