// Package source loads a migrations directory into a migrate.Source.
//
// A migrations directory holds one YAML file per migration unit, named by
// migration id (20240301100930_CreatePony.yaml). Each file records the
// complete desired schema snapshot after that migration, plus any rename
// annotations the differ cannot detect structurally. Units are derived by
// diffing consecutive snapshots: the up plan transforms the previous
// file's snapshot into this one, the down plan is the same diff run in
// reverse with inverted renames. Storing snapshots instead of operations
// keeps migration files declarative and reviewable.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/driftsql/drift/pkg/diff"
	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/schema"
)

// File is the on-disk shape of one migration unit.
type File struct {
	// Renames declares table/column/index renames relative to the
	// previous migration's snapshot.
	Renames diff.RenameSet `json:"renames,omitempty"`

	// Schema is the complete desired snapshot after this migration.
	Schema *schema.Snapshot `json:"schema"`
}

// Load reads every migration file in dir and builds the unit registry.
// Files whose base name is not a valid migration id are rejected; an
// empty or missing directory yields an empty source.
func Load(dir string) (*migrate.Source, error) {
	paths, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}

	src, err := migrate.NewSource()
	if err != nil {
		return nil, err
	}

	prev := &schema.Snapshot{}
	for _, path := range paths {
		id := idFromPath(path)
		f, err := parseFile(path)
		if err != nil {
			return nil, err
		}

		up, err := diff.Diff(prev, f.Schema, diff.Options{Renames: f.Renames})
		if err != nil {
			return nil, fmt.Errorf("%s: computing up plan: %w", path, err)
		}
		down, err := diff.Diff(f.Schema, prev, diff.Options{Renames: f.Renames.Invert()})
		if err != nil {
			return nil, fmt.Errorf("%s: computing down plan: %w", path, err)
		}

		name, err := migrate.NameFromID(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := src.Add(&migrate.Migration{ID: id, Name: name, Up: up, Down: down}); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		prev = f.Schema
	}
	return src, nil
}

// Latest returns the snapshot recorded by the newest migration file, or an
// empty snapshot for an empty directory. Used by the new-migration
// skeleton and by diff-against-head workflows.
func Latest(dir string) (*schema.Snapshot, string, error) {
	paths, err := migrationFiles(dir)
	if err != nil {
		return nil, "", err
	}
	if len(paths) == 0 {
		return &schema.Snapshot{}, "", nil
	}
	last := paths[len(paths)-1]
	f, err := parseFile(last)
	if err != nil {
		return nil, "", err
	}
	return f.Schema, idFromPath(last), nil
}

// WriteSkeleton writes a new migration file carrying the given snapshot,
// returning its path. The snapshot is typically the latest one, copied
// for hand-editing.
func WriteSkeleton(dir, id string, snap *schema.Snapshot) (string, error) {
	if !migrate.IsValidID(id) {
		return "", fmt.Errorf("%w: %q", migrate.ErrMalformedID, id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations directory: %w", err)
	}

	data, err := yaml.Marshal(File{Schema: snap})
	if err != nil {
		return "", fmt.Errorf("encoding migration file: %w", err)
	}
	path := filepath.Join(dir, id+".yaml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("migration file already exists: %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return path, nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if !migrate.IsValidID(strings.TrimSuffix(e.Name(), ext)) {
			return nil, fmt.Errorf("%w: file %s", migrate.ErrMalformedID, e.Name())
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	// Id order is chronological order.
	sort.Slice(paths, func(i, j int) bool {
		return idFromPath(paths[i]) < idFromPath(paths[j])
	})
	return paths, nil
}

func idFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading migration file: %w", err)
	}
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%s: parsing migration file: %w", path, err)
	}
	if f.Schema == nil {
		f.Schema = &schema.Snapshot{}
	}
	if err := schema.Validate(f.Schema); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}
