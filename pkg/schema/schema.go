// Package schema provides the snapshot model that drift diffs and migrates.
//
// A Snapshot is a complete, immutable description of a database schema at one
// point in time: tables, columns, keys, foreign keys, indexes, and sequences.
// Snapshots are plain value graphs. They are built by an external collaborator
// (hand-written Go, the YAML codec in this package, or generated code) and
// handed to the differ; drift never inspects application types itself.
//
// # Immutability
//
// Snapshots are immutable by convention: construct once, share by reference.
// The differ and renderer never mutate their inputs, so a single snapshot may
// be diffed concurrently from multiple goroutines.
//
// # Identity
//
// Tables are identified by schema-qualified name, not structural equality.
// A renamed table is a drop+create to the differ unless the rename is
// declared explicitly (see pkg/diff RenameSet).
//
// # Validation
//
// Validate checks the structural invariants the differ relies on: unique
// table names per schema, unique column names per table, key and index
// columns that exist, and foreign keys whose referenced columns are covered
// by a primary or unique key on the referenced table in the same snapshot.
// Invalid snapshots are rejected before any diffing or database work.
//
// # Relationship to Other Packages
//
// The schema package is imported by pkg/diff (matching and diffing),
// internal/sqlgen (type and identifier rendering), and cmd/drift (snapshot
// file loading). Aside from the YAML codec it is dependency-free, which
// keeps the model usable from code generators without pulling in the CLI
// stack.
package schema

// Snapshot is a complete description of a schema's shape at one point in
// time. The zero value is an empty schema.
type Snapshot struct {
	Tables    []*Table    `json:"tables,omitempty"`
	Sequences []*Sequence `json:"sequences,omitempty"`
}

// Table describes one table: its columns in declaration order, at most one
// primary key, and any unique keys, foreign keys, and indexes.
type Table struct {
	Name   string `json:"name"`
	Schema string `json:"schema,omitempty"`

	Columns     []*Column     `json:"columns"`
	PrimaryKey  *Key          `json:"primaryKey,omitempty"`
	UniqueKeys  []*Key        `json:"uniqueKeys,omitempty"`
	ForeignKeys []*ForeignKey `json:"foreignKeys,omitempty"`
	Indexes     []*Index      `json:"indexes,omitempty"`
}

// Column describes one column. Declaration order within Table.Columns is
// significant: providers without column reordering append added columns in
// diff output order.
type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable,omitempty"`

	// Default is a literal or SQL expression rendered verbatim into DDL.
	Default string `json:"default,omitempty"`

	// Generated selects the value-generation strategy for the column.
	Generated GeneratedKind `json:"generated,omitempty"`

	// ComputedExpr is the generation expression when Generated is
	// GeneratedComputed.
	ComputedExpr string `json:"computedExpr,omitempty"`
}

// ColumnType is the logical (provider-independent) type of a column.
// Dialects map it to concrete SQL type names.
type ColumnType struct {
	Kind TypeKind `json:"kind"`

	// Size applies to TypeString (0 means unbounded text).
	Size int `json:"size,omitempty"`

	// Precision and Scale apply to TypeDecimal.
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`
}

// TypeKind enumerates the logical column types drift understands.
type TypeKind string

const (
	TypeInt       TypeKind = "int"
	TypeBigInt    TypeKind = "bigint"
	TypeSmallInt  TypeKind = "smallint"
	TypeString    TypeKind = "string"
	TypeText      TypeKind = "text"
	TypeBool      TypeKind = "bool"
	TypeFloat     TypeKind = "float"
	TypeDecimal   TypeKind = "decimal"
	TypeTimestamp TypeKind = "timestamp"
	TypeDate      TypeKind = "date"
	TypeUUID      TypeKind = "uuid"
	TypeBinary    TypeKind = "binary"
)

// GeneratedKind enumerates value-generation strategies.
type GeneratedKind string

const (
	// GeneratedNone means values are supplied by the application.
	GeneratedNone GeneratedKind = ""

	// GeneratedIdentity means the database assigns values (identity/serial).
	GeneratedIdentity GeneratedKind = "identity"

	// GeneratedComputed means the column is computed from ComputedExpr.
	GeneratedComputed GeneratedKind = "computed"
)

// Key is a primary or unique key over an ordered list of columns.
type Key struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ForeignKey describes a referential constraint from this table's Columns to
// RefColumns on the referenced table. The referenced columns must be covered
// by a primary or unique key on the referenced table.
type ForeignKey struct {
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"columns"`
	RefSchema  string   `json:"refSchema,omitempty"`
	RefTable   string   `json:"refTable"`
	RefColumns []string `json:"refColumns"`

	OnDelete ReferentialAction `json:"onDelete,omitempty"`
	OnUpdate ReferentialAction `json:"onUpdate,omitempty"`
}

// ReferentialAction is the cascade behavior of a foreign key.
type ReferentialAction string

const (
	NoAction   ReferentialAction = ""
	Restrict   ReferentialAction = "restrict"
	Cascade    ReferentialAction = "cascade"
	SetNull    ReferentialAction = "set null"
	SetDefault ReferentialAction = "set default"
)

// Index describes a secondary index over an ordered column list.
type Index struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`

	// Filter is an optional partial-index predicate, rendered verbatim.
	Filter string `json:"filter,omitempty"`
}

// Sequence describes a standalone sequence.
type Sequence struct {
	Name      string `json:"name"`
	Schema    string `json:"schema,omitempty"`
	StartWith int64  `json:"startWith,omitempty"`
	Increment int64  `json:"increment,omitempty"`
}

// QualifiedName returns the identity key of the table: "schema.name", or
// just the name when the table lives in the default schema.
func (t *Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// QualifiedName returns the identity key of the sequence.
func (s *Sequence) QualifiedName() string {
	if s.Schema == "" {
		return s.Name
	}
	return s.Schema + "." + s.Name
}

// Table returns the table with the given schema-qualified identity, or nil.
func (s *Snapshot) Table(schemaName, name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name && t.Schema == schemaName {
			return t
		}
	}
	return nil
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// HasKeyOn reports whether cols exactly match the table's primary key or one
// of its unique keys, ignoring column order.
func (t *Table) HasKeyOn(cols []string) bool {
	if t.PrimaryKey != nil && sameColumnSet(t.PrimaryKey.Columns, cols) {
		return true
	}
	for _, k := range t.UniqueKeys {
		if sameColumnSet(k.Columns, cols) {
			return true
		}
	}
	// A unique index serves as a key target on every provider drift supports.
	for _, ix := range t.Indexes {
		if ix.Unique && ix.Filter == "" && sameColumnSet(ix.Columns, cols) {
			return true
		}
	}
	return false
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, c := range a {
		seen[c] = true
	}
	for _, c := range b {
		if !seen[c] {
			return false
		}
	}
	return true
}

// Equal reports whether two logical types are identical.
func (ct ColumnType) Equal(other ColumnType) bool {
	return ct == other
}

// Equal reports whether two columns are structurally identical.
func (c *Column) Equal(other *Column) bool {
	return c.Name == other.Name &&
		c.Type.Equal(other.Type) &&
		c.Nullable == other.Nullable &&
		c.Default == other.Default &&
		c.Generated == other.Generated &&
		c.ComputedExpr == other.ComputedExpr
}
