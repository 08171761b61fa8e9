// Package migrate defines the migration vocabulary shared by the differ,
// the DDL renderer, and the migrator: the closed set of schema-change
// operations, the migration unit (an up/down plan pair with a generated id),
// and the monotonic migration id generator.
package migrate

import "github.com/driftsql/drift/pkg/schema"

// OpKind discriminates the closed set of operation types. Renderers switch
// exhaustively over it; adding a kind means touching every switch.
type OpKind string

const (
	OpCreateTable    OpKind = "create_table"
	OpDropTable      OpKind = "drop_table"
	OpRenameTable    OpKind = "rename_table"
	OpAddColumn      OpKind = "add_column"
	OpDropColumn     OpKind = "drop_column"
	OpAlterColumn    OpKind = "alter_column"
	OpRenameColumn   OpKind = "rename_column"
	OpAddForeignKey  OpKind = "add_foreign_key"
	OpDropForeignKey OpKind = "drop_foreign_key"
	OpCreateIndex    OpKind = "create_index"
	OpDropIndex      OpKind = "drop_index"
	OpRenameIndex    OpKind = "rename_index"
	OpCreateSequence OpKind = "create_sequence"
	OpDropSequence   OpKind = "drop_sequence"
)

// Operation is one atomic schema-change instruction. The concrete types in
// this package are the only implementations.
type Operation interface {
	Kind() OpKind

	// Table returns the schema-qualified identity of the table the
	// operation touches, or "" for sequence operations. Used by the
	// differ's ordering pass and by diagnostics.
	Table() string
}

// CreateTable creates a table with its columns, keys, and indexes. Foreign
// keys referencing tables created later in the same plan are split out into
// trailing AddForeignKey operations by the differ.
type CreateTable struct {
	TableDef *schema.Table
}

func (CreateTable) Kind() OpKind    { return OpCreateTable }
func (o CreateTable) Table() string { return o.TableDef.QualifiedName() }

// DropTable drops a table. Foreign keys into or out of the table must be
// dropped by preceding DropForeignKey operations.
type DropTable struct {
	Schema string
	Name   string
}

func (DropTable) Kind() OpKind    { return OpDropTable }
func (o DropTable) Table() string { return qualified(o.Schema, o.Name) }

// RenameTable renames a table in place.
type RenameTable struct {
	Schema  string
	Name    string
	NewName string
}

func (RenameTable) Kind() OpKind    { return OpRenameTable }
func (o RenameTable) Table() string { return qualified(o.Schema, o.Name) }

// AddColumn appends a column to an existing table.
type AddColumn struct {
	Schema string
	Name   string
	Column *schema.Column
}

func (AddColumn) Kind() OpKind    { return OpAddColumn }
func (o AddColumn) Table() string { return qualified(o.Schema, o.Name) }

// DropColumn removes a column from an existing table.
type DropColumn struct {
	Schema string
	Name   string
	Column string
}

func (DropColumn) Kind() OpKind    { return OpDropColumn }
func (o DropColumn) Table() string { return qualified(o.Schema, o.Name) }

// AlterColumn changes a column's type, nullability, or default. Both the
// old and new definitions are carried so dialects without in-place alter
// can emulate the change and so the operation is reversible.
type AlterColumn struct {
	Schema string
	Name   string
	Old    *schema.Column
	New    *schema.Column
}

func (AlterColumn) Kind() OpKind    { return OpAlterColumn }
func (o AlterColumn) Table() string { return qualified(o.Schema, o.Name) }

// RenameColumn renames a column in place.
type RenameColumn struct {
	Schema  string
	Name    string
	Column  string
	NewName string
}

func (RenameColumn) Kind() OpKind    { return OpRenameColumn }
func (o RenameColumn) Table() string { return qualified(o.Schema, o.Name) }

// AddForeignKey adds a referential constraint to an existing table. The
// referenced table must already exist in the operation stream.
type AddForeignKey struct {
	Schema     string
	Name       string
	ForeignKey *schema.ForeignKey
}

func (AddForeignKey) Kind() OpKind    { return OpAddForeignKey }
func (o AddForeignKey) Table() string { return qualified(o.Schema, o.Name) }

// RefTable returns the identity of the referenced table.
func (o AddForeignKey) RefTable() string {
	return qualified(o.ForeignKey.RefSchema, o.ForeignKey.RefTable)
}

// DropForeignKey drops a referential constraint by name.
type DropForeignKey struct {
	Schema         string
	Name           string
	ConstraintName string
}

func (DropForeignKey) Kind() OpKind    { return OpDropForeignKey }
func (o DropForeignKey) Table() string { return qualified(o.Schema, o.Name) }

// CreateIndex creates a secondary index.
type CreateIndex struct {
	Schema string
	Name   string
	Index  *schema.Index
}

func (CreateIndex) Kind() OpKind    { return OpCreateIndex }
func (o CreateIndex) Table() string { return qualified(o.Schema, o.Name) }

// DropIndex drops an index by name.
type DropIndex struct {
	Schema    string
	Name      string
	IndexName string
}

func (DropIndex) Kind() OpKind    { return OpDropIndex }
func (o DropIndex) Table() string { return qualified(o.Schema, o.Name) }

// RenameIndex renames an index in place.
type RenameIndex struct {
	Schema    string
	Name      string
	IndexName string
	NewName   string
}

func (RenameIndex) Kind() OpKind    { return OpRenameIndex }
func (o RenameIndex) Table() string { return qualified(o.Schema, o.Name) }

// CreateSequence creates a standalone sequence.
type CreateSequence struct {
	Sequence *schema.Sequence
}

func (CreateSequence) Kind() OpKind  { return OpCreateSequence }
func (CreateSequence) Table() string { return "" }

// DropSequence drops a sequence.
type DropSequence struct {
	Schema string
	Name   string
}

func (DropSequence) Kind() OpKind  { return OpDropSequence }
func (DropSequence) Table() string { return "" }

func qualified(schemaName, name string) string {
	if schemaName == "" {
		return name
	}
	return schemaName + "." + name
}
