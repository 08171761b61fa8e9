// Package dialect describes the syntax and capability profile of a target
// database engine. The DDL renderer is parameterized by a Dialect; adding a
// provider means implementing this interface, not touching the renderer.
package dialect

import (
	"errors"

	"github.com/driftsql/drift/pkg/schema"
)

// ErrUnsupportedType is returned by TypeName when a dialect has no mapping
// for a logical column type.
var ErrUnsupportedType = errors.New("drift/dialect: unsupported column type")

// Dialect is the capability descriptor consulted by the DDL renderer.
type Dialect interface {
	// Name identifies the dialect ("postgres", "generic").
	Name() string

	// QuoteIdentifier quotes and escapes a user-chosen identifier.
	// Rendering always quotes; unquoted identifiers are an injection
	// vector via user-chosen names.
	QuoteIdentifier(name string) string

	// TypeName maps a logical column type to the dialect's SQL type name.
	TypeName(t schema.ColumnType) (string, error)

	// MaxIdentifierLength is the engine's identifier limit, or 0 for
	// unlimited.
	MaxIdentifierLength() int

	// SupportsAlterColumnType reports whether the engine can change a
	// column's type in place. When false the renderer emulates the change
	// with an add/copy/drop/rename sequence.
	SupportsAlterColumnType() bool

	// SupportsTransactionalDDL reports whether DDL statements may share a
	// transaction. When false every batch runs unwrapped and the history
	// ledger row is written immediately after a unit instead of with it.
	SupportsTransactionalDDL() bool
}
