package schema

import "errors"

// ErrDuplicateTable is returned when two tables share an identity key.
var ErrDuplicateTable = errors.New("drift/schema: duplicate table")

// ErrDuplicateColumn is returned when a table declares the same column twice.
var ErrDuplicateColumn = errors.New("drift/schema: duplicate column")

// ErrUnknownColumn is returned when a key, index, or foreign key names a
// column the table does not declare.
var ErrUnknownColumn = errors.New("drift/schema: unknown column")

// ErrUnknownTable is returned when a foreign key references a table the
// snapshot does not contain.
var ErrUnknownTable = errors.New("drift/schema: unknown table")

// ErrForeignKeyTarget is returned when a foreign key's referenced columns
// are not covered by a primary or unique key on the referenced table.
var ErrForeignKeyTarget = errors.New("drift/schema: foreign key target is not a key")

// IsValidationErr returns true if err is any snapshot validation error.
func IsValidationErr(err error) bool {
	return errors.Is(err, ErrDuplicateTable) ||
		errors.Is(err, ErrDuplicateColumn) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrUnknownTable) ||
		errors.Is(err, ErrForeignKeyTarget)
}
