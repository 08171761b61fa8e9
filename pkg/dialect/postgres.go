package dialect

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/driftsql/drift/pkg/schema"
)

// Postgres is the PostgreSQL dialect: fully transactional DDL, in-place
// column alteration, 63-byte identifiers.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (Postgres) TypeName(t schema.ColumnType) (string, error) {
	switch t.Kind {
	case schema.TypeInt:
		return "integer", nil
	case schema.TypeBigInt:
		return "bigint", nil
	case schema.TypeSmallInt:
		return "smallint", nil
	case schema.TypeString:
		if t.Size > 0 {
			return fmt.Sprintf("varchar(%d)", t.Size), nil
		}
		return "text", nil
	case schema.TypeText:
		return "text", nil
	case schema.TypeBool:
		return "boolean", nil
	case schema.TypeFloat:
		return "double precision", nil
	case schema.TypeDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("numeric(%d,%d)", t.Precision, t.Scale), nil
		}
		return "numeric", nil
	case schema.TypeTimestamp:
		return "timestamp with time zone", nil
	case schema.TypeDate:
		return "date", nil
	case schema.TypeUUID:
		return "uuid", nil
	case schema.TypeBinary:
		return "bytea", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, t.Kind)
}

func (Postgres) MaxIdentifierLength() int { return 63 }

func (Postgres) SupportsAlterColumnType() bool { return true }

func (Postgres) SupportsTransactionalDDL() bool { return true }
