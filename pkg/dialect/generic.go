package dialect

import (
	"fmt"
	"strings"

	"github.com/driftsql/drift/pkg/schema"
)

// Generic is a lowest-common-denominator ANSI dialect: double-quote
// identifier quoting, logical type names passed through, no in-place
// column alteration, and no transactional DDL. Useful for script output
// that is hand-edited per engine, and as the emulation-path exercise in
// tests.
type Generic struct{}

func (Generic) Name() string { return "generic" }

func (Generic) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Generic) TypeName(t schema.ColumnType) (string, error) {
	switch t.Kind {
	case schema.TypeInt:
		return "int", nil
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
		return "float", nil
	case schema.TypeDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale), nil
		}
		return "decimal", nil
	case schema.TypeTimestamp:
		return "timestamp", nil
	case schema.TypeDate:
		return "date", nil
	case schema.TypeUUID:
		return "uuid", nil
	case schema.TypeBinary:
		return "blob", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, t.Kind)
}

func (Generic) MaxIdentifierLength() int { return 0 }

func (Generic) SupportsAlterColumnType() bool { return false }

func (Generic) SupportsTransactionalDDL() bool { return false }
