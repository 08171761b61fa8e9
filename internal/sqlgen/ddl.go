package sqlgen

import (
	"fmt"
	"strings"

	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/schema"
)

type renderer struct {
	dialect dialect.Dialect
}

// render produces the statement sequence for one operation. The switch is
// exhaustive over the closed operation set.
func (r *renderer) render(op migrate.Operation) ([]string, error) {
	switch o := op.(type) {
	case migrate.CreateTable:
		return r.renderCreateTable(o)
	case migrate.DropTable:
		return []string{fmt.Sprintf("DROP TABLE %s;", r.tableRef(o.Schema, o.Name))}, nil
	case migrate.RenameTable:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME TO %s;",
			r.tableRef(o.Schema, o.Name), r.quote(o.NewName))}, nil
	case migrate.AddColumn:
		def, err := r.columnDef(o.Column)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;",
			r.tableRef(o.Schema, o.Name), def)}, nil
	case migrate.DropColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;",
			r.tableRef(o.Schema, o.Name), r.quote(o.Column))}, nil
	case migrate.AlterColumn:
		if r.dialect.SupportsAlterColumnType() {
			return r.renderAlterColumn(o)
		}
		return r.renderAlterColumnEmulated(o)
	case migrate.RenameColumn:
		return []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;",
			r.tableRef(o.Schema, o.Name), r.quote(o.Column), r.quote(o.NewName))}, nil
	case migrate.AddForeignKey:
		return r.renderAddForeignKey(o)
	case migrate.DropForeignKey:
		if o.ConstraintName == "" {
			return nil, migrate.UnsupportedOperation{
				TableName: o.Table(),
				Reason:    "cannot drop an unnamed foreign key; name the constraint in the snapshot",
			}
		}
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;",
			r.tableRef(o.Schema, o.Name), r.quote(o.ConstraintName))}, nil
	case migrate.CreateIndex:
		return r.renderCreateIndex(o.Schema, o.Name, o.Index)
	case migrate.DropIndex:
		return []string{fmt.Sprintf("DROP INDEX %s;", r.tableRef(o.Schema, o.IndexName))}, nil
	case migrate.RenameIndex:
		return []string{fmt.Sprintf("ALTER INDEX %s RENAME TO %s;",
			r.tableRef(o.Schema, o.IndexName), r.quote(o.NewName))}, nil
	case migrate.CreateSequence:
		return r.renderCreateSequence(o.Sequence)
	case migrate.DropSequence:
		return []string{fmt.Sprintf("DROP SEQUENCE %s;", r.tableRef(o.Schema, o.Name))}, nil
	}
	return nil, fmt.Errorf("unknown operation kind %q", op.Kind())
}

func (r *renderer) quote(name string) string {
	return r.dialect.QuoteIdentifier(name)
}

// tableRef renders a schema-qualified object reference.
func (r *renderer) tableRef(schemaName, name string) string {
	if schemaName == "" {
		return r.quote(name)
	}
	return r.quote(schemaName) + "." + r.quote(name)
}

// checkIdent rejects user-chosen identifiers over the dialect's limit.
// Generated names are truncated instead (see generatedName).
func (r *renderer) checkIdent(name string) error {
	if max := r.dialect.MaxIdentifierLength(); max > 0 && len(name) > max {
		return migrate.UnsupportedOperation{
			TableName: name,
			Reason:    fmt.Sprintf("identifier exceeds the dialect's %d-character limit", max),
		}
	}
	return nil
}

func (r *renderer) generatedName(prefix, table string, cols []string) string {
	name := prefix + "_" + table + "_" + strings.Join(cols, "_")
	if max := r.dialect.MaxIdentifierLength(); max > 0 && len(name) > max {
		name = name[:max]
	}
	return name
}

func (r *renderer) columnDef(c *schema.Column) (string, error) {
	if err := r.checkIdent(c.Name); err != nil {
		return "", err
	}
	typeName, err := r.dialect.TypeName(c.Type)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(r.quote(c.Name))
	b.WriteString(" ")
	b.WriteString(typeName)

	switch c.Generated {
	case schema.GeneratedIdentity:
		b.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
	case schema.GeneratedComputed:
		fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", c.ComputedExpr)
	}

	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != "" {
		fmt.Fprintf(&b, " DEFAULT %s", c.Default)
	}
	return b.String(), nil
}

func (r *renderer) renderCreateTable(o migrate.CreateTable) ([]string, error) {
	t := o.TableDef
	if err := r.checkIdent(t.Name); err != nil {
		return nil, err
	}

	var defs []string
	for _, c := range t.Columns {
		def, err := r.columnDef(c)
		if err != nil {
			return nil, err
		}
		defs = append(defs, "    "+def)
	}

	if t.PrimaryKey != nil {
		pk := "    "
		if t.PrimaryKey.Name != "" {
			pk += fmt.Sprintf("CONSTRAINT %s ", r.quote(t.PrimaryKey.Name))
		}
		pk += fmt.Sprintf("PRIMARY KEY (%s)", r.columnList(t.PrimaryKey.Columns))
		defs = append(defs, pk)
	}
	for _, k := range t.UniqueKeys {
		uq := "    "
		if k.Name != "" {
			uq += fmt.Sprintf("CONSTRAINT %s ", r.quote(k.Name))
		}
		uq += fmt.Sprintf("UNIQUE (%s)", r.columnList(k.Columns))
		defs = append(defs, uq)
	}
	for _, fk := range t.ForeignKeys {
		clause, err := r.foreignKeyClause(t.Name, fk)
		if err != nil {
			return nil, err
		}
		defs = append(defs, "    "+clause)
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n%s\n);",
		r.tableRef(t.Schema, t.Name), strings.Join(defs, ",\n"))}

	// Indexes are nested creation: they belong to the table operation but
	// render as separate statements.
	for _, ix := range t.Indexes {
		ixStmts, err := r.renderCreateIndex(t.Schema, t.Name, ix)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, ixStmts...)
	}
	return stmts, nil
}

func (r *renderer) columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = r.quote(c)
	}
	return strings.Join(quoted, ", ")
}

func (r *renderer) foreignKeyClause(table string, fk *schema.ForeignKey) (string, error) {
	name := fk.Name
	if name == "" {
		name = r.generatedName("fk", table, fk.Columns)
	} else if err := r.checkIdent(name); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		r.quote(name),
		r.columnList(fk.Columns),
		r.tableRef(fk.RefSchema, fk.RefTable),
		r.columnList(fk.RefColumns))
	if fk.OnDelete != schema.NoAction {
		fmt.Fprintf(&b, " ON DELETE %s", strings.ToUpper(string(fk.OnDelete)))
	}
	if fk.OnUpdate != schema.NoAction {
		fmt.Fprintf(&b, " ON UPDATE %s", strings.ToUpper(string(fk.OnUpdate)))
	}
	return b.String(), nil
}

func (r *renderer) renderAddForeignKey(o migrate.AddForeignKey) ([]string, error) {
	clause, err := r.foreignKeyClause(o.Name, o.ForeignKey)
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("ALTER TABLE %s ADD %s;", r.tableRef(o.Schema, o.Name), clause)}, nil
}

func (r *renderer) renderCreateIndex(schemaName, table string, ix *schema.Index) ([]string, error) {
	name := ix.Name
	if name == "" {
		name = r.generatedName("ix", table, ix.Columns)
	} else if err := r.checkIdent(name); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s (%s)",
		r.quote(name), r.tableRef(schemaName, table), r.columnList(ix.Columns))
	if ix.Filter != "" {
		fmt.Fprintf(&b, " WHERE %s", ix.Filter)
	}
	b.WriteString(";")
	return []string{b.String()}, nil
}

// renderAlterColumn changes a column in place, emitting one statement per
// changed aspect.
func (r *renderer) renderAlterColumn(o migrate.AlterColumn) ([]string, error) {
	if o.Old.Generated != o.New.Generated {
		return nil, migrate.UnsupportedOperation{
			TableName: o.Table(),
			Reason:    "changing a column's value-generation strategy is not expressible in place",
		}
	}

	ref := r.tableRef(o.Schema, o.Name)
	col := r.quote(o.New.Name)
	var stmts []string

	if !o.Old.Type.Equal(o.New.Type) {
		typeName, err := r.dialect.TypeName(o.New.Type)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", ref, col, typeName))
	}
	if o.Old.Nullable != o.New.Nullable {
		if o.New.Nullable {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", ref, col))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", ref, col))
		}
	}
	if o.Old.Default != o.New.Default {
		if o.New.Default == "" {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", ref, col))
		} else {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", ref, col, o.New.Default))
		}
	}
	return stmts, nil
}

// renderAlterColumnEmulated rewrites an AlterColumn for dialects without
// in-place alteration as the safe four-step sequence: add a temporary
// column with the new definition, copy the data across, drop the old
// column, rename the temporary into place. A NOT NULL target without a
// default cannot be emulated (the temporary column would reject existing
// rows) and is reported as unsupported.
func (r *renderer) renderAlterColumnEmulated(o migrate.AlterColumn) ([]string, error) {
	if o.Old.Generated != o.New.Generated {
		return nil, migrate.UnsupportedOperation{
			TableName: o.Table(),
			Reason:    "changing a column's value-generation strategy is not expressible in place",
		}
	}
	if !o.New.Nullable && o.New.Default == "" {
		return nil, migrate.UnsupportedOperation{
			TableName: o.Table(),
			Reason: fmt.Sprintf("dialect %q cannot alter %q to NOT NULL without a default",
				r.dialect.Name(), o.New.Name),
		}
	}

	tmp := *o.New
	tmp.Name = o.New.Name + "__drift_tmp"
	def, err := r.columnDef(&tmp)
	if err != nil {
		return nil, err
	}

	ref := r.tableRef(o.Schema, o.Name)
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", ref, def),
		fmt.Sprintf("UPDATE %s SET %s = %s;", ref, r.quote(tmp.Name), r.quote(o.Old.Name)),
		fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", ref, r.quote(o.Old.Name)),
		fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s;", ref, r.quote(tmp.Name), r.quote(o.New.Name)),
	}, nil
}

func (r *renderer) renderCreateSequence(sq *schema.Sequence) ([]string, error) {
	if err := r.checkIdent(sq.Name); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE SEQUENCE %s", r.tableRef(sq.Schema, sq.Name))
	if sq.StartWith != 0 {
		fmt.Fprintf(&b, " START WITH %d", sq.StartWith)
	}
	if sq.Increment != 0 {
		fmt.Fprintf(&b, " INCREMENT BY %d", sq.Increment)
	}
	b.WriteString(";")
	return []string{b.String()}, nil
}
