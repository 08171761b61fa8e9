package schema

import "fmt"

// Validate checks the structural invariants the differ relies on. It returns
// the first violation found, wrapped around the matching sentinel error, or
// nil when the snapshot is well-formed.
//
// Foreign keys are checked against this snapshot: the referenced table must
// exist here and the referenced columns must be covered by a primary key,
// unique key, or unfiltered unique index on it.
func Validate(s *Snapshot) error {
	seenTables := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		qn := t.QualifiedName()
		if seenTables[qn] {
			return fmt.Errorf("%w: %s", ErrDuplicateTable, qn)
		}
		seenTables[qn] = true

		if err := validateTable(s, t); err != nil {
			return err
		}
	}

	seenSeqs := make(map[string]bool, len(s.Sequences))
	for _, sq := range s.Sequences {
		qn := sq.QualifiedName()
		if seenSeqs[qn] {
			return fmt.Errorf("%w: sequence %s", ErrDuplicateTable, qn)
		}
		seenSeqs[qn] = true
	}

	return nil
}

func validateTable(s *Snapshot, t *Table) error {
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Name] {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, t.QualifiedName(), c.Name)
		}
		cols[c.Name] = true
	}

	checkCols := func(kind string, names []string) error {
		for _, n := range names {
			if !cols[n] {
				return fmt.Errorf("%w: %s on %s names column %q",
					ErrUnknownColumn, kind, t.QualifiedName(), n)
			}
		}
		return nil
	}

	if t.PrimaryKey != nil {
		if err := checkCols("primary key", t.PrimaryKey.Columns); err != nil {
			return err
		}
	}
	for _, k := range t.UniqueKeys {
		if err := checkCols("unique key", k.Columns); err != nil {
			return err
		}
	}
	for _, ix := range t.Indexes {
		if err := checkCols("index", ix.Columns); err != nil {
			return err
		}
	}

	for _, fk := range t.ForeignKeys {
		if err := checkCols("foreign key", fk.Columns); err != nil {
			return err
		}
		ref := s.Table(fk.RefSchema, fk.RefTable)
		if ref == nil {
			return fmt.Errorf("%w: foreign key %q on %s references %s",
				ErrUnknownTable, fk.Name, t.QualifiedName(), qualified(fk.RefSchema, fk.RefTable))
		}
		for _, n := range fk.RefColumns {
			if ref.Column(n) == nil {
				return fmt.Errorf("%w: foreign key %q on %s references column %s.%s",
					ErrUnknownColumn, fk.Name, t.QualifiedName(), ref.QualifiedName(), n)
			}
		}
		if !ref.HasKeyOn(fk.RefColumns) {
			return fmt.Errorf("%w: foreign key %q on %s references %v on %s",
				ErrForeignKeyTarget, fk.Name, t.QualifiedName(), fk.RefColumns, ref.QualifiedName())
		}
	}

	return nil
}

func qualified(schemaName, name string) string {
	if schemaName == "" {
		return name
	}
	return schemaName + "." + name
}
