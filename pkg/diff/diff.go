// Package diff computes the ordered operation plan that transforms one
// schema snapshot into another.
//
// Tables are matched by identity key (schema-qualified name), never by
// structural equality: a renamed table is drop+create unless the rename is
// declared up front in a RenameSet. Matched tables are diffed column by
// column, key by key; unmatched tables become CreateTable or DropTable.
//
// The resulting operations are ordered so that every operation's
// prerequisites precede it in the stream: referenced tables are created
// before the foreign keys that point at them, foreign keys are dropped
// before either endpoint table, and a dropped name is freed before it is
// reused. Ties are broken by target declaration order, so diff output is
// deterministic for a given input pair.
package diff

import (
	"fmt"

	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/schema"
)

// RenameSet declares renames the differ cannot detect structurally.
// Undeclared renames degrade to drop+create (tables) or drop+add (columns).
type RenameSet struct {
	// Tables maps source table identity ("schema.name" or "name") to
	// target identity.
	Tables map[string]string `json:"tables,omitempty"`

	// Columns maps target table identity to old-name -> new-name pairs.
	Columns map[string]map[string]string `json:"columns,omitempty"`

	// Indexes maps target table identity to old-name -> new-name pairs.
	Indexes map[string]map[string]string `json:"indexes,omitempty"`
}

// Invert returns the rename set for the opposite diff direction: renaming
// new names back to old ones. Used to derive down plans from the same
// annotations that shaped the up plan.
func (r RenameSet) Invert() RenameSet {
	inv := RenameSet{}
	if len(r.Tables) > 0 {
		inv.Tables = make(map[string]string, len(r.Tables))
		for oldID, newID := range r.Tables {
			inv.Tables[newID] = oldID
		}
	}
	inv.Columns = invertColumnMap(r.Tables, r.Columns)
	inv.Indexes = invertColumnMap(r.Tables, r.Indexes)
	return inv
}

// invertColumnMap re-keys per-table rename maps by the opposite direction's
// target table identity and swaps each old/new pair.
func invertColumnMap(tableRenames map[string]string, m map[string]map[string]string) map[string]map[string]string {
	if len(m) == 0 {
		return nil
	}
	// The up maps are keyed by up-target identity; the down maps are keyed
	// by down-target identity, which is the up-source identity.
	newToOldTable := make(map[string]string, len(tableRenames))
	for oldID, newID := range tableRenames {
		newToOldTable[newID] = oldID
	}
	out := make(map[string]map[string]string, len(m))
	for tableID, cols := range m {
		key := tableID
		if oldID, ok := newToOldTable[tableID]; ok {
			key = oldID
		}
		swapped := make(map[string]string, len(cols))
		for oldName, newName := range cols {
			swapped[newName] = oldName
		}
		out[key] = swapped
	}
	return out
}

func (r RenameSet) tableTarget(sourceID string) (string, bool) {
	if r.Tables == nil {
		return "", false
	}
	id, ok := r.Tables[sourceID]
	return id, ok
}

func (r RenameSet) columnTarget(tableID, oldName string) (string, bool) {
	if r.Columns == nil {
		return "", false
	}
	m, ok := r.Columns[tableID]
	if !ok {
		return "", false
	}
	n, ok := m[oldName]
	return n, ok
}

func (r RenameSet) indexTarget(tableID, oldName string) (string, bool) {
	if r.Indexes == nil {
		return "", false
	}
	m, ok := r.Indexes[tableID]
	if !ok {
		return "", false
	}
	n, ok := m[oldName]
	return n, ok
}

// Options configures a diff run.
type Options struct {
	Renames RenameSet
}

// Diff validates both snapshots and computes the ordered plan transforming
// source into target. Diffing a snapshot against itself yields an empty
// plan. Structural changes with no expressible operation (a primary-key
// column-set change on a matched table) surface as plan diagnostics, not
// errors.
func Diff(source, target *schema.Snapshot, opts Options) (*migrate.Plan, error) {
	if err := schema.Validate(source); err != nil {
		return nil, fmt.Errorf("source snapshot: %w", err)
	}
	if err := schema.Validate(target); err != nil {
		return nil, fmt.Errorf("target snapshot: %w", err)
	}

	d := &differ{opts: opts}
	d.diffSequences(source, target)
	if err := d.diffTables(source, target); err != nil {
		return nil, err
	}

	plan := &migrate.Plan{
		Operations:  orderOperations(d, source),
		Diagnostics: d.diagnostics,
	}
	return plan, nil
}

// differ accumulates raw operations by phase before the ordering pass
// assembles the final stream.
type differ struct {
	opts Options

	dropForeignKeys []migrate.Operation
	dropIndexes     []migrate.Operation
	dropColumns     []migrate.Operation
	dropTables      []*schema.Table // source defs, for dependency ordering
	dropSequences   []migrate.Operation

	createSequences []migrate.Operation
	renames         []migrate.Operation
	createTables    []*schema.Table // target defs, for dependency ordering
	addColumns      []migrate.Operation
	alterColumns    []migrate.Operation
	addForeignKeys  []migrate.Operation
	createIndexes   []migrate.Operation

	diagnostics []migrate.UnsupportedOperation
}

func (d *differ) diffSequences(source, target *schema.Snapshot) {
	sourceSeqs := make(map[string]*schema.Sequence, len(source.Sequences))
	for _, sq := range source.Sequences {
		sourceSeqs[sq.QualifiedName()] = sq
	}
	targetSeqs := make(map[string]*schema.Sequence, len(target.Sequences))
	for _, sq := range target.Sequences {
		targetSeqs[sq.QualifiedName()] = sq
	}

	for _, sq := range target.Sequences {
		if _, ok := sourceSeqs[sq.QualifiedName()]; !ok {
			d.createSequences = append(d.createSequences, migrate.CreateSequence{Sequence: sq})
		}
	}
	for _, sq := range source.Sequences {
		if _, ok := targetSeqs[sq.QualifiedName()]; !ok {
			d.dropSequences = append(d.dropSequences, migrate.DropSequence{Schema: sq.Schema, Name: sq.Name})
		}
	}
}

func (d *differ) diffTables(source, target *schema.Snapshot) error {
	matchedSource := make(map[string]bool, len(source.Tables))

	for _, tgt := range target.Tables {
		src := source.Table(tgt.Schema, tgt.Name)
		if src != nil && d.renamedAway(src) {
			// A declared rename claims this source table, so a target table
			// reusing its old name is a new table, not a match.
			src = nil
		}
		renamed := false
		if src == nil {
			src = d.renamedSource(source, tgt)
			renamed = src != nil
		}
		if src == nil {
			d.createTables = append(d.createTables, tgt)
			continue
		}
		matchedSource[src.QualifiedName()] = true
		if renamed {
			if src.Schema != tgt.Schema {
				return fmt.Errorf("drift/diff: declared rename %s -> %s crosses schemas; moving a table between schemas is not supported",
					src.QualifiedName(), tgt.QualifiedName())
			}
			d.renames = append(d.renames, migrate.RenameTable{
				Schema:  src.Schema,
				Name:    src.Name,
				NewName: tgt.Name,
			})
		}
		d.diffTable(src, tgt)
	}

	for _, src := range source.Tables {
		if matchedSource[src.QualifiedName()] {
			continue
		}
		if !d.renamedAway(src) && target.Table(src.Schema, src.Name) != nil {
			continue // matched by identity above
		}
		d.dropTables = append(d.dropTables, src)
		// Foreign keys out of surviving tables into this one are dropped by
		// the matched-table diff; the table's own constraints go with it.
	}
	return nil
}

// renamedAway reports whether a declared rename maps this source table to a
// new identity, removing it from identity matching.
func (d *differ) renamedAway(src *schema.Table) bool {
	_, ok := d.opts.Renames.tableTarget(src.QualifiedName())
	return ok
}

// renamedSource finds the source table whose declared rename target is tgt.
func (d *differ) renamedSource(source *schema.Snapshot, tgt *schema.Table) *schema.Table {
	for _, src := range source.Tables {
		if id, ok := d.opts.Renames.tableTarget(src.QualifiedName()); ok && id == tgt.QualifiedName() {
			return src
		}
	}
	return nil
}

func (d *differ) diffTable(src, tgt *schema.Table) {
	d.diffColumns(src, tgt)
	d.diffPrimaryKey(src, tgt)
	d.diffForeignKeys(src, tgt)
	d.diffIndexes(src, tgt)
}

func (d *differ) diffColumns(src, tgt *schema.Table) {
	tableID := tgt.QualifiedName()

	// Apply declared column renames to the source view first so the
	// remaining diff matches by (new) name.
	renamedFrom := make(map[string]string) // new name -> old name
	for _, sc := range src.Columns {
		if newName, ok := d.opts.Renames.columnTarget(tableID, sc.Name); ok {
			renamedFrom[newName] = sc.Name
			d.renames = append(d.renames, migrate.RenameColumn{
				Schema:  tgt.Schema,
				Name:    tgt.Name,
				Column:  sc.Name,
				NewName: newName,
			})
		}
	}

	srcCols := make(map[string]*schema.Column, len(src.Columns))
	for _, c := range src.Columns {
		srcCols[c.Name] = c
	}

	tgtNames := make(map[string]bool, len(tgt.Columns))
	for _, tc := range tgt.Columns {
		tgtNames[tc.Name] = true

		srcName := tc.Name
		if old, ok := renamedFrom[tc.Name]; ok {
			srcName = old
		}
		sc, ok := srcCols[srcName]
		if !ok {
			d.addColumns = append(d.addColumns, migrate.AddColumn{
				Schema: tgt.Schema,
				Name:   tgt.Name,
				Column: tc,
			})
			continue
		}
		if !columnEqualIgnoringName(sc, tc) {
			d.alterColumns = append(d.alterColumns, migrate.AlterColumn{
				Schema: tgt.Schema,
				Name:   tgt.Name,
				Old:    sc,
				New:    tc,
			})
		}
	}

	for _, sc := range src.Columns {
		if _, wasRenamed := d.opts.Renames.columnTarget(tableID, sc.Name); wasRenamed {
			continue
		}
		if !tgtNames[sc.Name] {
			// Drops run before renames, so address the source table name.
			d.dropColumns = append(d.dropColumns, migrate.DropColumn{
				Schema: tgt.Schema,
				Name:   src.Name,
				Column: sc.Name,
			})
		}
	}
}

func columnEqualIgnoringName(a, b *schema.Column) bool {
	return a.Type.Equal(b.Type) &&
		a.Nullable == b.Nullable &&
		a.Default == b.Default &&
		a.Generated == b.Generated &&
		a.ComputedExpr == b.ComputedExpr
}

func (d *differ) diffPrimaryKey(src, tgt *schema.Table) {
	if keyEqual(src.PrimaryKey, tgt.PrimaryKey, d.columnRenamer(tgt)) {
		return
	}
	// Changing a live table's primary key column set is not expressible as
	// a safe operation on any provider drift targets.
	d.diagnostics = append(d.diagnostics, migrate.UnsupportedOperation{
		TableName: tgt.QualifiedName(),
		Reason:    "primary key column set changed; recreate the table to apply this change",
	})
}

// columnRenamer maps source column names through declared renames so key
// and constraint comparisons see target-side names on both sides.
func (d *differ) columnRenamer(tgt *schema.Table) func(string) string {
	tableID := tgt.QualifiedName()
	return func(name string) string {
		if newName, ok := d.opts.Renames.columnTarget(tableID, name); ok {
			return newName
		}
		return name
	}
}

func keyEqual(a, b *schema.Key, rename func(string) string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if rename(a.Columns[i]) != b.Columns[i] {
			return false
		}
	}
	return true
}

func (d *differ) diffForeignKeys(src, tgt *schema.Table) {
	rename := d.columnRenamer(tgt)

	matchedSrc := make(map[int]bool, len(src.ForeignKeys))
	for _, tfk := range tgt.ForeignKeys {
		if idx := matchForeignKey(src.ForeignKeys, tfk, rename, matchedSrc); idx >= 0 {
			matchedSrc[idx] = true
			continue
		}
		d.addForeignKeys = append(d.addForeignKeys, migrate.AddForeignKey{
			Schema:     tgt.Schema,
			Name:       tgt.Name,
			ForeignKey: tfk,
		})
	}
	for i, sfk := range src.ForeignKeys {
		if !matchedSrc[i] {
			d.dropForeignKeys = append(d.dropForeignKeys, migrate.DropForeignKey{
				Schema:         tgt.Schema,
				Name:           src.Name,
				ConstraintName: sfk.Name,
			})
		}
	}
}

// matchForeignKey finds an unmatched source foreign key equal to tfk, by
// name when both are named, otherwise by structural signature.
func matchForeignKey(src []*schema.ForeignKey, tfk *schema.ForeignKey, rename func(string) string, taken map[int]bool) int {
	for i, sfk := range src {
		if taken[i] {
			continue
		}
		if sfk.Name != "" && tfk.Name != "" {
			if sfk.Name == tfk.Name && foreignKeyEqual(sfk, tfk, rename) {
				return i
			}
			continue
		}
		if foreignKeyEqual(sfk, tfk, rename) {
			return i
		}
	}
	return -1
}

func foreignKeyEqual(a, b *schema.ForeignKey, rename func(string) string) bool {
	if len(a.Columns) != len(b.Columns) || len(a.RefColumns) != len(b.RefColumns) {
		return false
	}
	if a.RefSchema != b.RefSchema || a.RefTable != b.RefTable {
		return false
	}
	if a.OnDelete != b.OnDelete || a.OnUpdate != b.OnUpdate {
		return false
	}
	for i := range a.Columns {
		if rename(a.Columns[i]) != b.Columns[i] {
			return false
		}
	}
	for i := range a.RefColumns {
		if a.RefColumns[i] != b.RefColumns[i] {
			return false
		}
	}
	return true
}

func (d *differ) diffIndexes(src, tgt *schema.Table) {
	rename := d.columnRenamer(tgt)
	tableID := tgt.QualifiedName()

	// Unique keys behave as unfiltered unique indexes at the diff level, so
	// fold them into one set per side.
	srcIdx := indexSet(src)
	tgtIdx := indexSet(tgt)

	matchedSrc := make(map[int]bool, len(srcIdx))
	for _, tix := range tgtIdx {
		if idx := matchIndex(srcIdx, tix, rename, matchedSrc); idx >= 0 {
			matchedSrc[idx] = true
			continue
		}
		// A declared rename keeps the index instead of rebuilding it.
		if tix.Name != "" {
			if old := renamedIndexSource(d.opts.Renames, tableID, tix.Name, srcIdx, matchedSrc, rename, tix); old >= 0 {
				matchedSrc[old] = true
				d.renames = append(d.renames, migrate.RenameIndex{
					Schema:    tgt.Schema,
					Name:      tgt.Name,
					IndexName: srcIdx[old].Name,
					NewName:   tix.Name,
				})
				continue
			}
		}
		d.createIndexes = append(d.createIndexes, migrate.CreateIndex{
			Schema: tgt.Schema,
			Name:   tgt.Name,
			Index:  tix,
		})
	}
	for i, six := range srcIdx {
		if !matchedSrc[i] {
			d.dropIndexes = append(d.dropIndexes, migrate.DropIndex{
				Schema:    tgt.Schema,
				Name:      src.Name,
				IndexName: six.Name,
			})
		}
	}
}

func indexSet(t *schema.Table) []*schema.Index {
	out := make([]*schema.Index, 0, len(t.Indexes)+len(t.UniqueKeys))
	for _, k := range t.UniqueKeys {
		out = append(out, &schema.Index{Name: k.Name, Columns: k.Columns, Unique: true})
	}
	out = append(out, t.Indexes...)
	return out
}

func matchIndex(src []*schema.Index, tix *schema.Index, rename func(string) string, taken map[int]bool) int {
	for i, six := range src {
		if taken[i] {
			continue
		}
		if six.Name != "" && tix.Name != "" {
			if six.Name == tix.Name && indexEqual(six, tix, rename) {
				return i
			}
			continue
		}
		if indexEqual(six, tix, rename) {
			return i
		}
	}
	return -1
}

func renamedIndexSource(renames RenameSet, tableID, newName string, src []*schema.Index, taken map[int]bool, rename func(string) string, tix *schema.Index) int {
	for i, six := range src {
		if taken[i] || six.Name == "" {
			continue
		}
		if target, ok := renames.indexTarget(tableID, six.Name); ok && target == newName && indexEqual(six, tix, rename) {
			return i
		}
	}
	return -1
}

func qualified(schemaName, name string) string {
	if schemaName == "" {
		return name
	}
	return schemaName + "." + name
}

func indexEqual(a, b *schema.Index, rename func(string) string) bool {
	if len(a.Columns) != len(b.Columns) || a.Unique != b.Unique || a.Filter != b.Filter {
		return false
	}
	for i := range a.Columns {
		if rename(a.Columns[i]) != b.Columns[i] {
			return false
		}
	}
	return true
}
