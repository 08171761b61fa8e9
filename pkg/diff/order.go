package diff

import (
	"github.com/driftsql/drift/pkg/migrate"
	"github.com/driftsql/drift/pkg/schema"
)

// orderOperations assembles the final stream from the differ's buckets.
// Phase order encodes the dependency invariants: constraint drops before
// the drops they unblock, all drops before creates so reused names are
// free, creates before the column and foreign-key additions that target
// them, foreign keys before the indexes that are mere performance objects.
// Within a phase, input (target declaration) order is preserved.
func orderOperations(d *differ, source *schema.Snapshot) []migrate.Operation {
	var ops []migrate.Operation

	ops = append(ops, d.dropForeignKeys...)
	ops = append(ops, d.dropIndexes...)
	ops = append(ops, d.dropColumns...)
	ops = append(ops, orderDrops(d.dropTables)...)
	ops = append(ops, d.dropSequences...)

	ops = append(ops, d.createSequences...)
	ops = append(ops, d.renames...)

	creates, deferredFKs := orderCreates(d.createTables)
	ops = append(ops, creates...)

	ops = append(ops, d.addColumns...)
	ops = append(ops, d.alterColumns...)
	ops = append(ops, d.addForeignKeys...)
	ops = append(ops, deferredFKs...)
	ops = append(ops, d.createIndexes...)

	return ops
}

// orderDrops orders DropTable operations so a referencing table is dropped
// before the table it references. Reference cycles are broken by dropping
// the cycle's foreign keys explicitly first.
func orderDrops(tables []*schema.Table) []migrate.Operation {
	if len(tables) == 0 {
		return nil
	}

	dropped := make(map[string]int, len(tables)) // identity -> input position
	for i, t := range tables {
		dropped[t.QualifiedName()] = i
	}

	// incoming[X] = number of remaining dropped tables with a foreign key
	// into X. A table is safe to drop once nothing remaining references it.
	incoming := make(map[string]int, len(tables))
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			ref := qualified(fk.RefSchema, fk.RefTable)
			if ref == t.QualifiedName() {
				continue // self-references drop with the table
			}
			if _, ok := dropped[ref]; ok {
				incoming[ref]++
			}
		}
	}

	var ops []migrate.Operation
	remaining := append([]*schema.Table(nil), tables...)
	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, t := range remaining {
			if incoming[t.QualifiedName()] > 0 {
				next = append(next, t)
				continue
			}
			ops = append(ops, migrate.DropTable{Schema: t.Schema, Name: t.Name})
			for _, fk := range t.ForeignKeys {
				ref := qualified(fk.RefSchema, fk.RefTable)
				if ref != t.QualifiedName() {
					if _, ok := dropped[ref]; ok {
						incoming[ref]--
					}
				}
			}
			progressed = true
		}
		remaining = next
		if progressed {
			continue
		}

		// Cycle: drop the cross-referencing foreign keys, then the tables.
		for _, t := range remaining {
			for _, fk := range t.ForeignKeys {
				ref := qualified(fk.RefSchema, fk.RefTable)
				if _, ok := dropped[ref]; ok {
					ops = append(ops, migrate.DropForeignKey{
						Schema:         t.Schema,
						Name:           t.Name,
						ConstraintName: fk.Name,
					})
				}
			}
		}
		for _, t := range remaining {
			ops = append(ops, migrate.DropTable{Schema: t.Schema, Name: t.Name})
		}
		break
	}
	return ops
}

// orderCreates orders CreateTable operations so referenced tables precede
// referencing ones. Foreign keys that cannot be created inline — self
// references and members of reference cycles among the new tables — are
// stripped from the create and returned as trailing AddForeignKey
// operations, breaking the create-order cycle.
func orderCreates(tables []*schema.Table) (creates, deferredFKs []migrate.Operation) {
	if len(tables) == 0 {
		return nil, nil
	}

	created := make(map[string]bool, len(tables))
	for _, t := range tables {
		created[t.QualifiedName()] = true
	}

	// pending[T] = number of distinct new tables T references that have not
	// been created yet. Kahn's algorithm, scanning in input order for
	// deterministic tie-breaking.
	pending := make(map[string]int, len(tables))
	dependents := make(map[string][]string, len(tables))
	for _, t := range tables {
		id := t.QualifiedName()
		seen := make(map[string]bool)
		for _, fk := range t.ForeignKeys {
			ref := qualified(fk.RefSchema, fk.RefTable)
			if ref == id || !created[ref] || seen[ref] {
				continue
			}
			seen[ref] = true
			pending[id]++
			dependents[ref] = append(dependents[ref], id)
		}
	}

	remaining := append([]*schema.Table(nil), tables...)
	var ordered []*schema.Table
	for len(remaining) > 0 {
		progressed := false
		next := remaining[:0]
		for _, t := range remaining {
			id := t.QualifiedName()
			if pending[id] > 0 {
				next = append(next, t)
				continue
			}
			ordered = append(ordered, t)
			for _, dep := range dependents[id] {
				pending[dep]--
			}
			progressed = true
		}
		remaining = next
		if !progressed {
			// Reference cycle: place the rest in input order; their
			// cross-references are deferred below.
			ordered = append(ordered, remaining...)
			break
		}
	}

	cyclic := make(map[string]bool)
	for _, t := range remaining {
		cyclic[t.QualifiedName()] = true
	}

	for _, t := range ordered {
		id := t.QualifiedName()
		var inline []*schema.ForeignKey
		for _, fk := range t.ForeignKeys {
			ref := qualified(fk.RefSchema, fk.RefTable)
			switch {
			case ref == id, cyclic[id] && created[ref] && cyclic[ref]:
				// Self reference, or an edge inside the cycle.
				deferredFKs = append(deferredFKs, migrate.AddForeignKey{
					Schema:     t.Schema,
					Name:       t.Name,
					ForeignKey: fk,
				})
			default:
				inline = append(inline, fk)
			}
		}
		def := t
		if len(inline) != len(t.ForeignKeys) {
			// Shallow copy; snapshots stay immutable.
			cp := *t
			cp.ForeignKeys = inline
			def = &cp
		}
		creates = append(creates, migrate.CreateTable{TableDef: def})
	}
	return creates, deferredFKs
}
