package migrate

import (
	"fmt"
	"sort"
)

// Migration is one migration unit: a named, ordered pair of up and down
// plans plus a generated id. Down may be nil for irreversible migrations.
type Migration struct {
	ID   string
	Name string
	Up   *Plan
	Down *Plan
}

// Reversible reports whether the unit carries a down plan.
func (m *Migration) Reversible() bool {
	return m.Down != nil
}

// Source is an ordered registry of the migration units known to the
// application. Units are kept sorted by id; lexicographic id order is
// chronological order.
type Source struct {
	byID  map[string]*Migration
	order []string
}

// NewSource builds a source from the given units. Duplicate or malformed
// ids are rejected.
func NewSource(migrations ...*Migration) (*Source, error) {
	s := &Source{byID: make(map[string]*Migration, len(migrations))}
	for _, m := range migrations {
		if err := s.Add(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers one unit.
func (s *Source) Add(m *Migration) error {
	if !IsValidID(m.ID) {
		return fmt.Errorf("%w: %q", ErrMalformedID, m.ID)
	}
	if _, ok := s.byID[m.ID]; ok {
		return fmt.Errorf("drift/migrate: duplicate migration id %q", m.ID)
	}
	s.byID[m.ID] = m
	s.order = append(s.order, m.ID)
	sort.Strings(s.order)
	return nil
}

// IDs returns all registered ids in chronological order.
func (s *Source) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the unit with the given id, or nil.
func (s *Source) Get(id string) *Migration {
	return s.byID[id]
}

// All returns the units in chronological order.
func (s *Source) All() []*Migration {
	out := make([]*Migration, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Pending returns the units whose ids are not in applied, in chronological
// order. Ids in applied but unknown to the source are returned as the
// second value; callers treat those as a history inconsistency.
func (s *Source) Pending(applied []string) (pending []*Migration, unknown []string) {
	seen := make(map[string]bool, len(applied))
	for _, id := range applied {
		seen[id] = true
		if _, ok := s.byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	for _, id := range s.order {
		if !seen[id] {
			pending = append(pending, s.byID[id])
		}
	}
	sort.Strings(unknown)
	return pending, unknown
}
