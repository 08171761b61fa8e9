package migrate

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrMalformedID is returned when an id does not have the
// 14-digit-timestamp, underscore, name shape.
var ErrMalformedID = errors.New("drift/migrate: malformed migration id")

// timestampLen is the length of the id's UTC timestamp prefix
// (yyyyMMddHHmmss).
const timestampLen = 14

// idTimeLayout formats the timestamp prefix. The reference-time layout is
// culture-independent: output is always Gregorian with ASCII digits.
const idTimeLayout = "20060102150405"

// IDGenerator produces migration ids of the form
// <yyyyMMddHHmmss>_<Name>, globally sortable lexicographically.
//
// Ids are strictly monotonic within a process: if two calls land in the
// same wall-clock second (or the clock steps backwards), the generator
// advances one second past the last issued timestamp so that every id
// compares greater than all earlier ones. The last-issued state is guarded
// by a mutex; a single generator is safe for concurrent use.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewIDGenerator creates a generator backed by the system clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock creates a generator with an injected clock.
// Used by tests; the clock's locality is irrelevant (timestamps are taken
// in UTC).
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// GenerateID returns a fresh migration id for the given name.
func (g *IDGenerator) GenerateID(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now().UTC().Truncate(time.Second)
	if !ts.After(g.last) {
		ts = g.last.Add(time.Second)
	}
	g.last = ts

	return ts.Format(idTimeLayout) + "_" + name
}

// IsValidID reports whether id is exactly 14 ASCII digits, an underscore,
// and a non-empty name.
func IsValidID(id string) bool {
	if len(id) < timestampLen+2 {
		return false
	}
	for i := 0; i < timestampLen; i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return id[timestampLen] == '_'
}

// NameFromID strips the timestamp prefix and separator from a migration id.
// Malformed ids fail loudly with ErrMalformedID rather than degrading to a
// best-effort name.
func NameFromID(id string) (string, error) {
	if !IsValidID(id) {
		return "", ErrMalformedID
	}
	return id[timestampLen+1:], nil
}

// TimeFromID parses the timestamp prefix of a valid migration id.
func TimeFromID(id string) (time.Time, error) {
	if !IsValidID(id) {
		return time.Time{}, ErrMalformedID
	}
	ts, err := time.Parse(idTimeLayout, id[:timestampLen])
	if err != nil {
		// 14 digits that do not form a calendar timestamp (month 13 etc).
		return time.Time{}, ErrMalformedID
	}
	return ts, nil
}

// SortIDs sorts migration ids lexicographically, which by construction is
// chronological order.
func SortIDs(ids []string) {
	sort.Strings(ids)
}
