package migrator

import (
	"fmt"
	"strings"
)

// HistoryInconsistencyError reports ledger rows whose ids are unknown to
// the migration source, typically code rolled back past a migration still
// recorded in the database. Reported, never auto-corrected.
type HistoryInconsistencyError struct {
	UnknownIDs []string
}

func (e *HistoryInconsistencyError) Error() string {
	return fmt.Sprintf("history records %d migration(s) unknown to this build: %s",
		len(e.UnknownIDs), strings.Join(e.UnknownIDs, ", "))
}

// ExecutionError reports a statement batch that failed against the live
// database. Applied lists the units that committed before the failure;
// the failing unit itself stays pending.
type ExecutionError struct {
	ID        string
	Statement string
	Applied   []string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration %s failed (%d prior unit(s) committed): %v",
		e.ID, len(e.Applied), e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
