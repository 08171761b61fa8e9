// Package sqlgen renders operation plans into executable DDL statement
// batches for a target dialect.
//
// Rendering preserves plan order exactly; the differ's ordering is a
// correctness invariant, not a hint. Every identifier is quoted through the
// dialect, so user-chosen names cannot inject SQL. Operations the dialect
// cannot express natively are emulated with a documented multi-statement
// sequence (see renderAlterColumnEmulated) or rejected with an
// UnsupportedOperation error before anything executes.
package sqlgen

import (
	"fmt"
	"io"

	"github.com/driftsql/drift/pkg/dialect"
	"github.com/driftsql/drift/pkg/migrate"
)

// Options controls rendering behavior.
type Options struct {
	// AllowDestructive renders plans that carry diagnostics. Without it,
	// Render refuses such plans so destructive changes need explicit
	// sign-off.
	AllowDestructive bool
}

// Batch is a group of statements that execute together. When Transactional
// is true the orchestrator wraps the batch in one transaction; otherwise
// each statement runs unwrapped and a mid-batch failure leaves the earlier
// statements committed.
type Batch struct {
	Statements    []string
	Transactional bool
}

// Script is the ordered batch sequence rendered from one plan.
type Script struct {
	Batches []Batch
}

// Statements flattens the script into one statement list, batch order
// preserved.
func (s *Script) Statements() []string {
	var out []string
	for _, b := range s.Batches {
		out = append(out, b.Statements...)
	}
	return out
}

// WriteSQL writes the script as a SQL text stream, one statement per line
// group, for dry-run and script-file output.
func (s *Script) WriteSQL(w io.Writer) error {
	for _, b := range s.Batches {
		for _, stmt := range b.Statements {
			if _, err := fmt.Fprintf(w, "%s\n\n", stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// Render renders the plan's operations, in order, into statement batches
// for the given dialect.
//
// On dialects with transactional DDL the whole plan becomes a single
// transactional batch. Elsewhere every statement is its own batch: nothing
// can be rolled back, so batches are kept minimal and the orchestrator
// records progress after the unit rather than within it.
func Render(plan *migrate.Plan, d dialect.Dialect, opts Options) (*Script, error) {
	if plan.Destructive() && !opts.AllowDestructive {
		return nil, fmt.Errorf("plan has %d unresolved diagnostics (first: %s)",
			len(plan.Diagnostics), plan.Diagnostics[0].Error())
	}

	r := &renderer{dialect: d}
	var stmts []string
	for _, op := range plan.Operations {
		rendered, err := r.render(op)
		if err != nil {
			return nil, fmt.Errorf("rendering %s on %s: %w", op.Kind(), op.Table(), err)
		}
		stmts = append(stmts, rendered...)
	}

	script := &Script{}
	if d.SupportsTransactionalDDL() {
		if len(stmts) > 0 {
			script.Batches = []Batch{{Statements: stmts, Transactional: true}}
		}
		return script, nil
	}
	for _, stmt := range stmts {
		script.Batches = append(script.Batches, Batch{Statements: []string{stmt}})
	}
	return script, nil
}
