package migrate

import "fmt"

// Plan is an ordered operation sequence produced by the differ, plus any
// diagnostics for structural changes that have no expressible operation.
// Ordering is a correctness invariant: renderers must emit operations in
// exactly this order.
type Plan struct {
	Operations  []Operation
	Diagnostics []UnsupportedOperation
}

// Empty reports whether the plan carries no operations and no diagnostics.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0 && len(p.Diagnostics) == 0
}

// Destructive reports whether the plan carries diagnostics that need caller
// sign-off before rendering.
func (p *Plan) Destructive() bool {
	return len(p.Diagnostics) > 0
}

// UnsupportedOperation describes a requested structural change that cannot
// be expressed as a migration operation (for any provider, when raised by
// the differ; for one dialect, when raised by the renderer). It is a
// diagnostic, not a crash: callers decide whether to proceed destructively.
type UnsupportedOperation struct {
	// TableName is the affected table's identity key.
	TableName string

	// Reason describes the change that could not be expressed.
	Reason string
}

func (u UnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation on %s: %s", u.TableName, u.Reason)
}
