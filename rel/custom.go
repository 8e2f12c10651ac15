package rel

// CustomUnaryOp is a host-defined unary operation outside the closed
// UnaryOpKind sum (§9: "only RowFilter and Reordering are subclassable
// unary ops"). A relation built over a CustomUnaryOp is validated the same
// way as any other unary op (columns, engine, uniqueness) but its semantics
// are realized by the target engine's ApplyCustomUnary, not by this
// package.
type CustomUnaryOp interface {
	// Name identifies the operation for logging and NotImplementedByEngine
	// errors.
	Name() string

	// RowFilter reports whether this operation only ever removes rows
	// (never adds, reorders beyond filtering, or changes columns);
	// uniqueness is preserved across a RowFilter.
	RowFilter() bool

	// Reordering reports whether this operation only ever reorders rows;
	// columns and uniqueness are preserved across a Reordering.
	Reordering() bool
}
