package rel

import "gopkg.in/src-d/go-errors.v1"

// Typed error kinds (§7). Each is distinguishable via the kind's own Is
// method, using the gopkg.in/src-d/go-errors.v1 NewKind/New pattern.
var (
	// ErrColumnNotInScope: a factory referenced a column not present in its
	// target's column set.
	ErrColumnNotInScope = errors.NewKind("column %s not in scope")

	// ErrColumnAlreadyPresent: Calculation's new tag already exists on the
	// target.
	ErrColumnAlreadyPresent = errors.NewKind("column %s already present on target relation")

	// ErrColumnWrongType: a referenced column has an incompatible type for
	// the expression using it.
	ErrColumnWrongType = errors.NewKind("column %s has type %v, expected %v")

	// ErrEngineUnsupportedOperation: the target engine does not support an
	// operation or expression constructor being built (§4.2).
	ErrEngineUnsupportedOperation = errors.NewKind("engine %s does not support operation %s")

	// ErrEngineMismatch: operand engines disagree (Invariant 2).
	ErrEngineMismatch = errors.NewKind("operand engines disagree: %s vs %s")

	// ErrChainColumnMismatch: Chain operands' column sets are not equal.
	ErrChainColumnMismatch = errors.NewKind("chain operands have different column sets")

	// ErrTransferSameEngine: a Transfer marker's source and destination
	// engines are equal (Invariant 2 forbids a no-op Transfer).
	ErrTransferSameEngine = errors.NewKind("transfer source and destination engines are both %s")

	// ErrPayloadAlreadyAssigned: an attempt to attach a payload to a
	// relation that already has one (Invariant 4, single-assignment).
	ErrPayloadAlreadyAssigned = errors.NewKind("payload already assigned to this relation")

	// ErrPayloadNotAllowed: an attempt to attach a payload to a relation
	// kind that may not carry one (only Leaf and Materialization may).
	ErrPayloadNotAllowed = errors.NewKind("relation kind %s may not carry a payload")

	// ErrInvalidSlice: Slice bounds violate 0 <= start <= stop.
	ErrInvalidSlice = errors.NewKind("invalid slice bounds [%d, %d)")

	// ErrExecution: an engine backend failure during Execute; wraps cause.
	ErrExecution = errors.NewKind("execution failed")

	// ErrNotImplementedByEngine: a syntactically valid operation the engine
	// has declared it cannot realize.
	ErrNotImplementedByEngine = errors.NewKind("%s not implemented by engine %s")

	// ErrSelectMarkerMisplaced: a Select marker appeared outside a SQL
	// engine tree, or at a position not declared conformed (Invariant 5).
	ErrSelectMarkerMisplaced = errors.NewKind("select marker is not valid at this position")
)

// ErrInvariant is a general kind distinguishing the invariant-violation
// family from the narrower column/engine errors above, for callers that
// want to catch "any invariant broke" without enumerating each kind.
var ErrInvariant = errors.NewKind("relation invariant violated: %s")
