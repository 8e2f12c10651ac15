// Package rel defines the relation-algebra data model (§3) and the engine
// contract (§4.2). Concrete relation node types and their invariant-
// enforcing factories live in rel/plan; concrete engines live in
// rel/rowexec and rel/sqlengine.
package rel

import "github.com/lsst/daf-relation/coltag"

// Kind distinguishes the four relation variants of §3.
type Kind int

const (
	KindLeaf Kind = iota
	KindUnaryOp
	KindBinaryOp
	KindMarker
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "Leaf"
	case KindUnaryOp:
		return "UnaryOpRelation"
	case KindBinaryOp:
		return "BinaryOpRelation"
	case KindMarker:
		return "Marker"
	default:
		return "Unknown"
	}
}

// Unbounded is the sentinel RowBounds.Max value meaning "no known upper
// bound".
const Unbounded = ^uint64(0)

// RowBounds carries the [Min, Max] row-count bounds a factory derives for
// its result (§4.1, last paragraph). Max == Unbounded means "no known
// bound".
type RowBounds struct {
	Min uint64
	Max uint64
}

// AtMostOne reports whether b certifies at most one row, the condition
// Deduplication uses to short-circuit to Identity (Testable Scenario S3).
func (b RowBounds) AtMostOne() bool {
	return b.Max != Unbounded && b.Max <= 1
}

// Payload is an engine-specific representation of materialized or
// executable rows (§3's "payload handle"). The core treats it opaquely;
// only Leaf and Materialization markers may carry one.
type Payload interface {
	// Engine names the engine this payload belongs to, for sanity-checking
	// at attachment and transfer time.
	Engine() string
}

// Relation is an immutable node in the expression tree (§3). Concrete
// variants are Leaf, UnaryOpRelation, BinaryOpRelation, and Marker, all
// defined in rel/plan; this package only defines the shared contract so
// that engines and other consumers can traverse and inspect any relation
// through this interface.
type Relation interface {
	// Kind identifies which of the four variants this is.
	Kind() Kind

	// Engine is the name of the engine this relation's payload (if any)
	// belongs to, or that an operation's target/operands must match.
	Engine() string

	// Columns is the relation's column set (Invariant 1: a deterministic
	// function of kind and operands).
	Columns() coltag.Set

	// Unique reports the relation's best-effort uniqueness bit
	// (Invariant 3: may understate, never overstate).
	Unique() bool

	// Bounds returns the relation's row-count bounds.
	Bounds() RowBounds

	// Payload returns the attached payload, or nil if none has been
	// attached yet.
	Payload() Payload

	// Hash returns a stable structural hash (Invariant 6), independent of
	// any attached payload.
	Hash() uint64

	// Equal reports structural equality up to payload identity
	// (Invariant 6).
	Equal(other Relation) bool
}

// Operand is implemented by relations with a single child (UnaryOpRelation
// and Marker).
type Operand interface {
	Relation
	Target() Relation
}

// BinaryOperand is implemented by BinaryOpRelation.
type BinaryOperand interface {
	Relation
	Left() Relation
	Right() Relation
}
