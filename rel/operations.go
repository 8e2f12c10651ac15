package rel

// UnaryOpKind enumerates the closed set of unary operations (§3, §4.1).
type UnaryOpKind int

const (
	OpCalculation UnaryOpKind = iota
	OpDeduplication
	OpIdentity
	OpProjection
	OpSelection
	OpSlice
	OpSort
)

func (k UnaryOpKind) String() string {
	switch k {
	case OpCalculation:
		return "Calculation"
	case OpDeduplication:
		return "Deduplication"
	case OpIdentity:
		return "Identity"
	case OpProjection:
		return "Projection"
	case OpSelection:
		return "Selection"
	case OpSlice:
		return "Slice"
	case OpSort:
		return "Sort"
	default:
		return "UnknownUnaryOp"
	}
}

// BinaryOpKind enumerates the closed set of binary operations (§3, §4.1).
type BinaryOpKind int

const (
	OpJoin BinaryOpKind = iota
	OpChain
)

func (k BinaryOpKind) String() string {
	switch k {
	case OpJoin:
		return "Join"
	case OpChain:
		return "Chain"
	default:
		return "UnknownBinaryOp"
	}
}

// MarkerKind enumerates the closed set of marker relations (§3).
type MarkerKind int

const (
	MarkerMaterialization MarkerKind = iota
	MarkerTransfer
	MarkerSelect
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerMaterialization:
		return "Materialization"
	case MarkerTransfer:
		return "Transfer"
	case MarkerSelect:
		return "Select"
	default:
		return "UnknownMarker"
	}
}

// Capabilities is what an engine advertises about the operations and
// expression constructors it supports (§4.2). It declares expr.Capabilities'
// SupportsFunction method, so it can be passed wherever an
// expr.Capabilities is expected, and adds operation-level support.
type Capabilities interface {
	SupportsUnaryOp(k UnaryOpKind) bool
	SupportsBinaryOp(k BinaryOpKind) bool
	// SupportsCustomUnaryOp reports whether ApplyCustomUnary can realize a
	// RowFilter/Reordering-style subclassed unary op named name (§9: only
	// RowFilter and Reordering are subclassable unary ops).
	SupportsCustomUnaryOp(name string) bool
	SupportsFunction(name string) bool
}
