package relserialize

import "gopkg.in/src-d/go-errors.v1"

// Typed error kinds for this package, following the same
// gopkg.in/src-d/go-errors.v1 convention as rel's own error kinds.
var (
	// ErrUnknownEngine: Unmarshal encountered an engine name absent from
	// the Engines registry it was given.
	ErrUnknownEngine = errors.NewKind("no engine registered under name %q")

	// ErrUnknownKind: a node, expression, predicate, or container mapping
	// carried a "kind" value this package doesn't recognize.
	ErrUnknownKind = errors.NewKind("unrecognized kind %q")

	// ErrMissingCustomOpCodec: a CustomUnary node was encountered but
	// Unmarshal was not given a CustomOpCodec to resolve it with.
	ErrMissingCustomOpCodec = errors.NewKind("tree contains a custom unary op %q but no CustomOpCodec was given")
)
