package rel

import (
	"context"

	"github.com/lsst/daf-relation/coltag"
)

// Engine is the contract any backend must satisfy (§4.2). Engines are
// implemented by callers; rel/rowexec and rel/sqlengine provide the two
// engines this module ships.
type Engine interface {
	// Name identifies the engine; relations carry it as their Engine()
	// string, and the processor uses it to detect engine boundaries.
	Name() string

	// Capabilities advertises which operations and functions this engine
	// supports; factories in rel/plan consult it at construction time.
	Capabilities() Capabilities

	// Conform returns a semantically-equal relation in this engine's
	// canonical shape (§4.3 for the SQL engine's definition of canonical).
	Conform(r Relation) (Relation, error)

	// ApplyCustomUnary realizes a host-defined CustomUnaryOp, or returns a
	// NotImplementedByEngine error if this engine cannot.
	ApplyCustomUnary(op CustomUnaryOp, target Relation) (Relation, error)

	// Execute drives a fully-conformed, single-engine relation to a
	// payload. May block on I/O (§5); the engine may return
	// NotImplementedByEngine for shapes it cannot execute directly.
	Execute(ctx context.Context, r Relation) (Payload, error)

	// ImportPayload converts a payload produced by a different engine into
	// a Leaf payload usable by this engine, realizing the processor's
	// Transfer contract (§4.5).
	ImportPayload(ctx context.Context, source Payload, columns []ColumnDescriptor) (Payload, error)
}

// ColumnDescriptor is the minimal per-column metadata ImportPayload needs to
// reinterpret a foreign payload's rows: the tag and its data type.
type ColumnDescriptor struct {
	Tag  coltag.Tag
	Type any
}

// RowSource is implemented by payloads that can export their rows as
// plain, engine-agnostic maps keyed by tag — the shape the processor moves
// across a Transfer marker (§4.5) before handing it to the destination
// engine's ImportPayload.
type RowSource interface {
	ExportRows() ([]map[coltag.Tag]any, error)
}

// LeafBuilder is an optional capability an Engine implements when it has a
// specialized leaf-relation shape for a payload it already holds, used by
// the processor in place of a generic Leaf when substituting a resolved
// Transfer or Materialization. An engine that doesn't implement this gets
// the processor's generic substitution instead.
type LeafBuilder interface {
	BuildLeaf(payload Payload) (Relation, error)
}
