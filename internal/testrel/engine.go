package testrel

import (
	"context"

	"github.com/lsst/daf-relation/rel"
)

// FakeEngine is a minimal rel.Engine used to exercise rel/plan's factories
// in isolation, without depending on rel/rowexec or rel/sqlengine.
type FakeEngine struct {
	EngineName string
	Caps       rel.Capabilities
}

// NewFakeEngine returns a FakeEngine that supports every unary/binary op,
// every custom op and every function, the permissive default used by most
// factory tests.
func NewFakeEngine(name string) *FakeEngine {
	return &FakeEngine{EngineName: name, Caps: AllCapabilities{}}
}

func (e *FakeEngine) Name() string                { return e.EngineName }
func (e *FakeEngine) Capabilities() rel.Capabilities { return e.Caps }

func (e *FakeEngine) Conform(r rel.Relation) (rel.Relation, error) { return r, nil }

func (e *FakeEngine) ApplyCustomUnary(op rel.CustomUnaryOp, target rel.Relation) (rel.Relation, error) {
	return nil, rel.ErrNotImplementedByEngine.New(op.Name(), e.EngineName)
}

func (e *FakeEngine) Execute(ctx context.Context, r rel.Relation) (rel.Payload, error) {
	return nil, rel.ErrNotImplementedByEngine.New("Execute", e.EngineName)
}

func (e *FakeEngine) ImportPayload(ctx context.Context, source rel.Payload, columns []rel.ColumnDescriptor) (rel.Payload, error) {
	return nil, rel.ErrNotImplementedByEngine.New("ImportPayload", e.EngineName)
}

// AllCapabilities supports every operation and function; used where tests
// only care about column/engine-identity invariants.
type AllCapabilities struct{}

func (AllCapabilities) SupportsUnaryOp(rel.UnaryOpKind) bool    { return true }
func (AllCapabilities) SupportsBinaryOp(rel.BinaryOpKind) bool  { return true }
func (AllCapabilities) SupportsCustomUnaryOp(string) bool       { return true }
func (AllCapabilities) SupportsFunction(string) bool            { return true }

// RestrictedCapabilities supports only the named operations, used to test
// EngineError paths.
type RestrictedCapabilities struct {
	UnaryOps  map[rel.UnaryOpKind]bool
	BinaryOps map[rel.BinaryOpKind]bool
}

func (c RestrictedCapabilities) SupportsUnaryOp(k rel.UnaryOpKind) bool   { return c.UnaryOps[k] }
func (c RestrictedCapabilities) SupportsBinaryOp(k rel.BinaryOpKind) bool { return c.BinaryOps[k] }
func (c RestrictedCapabilities) SupportsCustomUnaryOp(string) bool       { return false }
func (c RestrictedCapabilities) SupportsFunction(string) bool            { return true }

// Payload is a trivial rel.Payload for tests that just need a non-nil
// marker value.
type Payload struct {
	EngineName string
	Rows       []map[string]any
}

func (p *Payload) Engine() string { return p.EngineName }
