package sqlengine

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
)

// Name is the engine name this package's relations and payloads carry.
const Name = "sql"

// Querier is the host hook that actually sends an emitted statement to a
// database and scans back rows, keeping this package free of any
// particular SQL driver. The columns argument lists, in select-list order,
// which tag each returned row's values correspond to.
type Querier interface {
	Query(ctx context.Context, stmt sqlparser.SelectStatement, columns []coltag.Tag) ([]map[coltag.Tag]any, error)
}

// Engine is the SQL engine of §4.3: it normalizes a relation tree into a
// canonical SELECT shape, emits it to the host database client's own
// expression object, and drives it through a host-provided Querier.
type Engine struct {
	Log *logrus.Entry

	// Query runs an emitted statement against the host's database client.
	Query Querier

	// Hooks customizes how column tags lower to the host's expression
	// object (see column.go); nil means DefaultColumnHooks.
	Hooks ColumnHooks

	// Functions advertises which scalar functions this backend's SQL
	// dialect supports; nil means expr.AllFunctions{}.
	Functions expr.Capabilities
}

// New builds a SQL Engine. log may be nil, in which case an entry on the
// logrus standard logger is used.
func New(log *logrus.Entry, querier Querier) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{Log: log, Query: querier}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) hooks() ColumnHooks {
	if e.Hooks != nil {
		return e.Hooks
	}
	return DefaultColumnHooks{}
}

func (e *Engine) functions() expr.Capabilities {
	if e.Functions != nil {
		return e.Functions
	}
	return expr.AllFunctions{}
}

func (e *Engine) Capabilities() rel.Capabilities { return capabilities{fns: e.functions()} }

type capabilities struct{ fns expr.Capabilities }

func (capabilities) SupportsUnaryOp(k rel.UnaryOpKind) bool   { return true }
func (capabilities) SupportsBinaryOp(k rel.BinaryOpKind) bool { return true }
func (capabilities) SupportsCustomUnaryOp(name string) bool   { return false }
func (c capabilities) SupportsFunction(name string) bool      { return c.fns.SupportsFunction(name) }

var _ expr.Capabilities = capabilities{}

// Conform applies §4.3's commutation rules until the tree reaches its
// canonical SELECT shape.
func (e *Engine) Conform(r rel.Relation) (rel.Relation, error) {
	return normalize(e, r)
}

func (e *Engine) ApplyCustomUnary(op rel.CustomUnaryOp, target rel.Relation) (rel.Relation, error) {
	return nil, rel.ErrNotImplementedByEngine.New(op.Name(), Name)
}

// Execute emits r (which must already be conformed) to the host's own
// expression object and runs it through Query. This always blocks on I/O
// (§5) and returns a fully materialized Payload: the SQL engine has no
// lazy payload shape of its own, unlike the iteration engine.
func (e *Engine) Execute(ctx context.Context, r rel.Relation) (rel.Payload, error) {
	stmt, err := Emit(r, e.hooks())
	if err != nil {
		return nil, rel.ErrExecution.Wrap(err)
	}
	cols := r.Columns().Sorted()
	e.Log.WithField("columns", len(cols)).Debug("sqlengine: executing query")
	rows, err := e.Query.Query(ctx, stmt, cols)
	if err != nil {
		return nil, rel.ErrExecution.Wrap(err)
	}
	return &Payload{Columns: r.Columns(), Rows: rows}, nil
}

// ImportPayload wraps a foreign payload's exported rows as a Payload of
// this engine, realizing the processor's Transfer contract (§4.5) when the
// SQL engine is the destination side. The rows are held in memory rather
// than loaded into a temporary table; a host wanting imported rows to
// participate in a further pushed-down query should stage them through its
// own Querier before handing the result back to this module.
func (e *Engine) ImportPayload(ctx context.Context, source rel.Payload, columns []rel.ColumnDescriptor) (rel.Payload, error) {
	src, ok := source.(rel.RowSource)
	if !ok {
		return nil, rel.ErrNotImplementedByEngine.New("ImportPayload", Name)
	}
	exported, err := src.ExportRows()
	if err != nil {
		return nil, err
	}
	cols := make([]coltag.Tag, len(columns))
	for i, c := range columns {
		cols[i] = c.Tag
	}
	return &Payload{Columns: coltag.NewSet(cols...), Rows: exported}, nil
}

// Payload is the SQL engine's payload shape: rows already scanned back from
// the host's Query call. It implements rel.RowSource directly, so a
// downstream Transfer can move its rows to another engine without a
// further round-trip through the database.
type Payload struct {
	Columns coltag.Set
	Rows    []map[coltag.Tag]any
}

func (p *Payload) Engine() string { return Name }

func (p *Payload) ExportRows() ([]map[coltag.Tag]any, error) { return p.Rows, nil }

var (
	_ rel.Payload   = (*Payload)(nil)
	_ rel.RowSource = (*Payload)(nil)
)
