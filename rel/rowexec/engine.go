package rowexec

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// Name is the engine name this package's relations and payloads carry.
const Name = "iteration"

// Engine is the iteration engine (§4.4): a lazy, row-oriented backend with
// no native Join support.
type Engine struct {
	Log *logrus.Entry

	// IndexDir, if non-empty, roots a pilosa bitmap index used to
	// accelerate Deduplication over large row sets (see pilosaindex.go).
	// Empty means Deduplication always uses the plain in-memory
	// mappingIterable.
	IndexDir string
}

// New builds an iteration Engine. log may be nil, in which case an entry on
// the logrus standard logger is used.
func New(log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{Log: log}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Capabilities() rel.Capabilities { return capabilities{} }

type capabilities struct{}

func (capabilities) SupportsUnaryOp(k rel.UnaryOpKind) bool { return true }
func (capabilities) SupportsBinaryOp(k rel.BinaryOpKind) bool {
	return k == rel.OpChain
}
func (capabilities) SupportsCustomUnaryOp(name string) bool { return false }
func (capabilities) SupportsFunction(name string) bool      { return true }

// Conform returns r unchanged if it contains no Join; the iteration engine
// has no reordering normal form (§4.4 has no analogue to §4.3's canonical
// SELECT shape), so conformation here is purely a validation pass.
func (e *Engine) Conform(r rel.Relation) (rel.Relation, error) {
	if err := checkNoJoin(r); err != nil {
		return nil, err
	}
	return r, nil
}

func checkNoJoin(r rel.Relation) error {
	switch n := r.(type) {
	case *plan.Join:
		return rel.ErrNotImplementedByEngine.New(rel.OpJoin.String(), Name)
	case rel.Operand:
		return checkNoJoin(n.Target())
	case rel.BinaryOperand:
		if err := checkNoJoin(n.Left()); err != nil {
			return err
		}
		return checkNoJoin(n.Right())
	default:
		return nil
	}
}

func (e *Engine) ApplyCustomUnary(op rel.CustomUnaryOp, target rel.Relation) (rel.Relation, error) {
	return nil, rel.ErrNotImplementedByEngine.New(op.Name(), Name)
}

// ImportPayload wraps a foreign payload's exported rows (via rel.RowSource)
// into a fresh, re-iterable iteration-engine Payload, realizing the
// processor's Transfer contract (§4.5).
func (e *Engine) ImportPayload(ctx context.Context, source rel.Payload, columns []rel.ColumnDescriptor) (rel.Payload, error) {
	src, ok := source.(rel.RowSource)
	if !ok {
		return nil, rel.ErrNotImplementedByEngine.New("ImportPayload", Name)
	}
	exported, err := src.ExportRows()
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(exported))
	for i, m := range exported {
		rows[i] = Row(m)
	}
	cols := make([]coltag.Tag, len(columns))
	for i, c := range columns {
		cols[i] = c.Tag
	}
	colSet := coltag.NewSet(cols...)
	e.Log.WithField("rows", len(rows)).Debug("rowexec: imported payload from foreign engine")
	return &Payload{Columns: colSet, Rows: NewSequenceIterable(rows)}, nil
}

// BuildLeaf implements rel.LeafBuilder: it substitutes a Materialized node
// for a payload this engine already produced, rather than the processor's
// generic Leaf+AttachPayload, so the payload's RowIterable is reachable
// directly instead of through a second Payload indirection.
func (e *Engine) BuildLeaf(payload rel.Payload) (rel.Relation, error) {
	p, ok := payload.(*Payload)
	if !ok {
		return nil, fmt.Errorf("rowexec: BuildLeaf given a foreign payload of type %T", payload)
	}
	return &Materialized{ColumnSet: p.Columns, Rows: p.Rows}, nil
}

// Execute drives r to a Payload (§4.4). r must already be conformed (no
// Join) and single-engine.
func (e *Engine) Execute(ctx context.Context, r rel.Relation) (rel.Payload, error) {
	iterable, cols, err := e.build(ctx, r)
	if err != nil {
		return nil, rel.ErrExecution.Wrap(err)
	}
	return &Payload{Columns: cols, Rows: iterable}, nil
}

// build recursively lowers r into a RowIterable, matching each operation to
// the laziness strategy in §4.4's table.
func (e *Engine) build(ctx context.Context, r rel.Relation) (RowIterable, coltag.Set, error) {
	switch n := r.(type) {
	case *plan.Leaf:
		p, ok := n.Payload().(*Payload)
		if !ok || p == nil {
			return nil, coltag.Set{}, fmt.Errorf("rowexec: leaf %q has no iteration payload attached", n.Name())
		}
		return p.Rows, n.Columns(), nil

	case *Materialized:
		return n.Rows, n.Columns(), nil

	case *plan.Selection:
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return selectionIterable{src: src, pred: n.Predicate}, cols, nil

	case *plan.Calculation:
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return calculationIterable{src: src, tag: n.Tag, expr: n.Expression}, n.Columns(), nil

	case *plan.Projection:
		src, _, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return projectionIterable{src: src, keep: n.Keep.Sorted()}, n.Columns(), nil

	case *plan.Deduplication:
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		if e.IndexDir != "" {
			m, err := NewIndexedMappingIterable(src, cols.Sorted(), e.IndexDir)
			if err != nil {
				return nil, coltag.Set{}, err
			}
			e.Log.WithField("rows", m.Len()).Debug("rowexec: dedup materialized via bitmap index")
			return m, cols, nil
		}
		m, err := NewMappingIterable(src, cols.Sorted())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		e.Log.WithField("rows", m.Len()).Debug("rowexec: dedup materialized")
		return m, cols, nil

	case *plan.Sort:
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		sorted, err := sortRows(src, n.Keys)
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return NewSequenceIterable(sorted), cols, nil

	case *plan.Slice:
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return sliceIterable(src, n.Start, n.Stop), cols, nil

	case *plan.Chain:
		left, cols, err := e.build(ctx, n.Left())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		right, _, err := e.build(ctx, n.Right())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		return chainIterable{left: left, right: right}, cols, nil

	case *plan.Materialization:
		if cached, ok := n.Payload().(*Payload); ok && cached != nil {
			return cached.Rows, n.Columns(), nil
		}
		src, cols, err := e.build(ctx, n.Target())
		if err != nil {
			return nil, coltag.Set{}, err
		}
		// Upgrade to a Sequence before caching so repeated reads of the
		// cached Materialization are re-iterable (§4.4: "Materialization:
		// upgrade lazy iterable to sequence if not already
		// sequence/mapping").
		upgraded, err := upgradeToSequence(src)
		if err != nil {
			return nil, coltag.Set{}, err
		}
		winner := n.CacheOrGet(&Payload{Columns: cols, Rows: upgraded})
		return winner.(*Payload).Rows, cols, nil

	default:
		return nil, coltag.Set{}, fmt.Errorf("rowexec: unsupported relation kind %v", r.Kind())
	}
}

// Materialized is a synthetic Leaf-equivalent node used by the processor
// to substitute an imported payload for a Transfer marker (§4.5).
type Materialized struct {
	ColumnSet coltag.Set
	Rows      RowIterable
}

func (m *Materialized) Kind() rel.Kind        { return rel.KindLeaf }
func (m *Materialized) Engine() string        { return Name }
func (m *Materialized) Columns() coltag.Set   { return m.ColumnSet }
func (m *Materialized) Unique() bool          { return false }
func (m *Materialized) Bounds() rel.RowBounds { return rel.RowBounds{Max: rel.Unbounded} }
func (m *Materialized) Payload() rel.Payload  { return &Payload{Columns: m.ColumnSet, Rows: m.Rows} }
func (m *Materialized) Hash() uint64          { return rel.StructuralHash(m.ColumnSet.Sorted()) }
func (m *Materialized) Equal(other rel.Relation) bool {
	o, ok := other.(*Materialized)
	return ok && m.ColumnSet.Equals(o.ColumnSet)
}

func upgradeToSequence(src RowIterable) (RowIterable, error) {
	switch src.(type) {
	case *sequenceIterable, *mappingIterable, *indexedMappingIterable:
		return src, nil
	default:
		rows, err := drain(src)
		if err != nil {
			return nil, err
		}
		return NewSequenceIterable(rows), nil
	}
}

func drain(src RowIterable) ([]Row, error) {
	it := src.Iterate()
	var rows []Row
	for {
		row, err := it.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var _ expr.Capabilities = capabilities{}
