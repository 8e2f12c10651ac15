package rowexec

import (
	"errors"
	"io"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// ErrJoinNotSupported describes a Join in an iteration-engine subtree
// (§4.4: "The iteration engine does not implement Join in this core; a Join
// in an iteration-engine subtree is a construction-time error"). This
// package does not return it: plan.NewJoin rejects such a Join with
// rel.ErrEngineUnsupportedOperation, since the engine's capabilities
// exclude Join, and Conform rejects one with rel.ErrNotImplementedByEngine.
var ErrJoinNotSupported = errors.New("rowexec: Join is not supported by the iteration engine")

// Payload is the iteration engine's payload (§4.4): a RowIterable plus the
// column set it's described over.
type Payload struct {
	Columns coltag.Set
	Rows    RowIterable
}

func (p *Payload) Engine() string { return Name }

// ExportRows drains Rows into plain tag-keyed maps, implementing
// rel.RowSource so the processor can move this payload across a Transfer
// marker to a different engine (§4.5).
func (p *Payload) ExportRows() ([]map[coltag.Tag]any, error) {
	it := p.Rows.Iterate()
	var out []map[coltag.Tag]any
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, map[coltag.Tag]any(row))
	}
	return out, nil
}

// RowIterable is a source of rows, consumed once per Next-loop (§4.4).
// Generator-backed implementations are one-shot; Sequence/Mapping-backed
// ones support re-iteration by returning a fresh cursor from Iterate.
type RowIterable interface {
	// Iterate returns a fresh, independent cursor over this iterable's
	// rows (an already-lazy Generator-backed iterable may only support
	// this once — a second call returns an iterator that immediately
	// yields io.EOF).
	Iterate() RowIter
}

// RowIter yields rows one at a time; Next returns io.EOF when exhausted.
type RowIter interface {
	Next() (Row, error)
}

// generatorIterable wraps a one-shot, lazy row source (§4.4:
// "Generator-backed: lazy, one-shot, order-preserving").
type generatorIterable struct {
	next func() (Row, error)
	used bool
}

// NewGeneratorIterable builds a lazy, one-shot RowIterable from a pull
// function.
func NewGeneratorIterable(next func() (Row, error)) RowIterable {
	return &generatorIterable{next: next}
}

func (g *generatorIterable) Iterate() RowIter {
	if g.used {
		return exhaustedIter{}
	}
	g.used = true
	return generatorIter{next: g.next}
}

type generatorIter struct{ next func() (Row, error) }

func (g generatorIter) Next() (Row, error) { return g.next() }

type exhaustedIter struct{}

func (exhaustedIter) Next() (Row, error) { return nil, io.EOF }

// sequenceIterable is a materialized, re-iterable, O(1)-sliceable row list
// (§4.4: "Sequence-backed").
type sequenceIterable struct {
	rows []Row
}

// NewSequenceIterable builds a materialized RowIterable from rows.
func NewSequenceIterable(rows []Row) RowIterable {
	return &sequenceIterable{rows: rows}
}

func (s *sequenceIterable) Iterate() RowIter {
	return &sequenceIter{rows: s.rows}
}

// Slice returns rows [start, stop) in O(1), the property §4.4 calls out
// explicitly for sort/slice pushdown onto a materialized payload.
func (s *sequenceIterable) Slice(start, stop uint64) *sequenceIterable {
	n := uint64(len(s.rows))
	if start > n {
		start = n
	}
	if stop > n {
		stop = n
	}
	if start > stop {
		start = stop
	}
	return &sequenceIterable{rows: s.rows[start:stop]}
}

func (s *sequenceIterable) Len() int { return len(s.rows) }

type sequenceIter struct {
	rows []Row
	pos  int
}

func (s *sequenceIter) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// mappingIterable is a materialized, insertion-order-preserving set of
// distinct rows, keyed by full row content (§4.4: "Mapping-backed").
type mappingIterable struct {
	order []Row
	seen  map[string]struct{}
	cols  []coltag.Tag
}

// NewMappingIterable consumes source into a deduplicated, insertion-order
// RowIterable over the given columns (the eager Dedup gather stage).
func NewMappingIterable(source RowIterable, cols []coltag.Tag) (*mappingIterable, error) {
	m := &mappingIterable{seen: make(map[string]struct{}), cols: cols}
	it := source.Iterate()
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		m.insert(row)
	}
	return m, nil
}

func (m *mappingIterable) insert(r Row) {
	key := hashKey(r, m.cols)
	if _, ok := m.seen[key]; ok {
		return
	}
	m.seen[key] = struct{}{}
	m.order = append(m.order, r)
}

func (m *mappingIterable) Iterate() RowIter {
	return &sequenceIter{rows: m.order}
}

func (m *mappingIterable) Len() int { return len(m.order) }

var _ rel.Payload = (*Payload)(nil)
