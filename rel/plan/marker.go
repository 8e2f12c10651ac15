package plan

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

type markerBase struct {
	kind   rel.MarkerKind
	target rel.Relation
	engine string
}

func (m *markerBase) Kind() rel.Kind          { return rel.KindMarker }
func (m *markerBase) Engine() string          { return m.engine }
func (m *markerBase) Columns() coltag.Set     { return m.target.Columns() }
func (m *markerBase) Unique() bool            { return m.target.Unique() }
func (m *markerBase) Bounds() rel.RowBounds   { return m.target.Bounds() }
func (m *markerBase) Target() rel.Relation    { return m.target }
func (m *markerBase) MarkerKind() rel.MarkerKind { return m.kind }

// Materialization caches the first payload computed for its target
// (§4.5). Single-assignment, concurrency-safe (§5, Testable Property 7).
type Materialization struct {
	markerBase
	slot payloadSlot
}

// NewMaterialization wraps target with a caching marker on the same
// engine as target.
func NewMaterialization(target rel.Relation) *Materialization {
	return &Materialization{markerBase: markerBase{kind: rel.MarkerMaterialization, target: target, engine: target.Engine()}}
}

func (m *Materialization) Payload() rel.Payload {
	if v := m.slot.get(); v != nil {
		return v.(rel.Payload)
	}
	return nil
}

// CacheOrGet attempts to cache p as this marker's payload and returns the
// payload that ultimately won the race — p itself if this call was first,
// or whatever a prior/concurrent caller already attached (§4.5, §5).
func (m *Materialization) CacheOrGet(p rel.Payload) rel.Payload {
	winner, _ := m.slot.attach(p)
	return winner.(rel.Payload)
}

func (m *Materialization) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Marker rel.MarkerKind
		Target uint64
	}{rel.KindMarker, rel.MarkerMaterialization, m.target.Hash()})
}

func (m *Materialization) Equal(other rel.Relation) bool {
	o, ok := other.(*Materialization)
	return ok && m.target.Equal(o.target)
}

// Transfer marks an engine boundary: its engine (the destination) differs
// from its target's engine (the source). The processor bridges it (§4.5).
type Transfer struct {
	markerBase
}

// newTransferUnchecked wraps target for execution on destination, a
// different engine than target.Engine(). Callers should use the package-
// level NewTransfer factory, which enforces Invariant 2 before calling
// this.
func newTransferUnchecked(target rel.Relation, destination string) *Transfer {
	return &Transfer{markerBase: markerBase{kind: rel.MarkerTransfer, target: target, engine: destination}}
}

func (t *Transfer) Payload() rel.Payload { return nil }

func (t *Transfer) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind        rel.Kind
		Marker      rel.MarkerKind
		Target      uint64
		Destination string
	}{rel.KindMarker, rel.MarkerTransfer, t.target.Hash(), t.engine})
}

func (t *Transfer) Equal(other rel.Relation) bool {
	o, ok := other.(*Transfer)
	return ok && t.engine == o.engine && t.target.Equal(o.target)
}

// Select certifies that Target is a single SELECT statement in the SQL
// engine's canonical form (§4.3). It only ever appears in SQL-engine trees.
type Select struct {
	markerBase
}

// NewSelect wraps a conformed SQL-engine subtree.
func NewSelect(target rel.Relation) *Select {
	return &Select{markerBase: markerBase{kind: rel.MarkerSelect, target: target, engine: target.Engine()}}
}

func (s *Select) Payload() rel.Payload { return nil }

func (s *Select) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Marker rel.MarkerKind
		Target uint64
	}{rel.KindMarker, rel.MarkerSelect, s.target.Hash()})
}

func (s *Select) Equal(other rel.Relation) bool {
	o, ok := other.(*Select)
	return ok && s.target.Equal(o.target)
}
