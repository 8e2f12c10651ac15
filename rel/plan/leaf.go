// Package plan implements the concrete Relation variants (§3) and the
// invariant-enforcing factory methods that build them (§4.1). Mirrors the
// teacher's sql/plan package: leaf.go/unary.go/binary.go/marker.go here play the
// role sql/plan/resolved_table.go, sql/plan/project.go, etc. play there —
// one file per shape, constructed only through factories that validate
// columns and engine-consistency before a node ever exists.
package plan

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// Leaf is engine-resident base data (§3).
type Leaf struct {
	name    string
	engine  string
	columns coltag.Set
	unique  bool
	bounds  rel.RowBounds
	slot    payloadSlot
}

// NewLeaf constructs a Leaf. name identifies which base relation this is
// (e.g. a table name) and takes part in Equal and Hash.
func NewLeaf(name, engine string, columns coltag.Set, unique bool, bounds rel.RowBounds) *Leaf {
	return &Leaf{name: name, engine: engine, columns: columns, unique: unique, bounds: bounds}
}

func (l *Leaf) Kind() rel.Kind          { return rel.KindLeaf }
func (l *Leaf) Name() string            { return l.name }
func (l *Leaf) Engine() string          { return l.engine }
func (l *Leaf) Columns() coltag.Set     { return l.columns }
func (l *Leaf) Unique() bool            { return l.unique }
func (l *Leaf) Bounds() rel.RowBounds   { return l.bounds }
func (l *Leaf) Payload() rel.Payload {
	if v := l.slot.get(); v != nil {
		return v.(rel.Payload)
	}
	return nil
}

// AttachPayload performs the single-assignment attach allowed by the
// lifecycle rules (Invariant 4): it fails if a payload is already present.
func (l *Leaf) AttachPayload(p rel.Payload) error {
	_, attached := l.slot.attach(p)
	if !attached {
		return rel.ErrPayloadAlreadyAssigned.New()
	}
	return nil
}

func (l *Leaf) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind    rel.Kind
		Name    string
		Engine  string
		Columns uint64
		Unique  bool
	}{rel.KindLeaf, l.name, l.engine, l.columns.Hash(), l.unique})
}

func (l *Leaf) Equal(other rel.Relation) bool {
	o, ok := other.(*Leaf)
	if !ok {
		return false
	}
	return l.name == o.name && l.engine == o.engine && l.unique == o.unique && l.columns.Equals(o.columns)
}
