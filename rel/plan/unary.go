package plan

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
)

// unaryBase holds the fields every UnaryOpRelation shares; concrete ops
// embed it and add their operation-specific payload.
type unaryBase struct {
	op      rel.UnaryOpKind
	target  rel.Relation
	columns coltag.Set
	unique  bool
	bounds  rel.RowBounds
}

func (u *unaryBase) Kind() rel.Kind        { return rel.KindUnaryOp }
func (u *unaryBase) Engine() string        { return u.target.Engine() }
func (u *unaryBase) Columns() coltag.Set   { return u.columns }
func (u *unaryBase) Unique() bool          { return u.unique }
func (u *unaryBase) Bounds() rel.RowBounds { return u.bounds }
func (u *unaryBase) Payload() rel.Payload  { return nil }
func (u *unaryBase) Target() rel.Relation  { return u.target }
func (u *unaryBase) Op() rel.UnaryOpKind   { return u.op }

// Calculation extends its target with a single computed column (§4.1).
type Calculation struct {
	unaryBase
	Tag        coltag.Tag
	Expression expr.Expression
}

func (c *Calculation) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind       rel.Kind
		Op         rel.UnaryOpKind
		Target     uint64
		Tag        uint64
		Expression uint64
	}{rel.KindUnaryOp, rel.OpCalculation, c.target.Hash(), c.Tag.Hash(), c.Expression.Hash()})
}

func (c *Calculation) Equal(other rel.Relation) bool {
	o, ok := other.(*Calculation)
	return ok && c.Tag == o.Tag && c.target.Equal(o.target) && c.Expression.Equal(o.Expression)
}

// Deduplication removes duplicate rows, becoming unique (§4.1).
type Deduplication struct {
	unaryBase
}

func (d *Deduplication) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Op     rel.UnaryOpKind
		Target uint64
	}{rel.KindUnaryOp, rel.OpDeduplication, d.target.Hash()})
}

func (d *Deduplication) Equal(other rel.Relation) bool {
	o, ok := other.(*Deduplication)
	return ok && d.target.Equal(o.target)
}

// Identity passes its target through unchanged; §4.1 says it never appears
// in a tree returned to a caller. Neither NewDeduplication nor any
// normalizer rule creates one; Deduplication of an already-unique target
// returns the target itself.
type Identity struct {
	unaryBase
}

func (i *Identity) Hash() uint64 { return i.target.Hash() }

func (i *Identity) Equal(other rel.Relation) bool { return i.target.Equal(other) }

// Projection restricts the target's columns to Keep (§4.1).
type Projection struct {
	unaryBase
	Keep coltag.Set
}

func (p *Projection) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Op     rel.UnaryOpKind
		Target uint64
		Keep   uint64
	}{rel.KindUnaryOp, rel.OpProjection, p.target.Hash(), p.Keep.Hash()})
}

func (p *Projection) Equal(other rel.Relation) bool {
	o, ok := other.(*Projection)
	return ok && p.Keep.Equals(o.Keep) && p.target.Equal(o.target)
}

// Selection filters the target's rows by Predicate (§4.1).
type Selection struct {
	unaryBase
	Predicate expr.Predicate
}

func (s *Selection) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind      rel.Kind
		Op        rel.UnaryOpKind
		Target    uint64
		Predicate uint64
	}{rel.KindUnaryOp, rel.OpSelection, s.target.Hash(), s.Predicate.Hash()})
}

func (s *Selection) Equal(other rel.Relation) bool {
	o, ok := other.(*Selection)
	return ok && s.target.Equal(o.target) && s.Predicate.Equal(o.Predicate)
}

// Slice restricts the target to rows [Start, Stop) (§4.1). Stop ==
// rel.Unbounded means unbounded.
type Slice struct {
	unaryBase
	Start, Stop uint64
}

func (s *Slice) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind        rel.Kind
		Op          rel.UnaryOpKind
		Target      uint64
		Start, Stop uint64
	}{rel.KindUnaryOp, rel.OpSlice, s.target.Hash(), s.Start, s.Stop})
}

func (s *Slice) Equal(other rel.Relation) bool {
	o, ok := other.(*Slice)
	return ok && s.Start == o.Start && s.Stop == o.Stop && s.target.Equal(o.target)
}

// SortKey is one (expression, ascending) pair in a Sort (§4.1).
type SortKey struct {
	Expression expr.Expression
	Ascending  bool
}

// Sort orders the target's rows by Keys (§4.1). An engine may or may not
// honor the ordering (§4.4, §4.5).
type Sort struct {
	unaryBase
	Keys []SortKey
}

func (s *Sort) Hash() uint64 {
	keyHashes := make([]uint64, len(s.Keys))
	for i, k := range s.Keys {
		keyHashes[i] = rel.StructuralHash(struct {
			Expression uint64
			Ascending  bool
		}{k.Expression.Hash(), k.Ascending})
	}
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Op     rel.UnaryOpKind
		Target uint64
		Keys   []uint64
	}{rel.KindUnaryOp, rel.OpSort, s.target.Hash(), keyHashes})
}

func (s *Sort) Equal(other rel.Relation) bool {
	o, ok := other.(*Sort)
	if !ok || len(s.Keys) != len(o.Keys) || !s.target.Equal(o.target) {
		return false
	}
	for i := range s.Keys {
		if s.Keys[i].Ascending != o.Keys[i].Ascending ||
			!s.Keys[i].Expression.Equal(o.Keys[i].Expression) {
			return false
		}
	}
	return true
}

// CustomUnary wraps a host-defined rel.CustomUnaryOp (§9).
type CustomUnary struct {
	unaryBase
	Custom rel.CustomUnaryOp
}

func (c *CustomUnary) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind   rel.Kind
		Name   string
		Target uint64
	}{rel.KindUnaryOp, c.Custom.Name(), c.target.Hash()})
}

func (c *CustomUnary) Equal(other rel.Relation) bool {
	o, ok := other.(*CustomUnary)
	return ok && c.Custom.Name() == o.Custom.Name() && c.target.Equal(o.target)
}
