package plan

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
)

type binaryBase struct {
	op      rel.BinaryOpKind
	lhs     rel.Relation
	rhs     rel.Relation
	columns coltag.Set
	unique  bool
	bounds  rel.RowBounds
}

func (b *binaryBase) Kind() rel.Kind        { return rel.KindBinaryOp }
func (b *binaryBase) Engine() string        { return b.lhs.Engine() }
func (b *binaryBase) Columns() coltag.Set   { return b.columns }
func (b *binaryBase) Unique() bool          { return b.unique }
func (b *binaryBase) Bounds() rel.RowBounds { return b.bounds }
func (b *binaryBase) Payload() rel.Payload  { return nil }
func (b *binaryBase) Left() rel.Relation    { return b.lhs }
func (b *binaryBase) Right() rel.Relation   { return b.rhs }
func (b *binaryBase) Op() rel.BinaryOpKind  { return b.op }

// Join combines Left and Right on their common columns, optionally
// restricted by Predicate (§4.1). Common columns become equi-join keys.
type Join struct {
	binaryBase
	Predicate expr.Predicate // nil means a natural equi-join on common columns only
}

func (j *Join) Hash() uint64 {
	var predHash uint64
	if j.Predicate != nil {
		predHash = j.Predicate.Hash()
	}
	return rel.StructuralHash(struct {
		Kind      rel.Kind
		Op        rel.BinaryOpKind
		Left      uint64
		Right     uint64
		HasPred   bool
		Predicate uint64
	}{rel.KindBinaryOp, rel.OpJoin, j.lhs.Hash(), j.rhs.Hash(), j.Predicate != nil, predHash})
}

func (j *Join) Equal(other rel.Relation) bool {
	o, ok := other.(*Join)
	if !ok || !j.lhs.Equal(o.lhs) || !j.rhs.Equal(o.rhs) {
		return false
	}
	if (j.Predicate == nil) != (o.Predicate == nil) {
		return false
	}
	return j.Predicate == nil || j.Predicate.Equal(o.Predicate)
}

// Chain concatenates Left and Right's rows as a multiset union (§4.1); both
// operands must share the same column set.
type Chain struct {
	binaryBase
}

func (c *Chain) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind  rel.Kind
		Op    rel.BinaryOpKind
		Left  uint64
		Right uint64
	}{rel.KindBinaryOp, rel.OpChain, c.lhs.Hash(), c.rhs.Hash()})
}

func (c *Chain) Equal(other rel.Relation) bool {
	o, ok := other.(*Chain)
	return ok && c.lhs.Equal(o.lhs) && c.rhs.Equal(o.rhs)
}
