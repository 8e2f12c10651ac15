package expr

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// Container is a column-container expression (§3): the right-hand side of
// an InContainer predicate.
type Container interface {
	Columns() coltag.Set
	IsSupportedBy(c Capabilities) bool
	Equal(other Container) bool
	Hash() uint64
	isContainer()
}

// ExpressionSequence is an explicit, ordered list of scalar expressions.
type ExpressionSequence []Expression

func (s ExpressionSequence) Columns() coltag.Set {
	sets := make([]coltag.Set, len(s))
	for i, e := range s {
		sets[i] = e.Columns()
	}
	return coltag.Union(sets...)
}

func (s ExpressionSequence) IsSupportedBy(c Capabilities) bool {
	for _, e := range s {
		if !e.IsSupportedBy(c) {
			return false
		}
	}
	return true
}
func (ExpressionSequence) isContainer() {}

func (s ExpressionSequence) Hash() uint64 {
	elemHashes := make([]uint64, len(s))
	for i, e := range s {
		elemHashes[i] = e.Hash()
	}
	return rel.StructuralHash(struct {
		Kind string
		Elem []uint64
	}{"expressionSequence", elemHashes})
}

func (s ExpressionSequence) Equal(other Container) bool {
	o, ok := other.(ExpressionSequence)
	if !ok || len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// RangeLiteral is an integer range [Start, Stop) with the given Step.
type RangeLiteral struct {
	Start, Stop, Step int64
}

func (RangeLiteral) Columns() coltag.Set            { return coltag.Set{} }
func (RangeLiteral) IsSupportedBy(Capabilities) bool { return true }
func (RangeLiteral) isContainer()                    {}

func (r RangeLiteral) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind              string
		Start, Stop, Step int64
	}{"rangeLiteral", r.Start, r.Stop, r.Step})
}

func (r RangeLiteral) Equal(other Container) bool {
	o, ok := other.(RangeLiteral)
	return ok && r == o
}
