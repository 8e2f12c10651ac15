package expr

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// Predicate is a boolean column expression (§3). Empty LogicalAnd is true;
// empty LogicalOr is false.
type Predicate interface {
	Columns() coltag.Set
	IsSupportedBy(c Capabilities) bool

	// Equal reports whether other is the same predicate — same kind and
	// content, not just the same column set (Invariant 6).
	Equal(other Predicate) bool

	// Hash folds the predicate's content into a structural hash consistent
	// with Equal.
	Hash() uint64

	isPredicate()
}

// PredicateLiteral is a constant boolean.
type PredicateLiteral bool

func (PredicateLiteral) Columns() coltag.Set            { return coltag.Set{} }
func (PredicateLiteral) IsSupportedBy(Capabilities) bool { return true }
func (PredicateLiteral) isPredicate()                    {}

func (p PredicateLiteral) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind  string
		Value bool
	}{"predicateLiteral", bool(p)})
}

func (p PredicateLiteral) Equal(other Predicate) bool {
	o, ok := other.(PredicateLiteral)
	return ok && p == o
}

// PredicateReference reads a single boolean-typed column.
type PredicateReference struct {
	Tag coltag.Tag
}

func (r PredicateReference) Columns() coltag.Set            { return coltag.NewSet(r.Tag) }
func (r PredicateReference) IsSupportedBy(Capabilities) bool { return true }
func (PredicateReference) isPredicate()                      {}

func (r PredicateReference) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind string
		Tag  uint64
	}{"predicateReference", r.Tag.Hash()})
}

func (r PredicateReference) Equal(other Predicate) bool {
	o, ok := other.(PredicateReference)
	return ok && r.Tag == o.Tag
}

// PredicateFunction applies a named boolean-valued function to scalar args.
type PredicateFunction struct {
	Name string
	Args []Expression
}

func (f *PredicateFunction) Columns() coltag.Set {
	sets := make([]coltag.Set, len(f.Args))
	for i, a := range f.Args {
		sets[i] = a.Columns()
	}
	return coltag.Union(sets...)
}

func (f *PredicateFunction) IsSupportedBy(c Capabilities) bool {
	if !c.SupportsFunction(f.Name) {
		return false
	}
	for _, a := range f.Args {
		if !a.IsSupportedBy(c) {
			return false
		}
	}
	return true
}
func (*PredicateFunction) isPredicate() {}

func (f *PredicateFunction) Hash() uint64 {
	argHashes := make([]uint64, len(f.Args))
	for i, a := range f.Args {
		argHashes[i] = a.Hash()
	}
	return rel.StructuralHash(struct {
		Kind string
		Name string
		Args []uint64
	}{"predicateFunction", f.Name, argHashes})
}

func (f *PredicateFunction) Equal(other Predicate) bool {
	o, ok := other.(*PredicateFunction)
	if !ok || f.Name != o.Name || len(f.Args) != len(o.Args) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// LogicalNot negates a predicate.
type LogicalNot struct {
	Operand Predicate
}

func (n *LogicalNot) Columns() coltag.Set               { return n.Operand.Columns() }
func (n *LogicalNot) IsSupportedBy(c Capabilities) bool { return n.Operand.IsSupportedBy(c) }
func (*LogicalNot) isPredicate()                        {}

func (n *LogicalNot) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind    string
		Operand uint64
	}{"logicalNot", n.Operand.Hash()})
}

func (n *LogicalNot) Equal(other Predicate) bool {
	o, ok := other.(*LogicalNot)
	return ok && n.Operand.Equal(o.Operand)
}

// LogicalAnd conjoins zero or more predicates; an empty conjunction is true.
type LogicalAnd []Predicate

func (a LogicalAnd) Columns() coltag.Set {
	sets := make([]coltag.Set, len(a))
	for i, p := range a {
		sets[i] = p.Columns()
	}
	return coltag.Union(sets...)
}

func (a LogicalAnd) IsSupportedBy(c Capabilities) bool {
	for _, p := range a {
		if !p.IsSupportedBy(c) {
			return false
		}
	}
	return true
}
func (LogicalAnd) isPredicate() {}

func (a LogicalAnd) Hash() uint64 {
	operandHashes := make([]uint64, len(a))
	for i, p := range a {
		operandHashes[i] = p.Hash()
	}
	return rel.StructuralHash(struct {
		Kind     string
		Operands []uint64
	}{"logicalAnd", operandHashes})
}

func (a LogicalAnd) Equal(other Predicate) bool {
	o, ok := other.(LogicalAnd)
	if !ok || len(a) != len(o) {
		return false
	}
	for i := range a {
		if !a[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// LogicalOr disjoins zero or more predicates; an empty disjunction is false.
type LogicalOr []Predicate

func (o LogicalOr) Columns() coltag.Set {
	sets := make([]coltag.Set, len(o))
	for i, p := range o {
		sets[i] = p.Columns()
	}
	return coltag.Union(sets...)
}

func (o LogicalOr) IsSupportedBy(c Capabilities) bool {
	for _, p := range o {
		if !p.IsSupportedBy(c) {
			return false
		}
	}
	return true
}
func (LogicalOr) isPredicate() {}

func (o LogicalOr) Hash() uint64 {
	operandHashes := make([]uint64, len(o))
	for i, p := range o {
		operandHashes[i] = p.Hash()
	}
	return rel.StructuralHash(struct {
		Kind     string
		Operands []uint64
	}{"logicalOr", operandHashes})
}

func (o LogicalOr) Equal(other Predicate) bool {
	oo, ok := other.(LogicalOr)
	if !ok || len(o) != len(oo) {
		return false
	}
	for i := range o {
		if !o[i].Equal(oo[i]) {
			return false
		}
	}
	return true
}

// InContainer tests whether a scalar is a member of a container.
type InContainer struct {
	Scalar    Expression
	Container Container
}

func (i *InContainer) Columns() coltag.Set {
	return coltag.Union(i.Scalar.Columns(), i.Container.Columns())
}

func (i *InContainer) IsSupportedBy(c Capabilities) bool {
	return i.Scalar.IsSupportedBy(c) && i.Container.IsSupportedBy(c)
}
func (*InContainer) isPredicate() {}

func (i *InContainer) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind      string
		Scalar    uint64
		Container uint64
	}{"inContainer", i.Scalar.Hash(), i.Container.Hash()})
}

func (i *InContainer) Equal(other Predicate) bool {
	o, ok := other.(*InContainer)
	return ok && i.Scalar.Equal(o.Scalar) && i.Container.Equal(o.Container)
}

// Eval evaluates a PredicateLiteral/LogicalAnd/LogicalOr combination with no
// column references, used by the SQL normalizer to fold constant predicates
// (e.g. a fully-pushed Selection(true, R) is a no-op). Returns ok=false if
// the predicate is not a closed constant (contains a reference or function).
func Eval(p Predicate) (value bool, ok bool) {
	switch v := p.(type) {
	case PredicateLiteral:
		return bool(v), true
	case LogicalAnd:
		for _, operand := range v {
			val, isConst := Eval(operand)
			if !isConst {
				return false, false
			}
			if !val {
				return false, true
			}
		}
		return true, true
	case LogicalOr:
		for _, operand := range v {
			val, isConst := Eval(operand)
			if !isConst {
				return false, false
			}
			if val {
				return true, true
			}
		}
		return false, true
	case *LogicalNot:
		val, isConst := Eval(v.Operand)
		if !isConst {
			return false, false
		}
		return !val, true
	default:
		return false, false
	}
}
