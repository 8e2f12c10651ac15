package expr

import (
	"reflect"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/rel"
)

// Expression is a scalar column expression: Literal, Reference, or Function
// (§3). It is a closed sum; callers type-switch on the concrete types below
// rather than adding new implementations.
type Expression interface {
	// Columns returns the set of tags this expression reads.
	Columns() coltag.Set

	// IsSupportedBy reports whether an engine advertising the given
	// Capabilities can evaluate or lower this expression.
	IsSupportedBy(c Capabilities) bool

	// DataType returns the expression's result type, opaque to the core.
	DataType() any

	// Equal reports whether other is the same expression — same kind, same
	// literal value/reference/function content, not just the same column
	// set (Invariant 6).
	Equal(other Expression) bool

	// Hash folds the expression's content into a structural hash consistent
	// with Equal.
	Hash() uint64

	isExpression()
}

// Literal is a constant scalar value.
type Literal struct {
	Value any
	Type  any
}

func (l *Literal) Columns() coltag.Set            { return coltag.Set{} }
func (l *Literal) IsSupportedBy(Capabilities) bool { return true }
func (l *Literal) DataType() any                   { return l.Type }
func (*Literal) isExpression()                     {}

func (l *Literal) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind  string
		Value any
		Type  any
	}{"literal", l.Value, l.Type})
}

func (l *Literal) Equal(other Expression) bool {
	o, ok := other.(*Literal)
	return ok && reflect.DeepEqual(l.Value, o.Value) && reflect.DeepEqual(l.Type, o.Type)
}

// Reference reads a single column by tag.
type Reference struct {
	Tag  coltag.Tag
	Type any
}

func (r *Reference) Columns() coltag.Set            { return coltag.NewSet(r.Tag) }
func (r *Reference) IsSupportedBy(Capabilities) bool { return true }
func (r *Reference) DataType() any                   { return r.Type }
func (*Reference) isExpression()                     {}

func (r *Reference) Hash() uint64 {
	return rel.StructuralHash(struct {
		Kind string
		Tag  uint64
		Type any
	}{"reference", r.Tag.Hash(), r.Type})
}

func (r *Reference) Equal(other Expression) bool {
	o, ok := other.(*Reference)
	return ok && r.Tag == o.Tag && reflect.DeepEqual(r.Type, o.Type)
}

// Function applies a named, host-defined function to scalar arguments.
type Function struct {
	Name string
	Args []Expression
	Type any
}

func (f *Function) Columns() coltag.Set {
	sets := make([]coltag.Set, len(f.Args))
	for i, a := range f.Args {
		sets[i] = a.Columns()
	}
	return coltag.Union(sets...)
}

func (f *Function) IsSupportedBy(c Capabilities) bool {
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

func (f *Function) DataType() any { return f.Type }
func (*Function) isExpression()   {}

func (f *Function) Hash() uint64 {
	argHashes := make([]uint64, len(f.Args))
	for i, a := range f.Args {
		argHashes[i] = a.Hash()
	}
	return rel.StructuralHash(struct {
		Kind string
		Name string
		Args []uint64
		Type any
	}{"function", f.Name, argHashes, f.Type})
}

func (f *Function) Equal(other Expression) bool {
	o, ok := other.(*Function)
	if !ok || f.Name != o.Name || len(f.Args) != len(o.Args) || !reflect.DeepEqual(f.Type, o.Type) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}
