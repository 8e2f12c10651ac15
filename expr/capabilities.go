// Package expr implements the column-expression sum types of §3: scalar
// expressions, predicates, and containers. Each variant is a closed
// constructor; callers type-switch on the interfaces below to interpret a
// tree (see rel/rowexec and rel/sqlengine).
package expr

// Capabilities is the expression-level slice of an engine's advertised
// support (§4.2): which named functions it knows how to lower or evaluate.
// rel.Capabilities declares the same method and adds operation-level support.
type Capabilities interface {
	SupportsFunction(name string) bool
}

// AllFunctions is a Capabilities that accepts any function name; useful for
// engines (or tests) that place no restriction on scalar functions.
type AllFunctions struct{}

func (AllFunctions) SupportsFunction(string) bool { return true }

// FunctionSet is a Capabilities backed by an explicit allow-list.
type FunctionSet map[string]struct{}

func NewFunctionSet(names ...string) FunctionSet {
	fs := make(FunctionSet, len(names))
	for _, n := range names {
		fs[n] = struct{}{}
	}
	return fs
}

func (fs FunctionSet) SupportsFunction(name string) bool {
	_, ok := fs[name]
	return ok
}
