// Package transform provides a generic bottom-up rewrite walk over
// rel.Relation trees: TransformUp visits a tree post-order, lets the
// caller replace any node, and reassembles ancestors only when a
// descendant actually changed.
package transform

import (
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

// TreeIdentity reports whether a RelationFunc (or a TransformUp call)
// actually replaced a node.
type TreeIdentity bool

const (
	// SameTree means the node (or subtree) was not changed.
	SameTree TreeIdentity = false
	// NewTree means the node (or subtree) was replaced.
	NewTree TreeIdentity = true
)

// RelationFunc inspects and optionally replaces a single relation node. It
// reports NewTree when it returns a different node than it was given.
type RelationFunc func(rel.Relation) (rel.Relation, TreeIdentity, error)

// TransformUp applies f to every node of r, children before parents. When a
// child is replaced, its ancestors are rebuilt via plan.WithTarget /
// plan.WithOperands (re-validated against eng) before f is applied to them
// in turn. The returned TreeIdentity is NewTree if any node in the tree was
// replaced.
func TransformUp(eng rel.Engine, r rel.Relation, f RelationFunc) (rel.Relation, TreeIdentity, error) {
	switch n := r.(type) {
	case rel.BinaryOperand:
		newLeft, leftChanged, err := TransformUp(eng, n.Left(), f)
		if err != nil {
			return nil, SameTree, err
		}
		newRight, rightChanged, err := TransformUp(eng, n.Right(), f)
		if err != nil {
			return nil, SameTree, err
		}
		node := r
		if leftChanged == NewTree || rightChanged == NewTree {
			rebuilt, err := plan.WithOperands(eng, n, newLeft, newRight)
			if err != nil {
				return nil, SameTree, err
			}
			node = rebuilt
		}
		result, changed, err := f(node)
		if err != nil {
			return nil, SameTree, err
		}
		if changed == NewTree || leftChanged == NewTree || rightChanged == NewTree {
			return result, NewTree, nil
		}
		return result, SameTree, nil

	case rel.Operand:
		newTarget, targetChanged, err := TransformUp(eng, n.Target(), f)
		if err != nil {
			return nil, SameTree, err
		}
		node := r
		if targetChanged == NewTree {
			rebuilt, err := plan.WithTarget(eng, n, newTarget)
			if err != nil {
				return nil, SameTree, err
			}
			node = rebuilt
		}
		result, changed, err := f(node)
		if err != nil {
			return nil, SameTree, err
		}
		if changed == NewTree || targetChanged == NewTree {
			return result, NewTree, nil
		}
		return result, SameTree, nil

	default:
		return f(r)
	}
}

// Inspect walks r, children before parents, calling f on every node purely
// for observation; it does not rebuild anything. Returns the first error f
// returns, if any.
func Inspect(r rel.Relation, f func(rel.Relation) error) error {
	switch n := r.(type) {
	case rel.BinaryOperand:
		if err := Inspect(n.Left(), f); err != nil {
			return err
		}
		if err := Inspect(n.Right(), f); err != nil {
			return err
		}
	case rel.Operand:
		if err := Inspect(n.Target(), f); err != nil {
			return err
		}
	}
	return f(r)
}
