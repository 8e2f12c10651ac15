package sqlengine

import (
	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
	"github.com/lsst/daf-relation/rel/transform"
)

// maxNormalizePasses bounds the commutation fixpoint loop; a well-formed
// rule set converges in at most a handful of passes (one per layer the
// tree is deep), so this is a safety backstop, not a tuning knob.
const maxNormalizePasses = 64

// normalize repeatedly applies the commutation rules of §4.3 to r until a
// full bottom-up pass makes no further change, then places Select markers.
func normalize(eng rel.Engine, r rel.Relation) (rel.Relation, error) {
	rule := makeCommute(eng)
	for i := 0; i < maxNormalizePasses; i++ {
		next, changed, err := transform.TransformUp(eng, r, rule)
		if err != nil {
			return nil, err
		}
		if changed == transform.SameTree {
			return placeSelectMarkers(next), nil
		}
		r = next
	}
	return nil, rel.ErrInvariant.New("sqlengine: commutation rules did not reach a fixpoint")
}

// makeCommute returns the per-node rewrite rule TransformUp applies,
// closing over eng so every rebuilt node re-validates through the same
// engine. It only ever looks at a node and its already-normalized
// immediate child/children, which is sufficient because TransformUp
// revisits the whole tree on every pass — a rewrite that creates a new
// commutable pair is picked up the next pass (this is what makes
// Selection's push-down recurse into Chain's branches correctly: Testable
// Scenario S1's historical regression, DM-37504, was the rewriter failing
// to ever revisit a branch after one distribution step; looping to a
// fixpoint fixes that unconditionally rather than special-casing Chain).
func makeCommute(eng rel.Engine) transform.RelationFunc {
	return func(r rel.Relation) (rel.Relation, transform.TreeIdentity, error) {
		switch n := r.(type) {
		case *plan.Selection:
			return commuteSelection(eng, n)
		case *plan.Projection:
			return commuteProjection(eng, n)
		case *plan.Calculation:
			return commuteCalculation(eng, n)
		case *plan.Deduplication:
			return commuteDeduplication(eng, n)
		case *plan.Chain:
			return dropInteriorSortFromChain(eng, n)
		case *plan.Join:
			return dropInteriorSortFromJoin(eng, n)
		default:
			return r, transform.SameTree, nil
		}
	}
}

// commuteSelection deliberately has no *plan.Slice case: filtering after a
// Slice has already picked a positional window of rows is not the same
// operation as filtering before it, so pushing a Selection across a Slice
// boundary would change which rows the query returns. Selection only
// bubbles down, toward the leaves; Slice only bubbles up, toward the root
// (§4.3) — the two never trade places.
func commuteSelection(eng rel.Engine, s *plan.Selection) (rel.Relation, transform.TreeIdentity, error) {
	switch target := s.Target().(type) {
	case *plan.Join:
		return pushSelectionIntoJoin(eng, s, target)

	case *plan.Chain:
		if s.Predicate.Columns().Subset(target.Left().Columns()) {
			left, err := plan.NewSelection(eng, target.Left(), s.Predicate)
			if err != nil {
				return nil, transform.SameTree, err
			}
			right, err := plan.NewSelection(eng, target.Right(), s.Predicate)
			if err != nil {
				return nil, transform.SameTree, err
			}
			chain, err := plan.NewChain(eng, left, right)
			if err != nil {
				return nil, transform.SameTree, err
			}
			return chain, transform.NewTree, nil
		}
		return s, transform.SameTree, nil

	case *plan.Calculation:
		if !s.Predicate.Columns().Contains(target.Tag) {
			inner, err := plan.NewSelection(eng, target.Target(), s.Predicate)
			if err != nil {
				return nil, transform.SameTree, err
			}
			outer, err := plan.NewCalculation(eng, inner, target.Tag, target.Expression)
			if err != nil {
				return nil, transform.SameTree, err
			}
			return outer, transform.NewTree, nil
		}
		return s, transform.SameTree, nil

	case *plan.Deduplication:
		inner, err := plan.NewSelection(eng, target.Target(), s.Predicate)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewDeduplication(eng, inner)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	case *plan.Sort:
		inner, err := plan.NewSelection(eng, target.Target(), s.Predicate)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewSort(eng, inner, target.Keys)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	case *plan.Selection:
		composed, err := plan.NewSelection(eng, target.Target(), expr.LogicalAnd{s.Predicate, target.Predicate})
		if err != nil {
			return nil, transform.SameTree, err
		}
		return composed, transform.NewTree, nil

	default:
		return s, transform.SameTree, nil
	}
}

// pushSelectionIntoJoin implements "push p into the join if p.columns ⊆
// a.columns ∪ b.columns; otherwise onto whichever side's columns cover
// it" — read the other way around: when p's columns are covered by one
// side alone, pushing the Selection onto that side (closer to the leaves,
// per the tie-break rule) is strictly more selective than leaving it as a
// join condition, so that case is preferred; only a predicate spanning
// both sides becomes part of the join condition itself.
func pushSelectionIntoJoin(eng rel.Engine, s *plan.Selection, j *plan.Join) (rel.Relation, transform.TreeIdentity, error) {
	p := s.Predicate
	left, right := j.Left(), j.Right()

	switch {
	case p.Columns().Subset(left.Columns()):
		newLeft, err := plan.NewSelection(eng, left, p)
		if err != nil {
			return nil, transform.SameTree, err
		}
		newJoin, err := plan.NewJoin(eng, newLeft, right, j.Predicate)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return newJoin, transform.NewTree, nil

	case p.Columns().Subset(right.Columns()):
		newRight, err := plan.NewSelection(eng, right, p)
		if err != nil {
			return nil, transform.SameTree, err
		}
		newJoin, err := plan.NewJoin(eng, left, newRight, j.Predicate)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return newJoin, transform.NewTree, nil

	default:
		var combined expr.Predicate = p
		if j.Predicate != nil {
			combined = expr.LogicalAnd{j.Predicate, p}
		}
		newJoin, err := plan.NewJoin(eng, left, right, combined)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return newJoin, transform.NewTree, nil
	}
}

func commuteCalculation(eng rel.Engine, c *plan.Calculation) (rel.Relation, transform.TreeIdentity, error) {
	switch target := c.Target().(type) {
	case *plan.Chain:
		if c.Expression.Columns().Subset(target.Left().Columns()) {
			left, err := plan.NewCalculation(eng, target.Left(), c.Tag, c.Expression)
			if err != nil {
				return nil, transform.SameTree, err
			}
			right, err := plan.NewCalculation(eng, target.Right(), c.Tag, c.Expression)
			if err != nil {
				return nil, transform.SameTree, err
			}
			chain, err := plan.NewChain(eng, left, right)
			if err != nil {
				return nil, transform.SameTree, err
			}
			return chain, transform.NewTree, nil
		}
		return c, transform.SameTree, nil

	case *plan.Sort:
		inner, err := plan.NewCalculation(eng, target.Target(), c.Tag, c.Expression)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewSort(eng, inner, target.Keys)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	case *plan.Slice:
		// A Calculation reads no row-count or row-identity information from
		// Slice's positional window, so it commutes freely either side of
		// it (§4.3: "Slice bubbles up with Sort as a unit").
		inner, err := plan.NewCalculation(eng, target.Target(), c.Tag, c.Expression)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewSlice(eng, inner, target.Start, target.Stop)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	default:
		return c, transform.SameTree, nil
	}
}

func commuteProjection(eng rel.Engine, p *plan.Projection) (rel.Relation, transform.TreeIdentity, error) {
	switch target := p.Target().(type) {
	case *plan.Projection:
		composed, err := plan.NewProjection(eng, target.Target(), p.Keep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return composed, transform.NewTree, nil

	case *plan.Calculation:
		if !p.Keep.Contains(target.Tag) {
			dropped, err := plan.NewProjection(eng, target.Target(), p.Keep)
			if err != nil {
				return nil, transform.SameTree, err
			}
			return dropped, transform.NewTree, nil
		}
		return p, transform.SameTree, nil

	case *plan.Sort:
		wantKeyColumns := make([]coltag.Tag, 0)
		for _, k := range target.Keys {
			wantKeyColumns = append(wantKeyColumns, k.Expression.Columns().Sorted()...)
		}
		keepWithKeys := coltag.Union(p.Keep, coltag.NewSet(wantKeyColumns...))
		if keepWithKeys.Equals(p.Keep) {
			// Already covers the sort keys; just swap position.
			inner, err := plan.NewProjection(eng, target.Target(), p.Keep)
			if err != nil {
				return nil, transform.SameTree, err
			}
			outer, err := plan.NewSort(eng, inner, target.Keys)
			if err != nil {
				return nil, transform.SameTree, err
			}
			return outer, transform.NewTree, nil
		}
		// Already bubbled: an inner projection directly beneath the sort
		// already keeps exactly the augmented column set, so re-wrapping
		// would rebuild an identical projection pair forever.
		if innerProj, ok := target.Target().(*plan.Projection); ok && innerProj.Keep.Equals(keepWithKeys) {
			return p, transform.SameTree, nil
		}
		inner, err := plan.NewProjection(eng, target.Target(), keepWithKeys)
		if err != nil {
			return nil, transform.SameTree, err
		}
		sorted, err := plan.NewSort(eng, inner, target.Keys)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewProjection(eng, sorted, p.Keep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	case *plan.Slice:
		// Dropping columns reads nothing from Slice's positional window, so
		// Projection swaps position with it unconditionally.
		inner, err := plan.NewProjection(eng, target.Target(), p.Keep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewSlice(eng, inner, target.Start, target.Stop)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	case *plan.Join:
		common := target.Left().Columns().Intersect(target.Right().Columns())
		leftKeep := coltag.Union(p.Keep.Intersect(target.Left().Columns()), common)
		rightKeep := coltag.Union(p.Keep.Intersect(target.Right().Columns()), common)
		if leftKeep.Equals(target.Left().Columns()) && rightKeep.Equals(target.Right().Columns()) {
			return p, transform.SameTree, nil
		}
		newLeft, err := plan.NewProjection(eng, target.Left(), leftKeep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		newRight, err := plan.NewProjection(eng, target.Right(), rightKeep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		newJoin, err := plan.NewJoin(eng, newLeft, newRight, target.Predicate)
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewProjection(eng, newJoin, p.Keep)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	default:
		return p, transform.SameTree, nil
	}
}

// commuteDeduplication only handles Dedup-over-Dedup and Dedup-over-Sort:
// Dedup has no rule for a Chain or Calculation target, so it never bubbles
// past either (§4.3: "Dedup bubbles up past commutative filters but not
// past Chain or non-injective Calculation" — Calculation's injectivity
// isn't something this package can prove in general, so no Calculation
// case exists at all rather than one that would have to guess). Nor does it
// have a Slice case: collapsing duplicates after a positional window has
// already been cut is not equivalent to collapsing them first, since
// distinct rows outside the window can duplicate rows inside it — Dedup
// cannot trade places with a Slice any more than Selection can.
func commuteDeduplication(eng rel.Engine, d *plan.Deduplication) (rel.Relation, transform.TreeIdentity, error) {
	switch target := d.Target().(type) {
	case *plan.Deduplication:
		inner, err := plan.NewDeduplication(eng, target.Target())
		if err != nil {
			return nil, transform.SameTree, err
		}
		return inner, transform.NewTree, nil

	case *plan.Sort:
		inner, err := plan.NewDeduplication(eng, target.Target())
		if err != nil {
			return nil, transform.SameTree, err
		}
		outer, err := plan.NewSort(eng, inner, target.Keys)
		if err != nil {
			return nil, transform.SameTree, err
		}
		return outer, transform.NewTree, nil

	default:
		return d, transform.SameTree, nil
	}
}

// dropInteriorSortFromChain and dropInteriorSortFromJoin implement §4.3's
// "an interior Sort below a Join or Chain loses meaning and is dropped
// unless paired with Slice": once a Sort has bubbled as far toward the
// root as the other commutation rules can carry it, the only way it can
// still be sitting directly beneath a Join or Chain is if nothing above it
// ever accepted the swap — which happens precisely when a Join or Chain
// boundary is in the way, since commutation stops there. Ordering an
// operand of a Join or Chain has no observable effect on the result, so
// that Sort is simply removed; a Sort directly beneath a Slice is left
// alone; the pair still restricts which rows pass through, not just their
// order (§4.3's "Slice bubbles up with Sort as a unit").
func dropInteriorSortFromChain(eng rel.Engine, c *plan.Chain) (rel.Relation, transform.TreeIdentity, error) {
	left, leftChanged := unwrapInteriorSort(c.Left())
	right, rightChanged := unwrapInteriorSort(c.Right())
	if !leftChanged && !rightChanged {
		return c, transform.SameTree, nil
	}
	rebuilt, err := plan.NewChain(eng, left, right)
	if err != nil {
		return nil, transform.SameTree, err
	}
	return rebuilt, transform.NewTree, nil
}

func dropInteriorSortFromJoin(eng rel.Engine, j *plan.Join) (rel.Relation, transform.TreeIdentity, error) {
	left, leftChanged := unwrapInteriorSort(j.Left())
	right, rightChanged := unwrapInteriorSort(j.Right())
	if !leftChanged && !rightChanged {
		return j, transform.SameTree, nil
	}
	rebuilt, err := plan.NewJoin(eng, left, right, j.Predicate)
	if err != nil {
		return nil, transform.SameTree, err
	}
	return rebuilt, transform.NewTree, nil
}

func unwrapInteriorSort(r rel.Relation) (rel.Relation, bool) {
	if s, ok := r.(*plan.Sort); ok {
		return s.Target(), true
	}
	return r, false
}

// placeSelectMarkers wraps r in a Select marker certifying it is a single
// canonical SELECT (§4.3), unless r is already a Leaf or another marker
// (those need no wrapping: a bare Leaf is trivially "SELECT * FROM table",
// and a marker already delimits a subtree boundary of its own kind).
func placeSelectMarkers(r rel.Relation) rel.Relation {
	switch r.Kind() {
	case rel.KindLeaf, rel.KindMarker:
		return r
	default:
		return plan.NewSelect(r)
	}
}
