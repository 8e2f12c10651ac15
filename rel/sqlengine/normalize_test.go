package sqlengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
	"github.com/lsst/daf-relation/rel/sqlengine"
)

func newEngine() *sqlengine.Engine {
	return sqlengine.New(nil, nil)
}

func pred(tag string) expr.Predicate {
	return expr.PredicateReference{Tag: testrel.Tag(tag)}
}

func ref(tag string) expr.Expression {
	return &expr.Reference{Tag: testrel.Tag(tag)}
}

// Testable Scenario S1 (the historical DM-37504 regression): a Selection
// above a Chain must distribute into both branches, not get stuck after a
// single rewrite pass.
func TestConformDistributesSelectionAcrossChain(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	chain, err := plan.NewChain(eng, left, right)
	require.NoError(t, err)
	sel, err := plan.NewSelection(eng, chain, pred("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(sel)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	ch, ok := sm.Target().(*plan.Chain)
	require.True(t, ok, "expected selection pushed below the chain, got %T", sm.Target())

	leftSel, ok := ch.Left().(*plan.Selection)
	require.True(t, ok, "left branch should carry its own selection")
	_, ok = leftSel.Target().(*plan.Leaf)
	require.True(t, ok)

	rightSel, ok := ch.Right().(*plan.Selection)
	require.True(t, ok, "right branch should carry its own selection")
	_, ok = rightSel.Target().(*plan.Leaf)
	require.True(t, ok)
}

// Testable Scenario S2: a Calculation above a Chain distributes the same
// way, making a computed column available on both branches of a union.
func TestConformDistributesCalculationAcrossChain(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	chain, err := plan.NewChain(eng, left, right)
	require.NoError(t, err)
	calc, err := plan.NewCalculation(eng, chain, testrel.Tag("b"), ref("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(calc)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	ch, ok := sm.Target().(*plan.Chain)
	require.True(t, ok, "expected calculation pushed below the chain, got %T", sm.Target())

	leftCalc, ok := ch.Left().(*plan.Calculation)
	require.True(t, ok)
	require.Equal(t, testrel.Tag("b"), leftCalc.Tag)
	rightCalc, ok := ch.Right().(*plan.Calculation)
	require.True(t, ok)
	require.Equal(t, testrel.Tag("b"), rightCalc.Tag)
}

// Testable Scenario S4: a Projection above a Sort bubbles the sort above
// the projection, augmenting the inner projection with the sort key's
// columns so ordering is computed before the projection drops them.
func TestConformBubblesSortAboveProjectionKeepingKeyColumns(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a", "b", "c"), false, rel.RowBounds{Max: rel.Unbounded})
	sorted, err := plan.NewSort(eng, leaf, []plan.SortKey{{Expression: ref("c"), Ascending: true}})
	require.NoError(t, err)
	proj, err := plan.NewProjection(eng, sorted, testrel.Tags("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(proj)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	outerProj, ok := sm.Target().(*plan.Projection)
	require.True(t, ok, "expected a projection at the very top, got %T", sm.Target())
	require.True(t, outerProj.Keep.Equals(testrel.Tags("a")))

	innerSort, ok := outerProj.Target().(*plan.Sort)
	require.True(t, ok, "expected sort directly under the outer projection")
	innerProj, ok := innerSort.Target().(*plan.Projection)
	require.True(t, ok, "expected an inner projection keeping the sort key column")
	require.True(t, innerProj.Keep.Contains(testrel.Tag("c")), "inner projection must keep the sort key column")
	require.True(t, innerProj.Keep.Contains(testrel.Tag("a")))
}

// Testable Property 4: adjacent Selections compose into one.
func TestConformComposesAdjacentSelections(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	inner, err := plan.NewSelection(eng, leaf, pred("a"))
	require.NoError(t, err)
	outer, err := plan.NewSelection(eng, inner, pred("b"))
	require.NoError(t, err)

	conformed, err := eng.Conform(outer)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	sel, ok := sm.Target().(*plan.Selection)
	require.True(t, ok)
	_, ok = sel.Target().(*plan.Leaf)
	require.True(t, ok, "adjacent selections should have composed into one")
}

// Testable Property 3: adjacent Projections compose into one.
func TestConformComposesAdjacentProjections(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a", "b", "c"), false, rel.RowBounds{Max: rel.Unbounded})
	inner, err := plan.NewProjection(eng, leaf, testrel.Tags("a", "b"))
	require.NoError(t, err)
	outer, err := plan.NewProjection(eng, inner, testrel.Tags("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(outer)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	proj, ok := sm.Target().(*plan.Projection)
	require.True(t, ok)
	_, ok = proj.Target().(*plan.Leaf)
	require.True(t, ok, "adjacent projections should have composed into one")
	require.True(t, proj.Keep.Equals(testrel.Tags("a")))
}

func TestConformPushesSelectionIntoJoinOnCoveredSide(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a", "k"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("k", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	join, err := plan.NewJoin(eng, left, right, nil)
	require.NoError(t, err)
	sel, err := plan.NewSelection(eng, join, pred("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(sel)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	j, ok := sm.Target().(*plan.Join)
	require.True(t, ok, "expected selection pushed down to a bare join, got %T", sm.Target())
	leftSel, ok := j.Left().(*plan.Selection)
	require.True(t, ok, "expected selection pushed onto the covering side")
	_, ok = leftSel.Target().(*plan.Leaf)
	require.True(t, ok)
	_, ok = j.Right().(*plan.Leaf)
	require.True(t, ok, "untouched side should remain a bare leaf")
}

// Conform must be a no-op (reached on the very first pass) once a tree is
// already in canonical form, other than Select-marker placement.
func TestConformIsStableOnAlreadyCanonicalTree(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	sel, err := plan.NewSelection(eng, leaf, pred("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(sel)
	require.NoError(t, err)
	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	require.True(t, sm.Target().Equal(sel))

	reconformed, err := eng.Conform(conformed)
	require.NoError(t, err)
	require.True(t, reconformed.Equal(conformed))
}

// An interior Sort directly beneath a Chain operand has no observable
// effect on a UNION ALL and is dropped.
func TestConformDropsInteriorSortBeneathChain(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	sortedLeft, err := plan.NewSort(eng, left, []plan.SortKey{{Expression: ref("a"), Ascending: true}})
	require.NoError(t, err)
	chain, err := plan.NewChain(eng, sortedLeft, right)
	require.NoError(t, err)

	conformed, err := eng.Conform(chain)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	c, ok := sm.Target().(*plan.Chain)
	require.True(t, ok, "expected a bare chain with the interior sort removed, got %T", sm.Target())
	_, stillSorted := c.Left().(*plan.Sort)
	require.False(t, stillSorted, "interior sort beneath a chain operand should have been dropped")
	_, ok = c.Left().(*plan.Leaf)
	require.True(t, ok)
}

// The same drop applies to a Sort sitting directly beneath a Join operand.
func TestConformDropsInteriorSortBeneathJoin(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a", "k"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("k", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	sortedLeft, err := plan.NewSort(eng, left, []plan.SortKey{{Expression: ref("a"), Ascending: true}})
	require.NoError(t, err)
	join, err := plan.NewJoin(eng, sortedLeft, right, nil)
	require.NoError(t, err)

	conformed, err := eng.Conform(join)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	j, ok := sm.Target().(*plan.Join)
	require.True(t, ok, "expected a bare join with the interior sort removed, got %T", sm.Target())
	_, stillSorted := j.Left().(*plan.Sort)
	require.False(t, stillSorted, "interior sort beneath a join operand should have been dropped")
}

// A Sort paired with an enclosing Slice beneath a Chain operand is left
// alone: the pair still restricts which rows pass through, unlike a bare
// interior Sort.
func TestConformKeepsSliceSortPairBeneathChain(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	sortedLeft, err := plan.NewSort(eng, left, []plan.SortKey{{Expression: ref("a"), Ascending: true}})
	require.NoError(t, err)
	slicedLeft, err := plan.NewSlice(eng, sortedLeft, 0, 5)
	require.NoError(t, err)
	chain, err := plan.NewChain(eng, slicedLeft, right)
	require.NoError(t, err)

	conformed, err := eng.Conform(chain)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	c, ok := sm.Target().(*plan.Chain)
	require.True(t, ok)
	sl, ok := c.Left().(*plan.Slice)
	require.True(t, ok, "slice+sort pair beneath a chain operand should survive, got %T", c.Left())
	_, ok = sl.Target().(*plan.Sort)
	require.True(t, ok, "sort beneath the surviving slice should still be present")
}

// §4.3: "Slice bubbles up with Sort as a unit" extends to Projection too —
// a Projection above a Slice must swap position with it, carrying the
// window to the outermost layer alongside Sort.
func TestConformBubblesSliceAboveProjection(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	sliced, err := plan.NewSlice(eng, leaf, 10, 20)
	require.NoError(t, err)
	proj, err := plan.NewProjection(eng, sliced, testrel.Tags("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(proj)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	outerSlice, ok := sm.Target().(*plan.Slice)
	require.True(t, ok, "expected slice bubbled to the top, got %T", sm.Target())
	require.Equal(t, uint64(10), outerSlice.Start)
	require.Equal(t, uint64(20), outerSlice.Stop)

	innerProj, ok := outerSlice.Target().(*plan.Projection)
	require.True(t, ok, "expected projection beneath the bubbled slice")
	require.True(t, innerProj.Keep.Equals(testrel.Tags("a")))
}

// Same bubbling for Calculation: a computed column carries no positional
// information, so it swaps with an enclosing Slice the same way Sort does.
func TestConformBubblesSliceAboveCalculation(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	sliced, err := plan.NewSlice(eng, leaf, 0, 5)
	require.NoError(t, err)
	calc, err := plan.NewCalculation(eng, sliced, testrel.Tag("b"), ref("a"))
	require.NoError(t, err)

	conformed, err := eng.Conform(calc)
	require.NoError(t, err)

	sm, ok := conformed.(*plan.Select)
	require.True(t, ok)
	outerSlice, ok := sm.Target().(*plan.Slice)
	require.True(t, ok, "expected slice bubbled to the top, got %T", sm.Target())

	innerCalc, ok := outerSlice.Target().(*plan.Calculation)
	require.True(t, ok, "expected calculation beneath the bubbled slice")
	require.Equal(t, testrel.Tag("b"), innerCalc.Tag)
}

// The reviewer's reproduction case: a Projection directly atop a Slice is a
// legal relation tree under the factories even though it isn't canonical;
// conforming it must normalize into a shape emit.go can handle, not reject
// it as an unsupported FROM-tree shape.
func TestEmitProjectionOverSliceProducesLimit(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	sliced, err := plan.NewSlice(eng, leaf, 10, 20)
	require.NoError(t, err)
	proj, err := plan.NewProjection(eng, sliced, testrel.Tags("a"))
	require.NoError(t, err)
	conformed := conform(t, eng, proj)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.NotNil(t, q.Limit)
	require.Len(t, q.SelectExprs, 1)
}
