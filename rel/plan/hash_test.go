package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel/plan"
)

// Testable Property 6: structurally equal relations hash equal.
func TestEqualLeavesHashEqual(t *testing.T) {
	l1 := leaf("e", "a", "b")
	l2 := leaf("e", "a", "b")
	require.True(t, l1.Equal(l2))
	require.Equal(t, l1.Hash(), l2.Hash())
}

func TestDifferentLeavesHashDifferent(t *testing.T) {
	l1 := leaf("e", "a")
	l2 := leaf("e", "b")
	require.False(t, l1.Equal(l2))
	require.NotEqual(t, l1.Hash(), l2.Hash())
}

func TestHashIgnoresPayload(t *testing.T) {
	l1 := leaf("e", "a")
	l2 := leaf("e", "a")
	require.NoError(t, l1.AttachPayload(&testrel.Payload{EngineName: "e"}))
	require.Equal(t, l1.Hash(), l2.Hash())
	require.True(t, l1.Equal(l2))
}

func TestCalculationHashEqualForEquivalentNodes(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	target1 := leaf("e", "a")
	target2 := leaf("e", "a")
	c1, err := plan.NewCalculation(eng, target1, testrel.Tag("b"), &expr.Reference{Tag: testrel.Tag("a")})
	require.NoError(t, err)
	c2, err := plan.NewCalculation(eng, target2, testrel.Tag("b"), &expr.Reference{Tag: testrel.Tag("a")})
	require.NoError(t, err)
	require.Equal(t, c1.Hash(), c2.Hash())
	require.True(t, c1.Equal(c2))
}

// Property 6 (negative half): two Calculations whose expressions read the
// same columns but compute something different are not the same node.
func TestCalculationsWithSameColumnsButDifferentExpressionAreNotEqual(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	c1, err := plan.NewCalculation(eng, leaf("e", "a"), testrel.Tag("b"), &expr.Literal{Value: 1})
	require.NoError(t, err)
	c2, err := plan.NewCalculation(eng, leaf("e", "a"), testrel.Tag("b"), &expr.Literal{Value: 2})
	require.NoError(t, err)
	require.False(t, c1.Equal(c2))
	require.NotEqual(t, c1.Hash(), c2.Hash())
}

// Property 6 (negative half): Selection(x>5, R) and Selection(x<5, R) read
// the same column set but filter differently, so they must not be Equal or
// hash-equal even though both predicates' Columns() are identical.
func TestSelectionsWithSameColumnsButDifferentPredicateAreNotEqual(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	gt, err := plan.NewSelection(eng, leaf("e", "a"), &expr.PredicateFunction{Name: "gt", Args: []expr.Expression{&expr.Reference{Tag: testrel.Tag("a")}, &expr.Literal{Value: 5}}})
	require.NoError(t, err)
	lt, err := plan.NewSelection(eng, leaf("e", "a"), &expr.PredicateFunction{Name: "lt", Args: []expr.Expression{&expr.Reference{Tag: testrel.Tag("a")}, &expr.Literal{Value: 5}}})
	require.NoError(t, err)
	require.False(t, gt.Equal(lt))
	require.NotEqual(t, gt.Hash(), lt.Hash())
}

// Property 6 (negative half): two Sorts over the same target and the same
// sort column differing only in direction are not the same node.
func TestSortsWithSameColumnButDifferentDirectionAreNotEqual(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	asc, err := plan.NewSort(eng, leaf("e", "a"), []plan.SortKey{{Expression: &expr.Reference{Tag: testrel.Tag("a")}, Ascending: true}})
	require.NoError(t, err)
	desc, err := plan.NewSort(eng, leaf("e", "a"), []plan.SortKey{{Expression: &expr.Reference{Tag: testrel.Tag("a")}, Ascending: false}})
	require.NoError(t, err)
	require.False(t, asc.Equal(desc))
	require.NotEqual(t, asc.Hash(), desc.Hash())
}

// Property 6 (negative half): a predicated Join and a natural (nil-predicate)
// Join over the same operands are not the same node — Join.Equal must look
// past "both have a predicate" to the predicate's actual content too.
func TestJoinsWithAndWithoutPredicateAreNotEqual(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	left := leaf("e", "k")
	right := leaf("e", "k")
	natural, err := plan.NewJoin(eng, left, right, nil)
	require.NoError(t, err)
	predicated, err := plan.NewJoin(eng, leaf("e", "k"), leaf("e", "k"), expr.PredicateLiteral(true))
	require.NoError(t, err)
	require.False(t, natural.Equal(predicated))
	require.NotEqual(t, natural.Hash(), predicated.Hash())
}

// Property 6 (negative half): two Joins with differently-shaped predicates
// over the same operands are not equal.
func TestJoinsWithDifferentPredicatesAreNotEqual(t *testing.T) {
	eng := testrel.NewFakeEngine("e")
	j1, err := plan.NewJoin(eng, leaf("e", "k"), leaf("e", "k"), expr.PredicateLiteral(true))
	require.NoError(t, err)
	j2, err := plan.NewJoin(eng, leaf("e", "k"), leaf("e", "k"), expr.PredicateLiteral(false))
	require.NoError(t, err)
	require.False(t, j1.Equal(j2))
	require.NotEqual(t, j1.Hash(), j2.Hash())
}
