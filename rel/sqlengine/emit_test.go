package sqlengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
	"github.com/lsst/daf-relation/rel/sqlengine"
)

func conform(t *testing.T, eng *sqlengine.Engine, r rel.Relation) rel.Relation {
	t.Helper()
	conformed, err := eng.Conform(r)
	require.NoError(t, err)
	return conformed
}

func TestEmitBareLeafIsSelectStar(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})

	stmt, err := sqlengine.Emit(leaf, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	sel, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, sel.SelectExprs, 2)
}

func TestEmitSelectionProducesWhereClause(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	sel, err := plan.NewSelection(eng, leaf, pred("a"))
	require.NoError(t, err)
	conformed := conform(t, eng, sel)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.NotNil(t, q.Where)
}

func TestEmitSliceProducesLimit(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	slice, err := plan.NewSlice(eng, leaf, 10, 20)
	require.NoError(t, err)
	conformed := conform(t, eng, slice)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.NotNil(t, q.Limit)
}

func TestEmitSortProducesOrderBy(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	sorted, err := plan.NewSort(eng, leaf, []plan.SortKey{{Expression: ref("a"), Ascending: true}})
	require.NoError(t, err)
	conformed := conform(t, eng, sorted)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, q.OrderBy, 1)
}

// Boundary behavior: Sort with no keys emits no ORDER BY clause at all —
// a no-op on the SQL engine.
func TestEmitSortWithEmptyKeysOmitsOrderBy(t *testing.T) {
	eng := newEngine()
	leaf := plan.NewLeaf("widgets", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	sorted, err := plan.NewSort(eng, leaf, nil)
	require.NoError(t, err)
	conformed := conform(t, eng, sorted)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, q.OrderBy, 0)
}

// A bare Chain (no Dedup wrapping it) must emit as UNION ALL.
func TestEmitChainIsUnionAll(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	chain, err := plan.NewChain(eng, left, right)
	require.NoError(t, err)
	conformed := conform(t, eng, chain)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	u, ok := stmt.(*sqlparser.Union)
	require.True(t, ok, "expected a union, got %T", stmt)
	require.Equal(t, sqlparser.UnionAllStr, u.Type)
}

// A Deduplication directly over a Chain must emit as a plain UNION, not
// UNION ALL, since duplicate rows between the branches should collapse.
func TestEmitDedupOverChainIsUnion(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	chain, err := plan.NewChain(eng, left, right)
	require.NoError(t, err)
	dedup, err := plan.NewDeduplication(eng, chain)
	require.NoError(t, err)
	conformed := conform(t, eng, dedup)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	u, ok := stmt.(*sqlparser.Union)
	require.True(t, ok, "expected a union, got %T", stmt)
	require.Equal(t, sqlparser.UnionStr, u.Type)
}

func TestEmitJoinProducesJoinTableExpr(t *testing.T) {
	eng := newEngine()
	left := plan.NewLeaf("left", eng.Name(), testrel.Tags("a", "k"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", eng.Name(), testrel.Tags("k", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	join, err := plan.NewJoin(eng, left, right, nil)
	require.NoError(t, err)
	conformed := conform(t, eng, join)

	stmt, err := sqlengine.Emit(conformed, sqlengine.DefaultColumnHooks{})
	require.NoError(t, err)
	q, ok := stmt.(*sqlparser.Select)
	require.True(t, ok)
	require.Len(t, q.From, 1)
	joinExpr, ok := q.From[0].(*sqlparser.JoinTableExpr)
	require.True(t, ok, "expected a join table expr in the from clause")

	cmp, ok := joinExpr.Condition.On.(*sqlparser.ComparisonExpr)
	require.True(t, ok, "expected the equi-join condition to be a comparison, got %T", joinExpr.Condition.On)
	require.Equal(t, sqlparser.EqualStr, cmp.Operator)
	leftCol, ok := cmp.Left.(*sqlparser.ColName)
	require.True(t, ok)
	rightCol, ok := cmp.Right.(*sqlparser.ColName)
	require.True(t, ok)
	require.Equal(t, "k", leftCol.Name.String())
	require.Equal(t, "k", rightCol.Name.String())
	require.Equal(t, "left", leftCol.Qualifier.Name.String())
	require.Equal(t, "right", rightCol.Qualifier.Name.String())
	require.NotEqual(t, leftCol.Qualifier, rightCol.Qualifier, "join condition must compare the two sides' own columns, not a tautology")
}
