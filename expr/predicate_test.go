package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/internal/testrel"
)

func TestEmptyLogicalAndIsTrue(t *testing.T) {
	val, ok := expr.Eval(expr.LogicalAnd{})
	require.True(t, ok)
	require.True(t, val)
}

func TestEmptyLogicalOrIsFalse(t *testing.T) {
	val, ok := expr.Eval(expr.LogicalOr{})
	require.True(t, ok)
	require.False(t, val)
}

func TestLogicalNotFlipsConstant(t *testing.T) {
	val, ok := expr.Eval(&expr.LogicalNot{Operand: expr.PredicateLiteral(true)})
	require.True(t, ok)
	require.False(t, val)
}

func TestEvalNonConstantIsNotOk(t *testing.T) {
	_, ok := expr.Eval(expr.PredicateReference{Tag: testrel.Tag("a")})
	require.False(t, ok)

	_, ok = expr.Eval(expr.LogicalAnd{expr.PredicateReference{Tag: testrel.Tag("a")}})
	require.False(t, ok)
}

func TestPredicateColumnsUnion(t *testing.T) {
	a, b := testrel.Tag("a"), testrel.Tag("b")
	p := expr.LogicalAnd{
		expr.PredicateReference{Tag: a},
		expr.PredicateReference{Tag: b},
	}
	cols := p.Columns()
	require.True(t, cols.Contains(a))
	require.True(t, cols.Contains(b))
}

func TestInContainerColumns(t *testing.T) {
	a := testrel.Tag("a")
	in := &expr.InContainer{
		Scalar:    &expr.Reference{Tag: a},
		Container: expr.RangeLiteral{Start: 0, Stop: 10, Step: 1},
	}
	require.True(t, in.Columns().Contains(a))
	require.True(t, in.IsSupportedBy(expr.AllFunctions{}))
}
