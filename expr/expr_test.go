package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/internal/testrel"
)

func TestLiteralColumnsEmpty(t *testing.T) {
	l := &expr.Literal{Value: 1, Type: "int"}
	require.Equal(t, 0, l.Columns().Len())
	require.True(t, l.IsSupportedBy(expr.AllFunctions{}))
}

func TestReferenceColumns(t *testing.T) {
	tag := testrel.Tag("a")
	r := &expr.Reference{Tag: tag, Type: "int"}
	require.True(t, r.Columns().Contains(tag))
}

func TestFunctionColumnsUnionsArgs(t *testing.T) {
	a, b := testrel.Tag("a"), testrel.Tag("b")
	f := &expr.Function{
		Name: "concat",
		Args: []expr.Expression{
			&expr.Reference{Tag: a},
			&expr.Reference{Tag: b},
		},
	}
	cols := f.Columns()
	require.True(t, cols.Contains(a))
	require.True(t, cols.Contains(b))
}

func TestFunctionSupportedByRequiresFunctionAndArgs(t *testing.T) {
	f := &expr.Function{Name: "custom_fn", Args: []expr.Expression{&expr.Literal{}}}
	require.True(t, f.IsSupportedBy(expr.AllFunctions{}))
	require.False(t, f.IsSupportedBy(expr.NewFunctionSet("other_fn")))
	require.True(t, f.IsSupportedBy(expr.NewFunctionSet("custom_fn")))
}
