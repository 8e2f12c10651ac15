package rel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/rel"
)

func TestRowBoundsAtMostOne(t *testing.T) {
	require.True(t, rel.RowBounds{Min: 0, Max: 1}.AtMostOne())
	require.True(t, rel.RowBounds{Min: 0, Max: 0}.AtMostOne())
	require.False(t, rel.RowBounds{Min: 0, Max: 2}.AtMostOne())
	require.False(t, rel.RowBounds{Min: 0, Max: rel.Unbounded}.AtMostOne())
}

func TestKindStrings(t *testing.T) {
	require.Equal(t, "Leaf", rel.KindLeaf.String())
	require.Equal(t, "UnaryOpRelation", rel.KindUnaryOp.String())
	require.Equal(t, "BinaryOpRelation", rel.KindBinaryOp.String())
	require.Equal(t, "Marker", rel.KindMarker.String())
}

func TestStructuralHashStableAndOrderSensitiveOnFields(t *testing.T) {
	type payload struct {
		Op   string
		Args []uint64
	}
	h1 := rel.StructuralHash(payload{Op: "join", Args: []uint64{1, 2}})
	h2 := rel.StructuralHash(payload{Op: "join", Args: []uint64{1, 2}})
	h3 := rel.StructuralHash(payload{Op: "join", Args: []uint64{2, 1}})
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
