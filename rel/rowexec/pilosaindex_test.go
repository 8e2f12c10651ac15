package rowexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel/plan"
	"github.com/lsst/daf-relation/rel/rowexec"
)

func TestDeduplicationUsesBitmapIndexWhenConfigured(t *testing.T) {
	e := rowexec.New(nil)
	e.IndexDir = t.TempDir()

	leaf := leafWithRows(t, e, []rowexec.Row{
		{testrel.Tag("a"): 1},
		{testrel.Tag("a"): 1},
		{testrel.Tag("a"): 2},
		{testrel.Tag("a"): 2},
		{testrel.Tag("a"): 3},
	}, "a")
	dedup, err := plan.NewDeduplication(e, leaf)
	require.NoError(t, err)

	p, err := e.Execute(context.Background(), dedup)
	require.NoError(t, err)
	rows := drainPayload(t, p)
	require.Len(t, rows, 3)
}
