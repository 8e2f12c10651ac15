package plan_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
)

func TestLeafAttachPayloadSingleAssignment(t *testing.T) {
	l := leaf("e", "a")
	require.NoError(t, l.AttachPayload(&testrel.Payload{EngineName: "e"}))
	err := l.AttachPayload(&testrel.Payload{EngineName: "e"})
	require.True(t, rel.ErrPayloadAlreadyAssigned.Is(err))
}

func TestMaterializationCacheOrGetConcurrent(t *testing.T) {
	l := leaf("e", "a")
	m := plan.NewMaterialization(l)

	const n = 50
	results := make([]rel.Payload, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i] = m.CacheOrGet(&testrel.Payload{EngineName: "e"})
		}()
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		require.Same(t, first, r)
	}
	require.Same(t, first, m.Payload())
}

func TestMaterializationPayloadNilBeforeCaching(t *testing.T) {
	l := leaf("e", "a")
	m := plan.NewMaterialization(l)
	require.Nil(t, m.Payload())
}
