package processor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-vitess.v0/vt/sqlparser"

	"github.com/lsst/daf-relation/coltag"
	"github.com/lsst/daf-relation/expr"
	"github.com/lsst/daf-relation/internal/testrel"
	"github.com/lsst/daf-relation/rel"
	"github.com/lsst/daf-relation/rel/plan"
	"github.com/lsst/daf-relation/rel/processor"
	"github.com/lsst/daf-relation/rel/rowexec"
	"github.com/lsst/daf-relation/rel/sqlengine"
)

func ref(tag string) expr.Expression {
	return &expr.Reference{Tag: testrel.Tag(tag)}
}

// countingEngine wraps testrel.FakeEngine, counting Execute calls and
// returning a fixed payload, so tests can assert exactly-once execution
// without depending on either shipped engine's own execution machinery.
type countingEngine struct {
	*testrel.FakeEngine
	execCount int32
	payload   rel.Payload
}

func newCountingEngine(name string) *countingEngine {
	return &countingEngine{FakeEngine: testrel.NewFakeEngine(name), payload: &testrel.Payload{EngineName: name}}
}

func (e *countingEngine) Execute(ctx context.Context, r rel.Relation) (rel.Payload, error) {
	atomic.AddInt32(&e.execCount, 1)
	return e.payload, nil
}

// Testable Scenario S5: executing the same Materialization twice through a
// processor invokes the engine's execute exactly once, and the second call
// returns the same payload by identity.
func TestProcessMaterializationCachesAcrossCalls(t *testing.T) {
	eng := newCountingEngine("e")
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	mat := plan.NewMaterializationMarker(leaf)

	proc := processor.New(eng)

	p1, err := proc.Process(context.Background(), mat)
	require.NoError(t, err)
	p2, err := proc.Process(context.Background(), mat)
	require.NoError(t, err)

	require.Equal(t, int32(1), atomic.LoadInt32(&eng.execCount))
	require.Same(t, p1, p2)
}

// Concurrent processors sharing the same Materialization observe
// at-most-one-effective-execution (§5, Testable Property 7).
func TestProcessMaterializationIsRaceFreeAcrossConcurrentProcessors(t *testing.T) {
	eng := newCountingEngine("e")
	leaf := plan.NewLeaf("t", eng.Name(), testrel.Tags("a"), false, rel.RowBounds{Max: rel.Unbounded})
	mat := plan.NewMaterializationMarker(leaf)
	proc := processor.New(eng)

	const n = 16
	results := make([]rel.Payload, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			p, err := proc.Process(context.Background(), mat)
			require.NoError(t, err)
			results[i] = p
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&eng.execCount))
	for _, r := range results {
		require.Same(t, results[0], r)
	}
}

// fakeQuerier is a sqlengine.Querier returning fixed rows regardless of the
// emitted statement, enough to exercise the processor's bridging of a SQL
// join into the iteration engine.
type fakeQuerier struct {
	rows []map[coltag.Tag]any
}

func (q *fakeQuerier) Query(ctx context.Context, stmt sqlparser.SelectStatement, columns []coltag.Tag) ([]map[coltag.Tag]any, error) {
	return q.rows, nil
}

// Testable Scenario S6: a Transfer(sql->iter, Join(A,B)) executes the SQL
// join, imports rows into the iteration engine as a leaf, and a downstream
// iteration Sort yields rows in sorted order.
func TestProcessBridgesSQLJoinIntoIterationSort(t *testing.T) {
	rows := []map[coltag.Tag]any{
		{testrel.Tag("k"): 1, testrel.Tag("a"): "z", testrel.Tag("b"): "one"},
		{testrel.Tag("k"): 2, testrel.Tag("a"): "y", testrel.Tag("b"): "two"},
	}
	sqlEng := sqlengine.New(nil, &fakeQuerier{rows: rows})
	iterEng := rowexec.New(nil)

	left := plan.NewLeaf("left", sqlEng.Name(), testrel.Tags("k", "a"), false, rel.RowBounds{Max: rel.Unbounded})
	right := plan.NewLeaf("right", sqlEng.Name(), testrel.Tags("k", "b"), false, rel.RowBounds{Max: rel.Unbounded})
	join, err := plan.NewJoin(sqlEng, left, right, nil)
	require.NoError(t, err)

	transfer, err := plan.NewTransfer(join, iterEng)
	require.NoError(t, err)

	sorted, err := plan.NewSort(iterEng, transfer, []plan.SortKey{
		{Expression: ref("a"), Ascending: true},
	})
	require.NoError(t, err)

	proc := processor.New(sqlEng, iterEng)
	payload, err := proc.Process(context.Background(), sorted)
	require.NoError(t, err)

	iterPayload, ok := payload.(*rowexec.Payload)
	require.True(t, ok, "expected an iteration-engine payload, got %T", payload)

	it := iterPayload.Rows.Iterate()
	first, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "y", first[testrel.Tag("a")])
}
