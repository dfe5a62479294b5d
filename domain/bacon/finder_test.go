package bacon_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/kevinbacon/domain/bacon"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
)

const kevin = "nm0000102"

// graph builds a memory store from actor -> movies lists. Every id is added
// as a node before any edge.
func graph(t *testing.T, casts map[string][]string) *graphstore.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := graphstore.NewMemoryStore(4, slog.Default())
	t.Cleanup(func() { _ = s.Close() })

	for actor, movies := range casts {
		_, err := s.AddActor(ctx, "Actor "+actor, actor)
		require.NoError(t, err)
		for _, m := range movies {
			_, err := s.AddMovie(ctx, "Movie "+m, m)
			require.NoError(t, err)
		}
	}
	for actor, movies := range casts {
		for _, m := range movies {
			_, err := s.AddRelationship(ctx, actor, m)
			require.NoError(t, err)
		}
	}
	return s
}

func TestFind_ReferenceActor(t *testing.T) {
	// The reference actor need not exist in the store.
	f := bacon.NewFinder(graph(t, nil), kevin)

	res, err := f.Find(context.Background(), kevin)
	require.NoError(t, err)
	assert.Equal(t, bacon.Found, res.Outcome)
	assert.Equal(t, 0, res.Number)
	assert.Equal(t, []string{kevin}, res.Path.Actors())
	assert.Empty(t, res.Path.Movies())
}

func TestFind_UnknownActor(t *testing.T) {
	f := bacon.NewFinder(graph(t, map[string][]string{kevin: {"tt1"}}), kevin)

	res, err := f.Find(context.Background(), "nm404")
	require.NoError(t, err)
	assert.Equal(t, bacon.ActorNotFound, res.Outcome)
}

func TestFind_Disconnected(t *testing.T) {
	s := graph(t, map[string][]string{
		kevin:    {"tt1"},
		"nmA":    {"tt1"},
		"nmIso":  {"tt9"},
		"nmBare": nil,
	})
	f := bacon.NewFinder(s, kevin)

	for _, id := range []string{"nmIso", "nmBare"} {
		res, err := f.Find(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, bacon.NoPath, res.Outcome, id)
	}
}

func TestFind_MissingReferenceMeansNoPath(t *testing.T) {
	f := bacon.NewFinder(graph(t, map[string][]string{"nmA": {"tt1"}, "nmB": {"tt1"}}), kevin)

	res, err := f.Find(context.Background(), "nmB")
	require.NoError(t, err)
	assert.Equal(t, bacon.NoPath, res.Outcome)
}

func TestFind_Chain(t *testing.T) {
	// kevin - M1 - B - M2 - C
	s := graph(t, map[string][]string{
		kevin: {"ttM1"},
		"nmB": {"ttM1", "ttM2"},
		"nmC": {"ttM2"},
	})
	f := bacon.NewFinder(s, kevin)

	res, err := f.Find(context.Background(), "nmC")
	require.NoError(t, err)
	assert.Equal(t, bacon.Found, res.Outcome)
	assert.Equal(t, 2, res.Number)
	assert.Equal(t, []string{kevin, "nmB", "nmC"}, res.Path.Actors())
	assert.Equal(t, []string{"ttM1", "ttM2"}, res.Path.Movies())
	assert.Equal(t, []bacon.Step{
		{Kind: bacon.StepActor, ID: kevin},
		{Kind: bacon.StepMovie, ID: "ttM1"},
		{Kind: bacon.StepActor, ID: "nmB"},
		{Kind: bacon.StepMovie, ID: "ttM2"},
		{Kind: bacon.StepActor, ID: "nmC"},
	}, res.Path.Nodes)
}

func TestFind_PicksShortest(t *testing.T) {
	// Long way: kevin - t1 - A - t2 - B - t3 - C. Short way: kevin - t4 - C.
	s := graph(t, map[string][]string{
		kevin: {"t1", "t4"},
		"nmA": {"t1", "t2"},
		"nmB": {"t2", "t3"},
		"nmC": {"t3", "t4"},
	})
	f := bacon.NewFinder(s, kevin)

	res, err := f.Find(context.Background(), "nmC")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Number)
	assert.Equal(t, []string{kevin, "nmC"}, res.Path.Actors())
	assert.Equal(t, []string{"t4"}, res.Path.Movies())
}

func TestFind_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := graphstore.NewMemoryStore(4, slog.Default())
	defer s.Close()

	_, err := s.AddActor(ctx, "Kevin Bacon", "nm0000102")
	require.NoError(t, err)
	_, err = s.AddActor(ctx, "Someone Else", "nm1001213")
	require.NoError(t, err)
	_, err = s.AddMovie(ctx, "A Movie", "nm7001453")
	require.NoError(t, err)
	for _, a := range []string{"nm0000102", "nm1001213"} {
		out, err := s.AddRelationship(ctx, a, "nm7001453")
		require.NoError(t, err)
		require.Equal(t, graphstore.LinkCreated, out)
	}

	f := bacon.NewFinder(s, "nm0000102")
	res, err := f.Find(ctx, "nm1001213")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Number)
	assert.Equal(t, []string{"nm0000102", "nm1001213"}, res.Path.Actors())
}

func TestFind_NumberIsSymmetricWithReversedReference(t *testing.T) {
	s := graph(t, map[string][]string{
		kevin: {"ttM1"},
		"nmB": {"ttM1", "ttM2"},
		"nmC": {"ttM2"},
	})
	fromKevin, err := bacon.NewFinder(s, kevin).Find(context.Background(), "nmC")
	require.NoError(t, err)
	fromC, err := bacon.NewFinder(s, "nmC").Find(context.Background(), kevin)
	require.NoError(t, err)
	assert.Equal(t, fromKevin.Number, fromC.Number)
}

// countingStore records the largest adjacency batch it was asked for.
type countingStore struct {
	graphstore.Store
	maxBatch atomic.Int64
	calls    atomic.Int64
}

func (s *countingStore) note(n int) {
	s.calls.Add(1)
	for {
		cur := s.maxBatch.Load()
		if int64(n) <= cur || s.maxBatch.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

func (s *countingStore) MoviesOf(ctx context.Context, ids []string) (map[string][]string, error) {
	s.note(len(ids))
	return s.Store.MoviesOf(ctx, ids)
}

func (s *countingStore) ActorsIn(ctx context.Context, ids []string) (map[string][]string, error) {
	s.note(len(ids))
	return s.Store.ActorsIn(ctx, ids)
}

func TestFind_Batching(t *testing.T) {
	// kevin and four co-stars share one movie; each co-star has a second
	// movie with the target.
	casts := map[string][]string{kevin: {"tt0"}, "nmT": {}}
	for _, id := range []string{"nm1", "nm2", "nm3", "nm4"} {
		casts[id] = []string{"tt0", "tt" + id}
		casts["nmT"] = append(casts["nmT"], "tt"+id)
	}
	cs := &countingStore{Store: graph(t, casts)}
	f := bacon.NewFinder(cs, kevin, bacon.WithBatchSize(2))

	res, err := f.Find(context.Background(), "nmT")
	require.NoError(t, err)
	assert.Equal(t, bacon.Found, res.Outcome)
	assert.Equal(t, 2, res.Number)
	assert.LessOrEqual(t, cs.maxBatch.Load(), int64(2))
	assert.Greater(t, cs.calls.Load(), int64(3))
}

type failingStore struct {
	graphstore.Store
	err error
}

func (s *failingStore) ActorsIn(context.Context, []string) (map[string][]string, error) {
	return nil, s.err
}

func TestFind_StoreErrorPropagates(t *testing.T) {
	boom := graphstore.Fail("fake", "actors_in", errors.New("connection reset"))
	s := &failingStore{Store: graph(t, map[string][]string{kevin: {"tt1"}, "nmA": {"tt1"}}), err: boom}
	f := bacon.NewFinder(s, kevin)

	res, err := f.Find(context.Background(), "nmA")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, graphstore.IsStoreError(err))
}

// gatedStore blocks GetActor until release is closed or ctx ends.
type gatedStore struct {
	graphstore.Store
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int64
	once    sync.Once
}

func newGatedStore(inner graphstore.Store) *gatedStore {
	return &gatedStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedStore) GetActor(ctx context.Context, id string) (*graphstore.Actor, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, graphstore.Fail("gated", "get_actor", ctx.Err())
	}
	return s.Store.GetActor(ctx, id)
}

func TestFind_ConcurrentCallsShareSearch(t *testing.T) {
	gs := newGatedStore(graph(t, map[string][]string{kevin: {"tt1"}, "nmA": {"tt1"}}))
	f := bacon.NewFinder(gs, kevin)

	var wg sync.WaitGroup
	results := make([]*bacon.Result, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.Find(context.Background(), "nmA")
			assert.NoError(t, err)
			results[i] = res
		}()
	}

	<-gs.entered
	time.Sleep(50 * time.Millisecond)
	close(gs.release)
	wg.Wait()

	// The first caller's search plus one search shared by the three that
	// arrived while it was running.
	assert.Equal(t, int64(2), gs.calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 1, r.Number)
	}
}

func TestFind_CallerCancelDoesNotAbortSharedSearch(t *testing.T) {
	gs := newGatedStore(graph(t, map[string][]string{kevin: {"tt1"}, "nmA": {"tt1"}}))
	f := bacon.NewFinder(gs, kevin)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Find(ctx, "nmA")
		done <- err
	}()

	<-gs.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The abandoned search keeps running; a second caller queues behind it.
	second := make(chan *bacon.Result, 1)
	go func() {
		res, err := f.Find(context.Background(), "nmA")
		assert.NoError(t, err)
		second <- res
	}()
	time.Sleep(20 * time.Millisecond)
	close(gs.release)

	res := <-second
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Number)
	assert.Equal(t, int64(2), gs.calls.Load())
}

// castGate holds the first ActorsIn answer back until release is closed, so a
// write can land after a search has read a cast but before it finishes.
type castGate struct {
	graphstore.Store
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *castGate) ActorsIn(ctx context.Context, ids []string) (map[string][]string, error) {
	out, err := s.Store.ActorsIn(ctx, ids)
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.read)
		<-s.release
	}
	return out, err
}

func TestFind_SeesWritesCompletedBeforeCall(t *testing.T) {
	s := graph(t, map[string][]string{kevin: {"tt1"}, "nmA": nil})
	gate := &castGate{Store: s, read: make(chan struct{}), release: make(chan struct{})}
	f := bacon.NewFinder(gate, kevin)
	ctx := context.Background()

	stale := make(chan *bacon.Result, 1)
	go func() {
		res, err := f.Find(ctx, "nmA")
		assert.NoError(t, err)
		stale <- res
	}()
	<-gate.read

	outcome, err := s.AddRelationship(ctx, "nmA", "tt1")
	require.NoError(t, err)
	require.True(t, outcome.Created())

	fresh := make(chan *bacon.Result, 1)
	go func() {
		res, err := f.Find(ctx, "nmA")
		assert.NoError(t, err)
		fresh <- res
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate.release)

	// The search that read the cast before the edge existed may miss it.
	assert.Equal(t, bacon.NoPath, (<-stale).Outcome)

	res := <-fresh
	require.NotNil(t, res)
	assert.Equal(t, bacon.Found, res.Outcome)
	assert.Equal(t, 1, res.Number)
}

func TestFind_IdleAfterSearches(t *testing.T) {
	f := bacon.NewFinder(graph(t, map[string][]string{kevin: {"tt1"}, "nmA": {"tt1"}}), kevin)
	for range 3 {
		res, err := f.Find(context.Background(), "nmA")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Number)
	}
}

func TestFind_Timeout(t *testing.T) {
	gs := newGatedStore(graph(t, map[string][]string{"nmA": nil}))
	f := bacon.NewFinder(gs, kevin, bacon.WithTimeout(20*time.Millisecond))

	_, err := f.Find(context.Background(), "nmA")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFind_RecordsVisited(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := bacon.NewFinder(graph(t, map[string][]string{kevin: {"tt1"}, "nmA": {"tt1"}}), kevin,
		bacon.WithMetrics(bacon.NewMetrics(reg)))

	_, err := f.Find(context.Background(), "nmA")
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "bacon_search_frontier_nodes" {
			found = true
			assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "found", bacon.Found.String())
	assert.Equal(t, "actor_not_found", bacon.ActorNotFound.String())
	assert.Equal(t, "no_path", bacon.NoPath.String())
}
