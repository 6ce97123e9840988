package resultwindow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dictdeck/dictdeck/internal/searchipc"
)

// stubSearcher lets each test script the engine's behavior.
type stubSearcher struct {
	mu         sync.Mutex
	total      int64
	start      int64
	pageCalls  map[int64]int // startIndex -> fetch count
	failPages  map[int64]bool
	searchHook func(query string) (searchipc.SearchOrigin, error)
	fetchGate  chan struct{} // when set, fetches block until closed
}

func newStubSearcher(start, total int64) *stubSearcher {
	return &stubSearcher{
		start:     start,
		total:     total,
		pageCalls: make(map[int64]int),
		failPages: make(map[int64]bool),
	}
}

func (s *stubSearcher) SearchIncremental(_ context.Context, query string) (searchipc.SearchOrigin, error) {
	if s.searchHook != nil {
		return s.searchHook(query)
	}
	return searchipc.SearchOrigin{StartIndex: s.start, TotalCount: s.total}, nil
}

func (s *stubSearcher) FulltextSearch(ctx context.Context, query string) (searchipc.SearchOrigin, error) {
	return s.SearchIncremental(ctx, query)
}

func (s *stubSearcher) ResultKeyList(ctx context.Context, startIndex int64, maxCount int) ([]searchipc.KeyItem, error) {
	s.mu.Lock()
	s.pageCalls[startIndex]++
	gate := s.fetchGate
	fail := s.failPages[startIndex]
	total := s.total
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("stub: transport error")
	}

	var items []searchipc.KeyItem
	for i := startIndex; i < startIndex+int64(maxCount) && i < total; i++ {
		items = append(items, searchipc.KeyItem{
			Keyword:    fmt.Sprintf("word-%04d", i),
			EntryCount: 1,
		})
	}
	return items, nil
}

func (s *stubSearcher) GroupIndexes(context.Context, int64) ([]searchipc.EntryGroup, error) {
	return nil, nil
}

func (s *stubSearcher) EntryContent(context.Context, searchipc.EntryRef) (string, error) {
	return "", nil
}

func (s *stubSearcher) fetchCount(startIndex int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCalls[startIndex]
}

func TestPerformSearchConcreteScenario(t *testing.T) {
	// Query resolves to start 120 in a 300-row sequence: page 2 is loaded,
	// its neighbors are not.
	stub := newStubSearcher(120, 300)
	w := New(stub, Options{})

	require.NoError(t, w.PerformSearch(context.Background(), "cat"))

	sess := w.Session()
	assert.Equal(t, int64(300), sess.TotalCount)
	assert.Equal(t, int64(120), sess.CurrentIndex)
	assert.Equal(t, "cat", sess.Term)

	item, ok := w.Item(120)
	require.True(t, ok, "start row must be loaded after PerformSearch")
	assert.Equal(t, "word-0120", item.Keyword)

	_, ok = w.Item(119)
	assert.False(t, ok, "row 119 is on page 2's neighbor and must be absent")

	require.NoError(t, w.LoadPages(context.Background(), 100, 149))
	_, ok = w.Item(119)
	assert.True(t, ok, "row 119 loads with its page")
}

func TestPerformSearchEmptyQuery(t *testing.T) {
	stub := newStubSearcher(0, 300)
	stub.searchHook = func(string) (searchipc.SearchOrigin, error) {
		t.Fatal("empty query must not reach the engine")
		return searchipc.SearchOrigin{}, nil
	}
	w := New(stub, Options{})

	for _, q := range []string{"", "   ", "\t"} {
		require.NoError(t, w.PerformSearch(context.Background(), q))
		sess := w.Session()
		assert.Equal(t, int64(0), sess.TotalCount)
		assert.Equal(t, int64(-1), sess.CurrentIndex)
	}
}

func TestPerformSearchNoResultsSentinel(t *testing.T) {
	stub := newStubSearcher(0, 300)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "cat"))
	require.True(t, w.IsLoaded(0))

	stub.searchHook = func(string) (searchipc.SearchOrigin, error) {
		return searchipc.SearchOrigin{StartIndex: searchipc.NoResults, TotalCount: 0}, nil
	}
	require.NoError(t, w.PerformSearch(context.Background(), "zzz"))

	sess := w.Session()
	assert.Equal(t, "zzz", sess.Term)
	assert.Equal(t, int64(0), sess.TotalCount)
	assert.Equal(t, int64(-1), sess.CurrentIndex)
	assert.False(t, w.IsLoaded(0), "no-results search must leave a cleared cache")
	assert.Equal(t, 1, stub.fetchCount(0), "no page load for the no-results sentinel")
}

func TestPaginationCoverage(t *testing.T) {
	const total = 230 // short final page on purpose
	stub := newStubSearcher(0, total)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))
	require.NoError(t, w.LoadPages(context.Background(), 0, total-1))

	for i := int64(0); i < total; i++ {
		item, ok := w.Item(i)
		require.True(t, ok, "index %d must be loaded", i)
		assert.Equal(t, fmt.Sprintf("word-%04d", i), item.Keyword)
	}
	_, ok := w.Item(total)
	assert.False(t, ok, "index past total count is absent")
}

func TestCacheBoundAndLRUEviction(t *testing.T) {
	stub := newStubSearcher(0, 10_000)
	w := New(stub, Options{MaxCachedPages: 3})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))

	// Fill pages 0..3; capacity 3 evicts page 0 (least recently used).
	require.NoError(t, w.LoadPages(context.Background(), 0, 49))    // page 0
	require.NoError(t, w.LoadPages(context.Background(), 50, 99))   // page 1
	require.NoError(t, w.LoadPages(context.Background(), 100, 149)) // page 2
	assert.True(t, w.IsLoaded(0))

	// Touch page 0 so page 1 becomes the eviction candidate.
	_, ok := w.Item(0)
	require.True(t, ok)

	require.NoError(t, w.LoadPages(context.Background(), 150, 199)) // page 3
	assert.True(t, w.IsLoaded(0), "recently read page must survive")
	assert.False(t, w.IsLoaded(50), "least recently used page must be evicted")
	assert.True(t, w.IsLoaded(100))
	assert.True(t, w.IsLoaded(150))
}

func TestLoadPagesDedup(t *testing.T) {
	stub := newStubSearcher(0, 1_000)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))
	base := stub.fetchCount(0)

	gate := make(chan struct{})
	stub.mu.Lock()
	stub.fetchGate = gate
	stub.mu.Unlock()

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.LoadPages(context.Background(), 50, 149)
		}()
	}

	// Let all three calls claim pages before any fetch resolves.
	close(gate)
	wg.Wait()

	assert.Equal(t, base, stub.fetchCount(0), "cached page must not refetch")
	assert.Equal(t, 1, stub.fetchCount(50), "overlapping loads must fetch page 1 once")
	assert.Equal(t, 1, stub.fetchCount(100), "overlapping loads must fetch page 2 once")
}

func TestFetchFailureReleasesLoadingSet(t *testing.T) {
	stub := newStubSearcher(0, 1_000)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))

	stub.mu.Lock()
	stub.failPages[50] = true
	stub.mu.Unlock()

	err := w.LoadPages(context.Background(), 50, 99)
	require.Error(t, err)
	assert.False(t, w.IsLoaded(50))

	// The failed page must be retryable, not stuck in the loading set.
	stub.mu.Lock()
	stub.failPages[50] = false
	stub.mu.Unlock()

	require.NoError(t, w.LoadPages(context.Background(), 50, 99))
	assert.True(t, w.IsLoaded(50))
	assert.Equal(t, 2, stub.fetchCount(50))
}

func TestStaleSearchDiscarded(t *testing.T) {
	// A slow first search must not leak its session or pages into the
	// session committed by a faster second search.
	stub := newStubSearcher(0, 300)
	w := New(stub, Options{})

	firstResolved := make(chan struct{})
	release := make(chan struct{})
	stub.searchHook = func(query string) (searchipc.SearchOrigin, error) {
		if query == "slow" {
			close(firstResolved)
			<-release
			return searchipc.SearchOrigin{StartIndex: 200, TotalCount: 999}, nil
		}
		return searchipc.SearchOrigin{StartIndex: 10, TotalCount: 300}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- w.PerformSearch(context.Background(), "slow")
	}()
	<-firstResolved

	require.NoError(t, w.PerformSearch(context.Background(), "fast"))
	close(release)
	require.NoError(t, <-done)

	sess := w.Session()
	assert.Equal(t, "fast", sess.Term, "last writer's session fields win")
	assert.Equal(t, int64(300), sess.TotalCount)

	// The stale search's page (page 4, rows 200..249) must not have landed.
	assert.False(t, w.IsLoaded(200), "superseded search's page load must be discarded")
	assert.True(t, w.IsLoaded(10))
}

func TestVersionBumpsPerPageArrival(t *testing.T) {
	stub := newStubSearcher(0, 1_000)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))

	before := w.Version()
	require.NoError(t, w.LoadPages(context.Background(), 50, 149)) // pages 1 and 2
	assert.Equal(t, before+2, w.Version(), "one bump per page arrival")

	// Fully cached range: no observable mutation, no bump.
	require.NoError(t, w.LoadPages(context.Background(), 50, 149))
	assert.Equal(t, before+2, w.Version())
}

func TestLoadRange(t *testing.T) {
	stub := newStubSearcher(0, 120)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "a"))

	items, err := w.LoadRange(context.Background(), 40, 60)
	require.NoError(t, err)
	require.Len(t, items, 21)
	assert.Equal(t, "word-0040", items[0].Keyword)
	assert.Equal(t, "word-0060", items[20].Keyword)

	// Past the engine's real data: absent after load is a hard error.
	_, err = w.LoadRange(context.Background(), 110, 130)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEntryMissing))
}

func TestSetModeResetsSession(t *testing.T) {
	stub := newStubSearcher(0, 300)
	w := New(stub, Options{})
	require.NoError(t, w.PerformSearch(context.Background(), "cat"))
	require.True(t, w.IsLoaded(0))

	w.SetMode(ModeFulltext)
	sess := w.Session()
	assert.Equal(t, ModeFulltext, sess.Mode)
	assert.Equal(t, int64(0), sess.TotalCount)
	assert.False(t, w.IsLoaded(0), "mode switch clears the cache")

	// Same mode again is a no-op.
	v := w.Version()
	w.SetMode(ModeFulltext)
	assert.Equal(t, v, w.Version())
}

func TestFakeEngineRoundTrip(t *testing.T) {
	entries := []searchipc.FakeEntry{
		{Keyword: "cat", HTML: "<p>feline</p>"},
		{Keyword: "carp", HTML: "<p>fish</p>"},
		{Keyword: "dog", HTML: "<p>canine</p>"},
	}
	w := New(searchipc.NewFakeEngine(1, "demo", entries), Options{})

	require.NoError(t, w.PerformSearch(context.Background(), "ca"))
	sess := w.Session()
	assert.Equal(t, int64(3), sess.TotalCount)

	item, ok := w.Item(sess.CurrentIndex)
	require.True(t, ok)
	assert.Equal(t, "carp", item.Keyword, "prefix search lands on the first match in sorted order")
}
