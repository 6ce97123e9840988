// Package resultwindow presents a search's results as a single zero-indexed
// logical sequence backed by bounded memory. Pages are fetched on demand from
// the engine, cached with LRU eviction, and exposed through synchronous
// lookups cheap enough for a list renderer to call per visible row.
package resultwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dictdeck/dictdeck/internal/logging"
	"github.com/dictdeck/dictdeck/internal/searchipc"
)

var windowLog = logging.ForComponent(logging.CompWindow)

const (
	// DefaultPageSize is the fetch/cache granularity in rows.
	DefaultPageSize = 50

	// DefaultMaxCachedPages bounds the cache. Together with the page size
	// it covers a 1000-row window, comfortably more than any visible range
	// plus overscan.
	DefaultMaxCachedPages = 20

	// DefaultFetchTimeout bounds a single page fetch so a hung transport
	// can't pin a page number in the loading set forever.
	DefaultFetchTimeout = 10 * time.Second
)

// ErrEntryMissing reports an index that is still absent after its page load
// completed. It signals a count disagreement with the engine, not a row that
// is merely slow to arrive.
var ErrEntryMissing = errors.New("resultwindow: entry missing after load")

// Mode selects which engine search operation a query runs.
type Mode int

const (
	ModeIndex Mode = iota
	ModeFulltext
)

func (m Mode) String() string {
	if m == ModeFulltext {
		return "fulltext"
	}
	return "index"
}

// Session describes the search the window currently reflects. TotalCount and
// CurrentIndex are only meaningful for the term and mode that produced them.
type Session struct {
	Term         string
	Mode         Mode
	TotalCount   int64
	CurrentIndex int64 // -1 when there is no current row
}

// Options tunes a Window. Zero values select the defaults.
type Options struct {
	PageSize       int
	MaxCachedPages int
	FetchTimeout   time.Duration
}

// Window is the paginated result window. One instance lives for the whole
// process and survives UI rebuilds; it is reset by PerformSearch, never
// reconstructed per screen.
type Window struct {
	searcher     searchipc.Searcher
	pageSize     int64
	fetchTimeout time.Duration

	mu      sync.Mutex
	cache   *pageCache
	loading map[int64]struct{}
	session Session
	gen     uint64 // session generation; stale async results are discarded

	version atomic.Uint64
}

// New creates a Window over the given engine.
func New(searcher searchipc.Searcher, opts Options) *Window {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxCachedPages <= 0 {
		opts.MaxCachedPages = DefaultMaxCachedPages
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Window{
		searcher:     searcher,
		pageSize:     int64(opts.PageSize),
		fetchTimeout: opts.FetchTimeout,
		cache:        newPageCache(opts.MaxCachedPages),
		loading:      make(map[int64]struct{}),
		session:      Session{CurrentIndex: -1},
	}
}

// Session returns a snapshot of the current search session.
func (w *Window) Session() Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Version returns the cache version counter. It is bumped exactly once per
// page arrival and on session resets; consumers re-render when it changes.
func (w *Window) Version() uint64 {
	return w.version.Load()
}

// SetMode switches between index and fulltext search. Changing the mode
// invalidates the whole session: page numbering is per-search, and the same
// term means different things in different modes.
func (w *Window) SetMode(mode Mode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.Mode == mode {
		return
	}
	w.gen++
	w.resetLocked(Session{Mode: mode, CurrentIndex: -1})
}

// resetLocked clears the cache and loading set and installs a new session.
func (w *Window) resetLocked(s Session) {
	w.cache.clear()
	w.loading = make(map[int64]struct{})
	w.session = s
	w.version.Add(1)
}

// PerformSearch resolves a query to a new result sequence and loads the page
// containing its start index. An empty or whitespace-only query clears the
// session without contacting the engine.
//
// Concurrent calls race by design: each call claims a new session generation
// up front, and any older call's results are discarded when it tries to
// commit, so the last caller always wins regardless of engine latency.
func (w *Window) PerformSearch(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)

	w.mu.Lock()
	w.gen++
	gen := w.gen
	mode := w.session.Mode
	if query == "" {
		w.resetLocked(Session{Mode: mode, CurrentIndex: -1})
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	var origin searchipc.SearchOrigin
	var err error
	switch mode {
	case ModeFulltext:
		origin, err = w.searcher.FulltextSearch(ctx, query)
	default:
		origin, err = w.searcher.SearchIncremental(ctx, query)
	}
	if err != nil {
		return fmt.Errorf("resultwindow: search %q: %w", query, err)
	}

	w.mu.Lock()
	if w.gen != gen {
		// A newer search started while the engine was resolving this one.
		w.mu.Unlock()
		windowLog.Debug("discarding superseded search", "term", query)
		return nil
	}
	if origin.StartIndex == searchipc.NoResults {
		w.resetLocked(Session{Term: query, Mode: mode, CurrentIndex: -1})
		w.mu.Unlock()
		return nil
	}
	w.cache.clear()
	w.loading = make(map[int64]struct{})
	w.mu.Unlock()

	// Populate the page under the start index before the session becomes
	// visible, so the first row a consumer asks for is already there.
	if err := w.loadPages(ctx, gen, origin.StartIndex, origin.StartIndex); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		return nil
	}
	w.session = Session{
		Term:         query,
		Mode:         mode,
		TotalCount:   origin.TotalCount,
		CurrentIndex: origin.StartIndex,
	}
	w.version.Add(1)
	windowLog.Info("search committed",
		"term", query, "mode", mode.String(),
		"total", origin.TotalCount, "start", origin.StartIndex)
	return nil
}

// LoadPages ensures every page covering [startIndex, endIndex] is either
// cached, already being fetched, or fetched by this call. Selected pages are
// fetched concurrently with no ordering between them; each arrival bumps the
// version counter independently.
// PageSize returns the configured number of result keys per page.
func (w *Window) PageSize() int64 {
	return w.pageSize
}

func (w *Window) LoadPages(ctx context.Context, startIndex, endIndex int64) error {
	w.mu.Lock()
	gen := w.gen
	w.mu.Unlock()
	return w.loadPages(ctx, gen, startIndex, endIndex)
}

func (w *Window) loadPages(ctx context.Context, gen uint64, startIndex, endIndex int64) error {
	if endIndex < startIndex {
		startIndex, endIndex = endIndex, startIndex
	}
	if startIndex < 0 {
		startIndex = 0
	}

	firstPage := startIndex / w.pageSize
	lastPage := endIndex / w.pageSize

	// Claim the pages this call is responsible for. Cached pages and pages
	// another call is already fetching are skipped, so at most one fetch is
	// in flight per page number.
	w.mu.Lock()
	var claimed []int64
	for page := firstPage; page <= lastPage; page++ {
		if _, ok := w.cache.peek(page); ok {
			continue
		}
		if _, ok := w.loading[page]; ok {
			continue
		}
		w.loading[page] = struct{}{}
		claimed = append(claimed, page)
	}
	w.mu.Unlock()

	if len(claimed) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, page := range claimed {
		g.Go(func() error {
			err := w.fetchPage(ctx, gen, page)
			if err != nil {
				windowLog.Warn("page fetch failed", "page", page, "error", err)
			}
			return err
		})
	}
	return g.Wait()
}

// fetchPage fetches one page and commits it if the session generation is
// still current. The loading-set entry is released however the fetch settles,
// so a transient failure never leaves a page permanently unfetchable.
func (w *Window) fetchPage(ctx context.Context, gen uint64, page int64) error {
	defer func() {
		w.mu.Lock()
		delete(w.loading, page)
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	items, err := w.searcher.ResultKeyList(ctx, page*w.pageSize, int(w.pageSize))
	if err != nil {
		return fmt.Errorf("resultwindow: load page %d: %w", page, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		// The search that requested this page has been superseded.
		return nil
	}
	w.cache.put(page, items)
	w.version.Add(1)
	logging.Aggregate(logging.CompWindow, "page_loaded", slog.Int64("page", page))
	return nil
}

// Item returns the entry at index if its page is cached. Absence means "not
// loaded yet", never an error; fetching is LoadPages' job.
func (w *Window) Item(index int64) (searchipc.KeyItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= w.session.TotalCount {
		return searchipc.KeyItem{}, false
	}
	items, ok := w.cache.get(index / w.pageSize)
	if !ok {
		return searchipc.KeyItem{}, false
	}
	off := int(index % w.pageSize)
	if off >= len(items) {
		// Short final page; the engine returned fewer rows than the
		// total count promised for this page.
		return searchipc.KeyItem{}, false
	}
	return items[off], true
}

// IsLoaded reports whether the page covering index is cached. A page that is
// still loading does not count. Does not affect recency.
func (w *Window) IsLoaded(index int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 {
		return false
	}
	_, ok := w.cache.peek(index / w.pageSize)
	return ok
}

// LoadRange loads all pages covering [startIndex, endIndex] and returns the
// entries in order. An index still absent after loading is a hard error: it
// means the engine's total count disagrees with its page data.
func (w *Window) LoadRange(ctx context.Context, startIndex, endIndex int64) ([]searchipc.KeyItem, error) {
	if err := w.LoadPages(ctx, startIndex, endIndex); err != nil {
		return nil, err
	}
	items := make([]searchipc.KeyItem, 0, endIndex-startIndex+1)
	for i := startIndex; i <= endIndex; i++ {
		item, ok := w.Item(i)
		if !ok {
			return nil, fmt.Errorf("%w: index %d", ErrEntryMissing, i)
		}
		items = append(items, item)
	}
	return items, nil
}
