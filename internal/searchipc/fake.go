package searchipc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FakeEntry seeds one dictionary entry in a FakeEngine.
type FakeEntry struct {
	Keyword string
	HTML    string
}

// FakeEngine is an in-memory Searcher over a fixed word list. It mirrors the
// native engine's result-sequence semantics closely enough for offline demo
// mode and tests: incremental search positions a cursor in the full sorted
// key sequence, fulltext search builds a filtered sequence.
type FakeEngine struct {
	ProfileID   int64
	ProfileName string

	mu       sync.Mutex
	keys     []KeyItem // sorted by keyword, the incremental result sequence
	html     map[string]string
	fulltext []KeyItem // result sequence of the last fulltext search
	inFT     bool
}

// NewFakeEngine builds a fake engine from the given entries. Duplicate
// keywords collapse into one key with a higher entry count.
func NewFakeEngine(profileID int64, profileName string, entries []FakeEntry) *FakeEngine {
	counts := make(map[string]int)
	html := make(map[string]string)
	for _, e := range entries {
		counts[e.Keyword]++
		html[e.Keyword] = e.HTML
	}

	keys := make([]KeyItem, 0, len(counts))
	for kw, n := range counts {
		keys = append(keys, KeyItem{Keyword: kw, EntryCount: n})
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i].Keyword) < strings.ToLower(keys[j].Keyword)
	})

	return &FakeEngine{
		ProfileID:   profileID,
		ProfileName: profileName,
		keys:        keys,
		html:        html,
	}
}

// SearchIncremental implements Searcher. The returned origin points at the
// first key with the query as a case-insensitive prefix; the total count is
// the length of the whole key sequence.
func (f *FakeEngine) SearchIncremental(_ context.Context, query string) (SearchOrigin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFT = false

	q := strings.ToLower(query)
	i := sort.Search(len(f.keys), func(i int) bool {
		return strings.ToLower(f.keys[i].Keyword) >= q
	})
	if i == len(f.keys) || !strings.HasPrefix(strings.ToLower(f.keys[i].Keyword), q) {
		return SearchOrigin{StartIndex: NoResults, TotalCount: 0}, nil
	}
	return SearchOrigin{StartIndex: int64(i), TotalCount: int64(len(f.keys))}, nil
}

// FulltextSearch implements Searcher. The result sequence is rebuilt from
// keys whose entry HTML contains the query, so it always starts at zero.
func (f *FakeEngine) FulltextSearch(_ context.Context, query string) (SearchOrigin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q := strings.ToLower(query)
	f.fulltext = f.fulltext[:0]
	for _, k := range f.keys {
		if strings.Contains(strings.ToLower(f.html[k.Keyword]), q) {
			f.fulltext = append(f.fulltext, k)
		}
	}
	f.inFT = true
	if len(f.fulltext) == 0 {
		return SearchOrigin{StartIndex: NoResults, TotalCount: 0}, nil
	}
	return SearchOrigin{StartIndex: 0, TotalCount: int64(len(f.fulltext))}, nil
}

// ResultKeyList implements Searcher.
func (f *FakeEngine) ResultKeyList(_ context.Context, startIndex int64, maxCount int) ([]KeyItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seq := f.keys
	if f.inFT {
		seq = f.fulltext
	}
	if startIndex < 0 || startIndex >= int64(len(seq)) {
		return nil, nil
	}
	end := startIndex + int64(maxCount)
	if end > int64(len(seq)) {
		end = int64(len(seq))
	}
	out := make([]KeyItem, end-startIndex)
	copy(out, seq[startIndex:end])
	return out, nil
}

// GroupIndexes implements Searcher. Every key resolves to a single group in
// the fake's one profile.
func (f *FakeEngine) GroupIndexes(_ context.Context, index int64) ([]EntryGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seq := f.keys
	if f.inFT {
		seq = f.fulltext
	}
	if index < 0 || index >= int64(len(seq)) {
		return nil, fmt.Errorf("searchipc: fake: index %d out of range", index)
	}
	k := seq[index]
	return []EntryGroup{{
		ProfileID:  f.ProfileID,
		PrimaryKey: k.Keyword,
		Entries: []EntryRef{{
			ProfileID: f.ProfileID,
			EntryNo:   index,
			Keyword:   k.Keyword,
		}},
	}}, nil
}

// EntryContent implements Searcher.
func (f *FakeEngine) EntryContent(_ context.Context, ref EntryRef) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	html, ok := f.html[ref.Keyword]
	if !ok {
		return "", fmt.Errorf("searchipc: fake: no entry for %q", ref.Keyword)
	}
	return html, nil
}
