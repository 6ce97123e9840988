// Package entry resolves a selected result row into renderable content: one
// tab per profile (dictionary source), each tab holding the profile's entries
// for that row as highlightable documents registered with the match
// coordinator in document order.
package entry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dictdeck/dictdeck/internal/highlight"
	"github.com/dictdeck/dictdeck/internal/logging"
	"github.com/dictdeck/dictdeck/internal/matchnav"
	"github.com/dictdeck/dictdeck/internal/searchipc"
)

var entryLog = logging.ForComponent(logging.CompEntry)

// Entry is one loaded dictionary entry.
type Entry struct {
	Ref searchipc.EntryRef
	Doc *highlight.Document
}

// Tab groups the entries one profile contributes to the selected row.
type Tab struct {
	ProfileID  int64
	Title      string
	PrimaryKey string
	Entries    []Entry
}

// TabSet is everything displayed for one selected result row.
type TabSet struct {
	Index int64
	Tabs  []Tab
}

// Frames returns the tab set's documents in document order, ready for the
// coordinator's registry.
func (ts *TabSet) Frames() []matchnav.Frame {
	var frames []matchnav.Frame
	for _, tab := range ts.Tabs {
		for _, e := range tab.Entries {
			frames = append(frames, matchnav.Frame{
				Key: matchnav.FrameKey{ProfileID: e.Ref.ProfileID, EntryNo: e.Ref.EntryNo},
				Doc: e.Doc,
			})
		}
	}
	return frames
}

// Loader builds tab sets from the engine.
type Loader struct {
	searcher searchipc.Searcher
	coord    *matchnav.Coordinator

	mu    sync.Mutex
	names map[int64]string
}

// NewLoader creates a loader that registers each loaded tab set's frames
// with coord.
func NewLoader(searcher searchipc.Searcher, coord *matchnav.Coordinator) *Loader {
	return &Loader{
		searcher: searcher,
		coord:    coord,
		names:    make(map[int64]string),
	}
}

// SetProfileNames installs the profile id → display name mapping used for
// tab titles. Unknown profiles fall back to a numbered title.
func (l *Loader) SetProfileNames(names map[int64]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = make(map[int64]string, len(names))
	for id, name := range names {
		l.names[id] = name
	}
}

func (l *Loader) profileTitle(id int64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name, ok := l.names[id]; ok {
		return name
	}
	return fmt.Sprintf("Profile %d", id)
}

// Load resolves the result row at index into a tab set. Entry content is
// fetched concurrently; tab and entry order follow the engine's group
// response. The coordinator's registry is rebuilt from the new frames, so
// highlight state from the previous row never leaks into this one.
func (l *Loader) Load(ctx context.Context, index int64) (*TabSet, error) {
	groups, err := l.searcher.GroupIndexes(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("entry: resolve row %d: %w", index, err)
	}

	ts := &TabSet{Index: index, Tabs: make([]Tab, len(groups))}
	g, ctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		ts.Tabs[i] = Tab{
			ProfileID:  group.ProfileID,
			Title:      l.profileTitle(group.ProfileID),
			PrimaryKey: group.PrimaryKey,
			Entries:    make([]Entry, len(group.Entries)),
		}
		for j, ref := range group.Entries {
			g.Go(func() error {
				content, err := l.searcher.EntryContent(ctx, ref)
				if err != nil {
					return fmt.Errorf("entry: content %d/%d: %w", ref.ProfileID, ref.EntryNo, err)
				}
				ts.Tabs[i].Entries[j] = Entry{Ref: ref, Doc: highlight.NewDocument(content)}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.coord.SetFrames(ts.Frames())
	entryLog.Debug("tab set loaded", "index", index, "tabs", len(ts.Tabs))
	return ts, nil
}
