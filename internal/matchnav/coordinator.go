// Package matchnav coordinates keyword highlighting across the set of entry
// documents currently displayed, presenting them as one continuous match
// list. Each entry highlights independently and asynchronously; the
// coordinator joins the passes, owns the single globally active match, and
// moves it forward and backward across entry boundaries.
package matchnav

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dictdeck/dictdeck/internal/logging"
)

var matchLog = logging.ForComponent(logging.CompMatch)

// FrameKey identifies one displayed entry: which profile it came from and
// its entry number within that profile.
type FrameKey struct {
	ProfileID int64
	EntryNo   int64
}

// Highlightable is the capability every registered frame provides. All
// frames implement it uniformly; a frame that cannot highlight simply
// reports zero matches.
type Highlightable interface {
	// HighlightAll replaces existing marks with a pass for keyword and
	// returns the match count.
	HighlightAll(keyword string) int

	// MatchCount returns the match count of the last pass.
	MatchCount() int

	// Cursor returns the active match index, -1 if none.
	Cursor() int

	// SetCursor activates the match at pos, clearing the previous active
	// match first. Out of range: no active match, returns false.
	SetCursor(pos int, scroll bool) bool

	// ClearCursor deactivates the active match.
	ClearCursor()
}

// Frame pairs a key with its highlight surface.
type Frame struct {
	Key FrameKey
	Doc Highlightable
}

// Coordinator owns the frame registry for one displayed result. Frames are
// held in document order; the registry is rebuilt, never merged, when the
// displayed entry set changes.
type Coordinator struct {
	mu     sync.Mutex
	frames []Frame
	term   string
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{}
}

// SetFrames replaces the whole registry with a new document-ordered set.
// Frames carrying marks from an earlier broadcast keep them; frames added
// since then stay unhighlighted until the next SetHighlight.
func (c *Coordinator) SetFrames(frames []Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append([]Frame(nil), frames...)
}

// RemoveFrame drops one frame from the registry, tolerating removal while
// navigation is in progress. A removed frame simply stops participating.
func (c *Coordinator) RemoveFrame(key FrameKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.frames {
		if f.Key == key {
			c.frames = append(c.frames[:i], c.frames[i+1:]...)
			return
		}
	}
}

// FrameCount returns the number of registered frames.
func (c *Coordinator) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Term returns the term of the last highlight broadcast.
func (c *Coordinator) Term() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term
}

// SetHighlight broadcasts a highlight pass for term to every registered
// frame in parallel and waits for all of them. Only after every frame has
// finished does it pick the first frame in document order with at least one
// match and activate that frame's first match with scrolling; every other
// frame's cursor is cleared so exactly one match is active overall. The
// join is a hard barrier: match counts are unknown until each pass
// completes, so picking a winner earlier would be nondeterministic.
func (c *Coordinator) SetHighlight(ctx context.Context, term string) error {
	c.mu.Lock()
	frames := append([]Frame(nil), c.frames...)
	c.term = term
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := f.Doc.HighlightAll(term)
			matchLog.Debug("highlight pass done",
				"profile", f.Key.ProfileID, "entry", f.Key.EntryNo, "matches", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	activated := false
	for _, f := range c.frames {
		if !activated && f.Doc.MatchCount() > 0 {
			f.Doc.SetCursor(0, true)
			activated = true
			continue
		}
		f.Doc.ClearCursor()
	}
	return nil
}

// target describes where a navigation step would land.
type target struct {
	frame int
	pos   int
}

// planNext computes the next-match step without mutating anything.
// Navigation stays inside the active frame while it has further matches and
// crosses to the next frame with matches only at the boundary.
func (c *Coordinator) planNext() (target, bool) {
	active := c.activeLocked()
	if active < 0 {
		for i, f := range c.frames {
			if f.Doc.MatchCount() > 0 {
				return target{frame: i, pos: 0}, true
			}
		}
		return target{}, false
	}

	doc := c.frames[active].Doc
	if cur := doc.Cursor(); cur < doc.MatchCount()-1 {
		return target{frame: active, pos: cur + 1}, true
	}
	for i := active + 1; i < len(c.frames); i++ {
		if c.frames[i].Doc.MatchCount() > 0 {
			return target{frame: i, pos: 0}, true
		}
	}
	return target{}, false
}

// planPrev mirrors planNext in the other direction.
func (c *Coordinator) planPrev() (target, bool) {
	active := c.activeLocked()
	if active < 0 {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if n := c.frames[i].Doc.MatchCount(); n > 0 {
				return target{frame: i, pos: n - 1}, true
			}
		}
		return target{}, false
	}

	doc := c.frames[active].Doc
	if cur := doc.Cursor(); cur > 0 {
		return target{frame: active, pos: cur - 1}, true
	}
	for i := active - 1; i >= 0; i-- {
		if n := c.frames[i].Doc.MatchCount(); n > 0 {
			return target{frame: i, pos: n - 1}, true
		}
	}
	return target{}, false
}

// activeLocked returns the index of the frame holding the active match.
func (c *Coordinator) activeLocked() int {
	for i, f := range c.frames {
		if f.Doc.Cursor() >= 0 {
			return i
		}
	}
	return -1
}

// apply moves the cursor to t, clearing the previously active frame first
// when the move crosses frames so at most one match is ever active.
func (c *Coordinator) apply(t target) bool {
	if active := c.activeLocked(); active >= 0 && active != t.frame {
		c.frames[active].Doc.ClearCursor()
	}
	return c.frames[t.frame].Doc.SetCursor(t.pos, true)
}

// ScrollToNext advances the active match, crossing to the next frame with
// matches at the boundary. Returns false when there is nothing to advance
// to; the cursor is left untouched in that case.
func (c *Coordinator) ScrollToNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.planNext()
	if !ok {
		return false
	}
	return c.apply(t)
}

// ScrollToPrev moves the active match backward, mirroring ScrollToNext.
func (c *Coordinator) ScrollToPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.planPrev()
	if !ok {
		return false
	}
	return c.apply(t)
}

// HasNext reports whether ScrollToNext would succeed. It shares the planning
// logic with the mutating call so the answers can never diverge.
func (c *Coordinator) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.planNext()
	return ok
}

// HasPrev reports whether ScrollToPrev would succeed.
func (c *Coordinator) HasPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.planPrev()
	return ok
}
