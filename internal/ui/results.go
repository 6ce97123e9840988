package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dictdeck/dictdeck/internal/resultwindow"
	"github.com/dictdeck/dictdeck/internal/searchipc"
)

// ResultList renders a virtual slice of the result window. Only the rows on
// screen are ever materialized; scrolling past the cache triggers page loads
// through the window.
type ResultList struct {
	win    *resultwindow.Window
	cursor int64 // absolute result index
	offset int64 // first visible result index
	width  int
	height int
}

// NewResultList creates a result list over win.
func NewResultList(win *resultwindow.Window) *ResultList {
	return &ResultList{win: win}
}

// SetSize sets the viewport dimensions in cells.
func (r *ResultList) SetSize(width, height int) {
	r.width = width
	r.height = height
	r.clampView()
}

// Total returns the current result count.
func (r *ResultList) Total() int64 {
	return r.win.Session().TotalCount
}

// Cursor returns the absolute index of the selected result.
func (r *ResultList) Cursor() int64 {
	return r.cursor
}

// Selected returns the selected key item when it is cached.
func (r *ResultList) Selected() (searchipc.KeyItem, bool) {
	item, ok := r.win.Item(r.cursor)
	return item, ok
}

// Reset moves the view to the session's anchor index after a new search.
func (r *ResultList) Reset() {
	sess := r.win.Session()
	r.cursor = 0
	if sess.CurrentIndex > 0 {
		r.cursor = sess.CurrentIndex
	}
	r.offset = r.cursor - int64(r.height)/2
	r.clampView()
}

// MoveUp moves the selection up by n rows.
func (r *ResultList) MoveUp(n int64) {
	r.cursor -= n
	r.clampView()
}

// MoveDown moves the selection down by n rows.
func (r *ResultList) MoveDown(n int64) {
	r.cursor += n
	r.clampView()
}

// PageUp and PageDown move by one viewport.
func (r *ResultList) PageUp()   { r.MoveUp(int64(r.height)) }
func (r *ResultList) PageDown() { r.MoveDown(int64(r.height)) }

// Home and End jump to the first and last result.
func (r *ResultList) Home() {
	r.cursor = 0
	r.clampView()
}

func (r *ResultList) End() {
	r.cursor = r.Total() - 1
	r.clampView()
}

func (r *ResultList) clampView() {
	total := r.Total()
	if total <= 0 {
		r.cursor, r.offset = 0, 0
		return
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
	if r.cursor >= total {
		r.cursor = total - 1
	}
	h := int64(r.height)
	if h <= 0 {
		h = 1
	}
	if r.cursor < r.offset {
		r.offset = r.cursor
	}
	if r.cursor >= r.offset+h {
		r.offset = r.cursor - h + 1
	}
	if r.offset < 0 {
		r.offset = 0
	}
}

// VisibleRange returns the inclusive index range currently on screen.
func (r *ResultList) VisibleRange() (int64, int64) {
	total := r.Total()
	if total <= 0 {
		return 0, -1
	}
	end := r.offset + int64(r.height) - 1
	if end >= total {
		end = total - 1
	}
	return r.offset, end
}

// LoadVisible fetches any pages covering the on-screen rows that are not
// cached yet, plus one page of overscan on each side so single-row scrolling
// does not hit a placeholder. Blocks until the fetches settle, so call it
// from a tea.Cmd.
func (r *ResultList) LoadVisible(ctx context.Context) error {
	start, end := r.VisibleRange()
	if end < start {
		return nil
	}
	overscan := r.win.PageSize()
	start -= overscan
	if start < 0 {
		start = 0
	}
	if end += overscan; end >= r.Total() {
		end = r.Total() - 1
	}
	return r.win.LoadPages(ctx, start, end)
}

// View renders the visible rows. Uncached rows render as placeholders and
// fill in when their page arrives.
func (r *ResultList) View() string {
	total := r.Total()
	if total <= 0 {
		return ResultPendingStyle.Render("no results")
	}

	var b strings.Builder
	start, end := r.VisibleRange()
	for i := start; i <= end; i++ {
		item, ok := r.win.Item(i)

		var line string
		style := ResultItemStyle
		switch {
		case !ok:
			line = "…"
			style = ResultPendingStyle
		case item.EntryCount > 1:
			line = fmt.Sprintf("%s (%d)", item.Keyword, item.EntryCount)
		default:
			line = item.Keyword
		}
		if i == r.cursor {
			style = ResultSelectedStyle
		}
		if r.width > 2 {
			line = runewidth.Truncate(line, r.width-2, "…")
		}

		b.WriteString(style.Render(line))
		if i < end {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// StatusLine summarizes the selection position, e.g. "121/300".
func (r *ResultList) StatusLine() string {
	total := r.Total()
	if total <= 0 {
		return ""
	}
	return ResultCountStyle.Render(fmt.Sprintf("%d/%d", r.cursor+1, total))
}
