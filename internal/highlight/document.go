// Package highlight runs keyword search-and-mark passes over a single
// dictionary entry's HTML content. Each loaded entry gets one Document; the
// document flattens the entry body to styled text lines, records every
// case-insensitive substring match in document order, and tracks at most one
// "active" match (the cursor) for cross-entry navigation.
package highlight

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SegmentKind classifies a rendered text run.
type SegmentKind int

const (
	SegPlain SegmentKind = iota
	SegMatch
	SegActive
)

// Segment is a run of one line sharing a single style.
type Segment struct {
	Text string
	Kind SegmentKind
}

// Span locates one match inside the flattened document.
// Start/End are byte offsets into the line; a match never crosses a line
// boundary because matching never crosses element boundaries.
type Span struct {
	Line  int
	Start int
	End   int
}

// Document is one entry's highlightable text content.
// Safe for concurrent use; the coordinator broadcasts highlight passes from
// parallel goroutines while the UI reads segments.
type Document struct {
	mu      sync.Mutex
	lines   []string
	keyword string
	matches []Span
	cursor  int

	scrollPending bool
	scrollLine    int
}

// NewDocument flattens the entry HTML into text lines. Script and style
// content is dropped; block-level elements and <br> break lines. A parse
// failure yields an empty document rather than an error: an entry without a
// renderable body simply has zero matches.
func NewDocument(src string) *Document {
	d := &Document{cursor: -1}
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return d
	}

	var line strings.Builder
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			d.lines = append(d.lines, s)
		}
		line.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head:
				return
			case atom.Br:
				flush()
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if line.Len() > 0 {
					line.WriteByte(' ')
				}
				line.WriteString(text)
			}
		}
		block := n.Type == html.ElementNode && isBlock(n.DataAtom)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()
	return d
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Table, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Dt, atom.Dd, atom.Dl, atom.Blockquote, atom.Pre, atom.Hr,
		atom.Section, atom.Article, atom.Header, atom.Footer:
		return true
	}
	return false
}

// HighlightAll replaces any existing marks with a fresh pass for keyword and
// returns the match count. Old marks are fully dropped before the new pass;
// marks never accumulate across passes. When at least one match is found the
// cursor lands on match 0 without requesting a scroll; the coordinator
// decides which entry's match becomes the globally active one.
func (d *Document) HighlightAll(keyword string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.matches = nil
	d.cursor = -1
	d.scrollPending = false
	d.keyword = keyword

	kw := []rune(strings.TrimSpace(keyword))
	if len(kw) == 0 || len(d.lines) == 0 {
		return 0
	}

	// Spans are byte offsets into the original-case line, so the match scan
	// folds rune by rune instead of lowering the line first: lowering can
	// change byte lengths and skew every offset after the first such rune.
	for lineNo, line := range d.lines {
		for start := 0; start < len(line); {
			end, ok := matchFoldAt(line, start, kw)
			if ok {
				d.matches = append(d.matches, Span{Line: lineNo, Start: start, End: end})
				start = end
				continue
			}
			_, size := utf8.DecodeRuneInString(line[start:])
			start += size
		}
	}

	if len(d.matches) > 0 {
		d.cursor = 0
	}
	return len(d.matches)
}

// matchFoldAt reports whether kw matches line at byte offset pos under
// Unicode case folding, returning the end offset of the match in line.
func matchFoldAt(line string, pos int, kw []rune) (int, bool) {
	i := pos
	for _, kr := range kw {
		if i >= len(line) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		if !runeEqualFold(r, kr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// runeEqualFold walks the simple fold orbit the way strings.EqualFold does.
func runeEqualFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// MatchCount returns the number of matches from the last highlight pass.
func (d *Document) MatchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.matches)
}

// Cursor returns the active match index, or -1 when no match is active.
func (d *Document) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// SetCursor activates the match at pos. The previously active match is
// always cleared first, even when pos is out of range; an out-of-range pos
// leaves no active match and returns false. With scroll set, the match's
// line is recorded as a pending scroll target for the renderer.
func (d *Document) SetCursor(pos int, scroll bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cursor = -1
	if pos < 0 || pos >= len(d.matches) {
		return false
	}
	d.cursor = pos
	if scroll {
		d.scrollPending = true
		d.scrollLine = d.matches[pos].Line
	}
	return true
}

// ClearCursor deactivates the active match, if any.
func (d *Document) ClearCursor() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = -1
	d.scrollPending = false
}

// TakeScrollRequest returns the line to scroll into view, once per request.
func (d *Document) TakeScrollRequest() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.scrollPending {
		return 0, false
	}
	d.scrollPending = false
	return d.scrollLine, true
}

// LineCount returns the number of flattened text lines.
func (d *Document) LineCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lines)
}

// CursorLine returns the line holding the active match, or -1.
func (d *Document) CursorLine() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursor < 0 {
		return -1
	}
	return d.matches[d.cursor].Line
}

// Segments splits one line into styled runs reflecting the current marks.
func (d *Document) Segments(line int) []Segment {
	d.mu.Lock()
	defer d.mu.Unlock()

	if line < 0 || line >= len(d.lines) {
		return nil
	}
	text := d.lines[line]

	var segs []Segment
	pos := 0
	for i, m := range d.matches {
		if m.Line != line {
			continue
		}
		if m.Start > pos {
			segs = append(segs, Segment{Text: text[pos:m.Start], Kind: SegPlain})
		}
		kind := SegMatch
		if i == d.cursor {
			kind = SegActive
		}
		segs = append(segs, Segment{Text: text[m.Start:m.End], Kind: kind})
		pos = m.End
	}
	if pos < len(text) {
		segs = append(segs, Segment{Text: text[pos:], Kind: SegPlain})
	}
	return segs
}
