package highlight

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const entryHTML = `
<html><head><style>p { color: red }</style></head><body>
<h1>Cat</h1>
<p>A <b>cat</b> is a small domesticated feline.</p>
<script>var cat = "not content";</script>
<p>Cats purr. A wildcat is not a house cat.</p>
</body></html>`

func TestHighlightAllFindsMatches(t *testing.T) {
	d := NewDocument(entryHTML)
	n := d.HighlightAll("cat")

	// h1 "Cat", body "cat", "Cats", "wildcat", "cat" — script/style excluded.
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, d.MatchCount())
	assert.Equal(t, 0, d.Cursor(), "first match becomes the cursor without scrolling")

	_, pending := d.TakeScrollRequest()
	assert.False(t, pending, "per-document pass must not request a scroll")
}

func TestHighlightAllCaseInsensitiveSubstring(t *testing.T) {
	d := NewDocument("<p>Wildcat CAT catalog</p>")
	assert.Equal(t, 3, d.HighlightAll("cat"))
}

func TestHighlightAllExcludesScriptAndStyle(t *testing.T) {
	d := NewDocument(`<style>.cat{}</style><script>cat()</script><p>dog</p>`)
	assert.Equal(t, 0, d.HighlightAll("cat"))
}

func TestHighlightAllReplacesOldMarks(t *testing.T) {
	d := NewDocument(entryHTML)
	require.Equal(t, 5, d.HighlightAll("cat"))
	assert.Equal(t, 1, d.HighlightAll("feline"), "marks must not accumulate across passes")
	assert.Equal(t, 1, d.MatchCount())
}

func TestHighlightAllEmptyDocument(t *testing.T) {
	d := NewDocument("")
	assert.Equal(t, 0, d.HighlightAll("cat"))
	assert.Equal(t, -1, d.Cursor())
}

func TestHighlightAllEmptyKeyword(t *testing.T) {
	d := NewDocument(entryHTML)
	assert.Equal(t, 0, d.HighlightAll(""))
	assert.Equal(t, 0, d.HighlightAll("   "))
}

func TestSetCursor(t *testing.T) {
	d := NewDocument(entryHTML)
	require.Equal(t, 5, d.HighlightAll("cat"))

	assert.True(t, d.SetCursor(3, true))
	assert.Equal(t, 3, d.Cursor())
	line, pending := d.TakeScrollRequest()
	assert.True(t, pending)
	assert.Equal(t, d.CursorLine(), line)

	// Consumed: a second take reports nothing.
	_, pending = d.TakeScrollRequest()
	assert.False(t, pending)

	// Out of range clears the cursor and reports failure.
	assert.False(t, d.SetCursor(5, true))
	assert.Equal(t, -1, d.Cursor())
	assert.False(t, d.SetCursor(-1, false))
}

func TestSegmentsStyling(t *testing.T) {
	d := NewDocument("<p>a cat sat on a cat mat</p>")
	require.Equal(t, 2, d.HighlightAll("cat"))
	require.True(t, d.SetCursor(1, false))

	segs := d.Segments(0)
	var active, match, plain int
	var text strings.Builder
	for _, s := range segs {
		text.WriteString(s.Text)
		switch s.Kind {
		case SegActive:
			active++
			assert.Equal(t, "cat", s.Text)
		case SegMatch:
			match++
			assert.Equal(t, "cat", s.Text)
		default:
			plain++
		}
	}
	assert.Equal(t, "a cat sat on a cat mat", text.String(), "segments must reassemble the line")
	assert.Equal(t, 1, active, "exactly one active segment")
	assert.Equal(t, 1, match)
	assert.GreaterOrEqual(t, plain, 2)
}

func TestMatchesDoNotCrossElementBoundaries(t *testing.T) {
	// "cat" split across two elements must not match.
	d := NewDocument("<p><span>ca</span><span>t</span></p>")
	assert.Equal(t, 0, d.HighlightAll("cat"))
}

func TestBlockElementsBreakLines(t *testing.T) {
	d := NewDocument("<p>first</p><p>second</p>line<br>after")
	assert.Equal(t, 4, d.LineCount())
}

func TestHighlightAllUnicodeOffsets(t *testing.T) {
	// "İ" is 2 bytes but its lowered form is longer; spans must still index
	// the original text cleanly.
	d := NewDocument("<p>İstanbul</p>")
	require.Equal(t, 1, d.HighlightAll("stanbul"))

	var text strings.Builder
	matched := ""
	for _, s := range d.Segments(0) {
		require.True(t, utf8.ValidString(s.Text), "segment %q must be valid UTF-8", s.Text)
		text.WriteString(s.Text)
		if s.Kind != SegPlain {
			matched = s.Text
		}
	}
	assert.Equal(t, "İstanbul", text.String())
	assert.Equal(t, "stanbul", matched)
}

func TestHighlightAllFoldedKeywordLongerThanText(t *testing.T) {
	// lowercase "ⱥ" (3 bytes) folds to "Ⱥ" (2 bytes) in the text; offsets
	// computed on a lowered copy would run past the line end.
	d := NewDocument("<p>word Ⱥx</p>")
	require.Equal(t, 1, d.HighlightAll("ⱥx"))

	var text strings.Builder
	matched := ""
	for _, s := range d.Segments(0) {
		require.True(t, utf8.ValidString(s.Text))
		text.WriteString(s.Text)
		if s.Kind != SegPlain {
			matched = s.Text
		}
	}
	assert.Equal(t, "word Ⱥx", text.String())
	assert.Equal(t, "Ⱥx", matched)
}

func TestHighlightAllFoldsBothDirections(t *testing.T) {
	d := NewDocument("<p>STRASSE köln ǅungla</p>")
	assert.Equal(t, 1, d.HighlightAll("strasse"))
	assert.Equal(t, 1, d.HighlightAll("KÖLN"))
	// titlecase ǅ sits on the same fold orbit as lowercase ǆ
	assert.Equal(t, 1, d.HighlightAll("ǆungla"))
}
