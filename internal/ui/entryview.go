package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dictdeck/dictdeck/internal/entry"
	"github.com/dictdeck/dictdeck/internal/highlight"
	"github.com/dictdeck/dictdeck/internal/matchnav"
)

// EntryView renders the entry tabs for the selected result, one tab per
// dictionary profile, with match highlighting. All documents of a tab are
// stacked in order, separated by a blank line, so every frame the match
// coordinator navigates is on screen when scrolled to.
type EntryView struct {
	tabs      *entry.TabSet
	activeTab int
	scroll    int // first visible stacked line of the active tab
	width     int
	height    int
}

// NewEntryView creates an empty entry view.
func NewEntryView() *EntryView {
	return &EntryView{}
}

// SetSize sets the viewport dimensions in cells.
func (v *EntryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampScroll()
}

// SetTabs replaces the displayed tab set.
func (v *EntryView) SetTabs(tabs *entry.TabSet) {
	v.tabs = tabs
	v.activeTab = 0
	v.scroll = 0
}

// Clear drops the displayed entry.
func (v *EntryView) Clear() {
	v.tabs = nil
	v.activeTab = 0
	v.scroll = 0
}

// HasContent reports whether an entry is loaded.
func (v *EntryView) HasContent() bool {
	return v.tabs != nil && len(v.tabs.Tabs) > 0
}

// NextTab and PrevTab cycle through dictionary tabs.
func (v *EntryView) NextTab() {
	if !v.HasContent() {
		return
	}
	v.activeTab = (v.activeTab + 1) % len(v.tabs.Tabs)
	v.scroll = 0
}

func (v *EntryView) PrevTab() {
	if !v.HasContent() {
		return
	}
	v.activeTab = (v.activeTab - 1 + len(v.tabs.Tabs)) % len(v.tabs.Tabs)
	v.scroll = 0
}

// ScrollUp and ScrollDown scroll the active tab's stacked text.
func (v *EntryView) ScrollUp(n int) {
	v.scroll -= n
	v.clampScroll()
}

func (v *EntryView) ScrollDown(n int) {
	v.scroll += n
	v.clampScroll()
}

func (v *EntryView) clampScroll() {
	_, total := v.activeLayout()
	max := total - v.textHeight()
	if max < 0 {
		max = 0
	}
	if v.scroll > max {
		v.scroll = max
	}
	if v.scroll < 0 {
		v.scroll = 0
	}
}

func (v *EntryView) textHeight() int {
	h := v.height - 1 // tab bar
	if h < 1 {
		h = 1
	}
	return h
}

func tabDocs(tab entry.Tab) []*highlight.Document {
	var docs []*highlight.Document
	for _, e := range tab.Entries {
		if e.Doc != nil {
			docs = append(docs, e.Doc)
		}
	}
	return docs
}

// docOffsets returns the stacked start line of each document plus the total
// stacked line count. One blank separator line sits between documents.
func docOffsets(docs []*highlight.Document) ([]int, int) {
	offsets := make([]int, len(docs))
	total := 0
	for i, doc := range docs {
		if i > 0 {
			total++
		}
		offsets[i] = total
		total += doc.LineCount()
	}
	return offsets, total
}

func (v *EntryView) activeLayout() ([]*highlight.Document, int) {
	if !v.HasContent() {
		return nil, 0
	}
	docs := tabDocs(v.tabs.Tabs[v.activeTab])
	_, total := docOffsets(docs)
	return docs, total
}

// SyncScroll consumes pending scroll requests left by the match
// coordinator: it switches to the tab owning the request and centers the
// requested line of the owning document within the stacked view.
func (v *EntryView) SyncScroll() {
	if !v.HasContent() {
		return
	}
	for ti, tab := range v.tabs.Tabs {
		docs := tabDocs(tab)
		offsets, _ := docOffsets(docs)
		for di, doc := range docs {
			line, ok := doc.TakeScrollRequest()
			if !ok {
				continue
			}
			v.activeTab = ti
			v.scroll = offsets[di] + line - v.textHeight()/2
			v.clampScroll()
			return
		}
	}
}

// ActiveFrameKey returns the frame key of the active tab's first entry.
func (v *EntryView) ActiveFrameKey() (matchnav.FrameKey, bool) {
	if !v.HasContent() {
		return matchnav.FrameKey{}, false
	}
	tab := v.tabs.Tabs[v.activeTab]
	if len(tab.Entries) == 0 {
		return matchnav.FrameKey{}, false
	}
	ref := tab.Entries[0].Ref
	return matchnav.FrameKey{ProfileID: ref.ProfileID, EntryNo: ref.EntryNo}, true
}

// View renders the tab bar and the active tab's stacked entry text.
func (v *EntryView) View() string {
	if !v.HasContent() {
		return EntryTextStyle.Render("")
	}

	var b strings.Builder
	b.WriteString(v.renderTabBar())
	b.WriteString("\n")

	docs, total := v.activeLayout()
	if total == 0 {
		return b.String()
	}
	offsets, _ := docOffsets(docs)

	last := v.scroll + v.textHeight()
	if last > total {
		last = total
	}
	for line := v.scroll; line < last; line++ {
		b.WriteString(v.renderStackedLine(docs, offsets, line))
		if line < last-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderStackedLine maps a stacked line back to its document; separator
// lines between documents render empty.
func (v *EntryView) renderStackedLine(docs []*highlight.Document, offsets []int, line int) string {
	for i := len(docs) - 1; i >= 0; i-- {
		if line < offsets[i] {
			continue
		}
		local := line - offsets[i]
		if local >= docs[i].LineCount() {
			return "" // separator
		}
		return v.renderLine(docs[i], local)
	}
	return ""
}

func (v *EntryView) renderTabBar() string {
	var parts []string
	for i, tab := range v.tabs.Tabs {
		label := tab.Title
		if n := len(tab.Entries); n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		matches := 0
		for _, doc := range tabDocs(tab) {
			matches += doc.MatchCount()
		}
		if matches > 0 {
			label = fmt.Sprintf("%s [%d]", label, matches)
		}
		style := TabStyle
		if i == v.activeTab {
			style = TabActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	return strings.Join(parts, " ")
}

func (v *EntryView) renderLine(doc *highlight.Document, line int) string {
	var b strings.Builder
	width := 0
	for _, seg := range doc.Segments(line) {
		text := seg.Text
		if v.width > 0 {
			remaining := v.width - width
			if remaining <= 0 {
				break
			}
			text = runewidth.Truncate(text, remaining, "")
			width += runewidth.StringWidth(text)
		}
		switch seg.Kind {
		case highlight.SegActive:
			b.WriteString(ActiveMatchStyle.Render(text))
		case highlight.SegMatch:
			b.WriteString(MatchStyle.Render(text))
		default:
			b.WriteString(EntryTextStyle.Render(text))
		}
	}
	return b.String()
}
