package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

// PickerItem is one row in the history/favorites overlay.
type PickerItem struct {
	Keyword     string
	ProfileName string
	Detail      string // timestamp or other trailing text
}

// Picker is the history/favorites overlay: a text input fuzzy-filtering a
// fixed item list.
type Picker struct {
	title    string
	input    textinput.Model
	items    []PickerItem
	filtered []int // indexes into items
	cursor   int
	width    int
	height   int
	visible  bool
}

// NewPicker creates a hidden picker overlay.
func NewPicker(title string) *Picker {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 100
	ti.Width = 40

	return &Picker{
		title: title,
		input: ti,
	}
}

// SetTitle changes the overlay heading.
func (p *Picker) SetTitle(title string) {
	p.title = title
}

// SetItems replaces the item list and re-applies the current filter.
func (p *Picker) SetItems(items []PickerItem) {
	p.items = items
	p.applyFilter()
}

// SetSize sets the overlay dimensions.
func (p *Picker) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Show opens the overlay with a cleared filter.
func (p *Picker) Show() {
	p.visible = true
	p.input.SetValue("")
	p.input.Focus()
	p.applyFilter()
}

// Hide closes the overlay.
func (p *Picker) Hide() {
	p.visible = false
	p.input.Blur()
}

// Visible reports whether the overlay is open.
func (p *Picker) Visible() bool {
	return p.visible
}

// Selected returns the item under the cursor.
func (p *Picker) Selected() (PickerItem, bool) {
	if p.cursor < 0 || p.cursor >= len(p.filtered) {
		return PickerItem{}, false
	}
	return p.items[p.filtered[p.cursor]], true
}

// Update handles key input while the overlay is open.
func (p *Picker) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
		}
		return nil
	case "down", "ctrl+n":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
		}
		return nil
	}

	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.applyFilter()
	}
	return cmd
}

type pickerSource []PickerItem

func (s pickerSource) String(i int) string { return s[i].Keyword }
func (s pickerSource) Len() int            { return len(s) }

func (p *Picker) applyFilter() {
	query := strings.TrimSpace(p.input.Value())
	p.cursor = 0
	if query == "" {
		p.filtered = make([]int, len(p.items))
		for i := range p.items {
			p.filtered[i] = i
		}
		return
	}

	matches := fuzzy.FindFrom(query, pickerSource(p.items))
	p.filtered = make([]int, len(matches))
	for i, m := range matches {
		p.filtered[i] = m.Index
	}
}

// FilteredLen returns the number of items passing the filter.
func (p *Picker) FilteredLen() int {
	return len(p.filtered)
}

// View renders the overlay.
func (p *Picker) View() string {
	var b strings.Builder
	b.WriteString(OverlayTitleStyle.Render(p.title))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")

	maxRows := p.height - 5
	if maxRows < 1 {
		maxRows = 10
	}
	for i, idx := range p.filtered {
		if i >= maxRows {
			b.WriteString(ResultCountStyle.Render(fmt.Sprintf("… %d more", len(p.filtered)-maxRows)))
			break
		}
		item := p.items[idx]
		line := item.Keyword
		if item.ProfileName != "" {
			line += "  " + item.ProfileName
		}
		if item.Detail != "" {
			line += "  " + item.Detail
		}
		if p.width > 6 {
			line = runewidth.Truncate(line, p.width-6, "…")
		}
		style := ResultItemStyle
		if i == p.cursor {
			style = ResultSelectedStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	if len(p.filtered) == 0 {
		b.WriteString(ResultPendingStyle.Render("no matches"))
	}

	return OverlayStyle.Render(b.String())
}
