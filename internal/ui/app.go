// Package ui is the terminal frontend: a search pane over the result
// window on the left, dictionary entry tabs with match highlighting on the
// right.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dictdeck/dictdeck/internal/entry"
	"github.com/dictdeck/dictdeck/internal/lexstore"
	"github.com/dictdeck/dictdeck/internal/library"
	"github.com/dictdeck/dictdeck/internal/logging"
	"github.com/dictdeck/dictdeck/internal/matchnav"
	"github.com/dictdeck/dictdeck/internal/resultwindow"
)

var uiLog = logging.ForComponent(logging.CompUI)

type focusArea int

const (
	focusSearch focusArea = iota
	focusFind
)

type pickerMode int

const (
	pickerHistory pickerMode = iota
	pickerFavorites
)

// Messages produced by async commands.
type (
	searchDoneMsg struct {
		term string
		err  error
	}
	pagesLoadedMsg struct{ err error }
	entryLoadedMsg struct {
		index int64
		tabs  *entry.TabSet
		err   error
	}
	highlightDoneMsg  struct{ err error }
	matchMovedMsg     struct{ moved bool }
	themeChangedMsg   struct{ dark bool }
	libraryChangedMsg struct{}
)

// Model is the root bubbletea model.
type Model struct {
	ctx context.Context

	win    *resultwindow.Window
	loader *entry.Loader
	coord  *matchnav.Coordinator
	store  *lexstore.Store
	lib    *library.Library

	searchInput textinput.Model
	findInput   textinput.Model
	results     *ResultList
	entryView   *EntryView
	picker      *Picker
	pickerMode  pickerMode
	favSort     lexstore.SortBy

	themeWatcher *ThemeWatcher
	libChanges   <-chan struct{}

	focus      focusArea
	findTerm   string
	isFavorite bool
	status     string
	width      int
	height     int
}

// Options carries the wired-up components for NewModel.
type Options struct {
	Window      *resultwindow.Window
	Loader      *entry.Loader
	Coordinator *matchnav.Coordinator
	Store       *lexstore.Store
	Library     *library.Library

	// LibraryChanges delivers debounced library rescan signals, may be nil.
	LibraryChanges <-chan struct{}
}

// NewModel builds the root model.
func NewModel(ctx context.Context, opts Options) *Model {
	search := textinput.New()
	search.Placeholder = "look up a word..."
	search.CharLimit = 200
	search.Focus()

	find := textinput.New()
	find.Placeholder = "find in entry..."
	find.CharLimit = 100

	return &Model{
		ctx:         ctx,
		win:         opts.Window,
		loader:      opts.Loader,
		coord:       opts.Coordinator,
		store:       opts.Store,
		lib:         opts.Library,
		searchInput: search,
		findInput:   find,
		results:     NewResultList(opts.Window),
		entryView:   NewEntryView(),
		picker:      NewPicker("History"),
		libChanges:  opts.LibraryChanges,
	}
}

// Init starts the theme watcher and library change listener.
func (m *Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	m.themeWatcher = NewThemeWatcher(m.ctx)
	if m.themeWatcher != nil {
		cmds = append(cmds, m.waitForThemeChange())
	}
	if m.libChanges != nil {
		cmds = append(cmds, m.waitForLibraryChange())
	}
	return tea.Batch(cmds...)
}

// Close releases watcher resources. Call after the program exits.
func (m *Model) Close() {
	if m.themeWatcher != nil {
		m.themeWatcher.Close()
	}
}

// --- commands ---

func (m *Model) searchCmd(term string) tea.Cmd {
	return func() tea.Msg {
		err := m.win.PerformSearch(m.ctx, term)
		return searchDoneMsg{term: term, err: err}
	}
}

func (m *Model) loadVisibleCmd() tea.Cmd {
	return func() tea.Msg {
		return pagesLoadedMsg{err: m.results.LoadVisible(m.ctx)}
	}
}

func (m *Model) openEntryCmd(index int64) tea.Cmd {
	return func() tea.Msg {
		tabs, err := m.loader.Load(m.ctx, index)
		return entryLoadedMsg{index: index, tabs: tabs, err: err}
	}
}

func (m *Model) highlightCmd(term string) tea.Cmd {
	return func() tea.Msg {
		return highlightDoneMsg{err: m.coord.SetHighlight(m.ctx, term)}
	}
}

func (m *Model) waitForThemeChange() tea.Cmd {
	return func() tea.Msg {
		isDark, ok := <-m.themeWatcher.ChangeChannel()
		if !ok {
			return nil
		}
		return themeChangedMsg{dark: isDark}
	}
}

func (m *Model) waitForLibraryChange() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.libChanges; !ok {
			return nil
		}
		return libraryChangedMsg{}
	}
}

// --- update ---

// Update routes messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, m.loadVisibleCmd()

	case tea.KeyMsg:
		return m.updateKey(msg)

	case searchDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.status = ""
		m.results.Reset()
		m.entryView.Clear()
		var cmds []tea.Cmd
		cmds = append(cmds, m.loadVisibleCmd())
		if m.results.Total() > 0 {
			cmds = append(cmds, m.openEntryCmd(m.results.Cursor()))
		}
		return m, tea.Batch(cmds...)

	case pagesLoadedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case entryLoadedMsg:
		return m.updateEntryLoaded(msg)

	case highlightDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.entryView.SyncScroll()
		return m, nil

	case matchMovedMsg:
		if msg.moved {
			m.entryView.SyncScroll()
		} else if m.findTerm != "" {
			m.status = "no more matches"
		}
		return m, nil

	case themeChangedMsg:
		if msg.dark {
			InitTheme("dark")
		} else {
			InitTheme("light")
		}
		return m, m.waitForThemeChange()

	case libraryChangedMsg:
		if err := m.lib.Rescan(); err != nil {
			m.status = err.Error()
		} else {
			m.loader.SetProfileNames(m.lib.Titles())
			m.status = fmt.Sprintf("library rescanned: %d dictionaries", len(m.lib.Profiles()))
		}
		return m, m.waitForLibraryChange()
	}

	return m, nil
}

func (m *Model) updateEntryLoaded(msg entryLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = msg.err.Error()
		return m, nil
	}
	// ignore a slow load for a row the user already moved past
	if msg.index != m.results.Cursor() {
		return m, nil
	}
	m.entryView.SetTabs(msg.tabs)
	m.recordVisit(msg.tabs)
	m.refreshFavoriteMark(msg.tabs)
	if m.findTerm != "" {
		return m, m.highlightCmd(m.findTerm)
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.picker.Visible() {
		return m.updatePickerKey(msg)
	}

	switch msg.String() {
	case "up":
		return m.moveCursor(func() { m.results.MoveUp(1) })
	case "down":
		return m.moveCursor(func() { m.results.MoveDown(1) })
	case "pgup":
		return m.moveCursor(m.results.PageUp)
	case "pgdown":
		return m.moveCursor(m.results.PageDown)
	case "home":
		return m.moveCursor(m.results.Home)
	case "end":
		return m.moveCursor(m.results.End)

	case "tab":
		m.entryView.NextTab()
		return m, nil
	case "shift+tab":
		m.entryView.PrevTab()
		return m, nil
	case "ctrl+u":
		m.entryView.ScrollUp(m.entryView.textHeight() / 2)
		return m, nil
	case "ctrl+j":
		m.entryView.ScrollDown(m.entryView.textHeight() / 2)
		return m, nil

	case "ctrl+f":
		m.focus = focusFind
		m.findInput.Focus()
		m.searchInput.Blur()
		return m, nil
	case "f3", "ctrl+g":
		return m, m.matchMoveCmd(true)
	case "shift+f3", "ctrl+t":
		return m, m.matchMoveCmd(false)

	case "ctrl+o":
		return m.toggleMode()
	case "ctrl+d":
		return m.toggleFavorite()
	case "ctrl+r":
		return m.openPicker(pickerHistory)
	case "ctrl+b":
		return m.openPicker(pickerFavorites)

	case "esc":
		if m.focus == focusFind {
			m.focus = focusSearch
			m.findInput.Blur()
			m.findInput.SetValue("")
			m.searchInput.Focus()
			m.findTerm = ""
			return m, m.highlightCmd("")
		}
		return m, nil
	case "enter":
		if m.focus == focusFind {
			m.findTerm = strings.TrimSpace(m.findInput.Value())
			return m, m.highlightCmd(m.findTerm)
		}
		return m, nil
	}

	// remaining keys edit whichever input has focus
	if m.focus == focusFind {
		var cmd tea.Cmd
		m.findInput, cmd = m.findInput.Update(msg)
		return m, cmd
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if term := m.searchInput.Value(); term != before {
		return m, tea.Batch(cmd, m.searchCmd(term))
	}
	return m, cmd
}

func (m *Model) moveCursor(move func()) (tea.Model, tea.Cmd) {
	before := m.results.Cursor()
	move()
	if m.results.Cursor() == before {
		return m, nil
	}
	return m, tea.Batch(m.loadVisibleCmd(), m.openEntryCmd(m.results.Cursor()))
}

func (m *Model) matchMoveCmd(forward bool) tea.Cmd {
	return func() tea.Msg {
		if forward {
			return matchMovedMsg{moved: m.coord.ScrollToNext()}
		}
		return matchMovedMsg{moved: m.coord.ScrollToPrev()}
	}
}

func (m *Model) toggleMode() (tea.Model, tea.Cmd) {
	mode := resultwindow.ModeIndex
	if m.win.Session().Mode == resultwindow.ModeIndex {
		mode = resultwindow.ModeFulltext
	}
	m.win.SetMode(mode)
	term := m.searchInput.Value()
	if term == "" {
		return m, nil
	}
	return m, m.searchCmd(term)
}

func (m *Model) toggleFavorite() (tea.Model, tea.Cmd) {
	item, ok := m.results.Selected()
	if !ok || m.store == nil {
		return m, nil
	}
	profileID, profileName := m.activeProfile()
	on, err := m.store.ToggleFavorite(lexstore.FavoriteEntry{
		Keyword:     item.Keyword,
		ProfileID:   profileID,
		ProfileName: profileName,
	})
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.isFavorite = on
	if on {
		m.status = "added to favorites"
	} else {
		m.status = "removed from favorites"
	}
	return m, nil
}

func (m *Model) activeProfile() (int64, string) {
	if key, ok := m.entryView.ActiveFrameKey(); ok {
		if p, found := m.lib.ProfileByID(key.ProfileID); found {
			return p.ID, p.Title
		}
		return key.ProfileID, ""
	}
	return 0, ""
}

func (m *Model) recordVisit(tabs *entry.TabSet) {
	if m.store == nil || tabs == nil || len(tabs.Tabs) == 0 {
		return
	}
	first := tabs.Tabs[0]
	if len(first.Entries) == 0 {
		return
	}
	_, err := m.store.AddHistory(lexstore.HistoryEntry{
		Keyword:     first.Entries[0].Ref.Keyword,
		ProfileID:   first.ProfileID,
		ProfileName: first.Title,
	})
	if err != nil {
		uiLog.Warn("history record failed", "error", err)
	}
}

func (m *Model) refreshFavoriteMark(tabs *entry.TabSet) {
	m.isFavorite = false
	if m.store == nil || tabs == nil || len(tabs.Tabs) == 0 || len(tabs.Tabs[0].Entries) == 0 {
		return
	}
	first := tabs.Tabs[0]
	fav, err := m.store.IsFavorited(first.Entries[0].Ref.Keyword, first.ProfileID)
	if err == nil {
		m.isFavorite = fav
	}
}

// --- pickers ---

func (m *Model) openPicker(mode pickerMode) (tea.Model, tea.Cmd) {
	if m.store == nil {
		return m, nil
	}
	m.pickerMode = mode
	switch mode {
	case pickerHistory:
		m.picker.SetTitle("History  (enter: look up, ctrl+x: remove)")
		entries, err := m.store.History(0)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		items := make([]PickerItem, len(entries))
		for i, e := range entries {
			items[i] = PickerItem{
				Keyword:     e.Keyword,
				ProfileName: e.ProfileName,
				Detail:      e.VisitedAt.Format(time.DateTime),
			}
		}
		m.picker.SetItems(items)
	case pickerFavorites:
		m.picker.SetTitle("Favorites  (enter: look up, ctrl+s: sort, ctrl+x: remove)")
		if err := m.reloadFavorites(); err != nil {
			m.status = err.Error()
			return m, nil
		}
	}
	m.picker.Show()
	m.searchInput.Blur()
	m.findInput.Blur()
	return m, nil
}

func (m *Model) reloadFavorites() error {
	entries, err := m.store.Favorites(lexstore.FavoritesQuery{SortBy: m.favSort})
	if err != nil {
		return err
	}
	items := make([]PickerItem, len(entries))
	for i, e := range entries {
		items[i] = PickerItem{
			Keyword:     e.Keyword,
			ProfileName: e.ProfileName,
			Detail:      e.AddedAt.Format(time.DateTime),
		}
	}
	m.picker.SetItems(items)
	return nil
}

func (m *Model) updatePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePicker()
		return m, nil
	case "enter":
		item, ok := m.picker.Selected()
		m.closePicker()
		if !ok {
			return m, nil
		}
		m.searchInput.SetValue(item.Keyword)
		m.searchInput.CursorEnd()
		return m, m.searchCmd(item.Keyword)
	case "ctrl+s":
		if m.pickerMode == pickerFavorites {
			if m.favSort == lexstore.SortByTime {
				m.favSort = lexstore.SortByName
			} else {
				m.favSort = lexstore.SortByTime
			}
			if err := m.reloadFavorites(); err != nil {
				m.status = err.Error()
			}
		}
		return m, nil
	case "ctrl+x":
		return m.removePicked()
	}
	return m, m.picker.Update(msg)
}

func (m *Model) closePicker() {
	m.picker.Hide()
	if m.focus == focusFind {
		m.findInput.Focus()
	} else {
		m.searchInput.Focus()
	}
}

func (m *Model) removePicked() (tea.Model, tea.Cmd) {
	item, ok := m.picker.Selected()
	if !ok {
		return m, nil
	}
	switch m.pickerMode {
	case pickerHistory:
		entries, err := m.store.History(0)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		for _, e := range entries {
			if e.Keyword == item.Keyword && e.ProfileName == item.ProfileName {
				if err := m.store.RemoveHistory(e.ID); err != nil {
					m.status = err.Error()
				}
				break
			}
		}
		return m.openPicker(pickerHistory)
	case pickerFavorites:
		entries, err := m.store.Favorites(lexstore.FavoritesQuery{SortBy: m.favSort})
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		for _, e := range entries {
			if e.Keyword == item.Keyword {
				if err := m.store.RemoveFavorite(e.Keyword, e.ProfileID); err != nil {
					m.status = err.Error()
				}
				break
			}
		}
		return m.openPicker(pickerFavorites)
	}
	return m, nil
}

// --- view ---

func (m *Model) layout() {
	listWidth := m.listWidth()
	listHeight := m.height - 6
	if listHeight < 1 {
		listHeight = 1
	}
	m.results.SetSize(listWidth, listHeight)
	m.entryView.SetSize(m.width-listWidth-1, m.height-2)
	m.picker.SetSize(m.width-8, m.height-4)
	m.searchInput.Width = listWidth - 4
}

func (m *Model) listWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	if w > 48 {
		w = 48
	}
	return w
}

// View renders the whole screen.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	themeMu.RLock()
	defer themeMu.RUnlock()

	if m.picker.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	search := SearchBoxStyle.Width(m.listWidth() - 2).Render(m.searchInput.View())
	left := lipgloss.JoinVertical(lipgloss.Left, search, m.results.View(), m.results.StatusLine())

	right := m.entryView.View()
	if m.focus == focusFind {
		findBar := SearchBoxStyle.Render(m.findInput.View())
		right = lipgloss.JoinVertical(lipgloss.Left, findBar, right)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m *Model) statusBar() string {
	mode := "index"
	if m.win.Session().Mode == resultwindow.ModeFulltext {
		mode = "fulltext"
	}
	parts := []string{StatusKeyStyle.Render("mode:") + mode}
	if m.isFavorite {
		parts = append(parts, FavoriteMarkStyle.Render("★"))
	}
	if m.findTerm != "" {
		next, prev := " ", " "
		if m.coord.HasNext() {
			next = "›"
		}
		if m.coord.HasPrev() {
			prev = "‹"
		}
		parts = append(parts, StatusKeyStyle.Render("find:")+m.findTerm+" "+prev+next)
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, ResultCountStyle.Render("^F find  ^O mode  ^D fav  ^R history  ^B favorites"))
	return StatusBarStyle.Width(m.width).Render(strings.Join(parts, "  "))
}
