package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

var currentTheme Theme = ThemeDark

// Dark Theme - Tokyo Night
var darkColors = struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Cyan, Green, Yellow, Red   lipgloss.Color
}{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Cyan, Green, Yellow, Red   lipgloss.Color
}{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
}

// Active color variables (set by InitTheme)
var (
	ColorBg      lipgloss.Color
	ColorSurface lipgloss.Color
	ColorBorder  lipgloss.Color
	ColorText    lipgloss.Color
	ColorTextDim lipgloss.Color
	ColorAccent  lipgloss.Color
	ColorCyan    lipgloss.Color
	ColorGreen   lipgloss.Color
	ColorYellow  lipgloss.Color
	ColorRed     lipgloss.Color
)

// Styles rebuilt by InitTheme so a live theme switch restyles everything.
var (
	SearchBoxStyle      lipgloss.Style
	ResultItemStyle     lipgloss.Style
	ResultSelectedStyle lipgloss.Style
	ResultPendingStyle  lipgloss.Style
	ResultCountStyle    lipgloss.Style
	TabStyle            lipgloss.Style
	TabActiveStyle      lipgloss.Style
	EntryTextStyle      lipgloss.Style
	MatchStyle          lipgloss.Style
	ActiveMatchStyle    lipgloss.Style
	StatusBarStyle      lipgloss.Style
	StatusKeyStyle      lipgloss.Style
	OverlayStyle        lipgloss.Style
	OverlayTitleStyle   lipgloss.Style
	FavoriteMarkStyle   lipgloss.Style
)

// themeMu protects the global color/style variables during live theme
// switches.
var themeMu sync.RWMutex

// InitTheme sets the active color palette. "system" or anything unknown
// falls back to the terminal background.
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()

	switch theme {
	case "light":
		currentTheme = ThemeLight
	case "dark":
		currentTheme = ThemeDark
	default:
		if termenv.HasDarkBackground() {
			currentTheme = ThemeDark
		} else {
			currentTheme = ThemeLight
		}
	}

	c := darkColors
	if currentTheme == ThemeLight {
		c = lightColors
	}
	ColorBg = c.Bg
	ColorSurface = c.Surface
	ColorBorder = c.Border
	ColorText = c.Text
	ColorTextDim = c.TextDim
	ColorAccent = c.Accent
	ColorCyan = c.Cyan
	ColorGreen = c.Green
	ColorYellow = c.Yellow
	ColorRed = c.Red

	rebuildStyles()
}

// CurrentTheme returns the active theme.
func CurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

func rebuildStyles() {
	SearchBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1)

	ResultItemStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		Padding(0, 1)

	ResultSelectedStyle = lipgloss.NewStyle().
		Background(ColorAccent).
		Foreground(ColorBg).
		Padding(0, 1)

	ResultPendingStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Padding(0, 1)

	ResultCountStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim)

	TabStyle = lipgloss.NewStyle().
		Foreground(ColorTextDim).
		Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Underline(true).
		Padding(0, 1)

	EntryTextStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	MatchStyle = lipgloss.NewStyle().
		Background(ColorYellow).
		Foreground(ColorBg)

	ActiveMatchStyle = lipgloss.NewStyle().
		Background(ColorGreen).
		Foreground(ColorBg).
		Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
		Background(ColorSurface).
		Foreground(ColorTextDim).
		Padding(0, 1)

	StatusKeyStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	OverlayStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(1, 2)

	OverlayTitleStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)

	FavoriteMarkStyle = lipgloss.NewStyle().
		Foreground(ColorYellow)
}

func init() {
	// Sensible palette before main calls InitTheme with the configured value.
	InitTheme("dark")
}
