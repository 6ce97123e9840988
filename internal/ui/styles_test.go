package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitThemeSwitchesPalette(t *testing.T) {
	InitTheme("dark")
	assert.Equal(t, ThemeDark, CurrentTheme())
	darkText := ColorText

	InitTheme("light")
	assert.Equal(t, ThemeLight, CurrentTheme())
	assert.NotEqual(t, darkText, ColorText)

	InitTheme("dark")
	assert.Equal(t, darkText, ColorText)
}

func TestInitThemeRebuildsStyles(t *testing.T) {
	InitTheme("dark")
	darkSelected := ResultSelectedStyle.GetBackground()

	InitTheme("light")
	assert.NotEqual(t, darkSelected, ResultSelectedStyle.GetBackground())

	InitTheme("dark")
}
