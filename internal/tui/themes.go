package tui

import (
	"slices"

	"github.com/charmbracelet/huh"
)

// ValidThemes lists the names accepted by the theme config key, the
// default first.
var ValidThemes = []string{"splitter", "base", "base16", "catppuccin", "charm", "dracula"}

var themeBuilders = map[string]func() *huh.Theme{
	"splitter":   splitterTheme,
	"base":       huh.ThemeBase,
	"base16":     huh.ThemeBase16,
	"catppuccin": huh.ThemeCatppuccin,
	"charm":      huh.ThemeCharm,
	"dracula":    huh.ThemeDracula,
}

// IsValidTheme reports whether name is one of ValidThemes.
func IsValidTheme(name string) bool {
	return slices.Contains(ValidThemes, name)
}

// GetTheme builds the named theme, or returns nil for unknown names.
func GetTheme(name string) *huh.Theme {
	if build, ok := themeBuilders[name]; ok {
		return build()
	}
	return nil
}
