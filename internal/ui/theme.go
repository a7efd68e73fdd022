package ui

import (
	"sort"
	"strings"
)

// Theme bundles palette, symbols and box borders for the plain renderer.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending string
	BoxUnchecked, BoxChecked                      string
	CornerTL, CornerTR, CornerBL, CornerBR        string
	H, V                                          string
	SymDone, SymUnchecked                         string

	// NoColor makes C a pass-through while the theme is active.
	NoColor bool
}

var themes = map[string]Theme{
	"classic": {
		Name:  "classic",
		Title: bold, Muted: fgGray, Accent: fgBlue,
		Success: fgGreen, Error: fgRed, Pending: fgYellow,
		BoxUnchecked: "☐", BoxChecked: "☑",
		CornerTL: "┌", CornerTR: "┐", CornerBL: "└", CornerBR: "┘",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
	},
	"neon": {
		Name:  "neon",
		Title: "\033[95m", Muted: fgGray, Accent: "\033[96m",
		Success: fgGreen, Error: fgRed, Pending: "\033[93m",
		BoxUnchecked: "◻", BoxChecked: "◼",
		CornerTL: "╭", CornerTR: "╮", CornerBL: "╰", CornerBR: "╯",
		H: "─", V: "│",
		SymDone: "✔", SymUnchecked: "•",
	},
	"mono": {
		Name:         "mono",
		BoxUnchecked: "[ ]", BoxChecked: "[x]",
		CornerTL: "+", CornerTR: "+", CornerBL: "+", CornerBR: "+",
		H: "-", V: "|",
		SymDone: "x", SymUnchecked: "-",
		NoColor: true,
	},
}

var current = themes["classic"]

// Themes lists the names SetTheme knows.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetTheme switches the active theme. Unknown names select classic.
func SetTheme(name string) {
	t, ok := themes[strings.ToLower(name)]
	if !ok {
		t = themes["classic"]
	}
	current = t
}

// Current is the active theme.
func Current() Theme { return current }
