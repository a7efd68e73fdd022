package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
	projectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Faint(true)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

// applyTheme swaps glyphs and drops colors for the mono theme.
func applyTheme(name string) {
	switch name {
	case "mono":
		boxChecked, boxUnchecked = "[x]", "[ ]"
		plain := lipgloss.NewStyle()
		successStyle, pendingStyle, accentStyle, projectStyle = plain, plain, plain, plain
		errorStyle = plain.Bold(true)
	case "neon":
		boxChecked, boxUnchecked = "◼", "◻"
		titleStyle = titleStyle.Foreground(lipgloss.Color("13"))
		accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	}
}
