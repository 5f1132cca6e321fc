package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finpilot/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// latest status message and data age on the right.
func RenderStatusBar(width int, message, dataAge string, refreshing, autoRefresh bool) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	msgStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := hintStyle.Render(" [a]ck  [r]ecompute  [?]help  [q]uit")

	var right []string
	if message != "" {
		right = append(right, msgStyle.Render(message))
	}
	switch {
	case refreshing:
		right = append(right, dimStyle.Render("refreshing…"))
	case dataAge != "":
		age := "data " + dataAge
		if autoRefresh {
			age += " ↻"
		}
		right = append(right, dimStyle.Render(age))
	}
	rightStr := strings.Join(right, dimStyle.Render("  ")) + barStyle.Render(" ")

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(rightStr), 0)
	return left + barStyle.Render(strings.Repeat(" ", padding)) + rightStr
}
