package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/swarmux/swarmux/internal/agent"
)

// Shared output styles for command results.
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// memberLabel renders a member name in its assigned palette color.
func memberLabel(name string, color agent.Color) string {
	if color == "" {
		return name
	}
	return color.Style().Render(name)
}

// activeMark renders an active/inactive indicator.
func activeMark(active bool) string {
	if active {
		return okStyle.Render("active")
	}
	return dimStyle.Render("inactive")
}
