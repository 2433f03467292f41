// Package util provides small shared helpers used across the codebase.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates a string to maxLen runes, appending "..." when it
// is cut. It counts runes, not visual columns, so it is unsuitable for styled
// terminal output; use TruncateANSI for that.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates a string to maxWidth visual columns, appending "..."
// when it is cut. ANSI escape sequences and wide characters are handled
// correctly, so styled strings keep their styling after truncation.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward the final width.
	return ansi.Truncate(s, maxWidth, "...")
}
