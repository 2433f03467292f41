package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string unchanged", "alice", 10, "alice"},
		{"exact length unchanged", "alice", 5, "alice"},
		{"long string truncated", "frontend-worker", 10, "fronten..."},
		{"tiny maxLen collapses to ellipsis", "alice", 3, "..."},
		{"zero maxLen collapses to ellipsis", "alice", 0, "..."},
		{"empty string unchanged", "", 10, ""},
		{"runes counted, not bytes", "日本語テスト", 5, "日本..."},
		{"mixed ascii and unicode", "team日本語lead", 9, "team日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	t.Run("plain string truncated to width", func(t *testing.T) {
		got := TruncateANSI("reviews incoming pull requests", 10)
		if got != "reviews..." {
			t.Errorf("got %q, want %q", got, "reviews...")
		}
	})

	t.Run("short string unchanged", func(t *testing.T) {
		if got := TruncateANSI("ready", 10); got != "ready" {
			t.Errorf("got %q, want %q", got, "ready")
		}
	})

	t.Run("tiny width collapses to ellipsis", func(t *testing.T) {
		if got := TruncateANSI("ready", 2); got != "..." {
			t.Errorf("got %q, want %q", got, "...")
		}
	})

	t.Run("styled string not modified when it fits", func(t *testing.T) {
		in := red.Render("ok")
		if got := TruncateANSI(in, 10); got != in {
			t.Error("styled string was modified even though it fits")
		}
	})

	t.Run("styled string truncated by visual width", func(t *testing.T) {
		got := TruncateANSI(red.Render("reviews incoming pull requests"), 12)
		if w := lipgloss.Width(got); w > 12 {
			t.Errorf("result width %d exceeds 12", w)
		}
	})

	t.Run("wide characters counted by columns", func(t *testing.T) {
		got := TruncateANSI("日本語テスト", 8)
		if w := lipgloss.Width(got); w > 8 {
			t.Errorf("result width %d exceeds 8", w)
		}
	})
}
