package agent

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Color is a named display color drawn from the fixed 8-color palette.
type Color string

// The fixed palette. Colors are assigned round-robin; an agent name keeps
// its color for the lifetime of the registry.
const (
	ColorRed     Color = "red"
	ColorBlue    Color = "blue"
	ColorGreen   Color = "green"
	ColorYellow  Color = "yellow"
	ColorMagenta Color = "magenta"
	ColorCyan    Color = "cyan"
	ColorOrange  Color = "orange"
	ColorPurple  Color = "purple"
)

// Palette returns the palette in assignment order.
func Palette() []Color {
	return []Color{
		ColorRed, ColorBlue, ColorGreen, ColorYellow,
		ColorMagenta, ColorCyan, ColorOrange, ColorPurple,
	}
}

// terminalColors maps palette names to terminal colors for styling.
var terminalColors = map[Color]lipgloss.TerminalColor{
	ColorRed:     lipgloss.Color("1"),
	ColorBlue:    lipgloss.Color("4"),
	ColorGreen:   lipgloss.Color("2"),
	ColorYellow:  lipgloss.Color("3"),
	ColorMagenta: lipgloss.Color("5"),
	ColorCyan:    lipgloss.Color("6"),
	ColorOrange:  lipgloss.Color("208"),
	ColorPurple:  lipgloss.Color("93"),
}

// String returns the color name.
func (c Color) String() string {
	return string(c)
}

// Terminal returns the lipgloss terminal color for this palette entry.
// Unknown colors render with the default foreground.
func (c Color) Terminal() lipgloss.TerminalColor {
	if tc, ok := terminalColors[c]; ok {
		return tc
	}
	return lipgloss.NoColor{}
}

// Style returns a lipgloss style with this color as foreground.
func (c Color) Style() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c.Terminal())
}

// ColorRegistry assigns palette colors round-robin and remembers the color
// given to each agent name, so re-spawns with the same name keep their color.
// It is an explicit value threaded through its owner rather than process
// state; construct one per Manager (or Coordinator) and share deliberately.
type ColorRegistry struct {
	mu       sync.Mutex
	assigned map[string]Color
	next     int
}

// NewColorRegistry creates an empty registry.
func NewColorRegistry() *ColorRegistry {
	return &ColorRegistry{
		assigned: make(map[string]Color),
	}
}

// ColorFor returns the color previously assigned to name, or assigns the
// next palette color and advances the shared counter. The assignment is
// stable for the lifetime of the registry.
func (r *ColorRegistry) ColorFor(name string) Color {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.assigned[name]; ok {
		return c
	}

	palette := Palette()
	c := palette[r.next%len(palette)]
	r.next++
	r.assigned[name] = c
	return c
}

// Reset clears all assignments and the round-robin counter.
func (r *ColorRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned = make(map[string]Color)
	r.next = 0
}

// Assigned returns the number of names with an assigned color.
func (r *ColorRegistry) Assigned() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assigned)
}
