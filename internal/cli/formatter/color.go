package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/streakr/internal/store"
)

// Palette shared with the TUI accents.
var (
	ColorGreen  = lipgloss.Color("#2ECC71")
	ColorYellow = lipgloss.Color("#F39C12")
	ColorRed    = lipgloss.Color("#E74C3C")
	ColorBlue   = lipgloss.Color("#4ECDC4")
	ColorDim    = lipgloss.Color("#666666")
	ColorFg     = lipgloss.Color("#C0CAF5")
	ColorHeader = lipgloss.Color("#FF8C42")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusPill returns a colored status indicator such as "● running".
func StatusPill(s store.Status) string {
	switch s {
	case store.StatusInProgress:
		return StyleGreen.Render("● running")
	case store.StatusPaused:
		return StyleYellow.Render("◐ paused")
	case store.StatusCompleted:
		return StyleDim.Render("✓ done")
	default:
		return StyleFg.Render("○ todo")
	}
}

func PriorityLabel(p store.Priority) string {
	switch p {
	case store.PriorityUrgent:
		return StyleRed.Bold(true).Render(string(p))
	case store.PriorityHigh:
		return StyleRed.Render(string(p))
	case store.PriorityMedium:
		return StyleYellow.Render(string(p))
	default:
		return StyleDim.Render(string(p))
	}
}

func Dim(s string) string  { return StyleDim.Render(s) }
func Bold(s string) string { return StyleBold.Render(s) }
