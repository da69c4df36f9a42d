package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/soundscope/internal/search"
	"github.com/abelbrown/soundscope/internal/sequence"
)

// Palette.
var (
	colorText    = lipgloss.Color("#CDD6F4")
	colorSubtle  = lipgloss.Color("#7F849C")
	colorFaint   = lipgloss.Color("#585B70")
	colorSurface = lipgloss.Color("#313244")
	colorAccent  = lipgloss.Color("#CBA6F7")
	colorError   = lipgloss.Color("#F38BA8")

	// One hue per tier so the boundaries stand out while scrolling.
	colorNewest         = lipgloss.Color("#A6E3A1")
	colorMostDownloaded = lipgloss.Color("#F9E2AF")
	colorNearby         = lipgloss.Color("#89B4FA")
)

// Result rows.
var (
	SelectedItem = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#11111B")).
		Background(colorAccent).
		Padding(0, 1)

	NormalItem = lipgloss.NewStyle().
		Foreground(colorText).
		Padding(0, 1)

	// CategoryHeader is the base for the title above each tier; see
	// categoryHeader for the per-tier colour.
	CategoryHeader = lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Padding(0, 1)

	UserBadge = lipgloss.NewStyle().
		Foreground(colorAccent).
		MarginRight(1)

	// MetaItem is the right-aligned sound length.
	MetaItem = lipgloss.NewStyle().
		Foreground(colorSubtle)
)

// categoryHeader returns CategoryHeader coloured for tier c.
func categoryHeader(c sequence.Category) lipgloss.Style {
	switch c {
	case search.Newest:
		return CategoryHeader.Foreground(colorNewest)
	case search.MostDownloaded:
		return CategoryHeader.Foreground(colorMostDownloaded)
	case search.Nearby:
		return CategoryHeader.Foreground(colorNearby)
	default:
		return CategoryHeader.Foreground(colorText)
	}
}

// Bars.
var (
	SearchBar = lipgloss.NewStyle().
		Foreground(colorText).
		Background(colorSurface).
		Padding(0, 1)

	DepartmentBadge = lipgloss.NewStyle().
		Foreground(colorNewest).
		Bold(true)

	StatusBar = lipgloss.NewStyle().
		Foreground(colorText).
		Background(colorSurface).
		Padding(0, 1)

	StatusBarKey = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	StatusBarText = lipgloss.NewStyle().
		Foreground(colorSubtle)

	// CountStyle renders the "newest 2/15" counters.
	CountStyle = lipgloss.NewStyle().
		Foreground(colorFaint)
)

// Messages.
var (
	ErrorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Padding(0, 1)

	// HelpStyle is the empty-state hint.
	HelpStyle = lipgloss.NewStyle().
		Foreground(colorFaint).
		Padding(1, 2)
)

// Debug overlay.
var (
	DebugPanel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorFaint).
		Padding(1, 2)

	DebugHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent)
)
