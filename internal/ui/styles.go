package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ModifiedDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	SavedDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	InfoTextStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SpeakerStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	TentativeStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	ProblemStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	CursorStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	MarkedStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	InputStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)
)

// Swatch renders a colored block for a minute whose color is hex ("#rrggbb").
func Swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
