package tui

import "github.com/charmbracelet/lipgloss"

// Color constants.
const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	dimColor       = "#6B7280" // Gray
	textColor      = "#E5E7EB"
	mutedColor     = "#9CA3AF"
)

// Style variables for consistent TUI rendering.
var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// QuestionStyle renders the question text.
	QuestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(textColor)).
			Bold(true)

	// SelectedStyle highlights selected items in primary color.
	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// NormalStyle renders unselected options.
	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(mutedColor))

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// SuccessStyle renders success messages in green.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	// ErrorStyle renders error messages in red.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	// WarningStyle renders warning messages in amber.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// StatusBarStyle provides styling for the status bar.
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color(mutedColor)).
			Padding(0, 1)

	// OverlayStyle frames stage transition announcements.
	OverlayStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(secondaryColor)).
			Padding(1, 4).
			Align(lipgloss.Center)

	// ToastStyle renders transient notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color(primaryColor)).
			Foreground(lipgloss.Color(textColor)).
			PaddingLeft(1)

	// WarningToastStyle renders warnings in the toast area.
	WarningToastStyle = ToastStyle.
				BorderForeground(lipgloss.Color(warningColor)).
				Foreground(lipgloss.Color(warningColor))

	// PanelStyle frames the confidence panel.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)

	// ProgressFullStyle renders filled progress indicators.
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(secondaryColor))

	// ProgressEmptyStyle renders empty progress indicators.
	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(dimColor))
)

// LevelStyle colors a confidence level name.
func LevelStyle(level string) lipgloss.Style {
	switch level {
	case "high":
		return SuccessStyle
	case "moderate":
		return SelectedStyle
	case "low":
		return WarningStyle
	default:
		return DimStyle
	}
}
