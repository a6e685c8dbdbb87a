package tui

import "github.com/charmbracelet/lipgloss"

// Dashboard palette.
const (
	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#00FFFF")
	ColorBorder = lipgloss.Color("#2A2A4A")
)

// Gauge severity thresholds.
const (
	warningThreshold  = 70.0
	criticalThreshold = 90.0
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	offlineCardStyle = cardStyle.
				BorderForeground(ColorCritical)

	nodeNameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorCritical)

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)
)

// gaugeColor picks the severity color for a utilization percentage.
func gaugeColor(percent float64) lipgloss.Color {
	switch {
	case percent >= criticalThreshold:
		return ColorCritical
	case percent >= warningThreshold:
		return ColorWarning
	default:
		return ColorHealthy
	}
}
