package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorTitle   = lipgloss.Color("#FFFFFF")
	colorSubtle  = lipgloss.Color("#666666")
	colorUser    = lipgloss.Color("#7D56F4")
	colorModel   = lipgloss.Color("#A3BE8C")
	colorError   = lipgloss.Color("#FF6B6B")
	colorSpinner = lipgloss.Color("#88C0D0")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTitle)

	subtleStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorUser)

	modelLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorModel)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorSpinner)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorSubtle)
)
