package ui

import "github.com/charmbracelet/lipgloss/v2"

// High-contrast scheme: near-black panes, white text, blue selection.
var (
	colorText     = lipgloss.Color("#FFFFFF")
	colorMuted    = lipgloss.Color("#808080")
	colorError    = lipgloss.Color("#FF4D4D")
	colorSelected = lipgloss.Color("#004D99")
	colorBorder   = lipgloss.Color("#4D4D4D")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	projectStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	taskStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	taskFailedStyle = lipgloss.NewStyle().
			Foreground(colorError).
			PaddingLeft(2)

	taskSelectedStyle = lipgloss.NewStyle().
				Foreground(colorText).
				Background(colorSelected).
				Bold(true).
				PaddingLeft(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true).
			PaddingLeft(1)

	logLineStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(1)

	leftPaneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(colorBorder).
			PaddingRight(1)
)
