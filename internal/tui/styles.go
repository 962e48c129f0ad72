package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#8B5CF6")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorDimmed  = lipgloss.Color("#374151")
	colorText    = lipgloss.Color("#F8FAFC")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDimmed).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	focusedLabelStyle = labelStyle.
				Foreground(colorPrimary)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	buttonStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorDimmed).
			Padding(0, 2)

	focusedButtonStyle = buttonStyle.
				Background(colorPrimary)

	successButtonStyle = buttonStyle.
				Background(colorSuccess)

	disabledButtonStyle = buttonStyle.
				Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)
)
