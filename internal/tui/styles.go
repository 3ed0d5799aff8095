package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	userLabel   lipgloss.Style
	agentLabel  lipgloss.Style
	errorText   lipgloss.Style
	status      lipgloss.Style
	helpText    lipgloss.Style
	inputPanel  lipgloss.Style
	payloadPane lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(mint).
			Underline(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		userLabel:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		agentLabel: lipgloss.NewStyle().Foreground(accent).Bold(true),
		errorText:  lipgloss.NewStyle().Foreground(pink).Bold(true),
		status:     lipgloss.NewStyle().Foreground(accent),
		helpText:   lipgloss.NewStyle().Foreground(muted),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		payloadPane: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(pink).
			Padding(0, 1),
	}
}
