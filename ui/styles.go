package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1)

	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"})
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	playingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	loopingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)

	volumeFull  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("█")
	volumeEmpty = subtleStyle.Render("░")
)
