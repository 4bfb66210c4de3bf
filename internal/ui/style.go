package ui

import (
	"github.com/charmbracelet/lipgloss"

	"duely/internal/app"
	"duely/internal/bucket"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	overdueStyle  = headerStyle.Foreground(lipgloss.Color("1"))
	todayStyle    = headerStyle.Foreground(lipgloss.Color("3"))
	searchStyle   = headerStyle.Foreground(lipgloss.Color("33"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("22")).Padding(0, 1)
)

func groupStyle(name bucket.Name) lipgloss.Style {
	switch name {
	case bucket.Overdue:
		return overdueStyle
	case bucket.Today:
		return todayStyle
	case app.SearchResults:
		return searchStyle
	default:
		return headerStyle
	}
}
