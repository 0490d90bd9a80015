package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelci/kestrel/pkg/models"
)

var (
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	neutralStyle   = lipgloss.NewStyle()
)

// statusStyle returns the lipgloss style for a cell status.
func statusStyle(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusSuccess:
		return successStyle
	case models.StatusFailed:
		return failedStyle
	case models.StatusWarning:
		return warningStyle
	case models.StatusCancelled:
		return cancelledStyle
	case models.StatusSkipped:
		return skippedStyle
	default:
		return neutralStyle
	}
}

// statusMarker returns the single-character marker for a status.
func statusMarker(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return "✓"
	case models.StatusFailed:
		return "✗"
	case models.StatusWarning:
		return "!"
	case models.StatusCancelled:
		return "⊘"
	case models.StatusSkipped:
		return "-"
	case models.StatusRunning:
		return "…"
	default:
		return "·"
	}
}
