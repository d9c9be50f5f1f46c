package monitor

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/possync/internal/models"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	subtleStyle = lipgloss.NewStyle().Foreground(mutedColor)

	statusStyles = map[models.SyncStatus]lipgloss.Style{
		models.SyncStatusSuccess:  lipgloss.NewStyle().Foreground(successColor),
		models.SyncStatusError:    lipgloss.NewStyle().Foreground(errorColor),
		models.SyncStatusConflict: lipgloss.NewStyle().Foreground(primaryColor),
		models.SyncStatusSkipped:  lipgloss.NewStyle().Foreground(mutedColor),
		models.SyncStatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.SyncStatusRetrying: lipgloss.NewStyle().Foreground(warningColor),
	}
)

func renderStatus(s models.SyncStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}
