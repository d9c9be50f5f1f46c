// Package output provides styled terminal output helpers (success, error,
// warning, sync status formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/possync/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyles = map[models.SyncStatus]lipgloss.Style{
		models.SyncStatusSuccess:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncStatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.SyncStatusConflict: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		models.SyncStatusSkipped:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		models.SyncStatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.SyncStatusRetrying: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Title prints a bold heading
func Title(text string) {
	fmt.Println(titleStyle.Render(text))
}

// Subtle prints de-emphasized text
func Subtle(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatStatus formats a sync status with color
func FormatStatus(s models.SyncStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatDirection renders a sync direction as an arrow
func FormatDirection(d models.SyncDirection) string {
	switch d {
	case models.DirectionLocalToRemote:
		return "->"
	case models.DirectionRemoteToLocal:
		return "<-"
	case models.DirectionBidirectional:
		return "<->"
	default:
		return string(d)
	}
}

// FormatTime formats a timestamp for history listings
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}

// Truncate shortens a string to max runes with an ellipsis
func Truncate(s string, max int) string {
	if max <= 3 || len([]rune(s)) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
