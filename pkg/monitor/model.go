// Package monitor is the live sync activity TUI. It tails the audit log and
// shows queue and mapping health for one tenant.
package monitor

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/possync/internal/db"
	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/output"
)

const refreshInterval = 2 * time.Second

type tickMsg time.Time

type snapshotMsg struct {
	snapshot *Snapshot
	err      error
}

// Model is the Bubble Tea model for the monitor.
type Model struct {
	db       *db.DB
	tenantID string

	width  int
	height int

	table    table.Model
	snapshot *Snapshot
	err      error
	paused   bool
}

// New builds a monitor over an open database.
func New(database *db.DB, tenantID string) Model {
	columns := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Op", Width: 14},
		{Title: "Dir", Width: 4},
		{Title: "Entity", Width: 22},
		{Title: "Status", Width: 10},
		{Title: "Detail", Width: 40},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return Model{db: database, tenantID: tenantID, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := loadSnapshot(m.db, m.tenantID)
		return snapshotMsg{snapshot: snapshot, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(maxInt(3, m.height-7))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
			return m, nil
		case "r":
			return m, m.refresh()
		}

	case tickMsg:
		if m.paused {
			return m, tick()
		}
		return m, tea.Batch(m.refresh(), tick())

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snapshot = msg.snapshot
			m.table.SetRows(rowsFor(msg.snapshot.Entries))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rowsFor(entries []models.SyncLogEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		entity := string(e.EntityType)
		if e.EntityID != "" {
			entity = e.EntityID
		} else if e.RemoteID != "" {
			entity = e.RemoteID
		}
		detail := e.ErrorMessage
		if detail == "" {
			detail = e.SyncMetadata
		}
		rows = append(rows, table.Row{
			e.CreatedAt.Format("15:04:05"),
			string(e.OperationType),
			output.FormatDirection(e.Direction),
			output.Truncate(entity, 22),
			renderStatus(e.Status),
			output.Truncate(detail, 40),
		})
	}
	return rows
}

func (m Model) View() string {
	header := m.headerLine()
	body := panelStyle.Render(m.table.View())
	help := helpStyle.Render("q quit  p pause  r refresh  up/down scroll")
	if m.err != nil {
		help = lipgloss.NewStyle().Foreground(errorColor).Render(fmt.Sprintf("error: %v", m.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func (m Model) headerLine() string {
	title := headerStyle.Render(fmt.Sprintf(" possync monitor  tenant %s ", m.tenantID))
	if m.snapshot == nil {
		return title
	}

	stats := fmt.Sprintf("%d mappings  %d awaiting retry  %d errors today",
		m.snapshot.Mappings, m.snapshot.PendingRetry, m.snapshot.Errors24h)
	if m.paused {
		stats += "  [paused]"
	}
	auto := "auto-sync off"
	if cfg := m.snapshot.Configuration; cfg != nil && cfg.AutoSyncEnabled {
		auto = fmt.Sprintf("auto-sync %s", output.FormatDirection(cfg.AutoSyncDirection))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", subtleStyle.Render(stats+"  "+auto))
}

// Run starts the monitor and blocks until the user quits.
func Run(database *db.DB, tenantID string) error {
	p := tea.NewProgram(New(database, tenantID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
