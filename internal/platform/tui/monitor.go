package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/racehub/internal/race"
)

// SnapshotSource provides the live session state.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (race.Snapshot, error)
}

// snapshotMsg carries the result of one poll.
type snapshotMsg struct {
	snap race.Snapshot
	err  error
	at   time.Time
}

// MonitorModel shows the live session: phase, host, roster and the last
// results. It polls the source on every tick and never mutates the session.
type MonitorModel struct {
	source  SnapshotSource
	refresh time.Duration
	user    string

	snap    race.Snapshot
	err     error
	updated time.Time
	polled  bool

	roster   table.Model
	help     help.Model
	keys     MonitorKeyMap
	width    int
	height   int
	quitting bool
	wantsLog bool // User asked for the stored results browser
}

// NewMonitorModel creates a monitor that polls source every refresh.
func NewMonitorModel(source SnapshotSource, refresh time.Duration, user string, width, height int) MonitorModel {
	m := MonitorModel{
		source:  source,
		refresh: refresh,
		user:    user,
		help:    help.New(),
		keys:    DefaultMonitorKeyMap(),
		width:   width,
		height:  height,
	}
	m.roster = m.createTable()
	return m
}

func (m *MonitorModel) createTable() table.Model {
	height := m.height - 14 // Header, status, last results and help
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 4},
			{Title: "Name", Width: 16},
			{Title: "Role", Width: 10},
			{Title: "Slot", Width: 5},
			{Title: "Status", Width: 12},
		}),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles())
	return t
}

// fetch polls the source off the UI loop.
func (m MonitorModel) fetch() tea.Cmd {
	source := m.source
	timeout := m.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), max(timeout, time.Second))
		defer cancel()
		snap, err := source.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err, at: time.Now()}
	}
}

// Init starts polling.
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tickCmd(m.refresh))
}

// Update handles messages for the monitor.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case TickMsg:
		return m, tea.Batch(m.fetch(), tickCmd(m.refresh))

	case snapshotMsg:
		m.polled = true
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.updated = msg.at
			m.roster.SetRows(rosterRows(msg.snap))
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch()
		case key.Matches(msg, m.keys.Results):
			m.wantsLog = true
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.roster = m.createTable()
		m.roster.SetRows(rosterRows(m.snap))
		m.help.Width = msg.Width
		return m, nil
	}

	m.roster, cmd = m.roster.Update(msg)
	return m, cmd
}

// rosterRows renders the snapshot roster.
func rosterRows(snap race.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Roster))
	for _, p := range snap.Roster {
		role := "lobby"
		switch {
		case p.IsHost:
			role = "host"
		case snap.Phase != race.PhaseWaiting && p.Slot == nil:
			role = "spectator"
		case snap.Phase != race.PhaseWaiting:
			role = "racer"
		}

		slot := "-"
		if p.Slot != nil {
			slot = fmt.Sprintf("%d", *p.Slot)
		}

		status := "-"
		switch {
		case p.Finished:
			status = FormatRaceTime(p.TimeMs)
		case snap.Phase == race.PhaseRacing && p.Slot != nil:
			status = "racing"
		}

		rows = append(rows, table.Row{fmt.Sprintf("%d", p.ID), p.Name, role, slot, status})
	}
	return rows
}

// View renders the monitor.
func (m MonitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := "RACEHUB MONITOR"
	if m.user != "" {
		title += " - " + m.user
	}
	b.WriteString(titleStyle.Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	switch {
	case !m.polled:
		b.WriteString(dimStyle.Render("connecting to session..."))
	case m.err != nil && m.updated.IsZero():
		b.WriteString(errorStyle.Render("session unavailable: " + m.err.Error()))
	default:
		b.WriteString(m.renderStatus())
		b.WriteString("\n\n")
		if len(m.snap.Roster) == 0 {
			b.WriteString(boxStyle.Render(emptyStyle.Render("Nobody connected.")))
		} else {
			b.WriteString(boxStyle.Render(m.roster.View()))
		}
		if len(m.snap.LastResults) > 0 {
			b.WriteString("\n")
			b.WriteString(m.renderLastResults())
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render("stale: " + m.err.Error()))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m MonitorModel) renderStatus() string {
	s := m.snap
	host := "none"
	if s.HostID != nil {
		host = fmt.Sprintf("%d", *s.HostID)
	}

	parts := []string{
		renderPhase(s.Phase),
		fmt.Sprintf("host %s", host),
		fmt.Sprintf("rounds %d", s.Settings.Rounds),
		fmt.Sprintf("%d connected", len(s.Roster)),
	}
	if s.RaceID != "" {
		parts = append(parts, "race "+shortID(s.RaceID))
	}
	if s.StartedAt != nil && s.Phase == race.PhaseRacing {
		parts = append(parts, "running "+m.updated.Sub(*s.StartedAt).Truncate(time.Second).String())
	}
	return strings.Join(parts, dimStyle.Render("  |  "))
}

func (m MonitorModel) renderLastResults() string {
	var b strings.Builder
	b.WriteString("Last results\n")
	for i, r := range m.snap.LastResults {
		fmt.Fprintf(&b, "  %d. %-16s %s\n", i+1, r.Name, FormatRaceTime(r.Time))
	}
	return strings.TrimRight(b.String(), "\n")
}

// WantsResults reports whether the user asked for stored results.
func (m MonitorModel) WantsResults() bool {
	return m.wantsLog
}

// IsQuitting returns true if user wants to quit.
func (m MonitorModel) IsQuitting() bool {
	return m.quitting
}
