package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/racehub/internal/storage"
)

// Scoreboard layout constants
const (
	minWidthForSidebar = 80  // Minimum width to show view list sidebar
	sidebarWidth       = 20  // Width of view list sidebar
	maxRows            = 100 // Max rows to load
)

// ResultStore is the read side of result persistence the scoreboard needs.
type ResultStore interface {
	RecentRaces(limit int) ([]storage.RaceSummary, error)
	RaceResults(raceID string) ([]storage.ResultRow, error)
	Leaderboard(limit int) ([]storage.LeaderboardEntry, error)
}

type scoreboardView int

const (
	viewRecent scoreboardView = iota
	viewLeaderboard
)

var scoreboardViews = []struct {
	view  scoreboardView
	title string
}{
	{viewRecent, "Recent races"},
	{viewLeaderboard, "Leaderboard"},
}

// ScoreboardModel is the Bubble Tea model for browsing stored races.
type ScoreboardModel struct {
	viewCursor int
	store      ResultStore

	races      []storage.RaceSummary
	standings  []storage.ResultRow
	detailRace string // Race whose standings are open, empty for the list
	leaders    []storage.LeaderboardEntry
	loadErr    error

	table       table.Model
	help        help.Model
	keys        ScoreboardKeyMap
	width       int
	height      int
	quitting    bool
	goingBack   bool // True if user pressed back (not quit)
	showSidebar bool
	embedded    bool // Back returns to the host model instead of quitting
}

// NewScoreboardModel creates a new scoreboard model.
func NewScoreboardModel(store ResultStore, width, height int) ScoreboardModel {
	h := help.New()
	h.ShowAll = false

	m := ScoreboardModel{
		store:       store,
		keys:        DefaultScoreboardKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.reload()
	return m
}

func (m ScoreboardModel) currentView() scoreboardView {
	return scoreboardViews[m.viewCursor].view
}

// columns returns the table layout for what is on screen.
func (m *ScoreboardModel) columns() []table.Column {
	switch {
	case m.detailRace != "":
		return []table.Column{
			{Title: "Pos", Width: 5},
			{Title: "Racer", Width: 18},
			{Title: "Time", Width: 12},
		}
	case m.currentView() == viewLeaderboard:
		return []table.Column{
			{Title: "Rank", Width: 6},
			{Title: "Racer", Width: 18},
			{Title: "Best", Width: 12},
			{Title: "Finishes", Width: 9},
			{Title: "Races", Width: 7},
		}
	default:
		return []table.Column{
			{Title: "Finished", Width: 14},
			{Title: "Race", Width: 10},
			{Title: "Racers", Width: 7},
			{Title: "Done", Width: 6},
			{Title: "Laps", Width: 5},
			{Title: "Duration", Width: 10},
		}
	}
}

// createTable creates a new table sized for the current window.
func (m *ScoreboardModel) createTable() table.Model {
	height := m.height - 8 // Leave room for header, help, and margins
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(m.columns()),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles())
	return t
}

// reload fetches the rows for the current view and rebuilds the table.
func (m *ScoreboardModel) reload() {
	m.loadErr = nil
	m.races, m.standings, m.leaders = nil, nil, nil

	if m.store != nil {
		switch {
		case m.detailRace != "":
			m.standings, m.loadErr = m.store.RaceResults(m.detailRace)
		case m.currentView() == viewLeaderboard:
			m.leaders, m.loadErr = m.store.Leaderboard(maxRows)
		default:
			m.races, m.loadErr = m.store.RecentRaces(maxRows)
		}
	}

	m.table = m.createTable()
	m.table.SetRows(m.rows())
	m.table.GotoTop()
}

func (m *ScoreboardModel) rows() []table.Row {
	var rows []table.Row
	switch {
	case m.detailRace != "":
		for _, r := range m.standings {
			rows = append(rows, table.Row{
				fmt.Sprintf("#%d", r.Position),
				r.Name,
				FormatRaceTime(r.TimeMs),
			})
		}
	case m.currentView() == viewLeaderboard:
		for i, e := range m.leaders {
			best := e.BestMs
			rows = append(rows, table.Row{
				fmt.Sprintf("#%d", i+1),
				e.Name,
				FormatRaceTime(&best),
				fmt.Sprintf("%d", e.Finishes),
				fmt.Sprintf("%d", e.Races),
			})
		}
	default:
		for _, r := range m.races {
			ms := r.Duration().Milliseconds()
			rows = append(rows, table.Row{
				r.FinishedAt.Local().Format("Jan 02 15:04"),
				shortID(r.RaceID),
				fmt.Sprintf("%d", r.Racers),
				fmt.Sprintf("%d", r.Finishers),
				fmt.Sprintf("%d", r.Rounds),
				FormatRaceTime(&ms),
			})
		}
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Init initializes the scoreboard model.
func (m ScoreboardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the scoreboard.
func (m ScoreboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			if m.detailRace != "" {
				m.detailRace = ""
				m.reload()
				return m, nil
			}
			m.goingBack = true
			if m.embedded {
				return m, nil
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.Select):
			if m.detailRace == "" && m.currentView() == viewRecent && len(m.races) > 0 {
				m.detailRace = m.races[m.table.Cursor()].RaceID
				m.reload()
			}
			return m, nil

		case key.Matches(msg, m.keys.NextView), key.Matches(msg, m.keys.Right):
			m.viewCursor = (m.viewCursor + 1) % len(scoreboardViews)
			m.detailRace = ""
			m.reload()
			return m, nil

		case key.Matches(msg, m.keys.PrevView), key.Matches(msg, m.keys.Left):
			m.viewCursor--
			if m.viewCursor < 0 {
				m.viewCursor = len(scoreboardViews) - 1
			}
			m.detailRace = ""
			m.reload()
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			// Pass to table for scrolling
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		m.table.SetRows(m.rows())
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the scoreboard.
func (m ScoreboardModel) View() string {
	if m.quitting || (m.goingBack && !m.embedded) {
		return ""
	}

	var b strings.Builder

	title := "RACE RESULTS - " + scoreboardViews[m.viewCursor].title
	if m.detailRace != "" {
		title = "RACE RESULTS - " + shortID(m.detailRace)
	}
	b.WriteString(titleStyle.Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	if m.showSidebar {
		b.WriteString(m.renderWideLayout())
	} else {
		b.WriteString(m.renderNarrowLayout())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWideLayout renders the scoreboard with a sidebar for view selection.
func (m ScoreboardModel) renderWideLayout() string {
	sidebarStyle := boxStyle.Width(sidebarWidth)

	var sidebar strings.Builder
	sidebar.WriteString("Views\n")
	sidebar.WriteString(strings.Repeat("-", sidebarWidth-4))
	sidebar.WriteString("\n")

	for i, v := range scoreboardViews {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.viewCursor {
			cursor = "> "
			style = style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		sidebar.WriteString(style.Render(cursor + v.title))
		sidebar.WriteString("\n")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		sidebarStyle.Render(sidebar.String()),
		"  ",
		boxStyle.Render(m.renderTableContent()),
	)
}

// renderNarrowLayout renders view tabs above the table.
func (m ScoreboardModel) renderNarrowLayout() string {
	var b strings.Builder

	activeTabStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Padding(0, 1)

	tabs := make([]string, len(scoreboardViews))
	for i, v := range scoreboardViews {
		if i == m.viewCursor {
			tabs[i] = activeTabStyle.Render(v.title)
		} else {
			tabs[i] = dimStyle.Render(" " + v.title + " ")
		}
	}
	b.WriteString(centerText(strings.Join(tabs, " "), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText(boxStyle.Render(m.renderTableContent()), m.width))

	return b.String()
}

// renderTableContent renders the table or an empty message.
func (m ScoreboardModel) renderTableContent() string {
	switch {
	case m.store == nil:
		return emptyStyle.Render("Result storage is disabled.")
	case m.loadErr != nil:
		return errorStyle.Render("Cannot load results: " + m.loadErr.Error())
	case len(m.table.Rows()) == 0:
		return emptyStyle.Render("No races recorded yet.\nFinish a race to fill the board!")
	}
	return m.table.View()
}

// IsGoingBack returns true if user wants to leave the scoreboard.
func (m ScoreboardModel) IsGoingBack() bool {
	return m.goingBack
}

// IsQuitting returns true if user wants to quit entirely.
func (m ScoreboardModel) IsQuitting() bool {
	return m.quitting
}

// RunScoreboard runs the scoreboard as a standalone program.
func RunScoreboard(store ResultStore, width, height int) error {
	model := NewScoreboardModel(store, width, height)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
