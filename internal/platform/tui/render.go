package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/racehub/internal/race"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(1, 2)
)

// phaseStyles maps session phases to badge styles.
var phaseStyles = map[race.Phase]lipgloss.Style{
	race.PhaseWaiting: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")).Padding(0, 1),
	race.PhaseRacing:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2")).Padding(0, 1),
	race.PhaseResults: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("13")).Padding(0, 1),
}

// renderPhase renders a phase as a colored badge.
func renderPhase(p race.Phase) string {
	style, ok := phaseStyles[p]
	if !ok {
		style = lipgloss.NewStyle().Padding(0, 1)
	}
	return style.Render(strings.ToUpper(string(p)))
}

// FormatRaceTime renders an elapsed time in milliseconds as m:ss.mmm.
// A nil time is a racer who did not finish.
func FormatRaceTime(ms *int64) string {
	if ms == nil {
		return "DNF"
	}
	v := *ms
	return fmt.Sprintf("%d:%02d.%03d", v/60000, (v/1000)%60, v%1000)
}

// tableStyles returns the shared table look.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

func centerText(text string, width int) string {
	w := lipgloss.Width(text)
	if w >= width {
		return text
	}
	padding := (width - w) / 2
	return strings.Repeat(" ", padding) + text
}
