package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/racehub/internal/platform/tui"
	"github.com/vovakirdan/racehub/internal/storage"
)

var (
	flagPlain  bool
	flagRaceID string
	flagLimit  int
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Browse recorded races",
	Long: `Browse races recorded by the server: recent races, the standings of a
single race and the best-time leaderboard.

Without --plain (or when stdout is not a terminal) an interactive browser
is started.

Examples:
  racehub results
  racehub results --plain
  racehub results --plain --race 3f2a9c1e-...
  racehub results --db ./races.db`,
	Args: cobra.NoArgs,
	RunE: runResults,
}

func init() {
	resultsCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print results as text instead of the interactive browser")
	resultsCmd.Flags().StringVar(&flagRaceID, "race", "", "Print the standings of one race")
	resultsCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of races and leaderboard rows to print")
}

func runResults(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.DBPath == "" {
		return errors.New("result storage is disabled (storage.db_path is empty)")
	}

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Get terminal size
	width, height := 80, 24
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if w, h, sizeErr := term.GetSize(int(os.Stdout.Fd())); sizeErr == nil {
		width = w
		height = h
	}

	if flagPlain || flagRaceID != "" || !interactive {
		out := cmd.OutOrStdout()
		if flagRaceID != "" {
			return printStandings(out, store, flagRaceID)
		}
		return printSummary(out, store, flagLimit, width)
	}
	return tui.RunScoreboard(store, width, height)
}

// printSummary prints stats, recent races and the leaderboard.
func printSummary(w io.Writer, store *storage.Store, limit, width int) error {
	stats, err := store.GetStats()
	if err != nil {
		return err
	}
	if stats.Races == 0 {
		fmt.Fprintln(w, "No races recorded yet.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run 'racehub serve' and finish a race to fill the board!")
		return nil
	}

	best := "-"
	if stats.HasRecord {
		best = tui.FormatRaceTime(&stats.BestMs)
	}
	fmt.Fprintf(w, "Races: %d  Finishes: %d  Best: %s  Last: %s\n",
		stats.Races, stats.Finishes, best, stats.LastRace.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(w)

	races, err := store.RecentRaces(limit)
	if err != nil {
		return err
	}
	idWidth := raceIDWidth(width)
	fmt.Fprintln(w, "Recent races")
	fmt.Fprintf(w, "  %-16s  %-*s  %6s  %4s  %5s  %s\n", "Finished", idWidth, "Race", "Racers", "Done", "Laps", "Duration")
	fmt.Fprintf(w, "  %-16s  %-*s  %6s  %4s  %5s  %s\n", "--------", idWidth, "----", "------", "----", "----", "--------")
	for _, r := range races {
		ms := r.Duration().Milliseconds()
		fmt.Fprintf(w, "  %-16s  %-*s  %6d  %4d  %5d  %s\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
			idWidth, truncate(r.RaceID, idWidth),
			r.Racers, r.Finishers, r.Rounds,
			tui.FormatRaceTime(&ms))
	}
	fmt.Fprintln(w)

	leaders, err := store.Leaderboard(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Leaderboard")
	fmt.Fprintf(w, "  %-4s  %-20s  %-10s  %8s  %5s\n", "Rank", "Racer", "Best", "Finishes", "Races")
	fmt.Fprintf(w, "  %-4s  %-20s  %-10s  %8s  %5s\n", "----", "-----", "----", "--------", "-----")
	for i, e := range leaders {
		bestMs := e.BestMs
		fmt.Fprintf(w, "  %-4d  %-20s  %-10s  %8d  %5d\n", i+1, truncate(e.Name, 20), tui.FormatRaceTime(&bestMs), e.Finishes, e.Races)
	}
	return nil
}

// printStandings prints the final standings of one race.
func printStandings(w io.Writer, store *storage.Store, raceID string) error {
	summary, err := store.RaceByID(raceID)
	if err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("unknown race %q", raceID)
	}
	rows, err := store.RaceResults(raceID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Race %s - %d laps, finished %s\n", summary.RaceID, summary.Rounds,
		summary.FinishedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-4s  %-20s  %s\n", "Pos", "Racer", "Time")
	fmt.Fprintf(w, "  %-4s  %-20s  %s\n", "---", "-----", "----")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-4d  %-20s  %s\n", r.Position, truncate(r.Name, 20), tui.FormatRaceTime(r.TimeMs))
	}
	return nil
}

// raceIDWidth shows full race ids only when the terminal is wide enough.
func raceIDWidth(termWidth int) int {
	const fixed = 60 // Every other column plus padding
	switch {
	case termWidth-fixed >= 36:
		return 36
	case termWidth-fixed > 8:
		return termWidth - fixed
	default:
		return 8
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
