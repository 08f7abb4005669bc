package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/racehub/internal/race"
	"github.com/vovakirdan/racehub/internal/storage"
)

func seededStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "races.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	best := 42 * time.Second
	if err := store.RecordRace(race.RaceRecord{
		RaceID:     "race-plain",
		Rounds:     3,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Results: []race.Result{
			{ID: 1, Name: race.DisplayName(1), Elapsed: &best},
			{ID: 0, Name: race.DisplayName(0)},
		},
	}); err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}
	return store
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := printSummary(&buf, seededStore(t), 10, 120); err != nil {
		t.Fatalf("printSummary() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Races: 1", "race-plain", "Leaderboard", "Player 1", "0:42.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummaryEmpty(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	var buf bytes.Buffer
	if err := printSummary(&buf, store, 10, 80); err != nil {
		t.Fatalf("printSummary() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No races recorded yet.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestPrintStandings(t *testing.T) {
	store := seededStore(t)

	var buf bytes.Buffer
	if err := printStandings(&buf, store, "race-plain"); err != nil {
		t.Fatalf("printStandings() failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	if !strings.Contains(last, "Player 0") || !strings.Contains(last, "DNF") {
		t.Errorf("DNF racer should be listed last, got %q", last)
	}

	if err := printStandings(&buf, store, "missing"); err == nil {
		t.Error("expected an error for an unknown race")
	}
}

func TestRaceIDWidth(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{200, 36},
		{80, 20},
		{40, 8},
	}
	for _, tt := range tests {
		if got := raceIDWidth(tt.width); got != tt.want {
			t.Errorf("raceIDWidth(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestPortOf(t *testing.T) {
	if got := portOf(":2222"); got != "2222" {
		t.Errorf("portOf(:2222) = %q", got)
	}
	if got := portOf("0.0.0.0:8080"); got != "8080" {
		t.Errorf("portOf(0.0.0.0:8080) = %q", got)
	}
}
