package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/racehub/internal/race"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func finished(id race.ParticipantID, d time.Duration) race.Result {
	return race.Result{ID: id, Name: race.DisplayName(id), Elapsed: &d}
}

func dnf(id race.ParticipantID) race.Result {
	return race.Result{ID: id, Name: race.DisplayName(id)}
}

func testRecord(raceID string, start time.Time, results ...race.Result) race.RaceRecord {
	return race.RaceRecord{
		RaceID:     raceID,
		Rounds:     3,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Results:    results,
	}
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreSaveAndRetrieveRace(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	rec := testRecord("race-a", start,
		finished(1, 42*time.Second),
		finished(0, 50*time.Second),
		dnf(2),
	)
	if err := store.RecordRace(rec); err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}

	summary, err := store.RaceByID("race-a")
	if err != nil {
		t.Fatalf("RaceByID() failed: %v", err)
	}
	if summary == nil {
		t.Fatal("RaceByID() returned nil")
	}
	if summary.Racers != 3 || summary.Finishers != 2 || summary.Rounds != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Duration() != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", summary.Duration())
	}

	results, err := store.RaceResults("race-a")
	if err != nil {
		t.Fatalf("RaceResults() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ParticipantID != 1 || results[0].Position != 1 || *results[0].TimeMs != 42000 {
		t.Errorf("winner = %+v", results[0])
	}
	if results[2].TimeMs != nil {
		t.Errorf("DNF row has time %d", *results[2].TimeMs)
	}
}

func TestStoreRaceByIDMissing(t *testing.T) {
	store := openTestStore(t)

	summary, err := store.RaceByID("nope")
	if err != nil {
		t.Fatalf("RaceByID() failed: %v", err)
	}
	if summary != nil {
		t.Errorf("expected nil, got %+v", summary)
	}
}

func TestStoreDuplicateRaceRejected(t *testing.T) {
	store := openTestStore(t)
	rec := testRecord("race-a", time.Now(), finished(0, time.Second))

	if err := store.RecordRace(rec); err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}
	if err := store.RecordRace(rec); err == nil {
		t.Error("expected error saving the same race twice")
	}

	results, err := store.RaceResults("race-a")
	if err != nil {
		t.Fatalf("RaceResults() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("failed save left %d result rows, want 1", len(results))
	}
}

func TestStoreRecentRaces(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		rec := testRecord(id, base.Add(time.Duration(i)*time.Hour), finished(0, time.Minute))
		if err := store.RecordRace(rec); err != nil {
			t.Fatalf("RecordRace() failed: %v", err)
		}
	}

	races, err := store.RecentRaces(2)
	if err != nil {
		t.Fatalf("RecentRaces() failed: %v", err)
	}
	if len(races) != 2 {
		t.Fatalf("expected 2 races, got %d", len(races))
	}
	if races[0].RaceID != "r3" || races[1].RaceID != "r2" {
		t.Errorf("order = %s, %s; want r3, r2", races[0].RaceID, races[1].RaceID)
	}
}

func TestStoreLeaderboard(t *testing.T) {
	store := openTestStore(t)
	start := time.Now()

	records := []race.RaceRecord{
		testRecord("r1", start, finished(0, 60*time.Second), finished(1, 70*time.Second)),
		testRecord("r2", start.Add(time.Hour), finished(1, 55*time.Second), dnf(0)),
		testRecord("r3", start.Add(2*time.Hour), dnf(2)),
	}
	for _, rec := range records {
		if err := store.RecordRace(rec); err != nil {
			t.Fatalf("RecordRace() failed: %v", err)
		}
	}

	board, err := store.Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard() failed: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 entries (DNF-only racers excluded), got %d", len(board))
	}
	if board[0].Name != "Player 1" || board[0].BestMs != 55000 || board[0].Finishes != 2 {
		t.Errorf("board[0] = %+v", board[0])
	}
	if board[1].Name != "Player 0" || board[1].Races != 2 || board[1].Finishes != 1 {
		t.Errorf("board[1] = %+v", board[1])
	}
}

func TestStoreStatsAndClear(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.Races != 0 || stats.HasRecord {
		t.Errorf("empty stats = %+v", stats)
	}

	rec := testRecord("r1", time.Now(), finished(0, 30*time.Second), dnf(1))
	if err := store.RecordRace(rec); err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}

	stats, err = store.GetStats()
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.Races != 1 || stats.Finishes != 1 || stats.BestMs != 30000 || !stats.HasRecord {
		t.Errorf("stats = %+v", stats)
	}

	if err := store.ClearRaces(); err != nil {
		t.Fatalf("ClearRaces() failed: %v", err)
	}
	races, err := store.RecentRaces(10)
	if err != nil {
		t.Fatalf("RecentRaces() failed: %v", err)
	}
	if len(races) != 0 {
		t.Errorf("expected no races after clear, got %d", len(races))
	}
}
