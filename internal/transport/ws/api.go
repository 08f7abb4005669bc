package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vovakirdan/racehub/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	snapshotTimeout  = 2 * time.Second
)

type raceJSON struct {
	RaceID     string    `json:"raceId"`
	Rounds     int       `json:"rounds"`
	Racers     int       `json:"racers"`
	Finishers  int       `json:"finishers"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
}

type resultJSON struct {
	Position      int    `json:"position"`
	ParticipantID int    `json:"participantId"`
	Name          string `json:"name"`
	Time          *int64 `json:"time"`
}

type leaderJSON struct {
	Name     string `json:"name"`
	BestMs   int64  `json:"bestMs"`
	Finishes int    `json:"finishes"`
	Races    int    `json:"races"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	snap, err := s.coord.Snapshot(ctx)
	if err != nil {
		s.logger.Error("snapshot failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRaces(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	races, err := s.store.RecentRaces(parseLimit(r))
	if err != nil {
		s.logger.Error("list races failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cannot list races")
		return
	}

	out := make([]raceJSON, len(races))
	for i, rc := range races {
		out[i] = toRaceJSON(rc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRace(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	raceID := r.PathValue("id")
	rows, err := s.store.RaceResults(raceID)
	if err != nil {
		s.logger.Error("race results failed", "race", raceID, "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load race")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "race not found")
		return
	}

	out := make([]resultJSON, len(rows))
	for i, row := range rows {
		out[i] = resultJSON{
			Position:      row.Position,
			ParticipantID: row.ParticipantID,
			Name:          row.Name,
			Time:          row.TimeMs,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"raceId": raceID, "results": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	entries, err := s.store.Leaderboard(parseLimit(r))
	if err != nil {
		s.logger.Error("leaderboard failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cannot load leaderboard")
		return
	}

	out := make([]leaderJSON, len(entries))
	for i, e := range entries {
		out[i] = leaderJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "result storage disabled")
		return false
	}
	return true
}

func toRaceJSON(r storage.RaceSummary) raceJSON {
	return raceJSON{
		RaceID:     r.RaceID,
		Rounds:     r.Rounds,
		Racers:     r.Racers,
		Finishers:  r.Finishers,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
		DurationMs: r.Duration().Milliseconds(),
	}
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
