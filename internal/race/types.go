// Package race implements the session coordinator for a shared timed race:
// lobby assembly, host election, synchronized start, finish tracking and
// ranked results. All session state is owned by a single Coordinator
// goroutine; transports feed it events and receive protocol messages back
// through SessionHandle.
package race

import (
	"fmt"
	"time"

	"github.com/vovakirdan/racehub/internal/protocol"
)

// ParticipantID is an alias to protocol.ParticipantID for convenience.
type ParticipantID = protocol.ParticipantID

// Phase is an alias to protocol.Phase.
type Phase = protocol.Phase

// Re-export phase constants.
const (
	PhaseWaiting = protocol.PhaseWaiting
	PhaseRacing  = protocol.PhaseRacing
	PhaseResults = protocol.PhaseResults
)

// Settings is the host-controlled race configuration.
type Settings = protocol.Settings

// SpawnPoint is a fixed starting position and heading.
type SpawnPoint struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Rotation float64 `yaml:"rotation" json:"rotation"`
}

// Participant is one connected client.
type Participant struct {
	ID     ParticipantID
	Name   string
	Handle SessionHandle

	// Slot is the spawn slot bound at race start, nil outside a race or for
	// spectators who joined mid-race.
	Slot *int

	// FinishedAt is set once the participant reports a finish.
	FinishedAt *time.Time
}

// DisplayName returns the default name for an identity.
func DisplayName(id ParticipantID) string {
	return fmt.Sprintf("Player %d", id)
}

// Result is one line of the final standings. Elapsed is nil for DNF.
type Result struct {
	ID      ParticipantID
	Name    string
	Elapsed *time.Duration
}

// Finished reports whether the racer has a recorded time.
func (r Result) Finished() bool {
	return r.Elapsed != nil
}

// Entry converts a result to its wire form.
func (r Result) Entry() protocol.ResultEntry {
	e := protocol.ResultEntry{ID: r.ID, Name: r.Name}
	if r.Elapsed != nil {
		ms := r.Elapsed.Milliseconds()
		e.Time = &ms
	}
	return e
}

// RaceRecord is a completed race handed to result recorders.
type RaceRecord struct {
	RaceID     string
	Rounds     int
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []Result
}

// ResultRecorder persists or forwards completed races.
// Implementations are called off the coordinator goroutine.
type ResultRecorder interface {
	RecordRace(rec RaceRecord) error
}

// ParticipantView is a read-only roster line in a Snapshot.
type ParticipantView struct {
	ID       ParticipantID  `json:"id"`
	Name     string         `json:"name"`
	IsHost   bool           `json:"isHost"`
	Slot     *int           `json:"slot,omitempty"`
	Finished bool           `json:"finished"`
	Elapsed  *time.Duration `json:"-"`
	TimeMs   *int64         `json:"time,omitempty"`
}

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Phase       Phase                  `json:"phase"`
	HostID      *ParticipantID         `json:"hostId"`
	Settings    Settings               `json:"configuration"`
	RaceID      string                 `json:"raceId,omitempty"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	Roster      []ParticipantView      `json:"roster"`
	LastResults []protocol.ResultEntry `json:"lastResults,omitempty"`
}
