package race

import (
	"sort"
	"time"
)

// Lifecycle tracks one race: who was on the grid, when it started and who has
// crossed the line. Not safe for concurrent use.
type Lifecycle struct {
	raceID    string
	rounds    int
	startedAt time.Time
	started   bool

	// Participants of record in grid order, with names captured at start so
	// racers who disconnect still appear in the standings.
	order    []ParticipantID
	names    map[ParticipantID]string
	finishes map[ParticipantID]time.Time
}

// NewLifecycle creates an idle lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		names:    make(map[ParticipantID]string),
		finishes: make(map[ParticipantID]time.Time),
	}
}

// Begin starts a race for racers, discarding any previous finish records.
func (l *Lifecycle) Begin(raceID string, at time.Time, rounds int, racers []*Participant) {
	l.Reset()
	l.raceID = raceID
	l.rounds = rounds
	l.startedAt = at
	l.started = true
	for _, p := range racers {
		l.order = append(l.order, p.ID)
		l.names[p.ID] = p.Name
	}
}

// Reset forgets the current race.
func (l *Lifecycle) Reset() {
	l.raceID = ""
	l.rounds = 0
	l.startedAt = time.Time{}
	l.started = false
	l.order = nil
	clear(l.names)
	clear(l.finishes)
}

// Started reports whether a race has begun since the last Reset.
func (l *Lifecycle) Started() bool {
	return l.started
}

// RaceID returns the identifier of the current race.
func (l *Lifecycle) RaceID() string {
	return l.raceID
}

// Rounds returns the frozen lap count.
func (l *Lifecycle) Rounds() int {
	return l.rounds
}

// StartedAt returns the race start time.
func (l *Lifecycle) StartedAt() time.Time {
	return l.startedAt
}

// OfRecord reports whether id was on the grid when the race began.
func (l *Lifecycle) OfRecord(id ParticipantID) bool {
	_, ok := l.names[id]
	return ok
}

// RecordFinish stores a finish for id. Returns false if id is not of record
// or already finished; the first timestamp always wins.
func (l *Lifecycle) RecordFinish(id ParticipantID, at time.Time) bool {
	if !l.started || !l.OfRecord(id) {
		return false
	}
	if _, done := l.finishes[id]; done {
		return false
	}
	l.finishes[id] = at
	return true
}

// FinishedAt returns the recorded finish for id.
func (l *Lifecycle) FinishedAt(id ParticipantID) (time.Time, bool) {
	at, ok := l.finishes[id]
	return at, ok
}

// FinishedCount returns how many racers have finished.
func (l *Lifecycle) FinishedCount() int {
	return len(l.finishes)
}

// Complete reports whether every participant of record that is still
// connected has finished. An empty live set never completes.
func (l *Lifecycle) Complete(connected func(ParticipantID) bool) bool {
	live := 0
	for _, id := range l.order {
		if !connected(id) {
			continue
		}
		live++
		if _, done := l.finishes[id]; !done {
			return false
		}
	}
	return live > 0
}

// Results computes the ranked standings for every participant of record.
func (l *Lifecycle) Results() []Result {
	results := make([]Result, 0, len(l.order))
	for _, id := range l.order {
		r := Result{ID: id, Name: l.names[id]}
		if at, ok := l.finishes[id]; ok {
			elapsed := at.Sub(l.startedAt)
			r.Elapsed = &elapsed
		}
		results = append(results, r)
	}
	return RankResults(results)
}

// RankResults sorts finishers by ascending elapsed time and places DNF entries
// after them. The sort is stable, so DNF entries keep their input order.
func RankResults(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch {
		case a.Finished() && b.Finished():
			return *a.Elapsed < *b.Elapsed
		case a.Finished():
			return true
		default:
			return false
		}
	})
	return results
}
