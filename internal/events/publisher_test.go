package events

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/racehub/internal/race"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	closed  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subject = subject
	f.data = data
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func testRecord() race.RaceRecord {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	winner := 42 * time.Second
	return race.RaceRecord{
		RaceID:     "race-1",
		Rounds:     3,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Results: []race.Result{
			{ID: 1, Name: "Player 1", Elapsed: &winner},
			{ID: 0, Name: "Player 0"},
		},
	}
}

func TestPublisherRecordRace(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "racehub.results", log.New(io.Discard))

	if err := p.RecordRace(testRecord()); err != nil {
		t.Fatalf("RecordRace() failed: %v", err)
	}
	if fc.subject != "racehub.results" {
		t.Errorf("subject = %q", fc.subject)
	}

	var got RaceFinished
	if err := json.Unmarshal(fc.data, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.RaceID != "race-1" || got.Rounds != 3 || len(got.Results) != 2 {
		t.Errorf("payload = %+v", got)
	}
	if got.Results[0].Time == nil || *got.Results[0].Time != 42000 {
		t.Errorf("winner time = %v, want 42000", got.Results[0].Time)
	}
	if got.Results[1].Time != nil {
		t.Errorf("DNF time = %d, want null", *got.Results[1].Time)
	}

	p.Close()
	if !fc.closed {
		t.Error("Close() did not close the connection")
	}
}

func TestPublisherRecordRaceError(t *testing.T) {
	boom := errors.New("connection closed")
	p := newPublisher(&fakeConn{err: boom}, "racehub.results", log.New(io.Discard))

	err := p.RecordRace(testRecord())
	if !errors.Is(err, boom) {
		t.Errorf("RecordRace() = %v, want wrapped %v", err, boom)
	}
}

func TestNewPublisherRequiresSubject(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Subject = ""
	if _, err := NewPublisher(cfg, nil); err == nil {
		t.Error("expected error for empty subject")
	}
}
