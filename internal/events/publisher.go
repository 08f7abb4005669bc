// Package events publishes finished races to NATS so other services can
// consume results without polling the HTTP API.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/vovakirdan/racehub/internal/protocol"
	"github.com/vovakirdan/racehub/internal/race"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Subject       string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the default publisher configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Subject:       "racehub.results",
		Name:          "racehub",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// RaceFinished is the payload published for every completed race.
type RaceFinished struct {
	RaceID     string                 `json:"raceId"`
	Rounds     int                    `json:"rounds"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
	Results    []protocol.ResultEntry `json:"results"`
}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Publisher sends finished races to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
	logger  *log.Logger
}

// NewPublisher connects to NATS.
func NewPublisher(cfg Config, logger *log.Logger) (*Publisher, error) {
	if cfg.Subject == "" {
		return nil, errors.New("events: subject is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", "error", err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}
	logger.Info("NATS connected", "url", nc.ConnectedUrl(), "subject", cfg.Subject)

	return newPublisher(nc, cfg.Subject, logger), nil
}

func newPublisher(nc conn, subject string, logger *log.Logger) *Publisher {
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

// RecordRace implements race.ResultRecorder.
func (p *Publisher) RecordRace(rec race.RaceRecord) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("events: publish race %s: %w", rec.RaceID, err)
	}
	p.logger.Debug("race published", "race", rec.RaceID, "subject", p.subject, "bytes", len(data))
	return nil
}

// Ensure Publisher implements ResultRecorder
var _ race.ResultRecorder = (*Publisher)(nil)

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Encode renders rec as the published JSON payload.
func Encode(rec race.RaceRecord) ([]byte, error) {
	msg := RaceFinished{
		RaceID:     rec.RaceID,
		Rounds:     rec.Rounds,
		StartedAt:  rec.StartedAt.UTC(),
		FinishedAt: rec.FinishedAt.UTC(),
		Results:    make([]protocol.ResultEntry, len(rec.Results)),
	}
	for i, r := range rec.Results {
		msg.Results[i] = r.Entry()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("events: marshal race %s: %w", rec.RaceID, err)
	}
	return data, nil
}
