// Package config provides YAML-based configuration loading for the race
// server: listener, websocket keep-alive, session rules, persistence,
// the SSH monitor and the NATS results feed.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/racehub/internal/race"
)

// Config contains all configuration for a racehub server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Session    SessionConfig    `yaml:"session"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	NATS       NATSConfig       `yaml:"nats"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	WSPath         string   `yaml:"ws_path"`
	AllowedOrigins []string `yaml:"allowed_origins"` // "*" allows any origin
	ReadTimeout    string   `yaml:"read_timeout"`
	WriteTimeout   string   `yaml:"write_timeout"`
	IdleTimeout    string   `yaml:"idle_timeout"`
}

// ConnectionConfig defines per-websocket limits and keep-alive.
type ConnectionConfig struct {
	WriteTimeout   string `yaml:"write_timeout"`
	ReadTimeout    string `yaml:"read_timeout"`
	PingInterval   string `yaml:"ping_interval"`
	MaxMessageSize int64  `yaml:"max_message_size"`
	SendBuffer     int    `yaml:"send_buffer"`
}

// SessionConfig defines the race rules.
type SessionConfig struct {
	MinParticipants int               `yaml:"min_participants"`
	DefaultRounds   int               `yaml:"default_rounds"`
	MinRounds       int               `yaml:"min_rounds"`
	MaxRounds       int               `yaml:"max_rounds"`
	StrictSpawn     bool              `yaml:"strict_spawn"`
	SpawnPoints     []race.SpawnPoint `yaml:"spawn_points"`
}

// StorageConfig defines result persistence. An empty DBPath disables it.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// MonitorConfig defines the SSH operator monitor.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	HostKey string `yaml:"host_key"`
	Refresh string `yaml:"refresh"`
}

// NATSConfig defines the results feed. An empty URL disables it.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LogConfig defines logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	s := c.Session
	if s.MinParticipants < 1 {
		errs = append(errs, fmt.Errorf("session.min_participants must be at least 1, got %d", s.MinParticipants))
	}
	if s.MinRounds < 1 || s.MinRounds > s.MaxRounds {
		errs = append(errs, fmt.Errorf("session rounds range [%d, %d] is invalid", s.MinRounds, s.MaxRounds))
	}
	if s.DefaultRounds < s.MinRounds || s.DefaultRounds > s.MaxRounds {
		errs = append(errs, fmt.Errorf("session.default_rounds %d outside [%d, %d]", s.DefaultRounds, s.MinRounds, s.MaxRounds))
	}
	if len(s.SpawnPoints) == 0 {
		errs = append(errs, errors.New("session.spawn_points must not be empty"))
	}

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
		errs = append(errs, fmt.Errorf("server.ws_path %q must start with /", c.Server.WSPath))
	}
	if c.Connection.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("connection.max_message_size must be positive"))
	}
	if c.Connection.SendBuffer <= 0 {
		errs = append(errs, errors.New("connection.send_buffer must be positive"))
	}

	durations := map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.idle_timeout":      c.Server.IdleTimeout,
		"connection.write_timeout": c.Connection.WriteTimeout,
		"connection.read_timeout":  c.Connection.ReadTimeout,
		"connection.ping_interval": c.Connection.PingInterval,
		"monitor.refresh":          c.Monitor.Refresh,
	}
	for field, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", field, v))
		}
	}
	if ping, err := time.ParseDuration(c.Connection.PingInterval); err == nil {
		if read, err := time.ParseDuration(c.Connection.ReadTimeout); err == nil && ping >= read {
			errs = append(errs, errors.New("connection.ping_interval must be shorter than connection.read_timeout"))
		}
	}

	if c.Monitor.Enabled && c.Monitor.Addr == "" {
		errs = append(errs, errors.New("monitor.addr is required when the monitor is enabled"))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required when nats.url is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// CoordinatorConfig converts the session section into coordinator rules.
func (c Config) CoordinatorConfig() race.CoordinatorConfig {
	return race.CoordinatorConfig{
		MinParticipants: c.Session.MinParticipants,
		DefaultRounds:   c.Session.DefaultRounds,
		MinRounds:       c.Session.MinRounds,
		MaxRounds:       c.Session.MaxRounds,
		StrictSpawn:     c.Session.StrictSpawn,
		SpawnPoints:     append([]race.SpawnPoint(nil), c.Session.SpawnPoints...),
		EventBuffer:     256,
	}
}

// Durations of a validated config. Unparseable values yield zero.

func (s ServerConfig) ReadTimeoutDuration() time.Duration  { return duration(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration { return duration(s.WriteTimeout) }
func (s ServerConfig) IdleTimeoutDuration() time.Duration  { return duration(s.IdleTimeout) }

func (c ConnectionConfig) WriteTimeoutDuration() time.Duration { return duration(c.WriteTimeout) }
func (c ConnectionConfig) ReadTimeoutDuration() time.Duration  { return duration(c.ReadTimeout) }
func (c ConnectionConfig) PingIntervalDuration() time.Duration { return duration(c.PingInterval) }

func (m MonitorConfig) RefreshDuration() time.Duration { return duration(m.Refresh) }

func duration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
