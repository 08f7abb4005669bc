package config

import (
	_ "embed"
	"math"

	"github.com/vovakirdan/racehub/internal/race"
)

//go:embed defaults/racehub.yaml
var defaultYAML []byte

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			WSPath:         "/game",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    "15s",
			WriteTimeout:   "15s",
			IdleTimeout:    "60s",
		},
		Connection: ConnectionConfig{
			WriteTimeout:   "10s",
			ReadTimeout:    "60s",
			PingInterval:   "30s",
			MaxMessageSize: 4096,
			SendBuffer:     256,
		},
		Session: SessionConfig{
			MinParticipants: 1,
			DefaultRounds:   3,
			MinRounds:       1,
			MaxRounds:       10,
			SpawnPoints: []race.SpawnPoint{
				{X: 296, Y: 32, Rotation: math.Pi / 2},
				{X: 296, Y: 96, Rotation: math.Pi / 2},
			},
		},
		Storage: StorageConfig{
			DBPath: "~/.racehub/races.db",
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Addr:    ":2222",
			HostKey: ".ssh/racehub_ed25519",
			Refresh: "500ms",
		},
		NATS: NATSConfig{
			Subject: "racehub.results",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
