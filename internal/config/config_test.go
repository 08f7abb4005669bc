package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestEmbeddedDefaultsMatchDefaultConfig(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal(DefaultYAML(), &cfg); err != nil {
		t.Fatalf("embedded YAML does not parse: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("embedded defaults drifted from DefaultConfig()\n got: %+v\nwant: %+v", cfg, DefaultConfig())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults failed: %v", err)
	}
}

func TestLoadCustomPathKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "racehub.yaml")
	data := []byte(`
server:
  addr: ":9090"
session:
  max_rounds: 5
  strict_spawn: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Session.MaxRounds != 5 || !cfg.Session.StrictSpawn {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Server.WSPath != "/game" || cfg.Session.DefaultRounds != 3 {
		t.Errorf("unset values lost their defaults: ws_path=%q default_rounds=%d", cfg.Server.WSPath, cfg.Session.DefaultRounds)
	}
	if len(cfg.Session.SpawnPoints) != 2 {
		t.Errorf("spawn points = %d, want 2", len(cfg.Session.SpawnPoints))
	}
}

func TestLoadCustomPathErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing custom config")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("session: [not, a, map"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"inverted rounds", func(c *Config) { c.Session.MinRounds, c.Session.MaxRounds = 8, 2 }, "rounds range"},
		{"default outside range", func(c *Config) { c.Session.DefaultRounds = 11 }, "default_rounds"},
		{"no spawn points", func(c *Config) { c.Session.SpawnPoints = nil }, "spawn_points"},
		{"zero participants", func(c *Config) { c.Session.MinParticipants = 0 }, "min_participants"},
		{"bad duration", func(c *Config) { c.Connection.PingInterval = "soon" }, "connection.ping_interval"},
		{"negative timeout", func(c *Config) { c.Server.IdleTimeout = "-1s" }, "server.idle_timeout"},
		{"ping after read deadline", func(c *Config) { c.Connection.PingInterval = "90s" }, "shorter than"},
		{"ws path", func(c *Config) { c.Server.WSPath = "game" }, "ws_path"},
		{"nats subject", func(c *Config) { c.NATS.URL, c.NATS.Subject = "nats://localhost:4222", "" }, "nats.subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvDB, "")
	t.Setenv(EnvNATSURL, "nats://127.0.0.1:4222")
	t.Setenv(EnvSSHAddr, ":2200")
	t.Setenv(EnvLogLevel, "debug")

	cfg := DefaultConfig()
	ApplyEnv(&cfg)

	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.DBPath != "" {
		t.Errorf("DBPath = %q, want disabled", cfg.Storage.DBPath)
	}
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}
	if !cfg.Monitor.Enabled || cfg.Monitor.Addr != ":2200" {
		t.Errorf("monitor = %+v", cfg.Monitor)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnvFile() on a missing file failed: %v", err)
	}

	const key = "RACEHUB_TEST_ENV_FILE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=loaded\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() failed: %v", err)
	}
	if got := os.Getenv(key); got != "loaded" {
		t.Errorf("%s = %q, want loaded", key, got)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Connection.PingIntervalDuration(); got != 30*time.Second {
		t.Errorf("PingIntervalDuration() = %v", got)
	}
	if got := cfg.Monitor.RefreshDuration(); got != 500*time.Millisecond {
		t.Errorf("RefreshDuration() = %v", got)
	}

	coord := cfg.CoordinatorConfig()
	if coord.MaxRounds != 10 || len(coord.SpawnPoints) != 2 {
		t.Errorf("CoordinatorConfig() = %+v", coord)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(DefaultConfig())
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if !strings.Contains(string(data), "ws_path: /game") {
		t.Errorf("marshalled config missing ws_path:\n%s", data)
	}
}
