package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvAddr     = "RACEHUB_ADDR"
	EnvDB       = "RACEHUB_DB"
	EnvNATSURL  = "RACEHUB_NATS_URL"
	EnvSSHAddr  = "RACEHUB_SSH_ADDR"
	EnvLogLevel = "RACEHUB_LOG_LEVEL"
)

const fileName = "racehub.yaml"

// Load loads the server configuration.
// Search order: customPath -> ~/.racehub/racehub.yaml -> ./configs/racehub.yaml -> embedded default
// Values missing from the file keep their defaults.
func Load(customPath string) (Config, error) {
	cfg := DefaultConfig()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath(fileName); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err == nil {
				return cfg, nil
			}
			cfg = DefaultConfig()
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", fileName)); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, nil
		}
		cfg = DefaultConfig()
	}

	// Use embedded default YAML
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return DefaultConfig(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".racehub", filename)
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any RACEHUB_* variables that are set.
func ApplyEnv(cfg *Config) {
	if v, ok := lookupEnv(EnvAddr); ok {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvDB); ok {
		// Set but empty disables persistence.
		cfg.Storage.DBPath = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvNATSURL); ok {
		cfg.NATS.URL = strings.TrimSpace(v)
	}
	if v, ok := lookupEnv(EnvSSHAddr); ok {
		cfg.Monitor.Addr = v
		cfg.Monitor.Enabled = true
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
}

// lookupEnv returns a variable only when it is set to a non-blank value.
func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}
