package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the txlog command, loaded from file/env.
type Config struct {
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Backend         string `json:"backend" yaml:"backend"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
	LogLevel        string `json:"logLevel" yaml:"logLevel"`
	LogFormat       string `json:"logFormat" yaml:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DataDir:         DefaultDataDir(),
		Backend:         "pebble",
		Fsync:           "always",
		FsyncIntervalMs: 5,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// FsyncInterval returns FsyncIntervalMs as a duration.
func (c Config) FsyncInterval() time.Duration {
	return time.Duration(c.FsyncIntervalMs) * time.Millisecond
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read config: %w", err)
	}

	cfg := Default()

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return Config{}, xerrors.Errorf("failed to parse config '%s': %w", path, err)
	}

	return cfg, nil
}
