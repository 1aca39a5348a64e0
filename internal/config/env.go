package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TXLOG_* environment variables onto cfg. Values that fail to
// parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TXLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TXLOG_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("TXLOG_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("TXLOG_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("TXLOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TXLOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
