package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, "pebble", cfg.Backend)
	require.Equal(t, "always", cfg.Fsync)
	require.Equal(t, 5*time.Millisecond, cfg.FsyncInterval())
	require.Equal(t, "info", cfg.LogLevel)
	require.NotEmpty(t, cfg.DataDir)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "txlog.json")
	data := []byte(`{"dataDir":"/srv/logs","backend":"bolt","fsyncIntervalMs":20}`)
	require.NoError(t, os.WriteFile(file, data, 0644))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "/srv/logs", cfg.DataDir)
	require.Equal(t, "bolt", cfg.Backend)
	require.Equal(t, 20*time.Millisecond, cfg.FsyncInterval())
	// Untouched keys keep their default.
	require.Equal(t, "always", cfg.Fsync)
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "txlog.yml")
	data := []byte("dataDir: /srv/yaml\nfsync: interval\nlogLevel: debug\nlogFormat: json\n")
	require.NoError(t, os.WriteFile(file, data, 0644))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "/srv/yaml", cfg.DataDir)
	require.Equal(t, "interval", cfg.Fsync)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "pebble", cfg.Backend)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("dataDir: [unterminated"), 0644))

	_, err = Load(file)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TXLOG_DATA_DIR", "/env/data")
	t.Setenv("TXLOG_BACKEND", "bolt")
	t.Setenv("TXLOG_FSYNC", "never")
	t.Setenv("TXLOG_FSYNC_INTERVAL_MS", "50")
	t.Setenv("TXLOG_LOG_LEVEL", "warn")
	t.Setenv("TXLOG_LOG_FORMAT", "json")

	cfg := Default()
	FromEnv(&cfg)

	require.Equal(t, Config{
		DataDir:         "/env/data",
		Backend:         "bolt",
		Fsync:           "never",
		FsyncIntervalMs: 50,
		LogLevel:        "warn",
		LogFormat:       "json",
	}, cfg)
}

func TestFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("TXLOG_FSYNC_INTERVAL_MS", "soon")

	cfg := Default()
	FromEnv(&cfg)

	require.Equal(t, 5*time.Millisecond, cfg.FsyncInterval())
}
