package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultDataDir_XDG(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	require.Equal(t, "/custom/data/txlog", DefaultDataDir())
}

func TestDefaultDataDir_NoHome(t *testing.T) {
	t.Setenv("HOME", "")

	require.Equal(t, "./data", DefaultDataDir())
}

func TestDefaultDataDir_CrossPlatform(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "")

	result := DefaultDataDir()

	require.NotEmpty(t, result)
	require.True(t, filepath.IsAbs(result) || strings.HasPrefix(result, "./"), result)
	require.True(t, strings.HasSuffix(strings.ToLower(result), "txlog"), result)
	require.Equal(t, result, DefaultDataDir())
}

func TestIsDir(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"existing directory", ".", true},
		{"non-existent path", "/non/existent/path/that/does/not/exist", false},
		{"file instead of directory", os.Args[0], false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, isDir(tt.path))
		})
	}
}
