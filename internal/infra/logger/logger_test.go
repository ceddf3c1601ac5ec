package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesintel/internal/infra/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), tt.input)
	}
}

func TestNewJSONFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salesintel.log")
	log, closer, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: path, Service: "salesintel"})
	require.NoError(t, err)

	log.Debug("agent run started", "agent", "backup-agent", "run_id", "r1")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "agent run started", entry["msg"])
	assert.Equal(t, "salesintel", entry["service"])
	assert.Equal(t, "backup-agent", entry["agent"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	log, closer, err := New(config.LoggerConfig{Level: "warn", Output: path})
	require.NoError(t, err)
	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "msg=kept")
}

func TestOpenOutput(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", "", "discard"} {
		w, closer, err := openOutput(out)
		require.NoError(t, err, out)
		assert.NotNil(t, w)
		assert.NoError(t, closer())
	}

	_, _, err := openOutput(filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
