package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ls-lnb/tg-bookmarks/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "topic_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, float64(7), entry["topic_id"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Debug("hello", "run_id", "abc")
	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestNewWithWriter_UnknownFormat(t *testing.T) {
	_, err := NewWithWriter(config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tgb.log")
	logger, closer, err := New(config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNew_Stderr(t *testing.T) {
	logger, closer, err := New(config.LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}
