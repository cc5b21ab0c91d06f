package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/tokenparser/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want slog.Level
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "", want: slog.LevelInfo},
		{name: "INFO", want: slog.LevelInfo},
		{name: "warning", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
	}

	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := logging.ParseLevel("loud")
	require.ErrorIs(t, err, logging.ErrUnknownLevel)
}

// Tests below share logging.Level and do not run in
// parallel.

func TestNew_fans_out_to_text_and_json_file(t *testing.T) {
	var text bytes.Buffer

	logFile := filepath.Join(t.TempDir(), "log.json")

	logger, closer, err := logging.New(logging.Options{
		Level:  "debug",
		File:   logFile,
		Writer: &text,
	})
	require.NoError(t, err)

	logger.Debug("scanned template", "tokens", 3)
	closer()

	assert.Contains(t, text.String(), "scanned template")
	assert.Contains(t, text.String(), "tokens=3")

	raw, err := os.ReadFile(logFile) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"scanned template"`)
}

func TestNew_respects_level(t *testing.T) {
	var text bytes.Buffer

	logger, closer, err := logging.New(logging.Options{
		Level:  "warn",
		Writer: &text,
	})
	require.NoError(t, err)

	defer closer()

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, text.String(), "hidden")
	assert.Contains(t, text.String(), "shown")
}

func TestNew_bad_level(t *testing.T) {
	_, _, err := logging.New(logging.Options{Level: "loud"})

	require.ErrorIs(t, err, logging.ErrUnknownLevel)
}
