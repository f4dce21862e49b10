package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logFile := filepath.Join(t.TempDir(), "farmguide.log")
	logger, cleanup, err := New("info", "json", logFile)
	require.NoError(t, err)

	logger.Info("hello farm", "crop", "wheat")
	cleanup()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello farm"`)
	assert.Contains(t, string(data), `"crop":"wheat"`)
}

func TestNewTextFormatKeepsJSONInFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logFile := filepath.Join(t.TempDir(), "farmguide.log")
	logger, cleanup, err := New("debug", "text", logFile)
	require.NoError(t, err)

	logger.Debug("debug line", "k", "v")
	cleanup()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug line"`)
}

func TestFanoutRespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := fanout{
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("svc", "farmguide")

	logger.Info("only info")
	logger.Error("both")

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.Contains(t, infoBuf.String(), "only info")
	assert.Contains(t, infoBuf.String(), "both")
	assert.NotContains(t, errBuf.String(), "only info")
	assert.Contains(t, errBuf.String(), `"svc":"farmguide"`)
}
