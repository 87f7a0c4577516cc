package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("resolved", zap.String("tool", "jq"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolved", entry["msg"])
	assert.Equal(t, "jq", entry["tool"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `invalid log level "loud"`)

	_, err = New(Config{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `invalid log format "xml"`)
}

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info("dropped")
}

func TestLineWriterLogsEachLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := With(WithLogger(context.Background(), zap.New(core)), zap.String("host", "web"))

	w := LineWriter(ctx, zapcore.InfoLevel)
	_, err := w.Write([]byte("first\nsecond\npartial"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "partial", entries[2].Message)
	assert.Equal(t, "web", entries[0].ContextMap()["host"])
}
