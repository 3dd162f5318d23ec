package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	logger.Debug("should be filtered")
	logger.Info("hello")
	logger.Warn("careful")
	logger.Error("broken")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "hello", entries[0]["message"])
	assert.NotEmpty(t, entries[0]["timestamp"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "ERROR", entries[2]["level"])
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DebugLevel, &buf).WithFields(map[string]interface{}{
		"service": "krige",
	})

	logger.WithField("model_id", "gp_1").Info("fitted", map[string]interface{}{
		"samples": 5,
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "krige", entries[0]["service"])
	assert.Equal(t, "gp_1", entries[0]["model_id"])
	assert.EqualValues(t, 5, entries[0]["samples"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	New(DebugLevel, &buf).WithError(errors.New("boom")).Error("operation failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, "operation failed", entries[0]["message"])
}

func TestLoggerWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(DebugLevel, &buf)
	_ = parent.WithField("child_only", true)

	parent.Info("from parent")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	_, ok := entries[0]["child_only"]
	assert.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{in: "debug", want: DebugLevel},
		{in: "INFO", want: InfoLevel},
		{in: "warn", want: WarnLevel},
		{in: "error", want: ErrorLevel},
		{in: "fatal", want: FatalLevel},
		{in: "verbose", want: InfoLevel}, // unknown levels fall back to info
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestZapAdapterForwardsEntries(t *testing.T) {
	var buf bytes.Buffer
	zlog := NewZapLogger(New(DebugLevel, &buf))

	zlog.Named("gaussian_process").Info("fitted GP model",
		zap.Int("samples", 5),
		zap.Float64("noise_var", 1e-6),
		zap.String("kernel", "rbf"),
		zap.Bool("jitter", false),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "fitted GP model", entries[0]["message"])
	assert.Equal(t, "gaussian_process", entries[0]["logger"])
	assert.EqualValues(t, 5, entries[0]["samples"])
	assert.InDelta(t, 1e-6, entries[0]["noise_var"].(float64), 1e-18)
	assert.Equal(t, "rbf", entries[0]["kernel"])
	assert.Equal(t, false, entries[0]["jitter"])
}

func TestZapAdapterLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	zlog := NewZapLogger(New(WarnLevel, &buf))

	zlog.Debug("filtered")
	zlog.Info("filtered too")
	zlog.Warn("kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["message"])
}
