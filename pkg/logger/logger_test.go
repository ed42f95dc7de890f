package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/print-price-matrix/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: " info ", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "Warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.ParseLevel(tt.input))
		})
	}
}

func TestNewWithWriter_Formats(t *testing.T) {
	t.Parallel()

	t.Run("text uses charm formatting", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger.NewWithWriter(&buf, "debug", "text").
			With("job_id", "j1").
			Debug("combination priced", "combination_id", 7)

		out := buf.String()
		assert.Contains(t, out, "DEBU")
		assert.Contains(t, out, "combination priced")
		assert.Contains(t, out, "job_id=j1")
		assert.Contains(t, out, "combination_id=7")
		assert.NotContains(t, out, `"msg"`)
	})

	t.Run("json is one object per line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger.NewWithWriter(&buf, "info", "json").
			Info("extraction job finished", "job_id", "j2", "error_count", 3)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "INFO", rec["level"])
		assert.Equal(t, "extraction job finished", rec["msg"])
		assert.Equal(t, "j2", rec["job_id"])
		assert.InDelta(t, 3, rec["error_count"], 0)
	})
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		level  string
		format string
		emit   func(*slog.Logger)
		want   bool
	}{
		{name: "debug at debug", level: "debug", format: "text", emit: func(l *slog.Logger) { l.Debug("x") }, want: true},
		{name: "debug at info", level: "info", format: "text", emit: func(l *slog.Logger) { l.Debug("x") }, want: false},
		{name: "info at warn", level: "warn", format: "text", emit: func(l *slog.Logger) { l.Info("x") }, want: false},
		{name: "error at warn", level: "warn", format: "text", emit: func(l *slog.Logger) { l.Error("x") }, want: true},
		{name: "json debug at info", level: "info", format: "json", emit: func(l *slog.Logger) { l.Debug("x") }, want: false},
		{name: "json warn at info", level: "info", format: "json", emit: func(l *slog.Logger) { l.Warn("x") }, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.emit(logger.NewWithWriter(&buf, tt.level, tt.format))
			assert.Equal(t, tt.want, buf.Len() > 0)
		})
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	l := logger.Discard()
	require.NotNil(t, l)
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))
	l.Error("dropped")
}

func TestNew(t *testing.T) {
	t.Parallel()
	require.NotNil(t, logger.New("info", "text"))
}
