package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("prod writes json at info", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		log := New(EnvProd, "", buf)

		log.Debug("hidden")
		log.Info("visible", slog.Int("rows_affected", 1))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "visible", entry["msg"])
		assert.EqualValues(t, 1, entry["rows_affected"])
	})

	t.Run("staging writes json at debug", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		New(EnvStaging, "", buf).Debug("visible")

		assert.True(t, json.Valid(buf.Bytes()))
		assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	})

	t.Run("dev writes text", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		New(EnvDev, "", buf).Debug("visible")

		assert.Contains(t, buf.String(), "level=DEBUG msg=visible")
	})

	t.Run("configured level wins", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		log := New(EnvDev, "warn", buf)

		log.Info("hidden")
		log.Warn("visible")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want slog.Level
	}{
		"debug":         {"debug", slog.LevelDebug},
		"upper case":    {"INFO", slog.LevelInfo},
		"warning alias": {"warning", slog.LevelWarn},
		"error":         {"error", slog.LevelError},
		"empty":         {"", slog.LevelInfo},
		"unknown":       {"loud", slog.LevelInfo},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, parseLevel(tt.in, slog.LevelInfo))
		})
	}
}

func TestWithRequestID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	WithRequestID(New(EnvDev, "", buf), "abc").Info("hello")

	assert.Contains(t, buf.String(), "request_id=abc")
}
