package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesActionAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := NewWithOptions("kitchen", Options{Level: "debug", Format: "json", Output: buf})

	lg.With(map[string]any{"worker": "w-1"}).Error("preparation_interrupted", errors.New("boom"), map[string]any{"dish": "Maki"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "kitchen", entry["service"])
	assert.Equal(t, "preparation_interrupted", entry["action"])
	assert.Equal(t, "w-1", entry["worker"])
	assert.Equal(t, "Maki", entry["dish"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := NewWithOptions("orders", Options{Level: "info", Format: "json", Output: buf})

	lg.Debug("hidden", nil)
	assert.Zero(t, buf.Len())

	lg.Info("shown", nil)
	assert.Contains(t, buf.String(), `"action":"shown"`)
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var lg *Logger
	assert.NotPanics(t, func() {
		lg.Info("x", nil)
		lg.Error("x", errors.New("y"), nil)
		_ = lg.With(map[string]any{"a": 1})
	})
}
