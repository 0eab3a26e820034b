package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel).With(String("component", "orchestrator"))

	log.Info("run complete",
		Int("events", 42),
		Float64("ratio", 0.5),
		Bool("cached", true),
		Duration("elapsed", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "run complete", entry["message"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, float64(42), entry["events"])
	assert.Equal(t, 0.5, entry["ratio"])
	assert.Equal(t, true, entry["cached"])
	assert.Equal(t, float64(1500), entry["elapsed"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With(String("k", "v")).Error("dropped", Err(errors.New("x")))
	})
}
