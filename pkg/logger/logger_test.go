package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&Config{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)

	l = l.Component("runner").With(String("runner", "prediction"))
	l.Info("dropped")
	l.Warn("retrying", Int("attempt", 2), Error(errors.New("timeout")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1, "info is below the configured level")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "retrying", entry["message"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "prediction", entry["runner"])
	assert.Equal(t, 2.0, entry["attempt"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}
