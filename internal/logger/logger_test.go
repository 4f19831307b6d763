package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFieldsAndServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("unlock-api", "debug", &buf)
	l.WithRequestID("req-1").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "unlock-api", line["service"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Contains(t, line, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("svc", "warn", &buf)
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}
