package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Warnw("warn", map[string]any{"rake": "R1"})
	l.Errorf("error")
}

func TestZerologLoggerFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "formation").With("run", "abc")
	l.Warnw("assignment discarded", map[string]any{"rake": "R1", "orders": []string{"o1"}})

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "formation", line["component"])
	assert.Equal(t, "abc", line["run"])
	assert.Equal(t, "R1", line["rake"])
	assert.Equal(t, "assignment discarded", line["message"])
}

func TestZerologLoggerLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "x")
	l.Debugf("hidden")
	l.Infof("hidden")
	l.Errorf("shown")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Warnw("ignored", nil)
}
