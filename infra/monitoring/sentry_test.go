package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rakeform/config"
	coremon "github.com/kilianp07/rakeform/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitor_BadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not-a-dsn"})
	assert.Error(t, err)
}

func TestSentryMonitor_CaptureTags(t *testing.T) {
	var mu sync.Mutex
	var got []*sentry.Event
	m, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", Environment: "test"},
		func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("persist plan p1"), map[string]string{"component": "history"})
	m.CaptureException(errors.New("plain"), nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, "history", got[0].Tags["component"])
	assert.Equal(t, "rakeform", got[0].Tags["service"])
	assert.Equal(t, "test", got[0].Environment)
	_, tagged := got[1].Tags["component"]
	assert.False(t, tagged, "scope tags must not leak")
}

func TestSentryMonitor_CapturePanic(t *testing.T) {
	var got []*sentry.Event
	m, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@example.com/1", SampleRate: 1},
		func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			got = append(got, e)
			return nil
		})
	require.NoError(t, err)

	coremon.Init(m)
	defer coremon.Init(coremon.NopMonitor{})
	assert.PanicsWithValue(t, "boom", func() {
		defer coremon.Recover()
		panic("boom")
	})
	m.CapturePanic(nil)
	require.Len(t, got, 1)
	assert.Equal(t, sentry.LevelFatal, got[0].Level)
}
