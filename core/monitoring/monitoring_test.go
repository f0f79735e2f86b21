package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	mu      sync.Mutex
	errs    []error
	tags    []map[string]string
	panics  []any
	flushed int
}

func (f *fakeMonitor) CaptureException(err error, tags map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
	f.tags = append(f.tags, tags)
}

func (f *fakeMonitor) CapturePanic(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = append(f.panics, v)
}

func (f *fakeMonitor) Flush(time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
}

func install(t *testing.T) *fakeMonitor {
	t.Helper()
	f := &fakeMonitor{}
	Init(f)
	t.Cleanup(func() { Init(NopMonitor{}) })
	return f
}

func TestInitIgnoresNil(t *testing.T) {
	f := install(t)
	Init(nil)
	assert.Same(t, f, Current())
}

func TestCaptureException(t *testing.T) {
	f := install(t)
	CaptureException(nil, nil)
	CaptureException(errors.New("store down"), map[string]string{"module": "history"})

	require.Len(t, f.errs, 1)
	assert.EqualError(t, f.errs[0], "store down")
	assert.Equal(t, "history", f.tags[0]["module"])
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	f := install(t)
	assert.PanicsWithValue(t, "boom", func() {
		defer Recover()
		panic("boom")
	})
	assert.Equal(t, []any{"boom"}, f.panics)
	assert.Equal(t, 1, f.flushed)
}

func TestRecoverWithoutPanic(t *testing.T) {
	f := install(t)
	func() {
		defer Recover()
	}()
	assert.Empty(t, f.panics)
	assert.Zero(t, f.flushed)
}

func TestGoRunsFunction(t *testing.T) {
	install(t)
	done := make(chan struct{})
	Go(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function not run")
	}
}
