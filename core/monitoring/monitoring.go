package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor forwards engine errors and panics to an error tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

const panicFlush = 2 * time.Second

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{m: NopMonitor{}}) }

// Init installs the process-wide monitor. nil is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current.Load().m }

// CaptureException records a non-nil error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err != nil {
		Current().CaptureException(err, tags)
	}
}

// Recover reports a panic of the calling goroutine, flushes, and panics
// again. It only works when deferred directly.
func Recover() {
	if r := recover(); r != nil {
		m := Current()
		m.CapturePanic(r)
		m.Flush(panicFlush)
		panic(r)
	}
}

// Go runs fn on a new goroutine guarded by Recover.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}

// Flush waits up to d for buffered reports to be sent.
func Flush(d time.Duration) { Current().Flush(d) }
