package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/rakeform/core/events"
	coremetrics "github.com/kilianp07/rakeform/core/metrics"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

type auditSink struct {
	coremetrics.NopSink
	mu           sync.Mutex
	inconsistent []coremetrics.InconsistencyEvent
	failures     []coremetrics.RunFailureEvent
}

func (a *auditSink) RecordInconsistency(ev coremetrics.InconsistencyEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inconsistent = append(a.inconsistent, ev)
	return nil
}

func (a *auditSink) RecordRunFailure(ev coremetrics.RunFailureEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, ev)
	return nil
}

func (a *auditSink) counts() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inconsistent), len(a.failures)
}

func TestEventCollector(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &auditSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	// Subscription happens synchronously, so events published now are seen.
	bus.Publish(events.RunEvent{RunID: "r1", Algorithm: "greedy", Stage: events.StageStarted})
	bus.Publish(events.InconsistencyEvent{RunID: "r1", RakeID: "R1", OrderIDs: []string{"o1", "o2"}, Detail: "rake R1 assigned twice"})
	bus.Publish(events.RunEvent{RunID: "r2", Algorithm: "genetic", Stage: events.StageFailed, Err: errors.New("boom")})

	deadline := time.Now().Add(2 * time.Second)
	for {
		inc, fail := sink.counts()
		if inc == 1 && fail == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector did not forward events: inconsistencies=%d failures=%d", inc, fail)
		}
		time.Sleep(5 * time.Millisecond)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if got := sink.inconsistent[0]; got.RakeID != "R1" || got.Orders != 2 {
		t.Errorf("unexpected inconsistency %+v", got)
	}
	if got := sink.failures[0]; got.Algorithm != "genetic" || got.Error != "boom" {
		t.Errorf("unexpected failure %+v", got)
	}
}

func TestEventCollector_NilArgs(t *testing.T) {
	StartEventCollector(context.Background(), nil, &auditSink{})
	StartEventCollector(context.Background(), eventbus.New(), nil)
}
