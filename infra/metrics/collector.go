package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/rakeform/core/events"
	coremetrics "github.com/kilianp07/rakeform/core/metrics"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards discarded
// assignments and failed runs to the sink recorders that accept them.
// It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				collect(ev, sink)
			}
		}
	}()
}

func collect(ev eventbus.Event, sink coremetrics.MetricsSink) {
	switch e := ev.(type) {
	case events.InconsistencyEvent:
		if r, ok := sink.(coremetrics.InconsistencyRecorder); ok {
			_ = r.RecordInconsistency(coremetrics.InconsistencyEvent{
				RunID:  e.RunID,
				RakeID: e.RakeID,
				Orders: len(e.OrderIDs),
				Detail: e.Detail,
				Time:   time.Now(),
			})
		}
	case events.RunEvent:
		if e.Stage != events.StageFailed {
			return
		}
		if r, ok := sink.(coremetrics.RunFailureRecorder); ok {
			errStr := ""
			if e.Err != nil {
				errStr = e.Err.Error()
			}
			at := e.Time
			if at.IsZero() {
				at = time.Now()
			}
			_ = r.RecordRunFailure(coremetrics.RunFailureEvent{
				RunID:     e.RunID,
				Algorithm: e.Algorithm,
				Error:     errStr,
				Time:      at,
			})
		}
	}
}
