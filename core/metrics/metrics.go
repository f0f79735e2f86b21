package metrics

import "time"

// FormationRecord summarizes one finished formation run.
type FormationRecord struct {
	PlanID        string
	Algorithm     string
	Orders        int
	Assigned      int
	Unassigned    int
	Rakes         int
	Discarded     int
	TotalCost     float64
	Utilization   float64
	SLACompliance float64
	Score         float64
	Iterations    int
	Elapsed       time.Duration
	Converged     bool
	Time          time.Time
}

// MetricsSink records formation runs for observability purposes.
type MetricsSink interface {
	RecordFormation(rec FormationRecord) error
}

// UnassignedEvent is one order a run could not place.
type UnassignedEvent struct {
	PlanID    string
	Algorithm string
	OrderID   string
	Reason    string
	Time      time.Time
}

// UnassignedRecorder is implemented by sinks able to record unassigned orders.
type UnassignedRecorder interface {
	RecordUnassigned(evs []UnassignedEvent) error
}

// RakeLoadEvent describes one rake of a plan.
type RakeLoadEvent struct {
	PlanID      string
	RakeID      string
	Stockyard   string
	Destination string
	Load        float64
	Utilization float64
	Cost        float64
	Partial     bool
	Time        time.Time
}

// RakeLoadRecorder is implemented by sinks able to record per-rake loads.
type RakeLoadRecorder interface {
	RecordRakeLoads(evs []RakeLoadEvent) error
}

// InconsistencyEvent is an assignment discarded by plan verification.
type InconsistencyEvent struct {
	RunID  string
	RakeID string
	Orders int
	Detail string
	Time   time.Time
}

// InconsistencyRecorder is implemented by sinks able to record discarded
// assignments.
type InconsistencyRecorder interface {
	RecordInconsistency(ev InconsistencyEvent) error
}

// RunFailureEvent is a formation run that ended with an error.
type RunFailureEvent struct {
	RunID     string
	Algorithm string
	Error     string
	Time      time.Time
}

// RunFailureRecorder is implemented by sinks able to record failed runs.
type RunFailureRecorder interface {
	RecordRunFailure(ev RunFailureEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordFormation(FormationRecord) error    { return nil }
func (NopSink) RecordUnassigned([]UnassignedEvent) error { return nil }
func (NopSink) RecordRakeLoads([]RakeLoadEvent) error    { return nil }

func (NopSink) RecordInconsistency(InconsistencyEvent) error { return nil }
func (NopSink) RecordRunFailure(RunFailureEvent) error       { return nil }
