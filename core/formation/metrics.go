package formation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	runIterations    *prometheus.HistogramVec
	unassignedOrders *prometheus.CounterVec
	discardedTotal   prometheus.Counter
	planUtilization  *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Counter, *prometheus.GaugeVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_runs_total",
			Help: "Number of formation runs by algorithm and outcome",
		},
		[]string{"algorithm", "status"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formation_run_duration_seconds",
			Help:    "Wall-clock time of formation runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"algorithm"},
	)
	iter := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formation_run_iterations",
			Help:    "Iterations run by a formation strategy",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"algorithm"},
	)
	unassigned := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_unassigned_orders_total",
			Help: "Orders left unassigned, by reason",
		},
		[]string{"reason"},
	)
	discarded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formation_discarded_assignments_total",
			Help: "Assignments discarded because they broke a plan invariant",
		},
	)
	util := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "formation_plan_utilization_ratio",
			Help: "Load-weighted utilization of the latest plan",
		},
		[]string{"algorithm"},
	)
	return runs, dur, iter, unassigned, discarded, util
}

func init() {
	runsTotal, runDuration, runIterations, unassignedOrders, discardedTotal, planUtilization = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers formation metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(runsTotal, runDuration, runIterations, unassignedOrders, discardedTotal, planUtilization)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	runsTotal, runDuration, runIterations, unassignedOrders, discardedTotal, planUtilization = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
