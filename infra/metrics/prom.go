package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rakeform/core/metrics"
)

// PromSink records formation runs in Prometheus metrics.
type PromSink struct {
	runs          *prometheus.CounterVec
	cost          *prometheus.GaugeVec
	sla           *prometheus.GaugeVec
	score         *prometheus.GaugeVec
	unassigned    *prometheus.CounterVec
	rakeLoad      *prometheus.GaugeVec
	rakeUtil      *prometheus.GaugeVec
	inconsistency prometheus.Counter
	failures      *prometheus.CounterVec
}

// NewPromSink registers formation metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately, see ServePrometheus.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rakeform_plans_total",
			Help: "Plans produced by algorithm and convergence",
		}, []string{"algorithm", "converged"}),
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rakeform_plan_cost",
			Help: "Total estimated cost of the latest plan",
		}, []string{"algorithm"}),
		sla: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rakeform_plan_sla_compliance_percent",
			Help: "Share of orders of the latest plan meeting their SLA",
		}, []string{"algorithm"}),
		score: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rakeform_plan_score",
			Help: "Objective of the latest plan, lower is better",
		}, []string{"algorithm"}),
		unassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rakeform_unassigned_orders_total",
			Help: "Orders left unassigned by algorithm and reason",
		}, []string{"algorithm", "reason"}),
		rakeLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rakeform_rake_load_tonnes",
			Help: "Load of each rake in the latest plan",
		}, []string{"rake_id", "stockyard"}),
		rakeUtil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rakeform_rake_utilization_ratio",
			Help: "Utilization of each rake in the latest plan",
		}, []string{"rake_id", "partial"}),
		inconsistency: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rakeform_plan_inconsistencies_total",
			Help: "Assignments discarded by plan verification",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rakeform_run_failures_total",
			Help: "Formation runs that ended with an error",
		}, []string{"algorithm"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, s.cost); err != nil {
		return nil, err
	}
	if s.sla, err = register(reg, s.sla); err != nil {
		return nil, err
	}
	if s.score, err = register(reg, s.score); err != nil {
		return nil, err
	}
	if s.unassigned, err = register(reg, s.unassigned); err != nil {
		return nil, err
	}
	if s.rakeLoad, err = register(reg, s.rakeLoad); err != nil {
		return nil, err
	}
	if s.rakeUtil, err = register(reg, s.rakeUtil); err != nil {
		return nil, err
	}
	if s.inconsistency, err = register(reg, s.inconsistency); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordFormation updates the plan gauges and counts the run.
func (s *PromSink) RecordFormation(rec coremetrics.FormationRecord) error {
	s.runs.WithLabelValues(rec.Algorithm, strconv.FormatBool(rec.Converged)).Inc()
	s.cost.WithLabelValues(rec.Algorithm).Set(rec.TotalCost)
	s.sla.WithLabelValues(rec.Algorithm).Set(rec.SLACompliance)
	s.score.WithLabelValues(rec.Algorithm).Set(rec.Score)
	return nil
}

// RecordUnassigned counts unassigned orders by reason.
func (s *PromSink) RecordUnassigned(evs []coremetrics.UnassignedEvent) error {
	for _, e := range evs {
		s.unassigned.WithLabelValues(e.Algorithm, e.Reason).Inc()
	}
	return nil
}

// RecordRakeLoads replaces the per-rake gauges with the rakes of the plan.
func (s *PromSink) RecordRakeLoads(evs []coremetrics.RakeLoadEvent) error {
	s.rakeLoad.Reset()
	s.rakeUtil.Reset()
	for _, e := range evs {
		s.rakeLoad.WithLabelValues(e.RakeID, e.Stockyard).Set(e.Load)
		s.rakeUtil.WithLabelValues(e.RakeID, strconv.FormatBool(e.Partial)).Set(e.Utilization)
	}
	return nil
}

// RecordInconsistency counts a discarded assignment.
func (s *PromSink) RecordInconsistency(coremetrics.InconsistencyEvent) error {
	s.inconsistency.Inc()
	return nil
}

// RecordRunFailure counts a failed run.
func (s *PromSink) RecordRunFailure(ev coremetrics.RunFailureEvent) error {
	s.failures.WithLabelValues(ev.Algorithm).Inc()
	return nil
}
