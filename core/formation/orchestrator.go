package formation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rakeform/core/events"
	"github.com/kilianp07/rakeform/core/history"
	"github.com/kilianp07/rakeform/core/logger"
	"github.com/kilianp07/rakeform/core/metrics"
	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/core/monitoring"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

// Orchestrator validates formation requests, runs the requested strategy
// under its budget, verifies the plan and records the result.
type Orchestrator struct {
	strategies map[string]Strategy
	history    *history.PlanHistory
	logger     logger.Logger
	metrics    metrics.MetricsSink

	mu  sync.RWMutex
	bus eventbus.EventBus
	cfg Config
	now func() time.Time
}

// NewOrchestrator creates an orchestrator dispatching to strategies by name.
// hist may be nil when results need not be kept; log and sink default to
// no-ops.
func NewOrchestrator(strategies map[string]Strategy, hist *history.PlanHistory, log logger.Logger, sink metrics.MetricsSink) (*Orchestrator, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("formation: no strategy provided to NewOrchestrator")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	var cfg Config
	cfg.SetDefaults()
	if _, ok := strategies[cfg.DefaultAlgorithm]; !ok {
		cfg.DefaultAlgorithm = ""
	}
	return &Orchestrator{
		strategies: strategies,
		history:    hist,
		logger:     log,
		metrics:    sink,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// SetBus configures the bus receiving run events.
func (o *Orchestrator) SetBus(bus eventbus.EventBus) {
	o.mu.Lock()
	o.bus = bus
	o.mu.Unlock()
}

// SetConfig replaces the run defaults. Unset values keep their defaults.
func (o *Orchestrator) SetConfig(cfg Config) {
	cfg.SetDefaults()
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
}

// History returns the plan history results are appended to, nil if none.
func (o *Orchestrator) History() *history.PlanHistory { return o.history }

// Algorithms lists the algorithm names this orchestrator can run.
func (o *Orchestrator) Algorithms() []string {
	names := make([]string, 0, len(o.strategies))
	for n := range o.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (o *Orchestrator) publish(e eventbus.Event) {
	o.mu.RLock()
	bus := o.bus
	o.mu.RUnlock()
	if bus != nil {
		bus.Publish(e)
	}
}

// Run forms rakes for the request. Invalid requests fail with
// ErrInvalidRequest before any search. Running out of budget is not an
// error: the best plan found is returned with Diagnostics.Converged false.
func (o *Orchestrator) Run(ctx context.Context, req model.FormationRequest) (model.FormationResult, error) {
	if err := ctx.Err(); err != nil {
		return model.FormationResult{}, err
	}
	o.mu.RLock()
	cfg := o.cfg
	o.mu.RUnlock()

	name := req.Algorithm
	if name == "" {
		name = cfg.DefaultAlgorithm
	}
	strategy, err := o.resolve(name, req)
	if err != nil {
		runsTotal.WithLabelValues(name, "invalid").Inc()
		return model.FormationResult{}, err
	}

	began := time.Now()
	start := o.now()
	seed := req.Seed
	if seed == 0 {
		seed = start.UnixNano()
	}
	runID := uuid.NewString()
	o.publish(events.RunEvent{RunID: runID, Algorithm: name, Stage: events.StageStarted, Orders: len(req.Orders), Time: start})
	o.logger.Infof("formation run %s: %s over %d orders and %d rakes", runID, name, len(req.Orders), len(req.Rakes))

	limit := req.Budget.TimeLimit()
	if limit <= 0 {
		limit = cfg.TimeLimit
	}
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	p := NewProblem(req, start, cfg.Penalties())
	out, err := strategy.Optimize(runCtx, p, Options{
		MaxIterations: req.Budget.MaxIterations,
		Seed:          seed,
		Progress: func(it int, best float64) {
			o.logger.Debugw("formation progress", map[string]any{"run": runID, "algorithm": name, "iteration": it, "best": best})
		},
	})
	elapsed := time.Since(began)
	if err != nil {
		runsTotal.WithLabelValues(name, "error").Inc()
		err = fmt.Errorf("%s strategy: %w", name, err)
		o.logger.Errorf("formation run %s failed: %v", runID, err)
		o.publish(events.RunEvent{RunID: runID, Algorithm: name, Stage: events.StageFailed, Err: err, Time: o.now()})
		return model.FormationResult{}, err
	}

	plan := out.Plan
	plan.ID = runID
	plan.CreatedAt = start
	discarded := verifyPlan(req, &plan)
	for _, d := range discarded {
		discardedTotal.Inc()
		o.logger.Warnw("assignment discarded", map[string]any{
			"run": runID, "rake": d.assignment.RakeID, "orders": d.assignment.OrderIDs, "detail": d.detail,
		})
		o.publish(events.InconsistencyEvent{RunID: runID, RakeID: d.assignment.RakeID, OrderIDs: d.assignment.OrderIDs, Detail: d.detail})
	}

	res := model.FormationResult{
		Plan: plan,
		Diagnostics: model.Diagnostics{
			Algorithm:     name,
			IterationsRun: out.Iterations,
			ElapsedTime:   elapsed,
			Converged:     out.Converged,
			Score:         out.Score,
			Trace:         out.Trace,
			Seed:          seed,
			Discarded:     len(discarded),
		},
	}
	o.record(res)
	if !res.Diagnostics.Converged {
		o.logger.Warnf("formation run %s stopped by budget after %d iterations", runID, out.Iterations)
	}
	o.logger.Infof("formation run %s: %d assigned, %d unassigned, cost %.2f", runID, plan.AssignedCount(), len(plan.Unassigned), plan.TotalCost)

	if o.history != nil {
		if err := o.history.Append(context.WithoutCancel(ctx), res); err != nil {
			o.logger.Errorf("history append failed: %v", err)
			monitoring.CaptureException(err, map[string]string{"component": "formation", "run": runID})
		}
	}
	o.publish(events.RunEvent{RunID: runID, Algorithm: name, Stage: events.StageCompleted, Orders: len(req.Orders), Result: &res, Time: o.now()})
	return res, nil
}

// resolve validates the request and finds its strategy. Every problem is
// reported at once.
func (o *Orchestrator) resolve(name string, req model.FormationRequest) (Strategy, error) {
	verr := req.Validate()
	strategy, ok := o.strategies[name]
	switch {
	case !ok && verr != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(verr, fmt.Errorf("%w %q", ErrUnknownAlgorithm, name)))
	case !ok:
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidRequest, ErrUnknownAlgorithm, name)
	case verr != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, verr)
	}
	return strategy, nil
}

func (o *Orchestrator) record(res model.FormationResult) {
	plan, diag := res.Plan, res.Diagnostics
	status := "converged"
	if !diag.Converged {
		status = "budget_exhausted"
	}
	runsTotal.WithLabelValues(diag.Algorithm, status).Inc()
	runDuration.WithLabelValues(diag.Algorithm).Observe(diag.ElapsedTime.Seconds())
	runIterations.WithLabelValues(diag.Algorithm).Observe(float64(diag.IterationsRun))
	planUtilization.WithLabelValues(diag.Algorithm).Set(plan.Utilization)
	for _, u := range plan.Unassigned {
		unassignedOrders.WithLabelValues(string(u.Reason)).Inc()
	}

	assigned := plan.AssignedCount()
	if err := o.metrics.RecordFormation(metrics.FormationRecord{
		PlanID:        plan.ID,
		Algorithm:     diag.Algorithm,
		Orders:        assigned + len(plan.Unassigned),
		Assigned:      assigned,
		Unassigned:    len(plan.Unassigned),
		Rakes:         len(plan.Assignments),
		Discarded:     diag.Discarded,
		TotalCost:     plan.TotalCost,
		Utilization:   plan.Utilization,
		SLACompliance: plan.SLACompliance,
		Score:         diag.Score,
		Iterations:    diag.IterationsRun,
		Elapsed:       diag.ElapsedTime,
		Converged:     diag.Converged,
		Time:          plan.CreatedAt,
	}); err != nil {
		o.logger.Errorf("formation metrics error: %v", err)
	}
	if ur, ok := o.metrics.(metrics.UnassignedRecorder); ok && len(plan.Unassigned) > 0 {
		evs := make([]metrics.UnassignedEvent, 0, len(plan.Unassigned))
		for _, u := range plan.Unassigned {
			evs = append(evs, metrics.UnassignedEvent{
				PlanID: plan.ID, Algorithm: diag.Algorithm, OrderID: u.OrderID, Reason: string(u.Reason), Time: plan.CreatedAt,
			})
		}
		if err := ur.RecordUnassigned(evs); err != nil {
			o.logger.Errorf("unassigned metrics error: %v", err)
		}
	}
	if rr, ok := o.metrics.(metrics.RakeLoadRecorder); ok && len(plan.Assignments) > 0 {
		evs := make([]metrics.RakeLoadEvent, 0, len(plan.Assignments))
		for _, a := range plan.Assignments {
			evs = append(evs, metrics.RakeLoadEvent{
				PlanID:      plan.ID,
				RakeID:      a.RakeID,
				Stockyard:   a.SourceStockyard,
				Destination: a.Destination,
				Load:        a.TotalLoad,
				Utilization: a.Utilization,
				Cost:        a.EstimatedCost,
				Partial:     a.Partial,
				Time:        plan.CreatedAt,
			})
		}
		if err := rr.RecordRakeLoads(evs); err != nil {
			o.logger.Errorf("rake load metrics error: %v", err)
		}
	}
}
