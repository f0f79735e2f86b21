package formation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rakeform/core/events"
	"github.com/kilianp07/rakeform/core/history"
	"github.com/kilianp07/rakeform/core/logger"
	"github.com/kilianp07/rakeform/core/metrics"
	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

type recordingSink struct {
	mu         sync.Mutex
	records    []metrics.FormationRecord
	unassigned []metrics.UnassignedEvent
	loads      []metrics.RakeLoadEvent
}

func (s *recordingSink) RecordFormation(r metrics.FormationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) RecordUnassigned(evs []metrics.UnassignedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unassigned = append(s.unassigned, evs...)
	return nil
}

func (s *recordingSink) RecordRakeLoads(evs []metrics.RakeLoadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads = append(s.loads, evs...)
	return nil
}

type failingStrategy struct{}

func (failingStrategy) Name() string { return "broken" }
func (failingStrategy) Optimize(context.Context, *Problem, Options) (Outcome, error) {
	return Outcome{}, errors.New("solver crashed")
}

func newOrchestrator(t *testing.T, hist *history.PlanHistory, sink metrics.MetricsSink) *Orchestrator {
	t.Helper()
	strategies, err := NewStrategies(Config{})
	require.NoError(t, err)
	o, err := NewOrchestrator(strategies, hist, logger.NopLogger{}, sink)
	require.NoError(t, err)
	return o
}

func TestNewOrchestratorRequiresStrategies(t *testing.T) {
	_, err := NewOrchestrator(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestRunRecordsResult(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	hist := history.New(nil)
	sink := &recordingSink{}
	o := newOrchestrator(t, hist, sink)
	bus := eventbus.New()
	o.SetBus(bus)
	ch := bus.Subscribe()

	req := baseRequest()
	req.Orders = append(req.Orders, order("far", 9000, "Delhi"))
	req.Seed = 9
	res, err := o.Run(context.Background(), req)
	require.NoError(t, err)

	_, err = uuid.Parse(res.Plan.ID)
	require.NoError(t, err)
	assert.False(t, res.Plan.CreatedAt.IsZero())
	assert.Equal(t, "greedy", res.Plan.Algorithm)
	assert.Equal(t, "greedy", res.Diagnostics.Algorithm)
	assert.True(t, res.Diagnostics.Converged)
	assert.Equal(t, int64(9), res.Diagnostics.Seed)
	assert.Equal(t, 1, res.Diagnostics.IterationsRun)
	require.Len(t, res.Plan.Unassigned, 1)
	assert.Equal(t, model.CapacityExceeded, res.Plan.Unassigned[0].Reason)

	assert.Equal(t, 1, hist.Len())
	latest, ok := hist.Latest()
	require.True(t, ok)
	assert.Equal(t, res.Plan.ID, latest.Plan.ID)

	require.Len(t, sink.records, 1)
	assert.Equal(t, 2, sink.records[0].Assigned)
	assert.Equal(t, 1, sink.records[0].Unassigned)
	assert.Equal(t, 1, sink.records[0].Rakes)
	require.Len(t, sink.unassigned, 1)
	assert.Equal(t, "far", sink.unassigned[0].OrderID)
	require.Len(t, sink.loads, 1)
	assert.Equal(t, "R1", sink.loads[0].RakeID)

	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues("greedy", "converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(unassignedOrders.WithLabelValues(string(model.CapacityExceeded))))
	assert.InDelta(t, 1.0, testutil.ToFloat64(planUtilization.WithLabelValues("greedy")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(runDuration))

	first := (<-ch).(events.RunEvent)
	assert.Equal(t, events.StageStarted, first.Stage)
	assert.Equal(t, 3, first.Orders)
	done := (<-ch).(events.RunEvent)
	assert.Equal(t, events.StageCompleted, done.Stage)
	require.NotNil(t, done.Result)
	assert.Equal(t, res.Plan.ID, done.Result.Plan.ID)
	assert.Equal(t, first.RunID, done.RunID)
}

func TestRunValidation(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	o := newOrchestrator(t, nil, nil)
	ctx := context.Background()

	bad := baseRequest()
	bad.Orders[0].Quantity = 0
	_, err := o.Run(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Contains(t, err.Error(), "quantity must be positive")

	bad = baseRequest()
	bad.Weights = model.ObjectiveWeights{}
	_, err = o.Run(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidRequest)

	bad = baseRequest()
	bad.Rakes = nil
	_, err = o.Run(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidRequest)

	bad = baseRequest()
	bad.Algorithm = "tabu"
	_, err = o.Run(ctx, bad)
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	bad.Orders[1].SLAHours = 0
	_, err = o.Run(ctx, bad)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Contains(t, err.Error(), "slaHours")

	assert.Equal(t, 5.0, testutil.ToFloat64(runsTotal.WithLabelValues("greedy", "invalid"))+
		testutil.ToFloat64(runsTotal.WithLabelValues("tabu", "invalid")))
}

func TestRunCanceledBeforeSearch(t *testing.T) {
	o := newOrchestrator(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, baseRequest())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunTimeBudgetReturnsBestSoFar(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	hist := history.New(nil)
	o := newOrchestrator(t, hist, nil)
	req := mixedRequest()
	req.Algorithm = "annealing"
	req.Budget = model.Budget{TimeLimitSeconds: 1e-9}

	res, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Diagnostics.Converged)
	assert.NotEmpty(t, res.Plan.Assignments)
	checkPlan(t, req, res.Plan)
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues("annealing", "budget_exhausted")))
	assert.Equal(t, 1, hist.Len())
}

func TestRunIterationBudget(t *testing.T) {
	o := newOrchestrator(t, nil, nil)
	req := mixedRequest()
	req.Algorithm = "genetic"
	req.Seed = 4
	req.Budget = model.Budget{MaxIterations: 3}
	res, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Diagnostics.IterationsRun)
	assert.False(t, res.Diagnostics.Converged)
	assert.Len(t, res.Diagnostics.Trace, 4)
}

func TestRunSameSeedSamePlan(t *testing.T) {
	o := newOrchestrator(t, nil, nil)
	req := mixedRequest()
	req.Algorithm = "genetic"
	req.Seed = 21
	req.Budget = model.Budget{MaxIterations: 5}
	a, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	b, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Plan.ID, b.Plan.ID)
	assert.Equal(t, a.Plan.Assignments, b.Plan.Assignments)
	assert.Equal(t, a.Diagnostics.Score, b.Diagnostics.Score)
}

func TestRunStrategyError(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())
	o, err := NewOrchestrator(map[string]Strategy{"broken": failingStrategy{}}, nil, nil, nil)
	require.NoError(t, err)
	bus := eventbus.New()
	o.SetBus(bus)
	ch := bus.Subscribe()

	req := baseRequest()
	req.Algorithm = "broken"
	_, err = o.Run(context.Background(), req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues("broken", "error")))

	<-ch
	failed := (<-ch).(events.RunEvent)
	assert.Equal(t, events.StageFailed, failed.Stage)
	assert.Error(t, failed.Err)
}

func TestRunUsesConfiguredDefaults(t *testing.T) {
	o := newOrchestrator(t, nil, nil)
	o.SetConfig(Config{DefaultAlgorithm: "annealing", TimeLimit: time.Minute})
	req := baseRequest()
	req.Seed = 1
	res, err := o.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "annealing", res.Diagnostics.Algorithm)
	assert.Equal(t, []string{"annealing", "genetic", "greedy"}, o.Algorithms())
}
