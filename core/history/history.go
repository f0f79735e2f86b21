package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/core/scoring"
	"github.com/kilianp07/rakeform/internal/eventbus"
)

// Ranked is a stored result with its composite score under some weights.
type Ranked struct {
	Result model.FormationResult
	Score  float64
}

// PlanHistory is the append-only log of formation results of one session.
// It is owned by the caller and safe for concurrent use.
type PlanHistory struct {
	mu      sync.RWMutex
	results []model.FormationResult
	store   Store
	bus     *eventbus.TypedBus[model.FormationResult]
}

// subscriberBuffer is how many results a slow subscriber may lag behind
// before it starts missing them.
const subscriberBuffer = 32

// New returns an empty history. store may be nil for a memory-only session.
func New(store Store) *PlanHistory {
	return &PlanHistory{
		store: store,
		bus:   eventbus.NewTyped[model.FormationResult](eventbus.WithBuffer(subscriberBuffer)),
	}
}

// Append records a copy of the result. The result is kept in memory even
// when the store write fails; the store error is returned.
func (h *PlanHistory) Append(ctx context.Context, res model.FormationResult) error {
	res = clone(res)
	h.mu.Lock()
	h.results = append(h.results, res)
	h.mu.Unlock()
	h.bus.Publish(clone(res))
	if h.store == nil {
		return nil
	}
	if err := h.store.Append(ctx, res); err != nil {
		return fmt.Errorf("persist plan %s: %w", res.Plan.ID, err)
	}
	return nil
}

// List returns copies of the stored results, oldest first.
func (h *PlanHistory) List() []model.FormationResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.FormationResult, len(h.results))
	for i, r := range h.results {
		out[i] = clone(r)
	}
	return out
}

// Latest returns the most recent result.
func (h *PlanHistory) Latest() (model.FormationResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.results) == 0 {
		return model.FormationResult{}, false
	}
	return clone(h.results[len(h.results)-1]), true
}

// Len returns the number of stored results.
func (h *PlanHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// Rank scores every stored result under w, best first. Costs and delays are
// normalized across the stored plans. Ties keep insertion order.
func (h *PlanHistory) Rank(w model.ObjectiveWeights) ([]Ranked, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	h.mu.RLock()
	results := make([]model.FormationResult, len(h.results))
	copy(results, h.results)
	h.mu.RUnlock()
	return rank(results, w), nil
}

// BestPlan returns the stored result with the lowest composite score under
// w. The earliest plan wins a tie. ok is false when the history is empty or
// the weights are invalid.
func (h *PlanHistory) BestPlan(w model.ObjectiveWeights) (model.FormationResult, float64, bool) {
	ranked, err := h.Rank(w)
	if err != nil || len(ranked) == 0 {
		return model.FormationResult{}, 0, false
	}
	return clone(ranked[0].Result), ranked[0].Score, true
}

// Clear forgets every result, in memory and in the store.
func (h *PlanHistory) Clear(ctx context.Context) error {
	h.mu.Lock()
	h.results = nil
	h.mu.Unlock()
	if h.store == nil {
		return nil
	}
	return h.store.Clear(ctx)
}

// Restore replaces the in-memory log with the content of the store.
func (h *PlanHistory) Restore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	results, err := h.store.List(ctx, Query{})
	if err != nil {
		return fmt.Errorf("restore history: %w", err)
	}
	h.mu.Lock()
	h.results = results
	h.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving every appended result.
func (h *PlanHistory) Subscribe() <-chan model.FormationResult { return h.bus.Subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (h *PlanHistory) Unsubscribe(ch <-chan model.FormationResult) { h.bus.Unsubscribe(ch) }

// Dropped returns how many results subscribers missed because they lagged.
func (h *PlanHistory) Dropped() uint64 { return h.bus.Dropped() }

// Close closes subscriptions and the store.
func (h *PlanHistory) Close() error {
	h.bus.Close()
	if h.store == nil {
		return nil
	}
	return h.store.Close()
}

// RankResults scores results under w the way Rank does, for readers of a
// store that hold no PlanHistory.
func RankResults(results []model.FormationResult, w model.ObjectiveWeights) ([]Ranked, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return rank(results, w), nil
}

func rank(results []model.FormationResult, w model.ObjectiveWeights) []Ranked {
	w = w.Normalize()
	metrics := make([]scoring.Metrics, len(results))
	costs := make([]float64, len(results))
	delays := make([]float64, len(results))
	for i, r := range results {
		metrics[i] = scoring.PlanMetrics(r.Plan)
		costs[i] = metrics[i].Cost
		delays[i] = metrics[i].Delay
	}
	b := scoring.BoundsOf(costs, delays)
	out := make([]Ranked, len(results))
	for i, r := range results {
		out[i] = Ranked{Result: r, Score: scoring.Composite(metrics[i], b, w)}
	}
	sort.SliceStable(out, func(a, c int) bool { return out[a].Score < out[c].Score })
	return out
}

func clone(r model.FormationResult) model.FormationResult {
	p := r.Plan
	if p.Assignments != nil {
		p.Assignments = make([]model.RakeAssignment, len(r.Plan.Assignments))
		for i, a := range r.Plan.Assignments {
			a.OrderIDs = append([]string(nil), a.OrderIDs...)
			a.Violations = append([]model.Violation(nil), a.Violations...)
			p.Assignments[i] = a
		}
	}
	if p.Unassigned != nil {
		p.Unassigned = append([]model.UnassignedOrder{}, r.Plan.Unassigned...)
	}
	d := r.Diagnostics
	d.Trace = append([]float64(nil), d.Trace...)
	return model.FormationResult{Plan: p, Diagnostics: d}
}
