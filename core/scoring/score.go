package scoring

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/rakeform/core/model"
)

// Metrics are the plan-level aggregates the composite score is built from.
type Metrics struct {
	Cost            float64
	Delay           float64 // sum of order delays in hours
	Utilization     float64 // load-weighted mean over rakes
	SLAFraction     float64 // orders meeting SLA over all orders
	Assigned        int
	Orders          int
	UnassignedShare float64 // priority weighted
	// Severity sums 1 + excess over the violations of an unrepaired state.
	// Tallies of repaired plans leave it at zero.
	Severity float64
}

// Tally accumulates rake results into plan metrics. Add and Sub let
// strategies update a plan incrementally.
type Tally struct {
	orders      int
	totalWeight float64

	cost, delay   float64
	load, utilSum float64
	met, assigned int
	placedWeight  float64
}

// NewTally starts a tally for a run with the given orders.
func NewTally(orders []model.Order) Tally {
	t := Tally{orders: len(orders)}
	for _, o := range orders {
		t.totalWeight += o.Priority.Weight()
	}
	return t
}

// Add books one rake result.
func (t *Tally) Add(r Result) { t.apply(r, 1) }

// Sub removes a previously added result.
func (t *Tally) Sub(r Result) { t.apply(r, -1) }

func (t *Tally) apply(r Result, sign float64) {
	n := int(sign)
	t.cost += sign * r.Cost
	t.delay += sign * r.TotalDelay
	t.load += sign * r.Load
	t.utilSum += sign * r.Load * r.Utilization
	t.met += n * r.SLAMetCount
	t.assigned += n * r.Orders
	t.placedWeight += sign * r.Weight
}

// Metrics returns the aggregates of everything added so far.
func (t Tally) Metrics() Metrics {
	m := Metrics{
		Cost:     t.cost,
		Delay:    t.delay,
		Assigned: t.assigned,
		Orders:   t.orders,
	}
	if t.load > epsilon {
		m.Utilization = t.utilSum / t.load
	}
	if t.orders > 0 {
		m.SLAFraction = float64(t.met) / float64(t.orders)
	}
	if t.totalWeight > 0 {
		m.UnassignedShare = clamp01((t.totalWeight - t.placedWeight) / t.totalWeight)
	}
	return m
}

// Bounds are the min-max normalization ranges of the comparison set.
type Bounds struct {
	CostMin, CostMax   float64
	DelayMin, DelayMax float64
}

// BoundsOf derives bounds from the observed costs and delays.
func BoundsOf(costs, delays []float64) Bounds {
	var b Bounds
	if len(costs) > 0 {
		b.CostMin, b.CostMax = floats.Min(costs), floats.Max(costs)
	}
	if len(delays) > 0 {
		b.DelayMin, b.DelayMax = floats.Min(delays), floats.Max(delays)
	}
	return b
}

func norm(v, lo, hi float64) float64 {
	if hi-lo <= epsilon {
		return 0
	}
	return clamp01((v - lo) / (hi - lo))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Composite is the weighted score of a plan, lower is better. Weights must be
// normalized.
func Composite(m Metrics, b Bounds, w model.ObjectiveWeights) float64 {
	return w.MinimizeCost*norm(m.Cost, b.CostMin, b.CostMax) +
		w.MinimizeDelay*norm(m.Delay, b.DelayMin, b.DelayMax) -
		w.MaximizeUtilization*m.Utilization -
		w.MeetSLA*m.SLAFraction
}

// Penalties weigh what a plan leaves undone.
type Penalties struct {
	Unassigned float64
	Violation  float64
}

// DefaultPenalties keep an empty plan worse than any plan that places orders
// under every weighting.
func DefaultPenalties() Penalties {
	return Penalties{Unassigned: 2, Violation: 1}
}

// Objective is what strategies minimize.
func Objective(m Metrics, b Bounds, w model.ObjectiveWeights, p Penalties) float64 {
	return Composite(m, b, w) + p.Unassigned*m.UnassignedShare + p.Violation*m.Severity
}

// PlanMetrics recomputes metrics from a finished plan, for plans that no
// longer have their evaluation results at hand.
func PlanMetrics(p model.FormationPlan) Metrics {
	m := Metrics{
		Cost:        p.TotalCost,
		Delay:       p.TotalDelayHours,
		Assigned:    p.AssignedCount(),
		SLAFraction: p.SLACompliance / 100,
	}
	m.Orders = m.Assigned + len(p.Unassigned)
	loads := make([]float64, 0, len(p.Assignments))
	utils := make([]float64, 0, len(p.Assignments))
	for _, a := range p.Assignments {
		loads = append(loads, a.TotalLoad)
		utils = append(utils, a.Utilization)
		for _, v := range a.Violations {
			m.Severity += 1 + v.Excess
		}
	}
	m.Utilization = WeightedUtilization(utils, loads)
	if m.Orders > 0 {
		m.UnassignedShare = float64(len(p.Unassigned)) / float64(m.Orders)
	}
	return m
}

// WeightedUtilization is the load-weighted mean utilization of a set of rakes.
func WeightedUtilization(utils, loads []float64) float64 {
	if len(utils) == 0 || floats.Sum(loads) <= epsilon {
		return 0
	}
	return stat.Mean(utils, loads)
}
