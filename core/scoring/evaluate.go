package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/rakeform/core/model"
)

const epsilon = 1e-9

// Relax selects soft checks Evaluate skips.
type Relax uint8

const (
	// RelaxMinSize skips RakeSizeBelowMin. Used while a rake is still filling.
	RelaxMinSize Relax = 1 << iota
	// RelaxMaxSize skips RakeSizeAboveMax. Used for all-urgent rakes.
	RelaxMaxSize
)

// Candidate is one rake load proposed by a strategy.
type Candidate struct {
	Rake        model.RakeResource
	Yard        model.Stockyard
	Destination string
	Orders      []model.Order
}

// Result is the verdict and metrics of one candidate.
type Result struct {
	Feasible    bool
	Violations  []model.Violation
	Load        float64
	Cost        float64
	Utilization float64
	DelayHours  float64 // worst order
	TotalDelay  float64 // sum over orders
	SLAMet      bool
	SLAMetCount int
	Orders      int
	Weight      float64 // priority weight of the orders carried
	LoadingAt   time.Time
	Slot        int // planning period loading starts in
	DispatchAt  time.Time
	ArrivalAt   time.Time
	DistanceKm  float64
}

// Class returns the class of the first violation, 0 when feasible.
func (r Result) Class() int {
	if len(r.Violations) == 0 {
		return 0
	}
	return r.Violations[0].Kind.Class()
}

// Severity sums 1 + excess over all violations.
func (r Result) Severity() float64 {
	var s float64
	for _, v := range r.Violations {
		s += 1 + v.Excess
	}
	return s
}

// Evaluate checks a candidate against the hard constraints given what the
// rest of the plan already consumes, and computes its metrics. Checks run in
// class order; the first failing class ends the evaluation with all of its
// violations reported.
func (s *Snapshot) Evaluate(c Candidate, u Usage, relax Relax) Result {
	res := s.measure(c)
	checks := []func(Candidate, Usage, Relax, Result) []model.Violation{
		s.checkSize,
		s.checkCapacity,
		s.checkMaterial,
		s.checkRoute,
		s.checkLoading,
		s.checkWindow,
	}
	for _, check := range checks {
		if vs := check(c, u, relax, res); len(vs) > 0 {
			res.Violations = vs
			return res
		}
	}
	res.Feasible = true
	return res
}

func (s *Snapshot) measure(c Candidate) Result {
	var tonnes, weight float64
	for _, o := range c.Orders {
		tonnes += o.Quantity
		weight += o.Priority.Weight()
	}
	load := c.Rake.CurrentLoad + tonnes
	res := Result{Load: load, Orders: len(c.Orders), Weight: weight}
	if c.Rake.Capacity > 0 {
		res.Utilization = load / c.Rake.Capacity
	}

	repositionKm := s.Distance(c.Rake.Location, c.Yard.Location)
	loadedKm := s.Distance(c.Yard.Location, c.Destination)
	res.DistanceKm = repositionKm + loadedKm

	res.Cost = c.Rake.FixedCost + c.Rake.CostPerKm*res.DistanceKm
	for _, o := range c.Orders {
		res.Cost += o.Cost
	}

	ready := addHours(latest(s.Start, c.Rake.AvailableFrom), s.TransitHours(repositionKm))
	ready = latest(ready, s.Constraints.TimeWindow.Start)
	ready = s.nextOperating(c.Yard.ID, ready)
	res.LoadingAt = ready
	res.Slot = s.slotOf(ready)
	var loadHours float64
	if tp, ok := s.Throughput(c.Yard.ID); ok && tp > 0 {
		loadHours = tonnes / (tp / s.Constraints.Period())
	}
	res.DispatchAt = addHours(ready, loadHours)
	res.ArrivalAt = addHours(res.DispatchAt, s.TransitHours(loadedKm))

	res.SLAMet = true
	for _, o := range c.Orders {
		var delay float64
		if !o.RequiredDate.IsZero() {
			delay = math.Max(0, hoursBetween(o.RequiredDate, res.ArrivalAt))
		}
		res.TotalDelay += delay
		res.DelayHours = math.Max(res.DelayHours, delay)
		if delay <= o.SLAHours {
			res.SLAMetCount++
		} else {
			res.SLAMet = false
		}
	}
	return res
}

func (s *Snapshot) checkSize(c Candidate, _ Usage, relax Relax, res Result) []model.Violation {
	var vs []model.Violation
	cons := s.Constraints
	if relax&RelaxMinSize == 0 && cons.MinRakeSize > 0 && res.Load+epsilon < cons.MinRakeSize {
		vs = append(vs, model.Violation{
			Kind:   model.RakeSizeBelowMin,
			Detail: fmt.Sprintf("rake %s carries %.1f t, minimum is %.1f t", c.Rake.ID, res.Load, cons.MinRakeSize),
			Excess: (cons.MinRakeSize - res.Load) / cons.MinRakeSize,
		})
	}
	if relax&RelaxMaxSize == 0 && cons.MaxRakeSize > 0 && res.Load > cons.MaxRakeSize+epsilon {
		vs = append(vs, model.Violation{
			Kind:   model.RakeSizeAboveMax,
			Detail: fmt.Sprintf("rake %s carries %.1f t, maximum is %.1f t", c.Rake.ID, res.Load, cons.MaxRakeSize),
			Excess: (res.Load - cons.MaxRakeSize) / cons.MaxRakeSize,
		})
	}
	return vs
}

func (s *Snapshot) checkCapacity(c Candidate, _ Usage, _ Relax, res Result) []model.Violation {
	if res.Load <= c.Rake.Capacity+epsilon {
		return nil
	}
	return []model.Violation{{
		Kind:   model.CapacityExceeded,
		Detail: fmt.Sprintf("rake %s capacity %.1f t, load %.1f t", c.Rake.ID, c.Rake.Capacity, res.Load),
		Excess: (res.Load - c.Rake.Capacity) / c.Rake.Capacity,
	}}
}

func (s *Snapshot) checkMaterial(c Candidate, u Usage, _ Relax, _ Result) []model.Violation {
	need := make(map[string]float64)
	for _, o := range c.Orders {
		need[o.MaterialID] += o.Quantity
	}
	var vs []model.Violation
	for _, m := range sortedKeys(need) {
		avail := c.Yard.Available(m)
		drawn := u.Drawn[c.Yard.ID][m] + need[m]
		if drawn <= avail+epsilon {
			continue
		}
		excess := 1.0
		if avail > 0 {
			excess = (drawn - avail) / avail
		}
		vs = append(vs, model.Violation{
			Kind:   model.InsufficientMaterial,
			Detail: fmt.Sprintf("stockyard %s holds %.1f t of %s, %.1f t requested", c.Yard.ID, avail, m, drawn),
			Excess: excess,
		})
	}
	return vs
}

func (s *Snapshot) checkRoute(c Candidate, _ Usage, _ Relax, _ Result) []model.Violation {
	if !s.RouteRestricted(c.Rake, c.Yard, c.Destination) {
		return nil
	}
	return []model.Violation{{
		Kind:   model.RouteRestricted,
		Detail: fmt.Sprintf("route %s -> %s -> %s is restricted", c.Rake.Location, c.Yard.ID, c.Destination),
	}}
}

// checkLoading compares the candidate with the rakes loading at the same yard
// in the same planning period.
func (s *Snapshot) checkLoading(c Candidate, u Usage, _ Relax, res Result) []model.Violation {
	var vs []model.Violation
	key := SlotKey{Yard: c.Yard.ID, Slot: res.Slot}
	seen := make(map[string]struct{})
	for _, o := range c.Orders {
		if _, ok := seen[o.MaterialID]; ok {
			continue
		}
		seen[o.MaterialID] = struct{}{}
		if !s.Loadable(c.Yard.ID, o.MaterialID, c.Rake.WagonType) {
			vs = append(vs, model.Violation{
				Kind:   model.NoLoadingEquipment,
				Detail: fmt.Sprintf("no loading point at %s handles %s on %q wagons", c.Yard.ID, o.MaterialID, c.Rake.WagonType),
			})
		}
	}
	if tp, ok := s.Throughput(c.Yard.ID); ok {
		var tonnes float64
		for _, o := range c.Orders {
			tonnes += o.Quantity
		}
		total := u.Loaded[key] + tonnes
		if total > tp+epsilon {
			excess := 1.0
			if tp > 0 {
				excess = (total - tp) / tp
			}
			vs = append(vs, model.Violation{
				Kind:   model.LoadingPointOverload,
				Detail: fmt.Sprintf("stockyard %s loads %.1f t per period, %.1f t planned in period %d", c.Yard.ID, tp, total, res.Slot),
				Excess: excess,
			})
		}
	}
	if limit := s.Constraints.MaxSidingCapacity; limit > 0 && u.Rakes[key]+1 > limit {
		vs = append(vs, model.Violation{
			Kind:   model.SidingOverload,
			Detail: fmt.Sprintf("stockyard %s sidings hold %d rakes in period %d", c.Yard.ID, limit, res.Slot),
			Excess: float64(u.Rakes[key]+1-limit) / float64(limit),
		})
	}
	return vs
}

func (s *Snapshot) checkWindow(c Candidate, _ Usage, _ Relax, res Result) []model.Violation {
	end := s.Constraints.TimeWindow.End
	if end.IsZero() || !res.DispatchAt.After(end) {
		return nil
	}
	return []model.Violation{{
		Kind:   model.OutsideTimeWindow,
		Detail: fmt.Sprintf("rake %s dispatches at %s, window closes %s", c.Rake.ID, res.DispatchAt.Format(time.RFC3339), end.Format(time.RFC3339)),
	}}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
