package scoring

import (
	"math"
	"time"

	"github.com/kilianp07/rakeform/core/model"
)

// Snapshot is the read-only indexed view of one formation request. It is
// built once per run and shared by every candidate evaluation.
type Snapshot struct {
	Rakes       []model.RakeResource
	Yards       []model.Stockyard
	Constraints model.Constraints
	Weights     model.ObjectiveWeights
	Start       time.Time

	rakeIdx   map[string]int
	yardIdx   map[string]int
	points    map[string][]model.LoadingPoint
	legs      map[[2]string]float64
	defaultKm float64
	speed     float64
}

// NewSnapshot indexes the request. now is used when the request carries no
// planning start. Weights are normalized here so no caller has to.
func NewSnapshot(req model.FormationRequest, now time.Time) *Snapshot {
	s := &Snapshot{
		Rakes:       append([]model.RakeResource(nil), req.Rakes...),
		Yards:       append([]model.Stockyard(nil), req.Stockyards...),
		Constraints: req.Constraints,
		Weights:     req.Weights.Normalize(),
		Start:       req.PlanningStart,
		rakeIdx:     make(map[string]int, len(req.Rakes)),
		yardIdx:     make(map[string]int, len(req.Stockyards)),
		points:      make(map[string][]model.LoadingPoint),
		legs:        make(map[[2]string]float64, len(req.Network.Distances)),
		defaultKm:   req.Network.DefaultDistanceKm,
		speed:       req.Network.Speed(),
	}
	if s.Start.IsZero() {
		s.Start = now
	}
	for i, r := range s.Rakes {
		s.rakeIdx[r.ID] = i
	}
	for i, y := range s.Yards {
		s.yardIdx[y.ID] = i
	}
	for _, lp := range req.LoadingPoints {
		s.points[lp.StockyardID] = append(s.points[lp.StockyardID], lp)
	}
	for _, l := range req.Network.Distances {
		s.legs[[2]string{l.From, l.To}] = l.Km
		s.legs[[2]string{l.To, l.From}] = l.Km
	}
	return s
}

// Rake returns the rake with the given id.
func (s *Snapshot) Rake(id string) (model.RakeResource, bool) {
	i, ok := s.rakeIdx[id]
	if !ok {
		return model.RakeResource{}, false
	}
	return s.Rakes[i], true
}

// Yard returns the stockyard with the given id.
func (s *Snapshot) Yard(id string) (model.Stockyard, bool) {
	i, ok := s.yardIdx[id]
	if !ok {
		return model.Stockyard{}, false
	}
	return s.Yards[i], true
}

// Distance returns the km between two locations. Unknown pairs fall back to
// the network default.
func (s *Snapshot) Distance(from, to string) float64 {
	if from == to {
		return 0
	}
	if km, ok := s.legs[[2]string{from, to}]; ok {
		return km
	}
	return s.defaultKm
}

// TransitHours converts a distance into travel time.
func (s *Snapshot) TransitHours(km float64) float64 {
	return km / s.speed
}

// Throughput returns the tonnes a yard can load per planning period. ok is
// false when the yard declares no loading points, which leaves it unbounded.
func (s *Snapshot) Throughput(yardID string) (float64, bool) {
	pts := s.points[yardID]
	if len(pts) == 0 {
		return 0, false
	}
	var total float64
	for _, lp := range pts {
		tp := lp.Throughput
		if c := s.Constraints.MaxLoadingPointCapacity; c > 0 && tp > c {
			tp = c
		}
		total += tp
	}
	return total, true
}

// Loadable reports whether some loading point of the yard can put the
// material on a rake of the given wagon type.
func (s *Snapshot) Loadable(yardID, materialID, wagonType string) bool {
	pts := s.points[yardID]
	if len(pts) == 0 {
		return true
	}
	for _, lp := range pts {
		if lp.CanLoad(materialID, wagonType) {
			return true
		}
	}
	return false
}

// RouteRestricted reports whether the rake may not run home to yard or the
// loaded rake may not run yard to destination.
func (s *Snapshot) RouteRestricted(r model.RakeResource, y model.Stockyard, destination string) bool {
	if s.Constraints.Restricted(destination, y.ID, y.Location) {
		return true
	}
	if r.Location != y.Location && r.Location != "" {
		return s.Constraints.Restricted(y.Location, r.Location) || s.Constraints.Restricted(y.ID, r.Location)
	}
	return false
}

// nextOperating returns the earliest time at or after t when one of the
// yard's loading points is open.
func (s *Snapshot) nextOperating(yardID string, t time.Time) time.Time {
	pts := s.points[yardID]
	if len(pts) == 0 {
		return t
	}
	best := time.Time{}
	for _, lp := range pts {
		if lp.OperatingHours.AllDay() {
			return t
		}
		cand := t
		for i := 0; i < 24 && !lp.OperatingHours.Contains(cand.UTC().Hour()); i++ {
			cand = cand.UTC().Truncate(time.Hour).Add(time.Hour)
		}
		if best.IsZero() || cand.Before(best) {
			best = cand
		}
	}
	return best
}

// slotOf returns the index of the planning period t falls in. Times before
// the planning start belong to period 0.
func (s *Snapshot) slotOf(t time.Time) int {
	h := hoursBetween(s.Start, t)
	if h <= 0 {
		return 0
	}
	return int(math.Floor(h / s.Constraints.Period()))
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}

func latest(ts ...time.Time) time.Time {
	var out time.Time
	for _, t := range ts {
		if t.After(out) {
			out = t
		}
	}
	return out
}

func addHours(t time.Time, h float64) time.Time {
	if h <= 0 || math.IsInf(h, 0) || math.IsNaN(h) {
		return t
	}
	return t.Add(time.Duration(h * float64(time.Hour)))
}
