package model

import (
	"errors"
	"fmt"
	"time"
)

// Budget limits how long a search strategy may run.
type Budget struct {
	MaxIterations    int     `json:"maxIterations" yaml:"maxIterations"`
	TimeLimitSeconds float64 `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
}

// TimeLimit returns the wall-clock budget, zero when unset.
func (b Budget) TimeLimit() time.Duration {
	if b.TimeLimitSeconds <= 0 {
		return 0
	}
	return time.Duration(b.TimeLimitSeconds * float64(time.Second))
}

// FormationRequest is the snapshot a caller hands to the engine. Each request
// owns its orders and resources; the engine never mutates them.
type FormationRequest struct {
	Orders        []Order          `json:"orders" yaml:"orders"`
	Rakes         []RakeResource   `json:"rakes" yaml:"rakes"`
	Stockyards    []Stockyard      `json:"stockyards" yaml:"stockyards"`
	LoadingPoints []LoadingPoint   `json:"loadingPoints" yaml:"loadingPoints"`
	Constraints   Constraints      `json:"constraints" yaml:"constraints"`
	Network       Network          `json:"network" yaml:"network"`
	Weights       ObjectiveWeights `json:"objectiveWeights" yaml:"objectiveWeights"`
	Algorithm     string           `json:"algorithm" yaml:"algorithm"`
	Budget        Budget           `json:"budget" yaml:"budget"`
	PlanningStart time.Time        `json:"planningStart" yaml:"planningStart"`
	Seed          int64            `json:"seed" yaml:"seed"`
}

// Validate performs the structural checks every strategy relies on and
// returns all problems found, joined.
func (r FormationRequest) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(r.Orders))
	for _, o := range r.Orders {
		if err := o.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[o.ID]; dup {
			errs = append(errs, fmt.Errorf("order %s: duplicate id", o.ID))
		}
		seen[o.ID] = struct{}{}
	}
	if len(r.Rakes) == 0 {
		errs = append(errs, fmt.Errorf("no rakes available"))
	}
	rakes := make(map[string]struct{}, len(r.Rakes))
	for _, rk := range r.Rakes {
		if err := rk.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := rakes[rk.ID]; dup {
			errs = append(errs, fmt.Errorf("rake %s: duplicate id", rk.ID))
		}
		rakes[rk.ID] = struct{}{}
	}
	yards := make(map[string]struct{}, len(r.Stockyards))
	for _, y := range r.Stockyards {
		if y.ID == "" {
			errs = append(errs, fmt.Errorf("stockyard id is required"))
			continue
		}
		if _, dup := yards[y.ID]; dup {
			errs = append(errs, fmt.Errorf("stockyard %s: duplicate id", y.ID))
		}
		yards[y.ID] = struct{}{}
		for m, s := range y.Materials {
			if s.Available < 0 {
				errs = append(errs, fmt.Errorf("stockyard %s: negative stock of %s", y.ID, m))
			}
		}
	}
	for _, lp := range r.LoadingPoints {
		if _, ok := yards[lp.StockyardID]; !ok {
			errs = append(errs, fmt.Errorf("loading point %s: unknown stockyard %q", lp.ID, lp.StockyardID))
		}
		if lp.Throughput < 0 {
			errs = append(errs, fmt.Errorf("loading point %s: negative throughput", lp.ID))
		}
	}
	if err := r.Constraints.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if r.Budget.MaxIterations < 0 || r.Budget.TimeLimitSeconds < 0 {
		errs = append(errs, fmt.Errorf("budget must not be negative"))
	}
	return errors.Join(errs...)
}
