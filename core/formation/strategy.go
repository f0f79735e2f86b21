package formation

import (
	"context"
	"fmt"

	"github.com/kilianp07/rakeform/core/factory"
	"github.com/kilianp07/rakeform/core/model"
)

// Strategy searches a Problem for a good plan. The time budget arrives as
// the context deadline; running out of budget is not an error, the best plan
// found so far is returned with Converged false.
type Strategy interface {
	Name() string
	Optimize(ctx context.Context, p *Problem, opts Options) (Outcome, error)
}

// Options are the per-run knobs passed to a strategy.
type Options struct {
	// MaxIterations caps the search; 0 keeps the strategy default.
	MaxIterations int
	Seed          int64
	// Progress, when set, is called with the iteration and best objective.
	Progress func(iteration int, best float64)
}

func (o Options) report(it int, best float64) {
	if o.Progress != nil {
		o.Progress(it, best)
	}
}

// Outcome is what a strategy hands back to the orchestrator.
type Outcome struct {
	Plan       model.FormationPlan
	Score      float64
	Iterations int
	Converged  bool
	Trace      []float64
}

func outcomeOf(name string, b *build, iterations int, converged bool, trace []float64) Outcome {
	return Outcome{
		Plan:       b.Plan(name),
		Score:      b.Objective(),
		Iterations: iterations,
		Converged:  converged,
		Trace:      trace,
	}
}

var strategyRegistry = factory.NewRegistry[Strategy]()

// RegisterStrategy adds a strategy factory identified by algorithm name.
func RegisterStrategy(name string, f factory.Factory[Strategy]) error {
	return strategyRegistry.Register(name, f)
}

// Algorithms lists the registered algorithm names.
func Algorithms() []string {
	return strategyRegistry.Names()
}

// NewStrategies builds one instance of every registered strategy, applying
// the overrides of cfg.Strategies.
func NewStrategies(cfg Config) (map[string]Strategy, error) {
	conf := make(map[string]map[string]any, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		conf[s.Type] = s.Conf
	}
	out := make(map[string]Strategy)
	for _, name := range strategyRegistry.Names() {
		s, err := strategyRegistry.Create(factory.ModuleConfig{Type: name, Conf: conf[name]})
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func init() {
	_ = RegisterStrategy("greedy", func(map[string]any) (Strategy, error) {
		return Greedy{}, nil
	})
	_ = RegisterStrategy("genetic", func(conf map[string]any) (Strategy, error) {
		var c GeneticConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewGenetic(c), nil
	})
	_ = RegisterStrategy("annealing", func(conf map[string]any) (Strategy, error) {
		var c AnnealingConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewAnnealing(c), nil
	})
}
