package formation

import "context"

// Greedy places orders one at a time in priority order on the slot with the
// best marginal objective. It is deterministic and runs a single pass.
type Greedy struct{}

// Name implements Strategy.
func (Greedy) Name() string { return "greedy" }

// Optimize implements Strategy.
func (g Greedy) Optimize(_ context.Context, p *Problem, opts Options) (Outcome, error) {
	b := p.Construct(nil)
	opts.report(1, b.Objective())
	return outcomeOf(g.Name(), b, 1, true, []float64{b.Objective()}), nil
}
