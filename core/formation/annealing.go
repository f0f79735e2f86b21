package formation

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// AnnealingConfig tunes simulated annealing.
type AnnealingConfig struct {
	InitialTemperature float64 `json:"initial_temperature"`
	CoolingRate        float64 `json:"cooling_rate"`
	MinTemperature     float64 `json:"min_temperature"`
	// StepsPerTemperature is the number of moves tried before cooling.
	StepsPerTemperature int `json:"steps_per_temperature"`
	// Restarts is the number of independent chains; chain i uses seed+i.
	Restarts int `json:"restarts"`
}

func (c *AnnealingConfig) setDefaults() {
	if c.InitialTemperature <= 0 {
		c.InitialTemperature = 100
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		c.CoolingRate = 0.95
	}
	if c.MinTemperature <= 0 {
		c.MinTemperature = 1e-3
	}
	if c.StepsPerTemperature <= 0 {
		c.StepsPerTemperature = 20
	}
	if c.Restarts <= 0 {
		c.Restarts = 1
	}
}

// Annealing starts from the greedy plan and walks single-order moves,
// accepting worse plans with probability exp(-delta/T).
type Annealing struct {
	cfg AnnealingConfig
}

// NewAnnealing returns an annealing strategy, filling unset settings with
// defaults.
func NewAnnealing(cfg AnnealingConfig) *Annealing {
	cfg.setDefaults()
	return &Annealing{cfg: cfg}
}

// Name implements Strategy.
func (a *Annealing) Name() string { return "annealing" }

type chain struct {
	best       *build
	iterations int
	converged  bool
	trace      []float64
}

// Optimize implements Strategy. Chains run concurrently and split the
// iteration cap between them; the best plan wins and ties go to the lowest
// chain index. Only the first chain reports progress.
func (a *Annealing) Optimize(ctx context.Context, p *Problem, opts Options) (Outcome, error) {
	n := a.cfg.Restarts
	if opts.MaxIterations > 0 && opts.MaxIterations < n {
		n = opts.MaxIterations
	}
	chains := make([]chain, n)
	var eg errgroup.Group
	for c := range chains {
		eg.Go(func() error {
			o := opts
			if c > 0 {
				o.Progress = nil
			}
			if opts.MaxIterations > 0 {
				o.MaxIterations = opts.MaxIterations / n
				if c < opts.MaxIterations%n {
					o.MaxIterations++
				}
			}
			chains[c] = a.run(ctx, p, opts.Seed+int64(c), o)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Outcome{}, err
	}
	win := 0
	total := 0
	for c, ch := range chains {
		total += ch.iterations
		if ch.best.Objective() < chains[win].best.Objective() {
			win = c
		}
	}
	ch := chains[win]
	return outcomeOf(a.Name(), ch.best, total, ch.converged, ch.trace), nil
}

func (a *Annealing) run(ctx context.Context, p *Problem, seed int64, opts Options) chain {
	rng := rand.New(rand.NewSource(seed))
	cur := p.Construct(nil)
	ch := chain{best: cur, trace: []float64{cur.Objective()}}

	var movable []int
	for i := 0; i < p.Len(); i++ {
		if p.Options(i) > 0 {
			movable = append(movable, i)
		}
	}
	if len(movable) == 0 {
		ch.converged = true
		return ch
	}

	for t := a.cfg.InitialTemperature; t > a.cfg.MinTemperature; t *= a.cfg.CoolingRate {
		for step := 0; step < a.cfg.StepsPerTemperature; step++ {
			if ctx.Err() != nil || (opts.MaxIterations > 0 && ch.iterations >= opts.MaxIterations) {
				ch.trace = append(ch.trace, ch.best.Objective())
				return ch
			}
			ch.iterations++
			genes := cur.Genes()
			i := movable[rng.Intn(len(movable))]
			genes[i] = neighborGene(genes[i], p.Options(i), rng)
			next := p.Construct(genes)
			delta := next.Objective() - cur.Objective()
			if delta <= 0 || rng.Float64() < math.Exp(-delta/t) {
				cur = next
			}
			if cur.Objective() < ch.best.Objective() {
				ch.best = cur
			}
		}
		ch.trace = append(ch.trace, ch.best.Objective())
		opts.report(ch.iterations, ch.best.Objective())
	}
	ch.converged = true
	return ch
}

// neighborGene draws a gene value other than cur from geneSkip..options-1,
// so a move can take an order to or from "unassigned".
func neighborGene(cur, options int, rng *rand.Rand) int {
	v := rng.Intn(options+1) + geneSkip
	if v >= cur {
		v++
	}
	return v
}
