package formation

import (
	"context"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// GeneticConfig tunes the genetic search.
type GeneticConfig struct {
	Population     int     `json:"population"`
	Generations    int     `json:"generations"`
	TournamentSize int     `json:"tournament_size"`
	CrossoverRate  float64 `json:"crossover_rate"`
	MutationRate   float64 `json:"mutation_rate"`
	Elitism        int     `json:"elitism"`
	Stagnation     int     `json:"stagnation"`
	// Workers bounds the goroutines evaluating a generation; 0 uses GOMAXPROCS.
	Workers int `json:"workers"`
}

func (c *GeneticConfig) setDefaults() {
	if c.Population <= 1 {
		c.Population = 50
	}
	if c.Generations <= 0 {
		c.Generations = 100
	}
	switch {
	case c.TournamentSize < 3:
		c.TournamentSize = 3
	case c.TournamentSize > 5:
		c.TournamentSize = 5
	}
	if c.CrossoverRate <= 0 || c.CrossoverRate > 1 {
		c.CrossoverRate = 0.9
	}
	if c.MutationRate <= 0 || c.MutationRate > 1 {
		c.MutationRate = 0.02
	}
	if c.Elitism <= 0 {
		c.Elitism = 1
	}
	if c.Elitism >= c.Population {
		c.Elitism = c.Population - 1
	}
	if c.Stagnation <= 0 {
		c.Stagnation = 20
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Genetic evolves gene vectors seeded with the greedy plan. Chromosomes are
// kept as bred. Each one is scored by the plan the builder repairs from it,
// plus the violation penalty of its literal decoding, so infeasible
// chromosomes stay in the population at a disadvantage.
type Genetic struct {
	cfg GeneticConfig
}

// NewGenetic returns a genetic strategy, filling unset settings with defaults.
func NewGenetic(cfg GeneticConfig) *Genetic {
	cfg.setDefaults()
	return &Genetic{cfg: cfg}
}

// Name implements Strategy.
func (g *Genetic) Name() string { return "genetic" }

type individual struct {
	genes []int
	b     *build
	score float64
}

// Optimize implements Strategy. Randomness is drawn on the calling goroutine
// only, so a seed gives the same plan however many workers score the
// population.
func (g *Genetic) Optimize(ctx context.Context, p *Problem, opts Options) (Outcome, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	seed := p.Construct(nil)
	genes := seed.Genes()
	best := individual{genes: genes, b: seed, score: seed.Fitness(p.Severity(genes))}
	trace := []float64{best.score}
	if p.Len() == 0 {
		return outcomeOf(g.Name(), seed, 0, true, trace), nil
	}

	pop := make([]individual, g.cfg.Population)
	pop[0] = best
	for k := 1; k < len(pop); k++ {
		pop[k] = individual{genes: g.randomGenes(p, rng)}
	}
	if err := g.evaluate(p, pop[1:]); err != nil {
		return Outcome{}, err
	}
	rank(pop)

	limit := g.cfg.Generations
	if opts.MaxIterations > 0 && opts.MaxIterations < limit {
		limit = opts.MaxIterations
	}
	converged := false
	stale, gen := 0, 0
	for gen < limit {
		if ctx.Err() != nil {
			break
		}
		next := make([]individual, 0, len(pop))
		next = append(next, pop[:g.cfg.Elitism]...)
		for len(next) < len(pop) {
			a, b := g.tournament(pop, rng), g.tournament(pop, rng)
			c1, c2 := g.crossover(a.genes, b.genes, rng)
			g.mutate(p, c1, rng)
			g.mutate(p, c2, rng)
			next = append(next, individual{genes: c1})
			if len(next) < len(pop) {
				next = append(next, individual{genes: c2})
			}
		}
		if err := g.evaluate(p, next[g.cfg.Elitism:]); err != nil {
			return Outcome{}, err
		}
		rank(next)
		pop = next
		gen++

		if pop[0].score < best.score-1e-12 {
			best = pop[0]
			stale = 0
		} else {
			stale++
		}
		trace = append(trace, best.score)
		opts.report(gen, best.score)
		if stale >= g.cfg.Stagnation {
			converged = true
			break
		}
	}
	if gen == g.cfg.Generations {
		converged = true
	}
	return outcomeOf(g.Name(), best.b, gen, converged, trace), nil
}

// evaluate repairs and scores individuals concurrently. Each goroutine
// writes only its own slot.
func (g *Genetic) evaluate(p *Problem, pop []individual) error {
	var eg errgroup.Group
	eg.SetLimit(g.cfg.Workers)
	for k := range pop {
		eg.Go(func() error {
			genes := pop[k].genes
			b := p.Construct(genes)
			pop[k] = individual{genes: genes, b: b, score: b.Fitness(p.Severity(genes))}
			return nil
		})
	}
	return eg.Wait()
}

// rank sorts by ascending objective; ties keep population order.
func rank(pop []individual) {
	sort.SliceStable(pop, func(a, b int) bool { return pop[a].score < pop[b].score })
}

func (g *Genetic) randomGenes(p *Problem, rng *rand.Rand) []int {
	genes := make([]int, p.Len())
	for i := range genes {
		genes[i] = randomGene(p.Options(i), rng)
	}
	return genes
}

// randomGene draws uniformly from the options, geneFree and geneSkip.
func randomGene(options int, rng *rand.Rand) int {
	if options == 0 {
		return geneFree
	}
	return rng.Intn(options+2) + geneSkip
}

func (g *Genetic) tournament(pop []individual, rng *rand.Rand) individual {
	best := rng.Intn(len(pop))
	for k := 1; k < g.cfg.TournamentSize; k++ {
		if c := rng.Intn(len(pop)); pop[c].score < pop[best].score || (pop[c].score == pop[best].score && c < best) {
			best = c
		}
	}
	return pop[best]
}

// crossover is single point; below the crossover rate the parents are
// copied unchanged.
func (g *Genetic) crossover(a, b []int, rng *rand.Rand) ([]int, []int) {
	c1 := append([]int(nil), a...)
	c2 := append([]int(nil), b...)
	if len(a) < 2 || rng.Float64() >= g.cfg.CrossoverRate {
		return c1, c2
	}
	cut := 1 + rng.Intn(len(a)-1)
	for i := cut; i < len(a); i++ {
		c1[i], c2[i] = c2[i], c1[i]
	}
	return c1, c2
}

func (g *Genetic) mutate(p *Problem, genes []int, rng *rand.Rand) {
	for i := range genes {
		if rng.Float64() < g.cfg.MutationRate {
			genes[i] = randomGene(p.Options(i), rng)
		}
	}
}
