package formation

import (
	"fmt"
	"time"

	"github.com/kilianp07/rakeform/core/factory"
	"github.com/kilianp07/rakeform/core/scoring"
)

// Config defines formation-related settings.
type Config struct {
	// DefaultAlgorithm runs when a request names none.
	DefaultAlgorithm string `json:"default_algorithm"`
	// TimeLimit bounds a run when the request carries no time budget.
	TimeLimit time.Duration `json:"time_limit"`
	// UnassignedPenalty scales the priority-weighted share of unassigned orders.
	UnassignedPenalty float64 `json:"unassigned_penalty"`
	// ViolationPenalty scales the severity of constraint violations.
	ViolationPenalty float64 `json:"violation_penalty"`
	// Strategies overrides the settings of the built-in strategies.
	Strategies []factory.ModuleConfig `json:"strategies"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	def := scoring.DefaultPenalties()
	if c.DefaultAlgorithm == "" {
		c.DefaultAlgorithm = "greedy"
	}
	if c.TimeLimit <= 0 {
		c.TimeLimit = 30 * time.Second
	}
	if c.UnassignedPenalty <= 0 {
		c.UnassignedPenalty = def.Unassigned
	}
	if c.ViolationPenalty <= 0 {
		c.ViolationPenalty = def.Violation
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.DefaultAlgorithm != "" && !strategyRegistry.Has(c.DefaultAlgorithm) {
		return fmt.Errorf("unknown default algorithm %s", c.DefaultAlgorithm)
	}
	for _, s := range c.Strategies {
		if !strategyRegistry.Has(s.Type) {
			return fmt.Errorf("unknown strategy %s", s.Type)
		}
	}
	if c.TimeLimit < 0 || c.UnassignedPenalty < 0 || c.ViolationPenalty < 0 {
		return fmt.Errorf("formation limits must not be negative")
	}
	return nil
}

// Penalties returns the scoring penalties the config selects.
func (c Config) Penalties() scoring.Penalties {
	p := scoring.DefaultPenalties()
	if c.UnassignedPenalty > 0 {
		p.Unassigned = c.UnassignedPenalty
	}
	if c.ViolationPenalty > 0 {
		p.Violation = c.ViolationPenalty
	}
	return p
}
