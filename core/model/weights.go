package model

import "fmt"

// ObjectiveWeights balances the four formation objectives. Callers should
// supply weights summing to 1 but Normalize is always applied before scoring.
type ObjectiveWeights struct {
	MinimizeCost        float64 `json:"minimizeCost" yaml:"minimizeCost"`
	MaximizeUtilization float64 `json:"maximizeUtilization" yaml:"maximizeUtilization"`
	MinimizeDelay       float64 `json:"minimizeDelay" yaml:"minimizeDelay"`
	MeetSLA             float64 `json:"meetSLA" yaml:"meetSLA"`
}

// DefaultWeights returns an even split across the objectives.
func DefaultWeights() ObjectiveWeights {
	return ObjectiveWeights{MinimizeCost: 0.25, MaximizeUtilization: 0.25, MinimizeDelay: 0.25, MeetSLA: 0.25}
}

func (w ObjectiveWeights) sum() float64 {
	return w.MinimizeCost + w.MaximizeUtilization + w.MinimizeDelay + w.MeetSLA
}

// IsZero reports whether every weight is zero.
func (w ObjectiveWeights) IsZero() bool {
	return w.MinimizeCost == 0 && w.MaximizeUtilization == 0 && w.MinimizeDelay == 0 && w.MeetSLA == 0
}

// Validate rejects negative weights and the all-zero vector.
func (w ObjectiveWeights) Validate() error {
	if w.MinimizeCost < 0 || w.MaximizeUtilization < 0 || w.MinimizeDelay < 0 || w.MeetSLA < 0 {
		return fmt.Errorf("objective weights must not be negative")
	}
	if w.IsZero() {
		return fmt.Errorf("objective weights are all zero")
	}
	return nil
}

// Normalize rescales the weights so they sum to 1. The zero vector is
// returned unchanged.
func (w ObjectiveWeights) Normalize() ObjectiveWeights {
	s := w.sum()
	if s <= 0 {
		return w
	}
	return ObjectiveWeights{
		MinimizeCost:        w.MinimizeCost / s,
		MaximizeUtilization: w.MaximizeUtilization / s,
		MinimizeDelay:       w.MinimizeDelay / s,
		MeetSLA:             w.MeetSLA / s,
	}
}
