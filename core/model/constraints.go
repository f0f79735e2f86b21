package model

import (
	"fmt"
	"time"
)

// DefaultPeriodHours is the planning period length used when constraints leave it unset.
const DefaultPeriodHours = 24

// DefaultSpeedKmh is the average freight speed used when the network leaves it unset.
const DefaultSpeedKmh = 40

// Route is an origin to destination pair.
type Route struct {
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`
}

// TimeWindow bounds dispatch times. Zero values leave that side open.
type TimeWindow struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Constraints are the plan-wide hard limits of a formation run.
type Constraints struct {
	MinRakeSize             float64    `json:"minRakeSize" yaml:"minRakeSize"`
	MaxRakeSize             float64    `json:"maxRakeSize" yaml:"maxRakeSize"`
	MaxLoadingPointCapacity float64    `json:"maxLoadingPointCapacity" yaml:"maxLoadingPointCapacity"`
	MaxSidingCapacity       int        `json:"maxSidingCapacity" yaml:"maxSidingCapacity"`
	RouteRestrictions       []Route    `json:"routeRestrictions" yaml:"routeRestrictions"`
	TimeWindow              TimeWindow `json:"timeWindow" yaml:"timeWindow"`
	PeriodHours             float64    `json:"periodHours,omitempty" yaml:"periodHours"`
}

// MaxLoad returns the largest admissible load on the rake: the smaller of the
// plan-wide maximum and the rake capacity.
func (c Constraints) MaxLoad(r RakeResource) float64 {
	if c.MaxRakeSize > 0 && c.MaxRakeSize < r.Capacity {
		return c.MaxRakeSize
	}
	return r.Capacity
}

// Period returns the planning period length in hours.
func (c Constraints) Period() float64 {
	if c.PeriodHours <= 0 {
		return DefaultPeriodHours
	}
	return c.PeriodHours
}

// Restricted reports whether the route from origin to destination is forbidden.
// Any of the origin keys may match (a yard is known by its id and its location).
func (c Constraints) Restricted(destination string, origins ...string) bool {
	for _, r := range c.RouteRestrictions {
		if r.Destination != destination {
			continue
		}
		for _, o := range origins {
			if o != "" && r.Origin == o {
				return true
			}
		}
	}
	return false
}

// Validate checks the constraint ranges.
func (c Constraints) Validate() error {
	if c.MinRakeSize < 0 || c.MaxRakeSize < 0 {
		return fmt.Errorf("rake size limits must not be negative")
	}
	if c.MaxRakeSize > 0 && c.MinRakeSize > c.MaxRakeSize {
		return fmt.Errorf("minRakeSize %.0f exceeds maxRakeSize %.0f", c.MinRakeSize, c.MaxRakeSize)
	}
	if c.MaxSidingCapacity < 0 || c.MaxLoadingPointCapacity < 0 {
		return fmt.Errorf("capacity limits must not be negative")
	}
	if !c.TimeWindow.Start.IsZero() && !c.TimeWindow.End.IsZero() && c.TimeWindow.End.Before(c.TimeWindow.Start) {
		return fmt.Errorf("time window ends before it starts")
	}
	return nil
}

// Leg is a known distance between two locations. Legs are symmetric.
type Leg struct {
	From string  `json:"from" yaml:"from"`
	To   string  `json:"to" yaml:"to"`
	Km   float64 `json:"km" yaml:"km"`
}

// Network describes the distance table used for cost and transit estimates.
type Network struct {
	Distances         []Leg   `json:"distances" yaml:"distances"`
	DefaultDistanceKm float64 `json:"defaultDistanceKm" yaml:"defaultDistanceKm"`
	AverageSpeedKmh   float64 `json:"averageSpeedKmh" yaml:"averageSpeedKmh"`
}

// Speed returns the average speed in km/h.
func (n Network) Speed() float64 {
	if n.AverageSpeedKmh <= 0 {
		return DefaultSpeedKmh
	}
	return n.AverageSpeedKmh
}
