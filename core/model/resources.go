package model

import (
	"fmt"
	"slices"
	"time"
)

// RakeResource is one physical rake slot available over the planning horizon.
type RakeResource struct {
	ID            string    `json:"id" yaml:"id"`
	Capacity      float64   `json:"capacity" yaml:"capacity"`       // tonnes
	CurrentLoad   float64   `json:"currentLoad" yaml:"currentLoad"` // cargo already on board
	Location      string    `json:"location" yaml:"location"`
	AvailableFrom time.Time `json:"availableFrom" yaml:"availableFrom"`
	CostPerKm     float64   `json:"costPerKm" yaml:"costPerKm"`
	FixedCost     float64   `json:"fixedCost,omitempty" yaml:"fixedCost"`
	WagonType     string    `json:"wagonType,omitempty" yaml:"wagonType"`
}

// Free returns the tonnage still available on the rake.
func (r RakeResource) Free() float64 {
	f := r.Capacity - r.CurrentLoad
	if f < 0 {
		return 0
	}
	return f
}

// Validate checks that the rake is physically sound.
func (r RakeResource) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rake id is required")
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("rake %s: capacity must be positive", r.ID)
	}
	if r.CurrentLoad < 0 || r.CurrentLoad > r.Capacity {
		return fmt.Errorf("rake %s: currentLoad must be within [0, capacity]", r.ID)
	}
	if r.CostPerKm < 0 || r.FixedCost < 0 {
		return fmt.Errorf("rake %s: costs must not be negative", r.ID)
	}
	return nil
}

// MaterialStock is the quantity of one material held by a stockyard.
type MaterialStock struct {
	Available float64 `json:"available" yaml:"available"`
	Grade     string  `json:"grade" yaml:"grade"`
	AgeDays   int     `json:"ageDays" yaml:"ageDays"`
}

// Stockyard is a storage location supplying material to rakes.
type Stockyard struct {
	ID            string                   `json:"id" yaml:"id"`
	Name          string                   `json:"name" yaml:"name"`
	Location      string                   `json:"location" yaml:"location"`
	Materials     map[string]MaterialStock `json:"materials" yaml:"materials"`
	LoadingPoints int                      `json:"loadingPoints" yaml:"loadingPoints"`
	Capacity      float64                  `json:"capacity" yaml:"capacity"`
}

// Available returns the stock of the material, zero when the yard does not hold it.
func (s Stockyard) Available(materialID string) float64 {
	return s.Materials[materialID].Available
}

// OperatingHours is a daily window in hours of day (UTC). Open == Close means
// the point operates around the clock.
type OperatingHours struct {
	Open  int `json:"open" yaml:"open"`
	Close int `json:"close" yaml:"close"`
}

// AllDay reports whether the window covers the full day.
func (h OperatingHours) AllDay() bool { return h.Open == h.Close }

// Contains reports whether hour (0-23) falls inside the window. Windows may
// wrap around midnight.
func (h OperatingHours) Contains(hour int) bool {
	if h.AllDay() {
		return true
	}
	if h.Open < h.Close {
		return hour >= h.Open && hour < h.Close
	}
	return hour >= h.Open || hour < h.Close
}

// LoadingPoint is a physical point inside a stockyard loading material onto rakes.
type LoadingPoint struct {
	ID             string         `json:"id" yaml:"id"`
	StockyardID    string         `json:"stockyardId" yaml:"stockyardId"`
	Throughput     float64        `json:"throughput" yaml:"throughput"` // tonnes per planning period
	OperatingHours OperatingHours `json:"operatingHours" yaml:"operatingHours"`
	Equipment      []string       `json:"equipment" yaml:"equipment"`
}

// CanLoad reports whether the point can load the material onto a rake of the
// given wagon type. An empty equipment set handles everything.
func (lp LoadingPoint) CanLoad(materialID, wagonType string) bool {
	if len(lp.Equipment) == 0 {
		return true
	}
	if !slices.Contains(lp.Equipment, materialID) {
		return false
	}
	return wagonType == "" || slices.Contains(lp.Equipment, wagonType)
}
