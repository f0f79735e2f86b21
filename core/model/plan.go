package model

import "time"

// ViolationKind names a constraint a candidate assignment breaks.
type ViolationKind string

const (
	RakeSizeBelowMin      ViolationKind = "RakeSizeBelowMin"
	RakeSizeAboveMax      ViolationKind = "RakeSizeAboveMax"
	CapacityExceeded      ViolationKind = "CapacityExceeded"
	InsufficientMaterial  ViolationKind = "InsufficientMaterial"
	RouteRestricted       ViolationKind = "RouteRestricted"
	NoLoadingEquipment    ViolationKind = "NoLoadingEquipment"
	LoadingPointOverload  ViolationKind = "LoadingPointOverload"
	SidingOverload        ViolationKind = "SidingOverload"
	OutsideTimeWindow     ViolationKind = "OutsideTimeWindow"
	RakeConflict          ViolationKind = "RakeConflict"
	NoCompatibleRake      ViolationKind = "NoCompatibleRake"
	InternalInconsistency ViolationKind = "InternalInconsistency"
	// Deferred marks an order a search left out to serve other orders.
	Deferred ViolationKind = "Deferred"
)

// Class returns the position of the check producing the violation. Checks
// run in class order and stop after the first failing class.
func (k ViolationKind) Class() int {
	switch k {
	case RakeSizeBelowMin, RakeSizeAboveMax:
		return 1
	case CapacityExceeded:
		return 2
	case InsufficientMaterial:
		return 3
	case RouteRestricted:
		return 4
	case NoLoadingEquipment, LoadingPointOverload, SidingOverload:
		return 5
	case OutsideTimeWindow:
		return 6
	default:
		return 0
	}
}

// Violation describes one broken constraint. Excess is the relative overshoot
// (0 when the constraint is binary).
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail"`
	Excess float64       `json:"excess,omitempty"`
}

// RakeAssignment is one rake load within a plan.
type RakeAssignment struct {
	RakeID          string      `json:"rakeId"`
	OrderIDs        []string    `json:"orderIds"`
	TotalLoad       float64     `json:"totalLoad"`
	Utilization     float64     `json:"utilization"`
	SourceStockyard string      `json:"sourceStockyard"`
	Destination     string      `json:"destination"`
	EstimatedCost   float64     `json:"estimatedCost"`
	SLACompliance   float64     `json:"slaCompliance"`
	DelayHours      float64     `json:"delayHours"`
	DispatchAt      time.Time   `json:"dispatchAt"`
	ArrivalAt       time.Time   `json:"arrivalAt"`
	Partial         bool        `json:"partial,omitempty"`
	Violations      []Violation `json:"violations,omitempty"`
}

// UnassignedOrder records an order a plan could not place and why.
type UnassignedOrder struct {
	OrderID string        `json:"orderId"`
	Reason  ViolationKind `json:"reason"`
	Detail  string        `json:"detail,omitempty"`
}

// FormationPlan is the read-only outcome of one formation run.
type FormationPlan struct {
	ID              string            `json:"id"`
	Algorithm       string            `json:"algorithm"`
	CreatedAt       time.Time         `json:"createdAt"`
	Assignments     []RakeAssignment  `json:"assignments"`
	Unassigned      []UnassignedOrder `json:"unassigned"`
	TotalCost       float64           `json:"totalCost"`
	Utilization     float64           `json:"utilization"`
	SLACompliance   float64           `json:"slaCompliance"` // percent of all orders
	TotalDelayHours float64           `json:"totalDelayHours"`
	Partial         bool              `json:"partial"`
}

// AssignedCount returns the number of orders placed on rakes.
func (p FormationPlan) AssignedCount() int {
	n := 0
	for _, a := range p.Assignments {
		n += len(a.OrderIDs)
	}
	return n
}

// Diagnostics describes how a strategy run went.
type Diagnostics struct {
	Algorithm     string        `json:"algorithm"`
	IterationsRun int           `json:"iterationsRun"`
	ElapsedTime   time.Duration `json:"elapsedTime"`
	Converged     bool          `json:"converged"`
	Score         float64       `json:"score"`
	Trace         []float64     `json:"trace,omitempty"`
	Seed          int64         `json:"seed,omitempty"`
	Discarded     int           `json:"discarded,omitempty"`
}

// FormationResult is what a formation run returns to its caller.
type FormationResult struct {
	Plan        FormationPlan `json:"plan"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}
