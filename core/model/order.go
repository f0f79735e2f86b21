package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks an order for formation. Higher values are served first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String returns the wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Rank returns 0 for low up to 3 for urgent.
func (p Priority) Rank() int { return int(p) }

// Weight is the share an unassigned order of this priority contributes to the
// unassigned penalty of a plan.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 5
	default:
		return 1
	}
}

// ParsePriority converts a wire name to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "urgent":
		return PriorityUrgent, nil
	}
	return PriorityLow, fmt.Errorf("unknown priority %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Order is a pending shipment waiting to be placed on a rake.
type Order struct {
	ID           string    `json:"id" yaml:"id"`
	MaterialID   string    `json:"materialId" yaml:"materialId"`
	MaterialName string    `json:"materialName" yaml:"materialName"`
	Quantity     float64   `json:"quantity" yaml:"quantity"` // tonnes
	Destination  string    `json:"destination" yaml:"destination"`
	Priority     Priority  `json:"priority" yaml:"priority"`
	RequiredDate time.Time `json:"requiredDate" yaml:"requiredDate"`
	SLAHours     float64   `json:"slaHours" yaml:"slaHours"`
	Cost         float64   `json:"cost" yaml:"cost"`
}

// IsUrgent reports whether the order must be placed whenever physically possible.
func (o Order) IsUrgent() bool { return o.Priority == PriorityUrgent }

// Validate checks the order fields a formation run depends on.
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("order %s: quantity must be positive", o.ID)
	}
	if o.SLAHours <= 0 {
		return fmt.Errorf("order %s: slaHours must be positive", o.ID)
	}
	if o.Cost < 0 {
		return fmt.Errorf("order %s: cost must not be negative", o.ID)
	}
	if o.Priority < PriorityLow || o.Priority > PriorityUrgent {
		return fmt.Errorf("order %s: invalid priority", o.ID)
	}
	return nil
}
