package formation

import (
	"fmt"
	"math"

	"github.com/kilianp07/rakeform/core/model"
)

const tolerance = 1e-6

// discard is an assignment removed by verification.
type discard struct {
	assignment model.RakeAssignment
	detail     string
}

// verifyPlan checks a finished plan against the request it answers and
// removes every assignment that breaks a plan invariant. The orders of a
// removed assignment become unassigned with InternalInconsistency. Totals are
// recomputed when anything is removed.
func verifyPlan(req model.FormationRequest, plan *model.FormationPlan) []discard {
	orders := make(map[string]model.Order, len(req.Orders))
	for _, o := range req.Orders {
		orders[o.ID] = o
	}
	rakes := make(map[string]model.RakeResource, len(req.Rakes))
	for _, r := range req.Rakes {
		rakes[r.ID] = r
	}
	yards := make(map[string]model.Stockyard, len(req.Stockyards))
	for _, y := range req.Stockyards {
		yards[y.ID] = y
	}

	seenOrder := make(map[string]bool, len(req.Orders))
	seenRake := make(map[string]bool, len(plan.Assignments))
	drawn := make(map[[2]string]float64)
	var kept []model.RakeAssignment
	var dropped []discard

	for _, a := range plan.Assignments {
		need := make(map[[2]string]float64)
		detail := checkAssignment(a, req.Constraints, orders, rakes, yards, seenOrder, seenRake, need)
		if detail == "" {
			for k, q := range need {
				if drawn[k]+q > yards[k[0]].Available(k[1])+tolerance {
					detail = fmt.Sprintf("stockyard %s over-drawn on %s", k[0], k[1])
					break
				}
			}
		}
		if detail != "" {
			dropped = append(dropped, discard{assignment: a, detail: detail})
			continue
		}
		for k, q := range need {
			drawn[k] += q
		}
		seenRake[a.RakeID] = true
		for _, id := range a.OrderIDs {
			seenOrder[id] = true
		}
		kept = append(kept, a)
	}

	for _, u := range plan.Unassigned {
		seenOrder[u.OrderID] = true
	}
	var missing []string
	for _, o := range req.Orders {
		if !seenOrder[o.ID] {
			missing = append(missing, o.ID)
		}
	}
	if len(dropped) == 0 && len(missing) == 0 {
		return nil
	}

	if kept == nil {
		kept = []model.RakeAssignment{}
	}
	plan.Assignments = kept
	for _, d := range dropped {
		for _, id := range d.assignment.OrderIDs {
			if _, known := orders[id]; !known || seenOrder[id] {
				continue
			}
			seenOrder[id] = true
			plan.Unassigned = append(plan.Unassigned, model.UnassignedOrder{
				OrderID: id, Reason: model.InternalInconsistency, Detail: d.detail,
			})
		}
	}
	for _, id := range missing {
		if seenOrder[id] {
			continue
		}
		plan.Unassigned = append(plan.Unassigned, model.UnassignedOrder{
			OrderID: id, Reason: model.InternalInconsistency, Detail: "order missing from plan",
		})
	}
	summarize(plan, len(req.Orders))
	return dropped
}

func checkAssignment(
	a model.RakeAssignment,
	cons model.Constraints,
	orders map[string]model.Order,
	rakes map[string]model.RakeResource,
	yards map[string]model.Stockyard,
	seenOrder, seenRake map[string]bool,
	need map[[2]string]float64,
) string {
	rake, ok := rakes[a.RakeID]
	if !ok {
		return fmt.Sprintf("unknown rake %s", a.RakeID)
	}
	if seenRake[a.RakeID] {
		return fmt.Sprintf("rake %s assigned twice", a.RakeID)
	}
	if _, ok := yards[a.SourceStockyard]; !ok {
		return fmt.Sprintf("unknown stockyard %s", a.SourceStockyard)
	}
	if len(a.OrderIDs) == 0 {
		return "empty assignment"
	}
	load := rake.CurrentLoad
	urgent := true
	local := make(map[string]bool, len(a.OrderIDs))
	for _, id := range a.OrderIDs {
		o, ok := orders[id]
		if !ok {
			return fmt.Sprintf("unknown order %s", id)
		}
		if seenOrder[id] || local[id] {
			return fmt.Sprintf("order %s booked twice", id)
		}
		local[id] = true
		if o.Destination != a.Destination {
			return fmt.Sprintf("order %s bound for %s, rake for %s", id, o.Destination, a.Destination)
		}
		load += o.Quantity
		urgent = urgent && o.IsUrgent()
		need[[2]string{a.SourceStockyard, o.MaterialID}] += o.Quantity
	}
	switch {
	case math.Abs(load-a.TotalLoad) > tolerance:
		return fmt.Sprintf("reported load %.1f t, orders sum to %.1f t", a.TotalLoad, load)
	case load > rake.Capacity+tolerance:
		return fmt.Sprintf("load %.1f t over capacity %.1f t", load, rake.Capacity)
	case a.Utilization > 1+tolerance:
		return fmt.Sprintf("utilization %.3f above 1", a.Utilization)
	case cons.MaxRakeSize > 0 && load > cons.MaxRakeSize+tolerance && !urgent:
		return fmt.Sprintf("load %.1f t over maximum %.1f t", load, cons.MaxRakeSize)
	case cons.MinRakeSize > 0 && load+tolerance < cons.MinRakeSize && !a.Partial:
		return fmt.Sprintf("load %.1f t under minimum %.1f t and not partial", load, cons.MinRakeSize)
	}
	return ""
}
