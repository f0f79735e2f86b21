package formation

import (
	"fmt"
	"time"

	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/core/scoring"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func order(id string, qty float64, dest string) model.Order {
	return model.Order{
		ID:           id,
		MaterialID:   "iron-ore",
		Quantity:     qty,
		Destination:  dest,
		Priority:     model.PriorityMedium,
		RequiredDate: start.Add(72 * time.Hour),
		SLAHours:     24,
	}
}

func rake(id string, capacity, perKm float64) model.RakeResource {
	return model.RakeResource{ID: id, Capacity: capacity, Location: "Bokaro", CostPerKm: perKm}
}

func yard(id string, stock float64) model.Stockyard {
	return model.Stockyard{
		ID:        id,
		Location:  "Bokaro",
		Materials: map[string]model.MaterialStock{"iron-ore": {Available: stock}},
	}
}

// baseRequest has two 2000 t orders that exactly fill a 4000 t rake.
func baseRequest() model.FormationRequest {
	return model.FormationRequest{
		Orders:     []model.Order{order("o1", 2000, "Delhi"), order("o2", 2000, "Delhi")},
		Rakes:      []model.RakeResource{rake("R1", 4000, 10), rake("R2", 4000, 20)},
		Stockyards: []model.Stockyard{yard("SY1", 10000)},
		Network: model.Network{
			Distances:         []model.Leg{{From: "Bokaro", To: "Delhi", Km: 1200}, {From: "Bokaro", To: "Mumbai", Km: 1700}},
			DefaultDistanceKm: 1000,
		},
		Weights:       model.DefaultWeights(),
		PlanningStart: start,
	}
}

// mixedRequest is a larger instance with several destinations and a tight
// stock, used by the search strategies.
func mixedRequest() model.FormationRequest {
	req := baseRequest()
	req.Orders = nil
	dests := []string{"Delhi", "Mumbai", "Kolkata"}
	for i := 0; i < 12; i++ {
		o := order(fmt.Sprintf("o%02d", i), float64(400+150*(i%5)), dests[i%3])
		o.Priority = model.Priority(i % 4)
		o.RequiredDate = start.Add(time.Duration(30+6*i) * time.Hour)
		req.Orders = append(req.Orders, o)
	}
	req.Rakes = nil
	for i := 0; i < 6; i++ {
		req.Rakes = append(req.Rakes, rake(fmt.Sprintf("R%d", i), float64(2000+500*(i%3)), float64(8+3*i)))
	}
	req.Stockyards = []model.Stockyard{yard("SY1", 4000), yard("SY2", 3500)}
	req.Stockyards[1].Location = "Rourkela"
	req.Network.Distances = append(req.Network.Distances,
		model.Leg{From: "Rourkela", To: "Kolkata", Km: 400},
		model.Leg{From: "Bokaro", To: "Rourkela", Km: 300},
	)
	req.Constraints = model.Constraints{MinRakeSize: 1000, MaxRakeSize: 3000}
	return req
}

func greedyPlan(req model.FormationRequest) model.FormationPlan {
	return NewProblem(req, start, scoring.DefaultPenalties()).Construct(nil).Plan("greedy")
}
