package formation

import (
	"sort"
	"time"

	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/core/scoring"
)

// Gene values below zero are markers; values from zero name an option.
const (
	// geneFree lets the builder pick the best slot for the order.
	geneFree = -1
	// geneSkip leaves the order unassigned on purpose. Urgent orders ignore it.
	geneSkip = -2
)

// option is one structurally valid (rake, yard) pair for an order, as
// indices into the snapshot.
type option struct {
	rake, yard int
}

// Problem is the encoded form of a request shared by every strategy. Orders
// are held in priority order; a state gives each order one of its options,
// geneFree or geneSkip.
type Problem struct {
	Snap      *scoring.Snapshot
	Orders    []model.Order
	Bounds    scoring.Bounds
	Penalties scoring.Penalties

	options [][]option
	// blocked explains orders without any option.
	blocked map[int]model.Violation
}

// NewProblem encodes a validated request. now stands in for a missing
// planning start.
func NewProblem(req model.FormationRequest, now time.Time, pen scoring.Penalties) *Problem {
	p := &Problem{
		Snap:      scoring.NewSnapshot(req, now),
		Orders:    append([]model.Order(nil), req.Orders...),
		Penalties: pen,
		blocked:   make(map[int]model.Violation),
	}
	sortByPriority(p.Orders)
	p.options = make([][]option, len(p.Orders))

	var costMax, delayMax float64
	for i, o := range p.Orders {
		var worst model.Violation
		var oc, od float64
		for yi, y := range p.Snap.Yards {
			for ri, r := range p.Snap.Rakes {
				res := p.Snap.Evaluate(scoring.Candidate{
					Rake: r, Yard: y, Destination: o.Destination, Orders: []model.Order{o},
				}, scoring.NewUsage(), singleRelax(o))
				if !res.Feasible {
					if v := res.Violations[0]; v.Kind.Class() > worst.Kind.Class() {
						worst = v
					}
					continue
				}
				p.options[i] = append(p.options[i], option{rake: ri, yard: yi})
				oc = maxf(oc, res.Cost)
				od = maxf(od, res.TotalDelay)
			}
		}
		if len(p.options[i]) == 0 {
			if worst.Kind == "" {
				worst = model.Violation{Kind: model.NoCompatibleRake, Detail: "no rake can carry the order"}
			}
			p.blocked[i] = worst
			continue
		}
		costMax += oc
		delayMax += od
	}
	// The envelope spans the empty plan up to every order on its dearest and
	// latest option and is fixed for the whole run.
	p.Bounds = scoring.Bounds{CostMax: costMax, DelayMax: delayMax}
	return p
}

// singleRelax is the relaxation used to decide whether an order can ride a
// rake at all: minimum size is reached with other orders, and urgent orders
// may exceed the maximum on their own.
func singleRelax(o model.Order) scoring.Relax {
	if o.IsUrgent() {
		return scoring.RelaxMinSize | scoring.RelaxMaxSize
	}
	return scoring.RelaxMinSize
}

// Len returns the number of orders (genes).
func (p *Problem) Len() int { return len(p.Orders) }

// Options returns how many options order i has.
func (p *Problem) Options(i int) int { return len(p.options[i]) }

func (p *Problem) optionIndex(i, rake, yard int) int {
	for k, op := range p.options[i] {
		if op.rake == rake && op.yard == yard {
			return k
		}
	}
	return geneFree
}

// Severity decodes genes literally, without repair: orders sharing an option
// ride together and every resulting rake load is checked against the loads
// decoded before it. It returns the summed severity of the violations found,
// with 1 per order sent to a rake already bound for another yard or
// destination. Marker genes contribute nothing.
func (p *Problem) Severity(genes []int) float64 {
	type load struct {
		yard   int
		dest   string
		orders []model.Order
	}
	byRake := make(map[int]*load)
	var rakes []int
	var sev float64
	for i, gene := range genes {
		if gene < 0 || gene >= len(p.options[i]) {
			continue
		}
		op, o := p.options[i][gene], p.Orders[i]
		l := byRake[op.rake]
		switch {
		case l == nil:
			byRake[op.rake] = &load{yard: op.yard, dest: o.Destination, orders: []model.Order{o}}
			rakes = append(rakes, op.rake)
		case l.yard != op.yard || l.dest != o.Destination:
			sev++
		default:
			l.orders = append(l.orders, o)
		}
	}
	sort.Ints(rakes)
	usage := scoring.NewUsage()
	for _, r := range rakes {
		l := byRake[r]
		relax := scoring.RelaxMinSize
		if allUrgent(l.orders) {
			relax |= scoring.RelaxMaxSize
		}
		yard := p.Snap.Yards[l.yard]
		res := p.Snap.Evaluate(scoring.Candidate{
			Rake: p.Snap.Rakes[r], Yard: yard, Destination: l.dest, Orders: l.orders,
		}, usage, relax)
		sev += res.Severity()
		usage.Add(yard.ID, res.Slot, l.orders)
	}
	return sev
}

func allUrgent(orders []model.Order) bool {
	for _, o := range orders {
		if !o.IsUrgent() {
			return false
		}
	}
	return true
}

// sortByPriority orders by urgency, then earliest required date, then
// largest quantity, then id.
func sortByPriority(orders []model.Order) {
	sort.SliceStable(orders, func(a, b int) bool {
		oa, ob := orders[a], orders[b]
		if oa.Priority != ob.Priority {
			return oa.Priority > ob.Priority
		}
		if !oa.RequiredDate.Equal(ob.RequiredDate) {
			switch {
			case oa.RequiredDate.IsZero():
				return false
			case ob.RequiredDate.IsZero():
				return true
			}
			return oa.RequiredDate.Before(ob.RequiredDate)
		}
		if oa.Quantity != ob.Quantity {
			return oa.Quantity > ob.Quantity
		}
		return oa.ID < ob.ID
	})
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
