package formation

import (
	"math"
	"sort"

	"github.com/kilianp07/rakeform/core/model"
	"github.com/kilianp07/rakeform/core/scoring"
)

// group is one rake load under construction.
type group struct {
	rake, yard int
	dest       string
	orders     []int
	res        scoring.Result
}

// build is a plan under construction. It owns its usage and tally and is
// never shared between goroutines.
type build struct {
	p      *Problem
	groups []*group
	byRake map[int]*group
	where  []*group
	reason []model.Violation
	// skipped marks orders left out by a geneSkip.
	skipped []bool
	usage   scoring.Usage
	tally   scoring.Tally
}

func (p *Problem) newBuild() *build {
	return &build{
		p:       p,
		byRake:  make(map[int]*group),
		where:   make([]*group, len(p.Orders)),
		reason:  make([]model.Violation, len(p.Orders)),
		skipped: make([]bool, len(p.Orders)),
		usage:   scoring.NewUsage(),
		tally:   scoring.NewTally(p.Orders),
	}
}

// Construct turns a gene vector into a repaired plan. Orders are placed in
// priority order on the option their gene names. geneSkip leaves a non-urgent
// order out. geneFree, a conflicting rake or an infeasible option sends the
// order to the best feasible slot, and orders no slot accepts stay
// unassigned. Under-filled rakes are then consolidated. A nil vector is the
// greedy construction.
func (p *Problem) Construct(genes []int) *build {
	b := p.newBuild()
	for i, o := range p.Orders {
		pref := geneFree
		if genes != nil {
			pref = genes[i]
		}
		if pref == geneSkip && !o.IsUrgent() {
			b.skip(i)
			continue
		}
		b.place(i, pref)
	}
	b.consolidate()
	return b
}

func (b *build) skip(i int) {
	if v, ok := b.p.blocked[i]; ok {
		b.reason[i] = v
		return
	}
	b.skipped[i] = true
	b.reason[i] = model.Violation{Kind: model.Deferred, Detail: "left out to make room for other orders"}
}

// Genes reads the state back from a built plan.
func (b *build) Genes() []int {
	genes := make([]int, len(b.where))
	for i, g := range b.where {
		switch {
		case g != nil:
			genes[i] = b.p.optionIndex(i, g.rake, g.yard)
		case b.skipped[i]:
			genes[i] = geneSkip
		default:
			genes[i] = geneFree
		}
	}
	return genes
}

// Objective is the score strategies minimize.
func (b *build) Objective() float64 {
	return b.objectiveOf(b.tally)
}

// Fitness is the objective plus the violation penalty for the given
// severity.
func (b *build) Fitness(severity float64) float64 {
	m := b.tally.Metrics()
	m.Severity = severity
	return scoring.Objective(m, b.p.Bounds, b.p.Snap.Weights, b.p.Penalties)
}

func (b *build) objectiveOf(t scoring.Tally) float64 {
	return scoring.Objective(t.Metrics(), b.p.Bounds, b.p.Snap.Weights, b.p.Penalties)
}

func (b *build) ordersOf(idx []int) []model.Order {
	out := make([]model.Order, len(idx))
	for k, i := range idx {
		out[k] = b.p.Orders[i]
	}
	return out
}

func (b *build) allUrgent(idx []int) bool {
	for _, i := range idx {
		if !b.p.Orders[i].IsUrgent() {
			return false
		}
	}
	return true
}

// slot is a feasible placement of one order.
type slot struct {
	g     *group // nil opens a new rake
	op    option
	res   scoring.Result
	score float64
}

// tryJoin evaluates adding order i to an open rake.
func (b *build) tryJoin(g *group, i int, relax scoring.Relax) scoring.Result {
	idx := append(append([]int(nil), g.orders...), i)
	yard := b.p.Snap.Yards[g.yard]
	b.usage.Remove(yard.ID, g.res.Slot, b.ordersOf(g.orders))
	res := b.p.Snap.Evaluate(scoring.Candidate{
		Rake: b.p.Snap.Rakes[g.rake], Yard: yard, Destination: g.dest, Orders: b.ordersOf(idx),
	}, b.usage, relax)
	b.usage.Add(yard.ID, g.res.Slot, b.ordersOf(g.orders))
	return res
}

// tryOpen evaluates order i alone on an unused rake.
func (b *build) tryOpen(op option, i int, relax scoring.Relax) scoring.Result {
	o := b.p.Orders[i]
	return b.p.Snap.Evaluate(scoring.Candidate{
		Rake: b.p.Snap.Rakes[op.rake], Yard: b.p.Snap.Yards[op.yard], Destination: o.Destination, Orders: []model.Order{o},
	}, b.usage, relax)
}

func (b *build) scoreWith(old *scoring.Result, res scoring.Result) float64 {
	t := b.tally
	if old != nil {
		t.Sub(*old)
	}
	t.Add(res)
	return b.objectiveOf(t)
}

// place assigns order i, preferring option pref when it is usable.
func (b *build) place(i, pref int) {
	o := b.p.Orders[i]
	if v, ok := b.p.blocked[i]; ok {
		b.reason[i] = v
		return
	}
	tiers := []scoring.Relax{scoring.RelaxMinSize}
	if o.IsUrgent() {
		tiers = append(tiers, scoring.RelaxMinSize|scoring.RelaxMaxSize)
	}
	var worst model.Violation
	note := func(res scoring.Result) {
		if len(res.Violations) > 0 && res.Violations[0].Kind.Class() > worst.Kind.Class() {
			worst = res.Violations[0]
		}
	}

	if pref >= 0 && pref < len(b.p.options[i]) {
		op := b.p.options[i][pref]
		g := b.byRake[op.rake]
		for _, relax := range tiers {
			var res scoring.Result
			switch {
			case g == nil:
				res = b.tryOpen(op, i, relax)
			case g.yard == op.yard && g.dest == o.Destination && b.joinAllowed(g, i, relax):
				res = b.tryJoin(g, i, relax)
			default:
				continue
			}
			if res.Feasible {
				b.commit(slot{g: g, op: op, res: res}, i)
				return
			}
			note(res)
		}
	}

	for _, relax := range tiers {
		if s, ok := b.best(i, relax, note); ok {
			b.commit(s, i)
			return
		}
	}
	if worst.Kind == "" {
		worst = model.Violation{Kind: model.RakeConflict, Detail: "every compatible rake is already committed"}
	}
	b.reason[i] = worst
}

// joinAllowed keeps rakes above the maximum size all-urgent.
func (b *build) joinAllowed(g *group, i int, relax scoring.Relax) bool {
	if relax&scoring.RelaxMaxSize == 0 {
		return true
	}
	return b.p.Orders[i].IsUrgent() && b.allUrgent(g.orders)
}

// best returns the feasible slot with the lowest objective for order i.
// Open rakes are preferred; unused rakes are only considered when no open
// rake accepts the order.
func (b *build) best(i int, relax scoring.Relax, note func(scoring.Result)) (slot, bool) {
	o := b.p.Orders[i]
	var found slot
	ok := false
	consider := func(s slot) {
		if !ok || s.score < found.score {
			found, ok = s, true
		}
	}
	for _, g := range b.groups {
		if g.dest != o.Destination || !b.joinAllowed(g, i, relax) {
			continue
		}
		k := b.p.optionIndex(i, g.rake, g.yard)
		if k < 0 {
			continue
		}
		res := b.tryJoin(g, i, relax)
		if !res.Feasible {
			note(res)
			continue
		}
		consider(slot{g: g, op: b.p.options[i][k], res: res, score: b.scoreWith(&g.res, res)})
	}
	if ok {
		return found, true
	}
	for _, op := range b.p.options[i] {
		if b.byRake[op.rake] != nil {
			continue
		}
		res := b.tryOpen(op, i, relax)
		if !res.Feasible {
			note(res)
			continue
		}
		consider(slot{op: op, res: res, score: b.scoreWith(nil, res)})
	}
	return found, ok
}

func (b *build) commit(s slot, i int) {
	o := b.p.Orders[i]
	g := s.g
	if g == nil {
		g = &group{rake: s.op.rake, yard: s.op.yard, dest: o.Destination}
		b.groups = append(b.groups, g)
		b.byRake[g.rake] = g
	} else {
		b.tally.Sub(g.res)
		b.usage.Remove(b.p.Snap.Yards[g.yard].ID, g.res.Slot, b.ordersOf(g.orders))
	}
	g.orders = append(g.orders, i)
	g.res = s.res
	b.usage.Add(b.p.Snap.Yards[g.yard].ID, g.res.Slot, b.ordersOf(g.orders))
	b.tally.Add(g.res)
	b.where[i] = g
	b.reason[i] = model.Violation{}
}

// drop removes a rake load entirely, leaving its orders unplaced.
func (b *build) drop(g *group) {
	b.tally.Sub(g.res)
	b.usage.Remove(b.p.Snap.Yards[g.yard].ID, g.res.Slot, b.ordersOf(g.orders))
	delete(b.byRake, g.rake)
	for k, x := range b.groups {
		if x == g {
			b.groups = append(b.groups[:k], b.groups[k+1:]...)
			break
		}
	}
	for _, i := range g.orders {
		b.where[i] = nil
	}
}

func (b *build) underfilled(g *group) bool {
	floor := b.p.Snap.Constraints.MinRakeSize
	return floor > 0 && g.res.Load+1e-9 < floor
}

// consolidate empties under-filled rakes into other open rakes when every
// order of the rake fits elsewhere. Rakes that cannot be emptied stay and are
// reported partial.
func (b *build) consolidate() {
	if b.p.Snap.Constraints.MinRakeSize <= 0 {
		return
	}
	var under []*group
	for _, g := range b.groups {
		if b.underfilled(g) {
			under = append(under, g)
		}
	}
	sort.SliceStable(under, func(x, y int) bool { return under[x].res.Load < under[y].res.Load })
	rakes := make([]int, len(under))
	for k, g := range under {
		rakes[k] = g.rake
	}
	for _, r := range rakes {
		g := b.byRake[r]
		if g == nil || !b.underfilled(g) {
			continue
		}
		trial := b.clone()
		tg := trial.byRake[r]
		orders := append([]int(nil), tg.orders...)
		trial.drop(tg)
		moved := true
		for _, i := range orders {
			if !trial.join(i) {
				moved = false
				break
			}
		}
		if moved {
			*b = *trial
		}
	}
}

// join places order i on the best open rake, never opening a new one.
func (b *build) join(i int) bool {
	tiers := []scoring.Relax{scoring.RelaxMinSize}
	if b.p.Orders[i].IsUrgent() {
		tiers = append(tiers, scoring.RelaxMinSize|scoring.RelaxMaxSize)
	}
	for _, relax := range tiers {
		var found slot
		ok := false
		for _, g := range b.groups {
			if g.dest != b.p.Orders[i].Destination || !b.joinAllowed(g, i, relax) {
				continue
			}
			k := b.p.optionIndex(i, g.rake, g.yard)
			if k < 0 {
				continue
			}
			res := b.tryJoin(g, i, relax)
			if !res.Feasible {
				continue
			}
			if s := b.scoreWith(&g.res, res); !ok || s < found.score {
				found, ok = slot{g: g, op: b.p.options[i][k], res: res, score: s}, true
			}
		}
		if ok {
			b.commit(found, i)
			return true
		}
	}
	return false
}

func (b *build) clone() *build {
	c := &build{
		p:       b.p,
		byRake:  make(map[int]*group, len(b.byRake)),
		where:   make([]*group, len(b.where)),
		reason:  append([]model.Violation(nil), b.reason...),
		skipped: append([]bool(nil), b.skipped...),
		usage:   b.usage.Clone(),
		tally:   b.tally,
	}
	m := make(map[*group]*group, len(b.groups))
	for _, g := range b.groups {
		cg := &group{rake: g.rake, yard: g.yard, dest: g.dest, orders: append([]int(nil), g.orders...), res: g.res}
		m[g] = cg
		c.groups = append(c.groups, cg)
		c.byRake[cg.rake] = cg
	}
	for i, g := range b.where {
		if g != nil {
			c.where[i] = m[g]
		}
	}
	return c
}

// Plan materializes the build. Identity fields (id, creation time) are left
// to the caller.
func (b *build) Plan(algorithm string) model.FormationPlan {
	snap := b.p.Snap
	plan := model.FormationPlan{Algorithm: algorithm, Assignments: []model.RakeAssignment{}, Unassigned: []model.UnassignedOrder{}}
	for _, g := range b.groups {
		ids := make([]string, len(g.orders))
		for k, i := range g.orders {
			ids[k] = b.p.Orders[i].ID
		}
		a := model.RakeAssignment{
			RakeID:          snap.Rakes[g.rake].ID,
			OrderIDs:        ids,
			TotalLoad:       g.res.Load,
			Utilization:     math.Min(1, g.res.Utilization),
			SourceStockyard: snap.Yards[g.yard].ID,
			Destination:     g.dest,
			EstimatedCost:   g.res.Cost,
			DelayHours:      g.res.TotalDelay,
			DispatchAt:      g.res.DispatchAt,
			ArrivalAt:       g.res.ArrivalAt,
			Partial:         b.underfilled(g),
			Violations:      g.res.Violations,
		}
		if g.res.Orders > 0 {
			a.SLACompliance = float64(g.res.SLAMetCount) / float64(g.res.Orders)
		}
		plan.Assignments = append(plan.Assignments, a)
	}
	sort.Slice(plan.Assignments, func(x, y int) bool { return plan.Assignments[x].RakeID < plan.Assignments[y].RakeID })
	for i, g := range b.where {
		if g != nil {
			continue
		}
		v := b.reason[i]
		plan.Unassigned = append(plan.Unassigned, model.UnassignedOrder{OrderID: b.p.Orders[i].ID, Reason: v.Kind, Detail: v.Detail})
	}
	summarize(&plan, len(b.p.Orders))
	return plan
}

// summarize recomputes the plan totals from its assignments.
func summarize(plan *model.FormationPlan, orders int) {
	plan.TotalCost, plan.TotalDelayHours = 0, 0
	plan.Partial = len(plan.Unassigned) > 0
	var met float64
	utils := make([]float64, 0, len(plan.Assignments))
	loads := make([]float64, 0, len(plan.Assignments))
	for _, a := range plan.Assignments {
		plan.TotalCost += a.EstimatedCost
		plan.TotalDelayHours += a.DelayHours
		utils = append(utils, a.Utilization)
		loads = append(loads, a.TotalLoad)
		met += math.Round(a.SLACompliance * float64(len(a.OrderIDs)))
		if a.Partial {
			plan.Partial = true
		}
	}
	plan.Utilization = scoring.WeightedUtilization(utils, loads)
	plan.SLACompliance = 0
	if orders > 0 {
		plan.SLACompliance = 100 * met / float64(orders)
	}
}
