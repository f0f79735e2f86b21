package scoring

import "github.com/kilianp07/rakeform/core/model"

// SlotKey is a stockyard during one planning period.
type SlotKey struct {
	Yard string
	Slot int
}

// Usage is the private bookkeeping of one candidate plan: what the other
// rakes of the plan already draw from each yard. Stock is shared across the
// horizon; loading throughput and sidings are shared only by rakes loading in
// the same period. Strategies clone it instead of sharing it.
type Usage struct {
	Drawn  map[string]map[string]float64 // yard -> material -> tonnes
	Loaded map[SlotKey]float64           // tonnes loaded per yard and period
	Rakes  map[SlotKey]int               // rakes loading per yard and period
}

// NewUsage returns empty bookkeeping.
func NewUsage() Usage {
	return Usage{
		Drawn:  make(map[string]map[string]float64),
		Loaded: make(map[SlotKey]float64),
		Rakes:  make(map[SlotKey]int),
	}
}

// Clone returns a deep copy.
func (u Usage) Clone() Usage {
	c := Usage{
		Drawn:  make(map[string]map[string]float64, len(u.Drawn)),
		Loaded: make(map[SlotKey]float64, len(u.Loaded)),
		Rakes:  make(map[SlotKey]int, len(u.Rakes)),
	}
	for y, mats := range u.Drawn {
		cm := make(map[string]float64, len(mats))
		for m, q := range mats {
			cm[m] = q
		}
		c.Drawn[y] = cm
	}
	for k, q := range u.Loaded {
		c.Loaded[k] = q
	}
	for k, n := range u.Rakes {
		c.Rakes[k] = n
	}
	return c
}

// Add books one rake sourced at yard, loading in period slot, carrying
// orders.
func (u *Usage) Add(yard string, slot int, orders []model.Order) {
	mats := u.Drawn[yard]
	if mats == nil {
		mats = make(map[string]float64)
		u.Drawn[yard] = mats
	}
	k := SlotKey{Yard: yard, Slot: slot}
	for _, o := range orders {
		mats[o.MaterialID] += o.Quantity
		u.Loaded[k] += o.Quantity
	}
	u.Rakes[k]++
}

// Remove reverses a previous Add with the same yard and slot.
func (u *Usage) Remove(yard string, slot int, orders []model.Order) {
	mats := u.Drawn[yard]
	k := SlotKey{Yard: yard, Slot: slot}
	for _, o := range orders {
		if mats != nil {
			mats[o.MaterialID] -= o.Quantity
			if mats[o.MaterialID] <= epsilon {
				delete(mats, o.MaterialID)
			}
		}
		u.Loaded[k] -= o.Quantity
	}
	if u.Loaded[k] <= epsilon {
		delete(u.Loaded, k)
	}
	if u.Rakes[k] > 0 {
		u.Rakes[k]--
	}
	if u.Rakes[k] == 0 {
		delete(u.Rakes, k)
	}
}
