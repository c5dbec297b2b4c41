package game

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

// Order asks for an exact dish before Deadline. Deadline is the first turn
// number at which the order is gone.
type Order struct {
	ID       int
	Foods    []string
	Reward   int
	Created  int
	Deadline int

	signature string
}

func (o *Order) clone() *Order {
	out := *o
	out.Foods = append([]string(nil), o.Foods...)
	return &out
}

// OrderQueue holds one team's orders: not yet active, pending, and tallies of
// what has left the queue.
type OrderQueue struct {
	Scheduled []*Order
	Pending   []*Order
	Completed int
	Expired   int
}

func (q *OrderQueue) clone() *OrderQueue {
	out := &OrderQueue{Completed: q.Completed, Expired: q.Expired}
	out.Scheduled = make([]*Order, len(q.Scheduled))
	for i, o := range q.Scheduled {
		out.Scheduled[i] = o.clone()
	}
	out.Pending = make([]*Order, len(q.Pending))
	for i, o := range q.Pending {
		out.Pending[i] = o.clone()
	}
	return out
}

// activate moves scheduled orders whose start has come into the pending list.
// Orders whose deadline already passed are counted as expired.
func (q *OrderQueue) activate(turn int) {
	n := 0
	for n < len(q.Scheduled) && q.Scheduled[n].Created <= turn {
		o := q.Scheduled[n]
		if o.Deadline > turn {
			q.Pending = append(q.Pending, o)
		} else {
			q.Expired++
		}
		n++
	}
	q.Scheduled = q.Scheduled[n:]
}

// expire drops pending orders whose deadline is at or before turn.
func (q *OrderQueue) expire(turn int) int {
	kept := q.Pending[:0]
	dropped := 0
	for _, o := range q.Pending {
		if o.Deadline <= turn {
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	for i := len(kept); i < len(q.Pending); i++ {
		q.Pending[i] = nil
	}
	q.Pending = kept
	q.Expired += dropped
	return dropped
}

// match returns the index of the earliest-created pending order whose recipe
// equals sig, or -1.
func (q *OrderQueue) match(sig string) int {
	best := -1
	for i, o := range q.Pending {
		if o.signature != sig {
			continue
		}
		if best < 0 || o.Created < q.Pending[best].Created ||
			(o.Created == q.Pending[best].Created && o.ID < q.Pending[best].ID) {
			best = i
		}
	}
	return best
}

func (q *OrderQueue) remove(i int) *Order {
	o := q.Pending[i]
	q.Pending = append(q.Pending[:i], q.Pending[i+1:]...)
	return o
}

func (q *OrderQueue) exhausted() bool {
	return len(q.Scheduled) == 0 && len(q.Pending) == 0
}

// RecipeSignature is the signature a dish must have to satisfy an order for
// foods: choppable foods chopped, cookable foods cooked, everything else raw.
func RecipeSignature(cats *catalogs.Catalogs, foods []string) (string, error) {
	keys := make([]string, 0, len(foods))
	for _, id := range foods {
		def, ok := cats.Food(id)
		if !ok {
			return "", fmt.Errorf("%w: unknown food %q in order", ErrBadConfig, id)
		}
		f := Food{ID: id, Chopped: def.CanChop}
		if def.CanCook {
			f.Cook = Cooked
		}
		keys = append(keys, f.Key())
	}
	sort.Strings(keys)
	return strings.Join(keys, "+"), nil
}

// buildSchedule expands the map's ORDERS section plus seeded random orders
// into a queue. Both teams receive identical schedules.
func buildSchedule(spec mapfile.MapSpec, t tuning.Tuning, cats *catalogs.Catalogs, seed int64) (*OrderQueue, error) {
	type entry struct {
		o   mapfile.OrderSpec
		seq int
	}
	var all []entry
	for i, o := range spec.Orders {
		all = append(all, entry{o: o, seq: i})
	}

	if spec.RandomOrders > 0 {
		if len(cats.Foods.Order) == 0 {
			return nil, fmt.Errorf("%w: random orders need a food catalog", ErrBadConfig)
		}
		rng := rand.New(rand.NewSource(seed))
		r := t.RandomOrders
		for i := 0; i < spec.RandomOrders; i++ {
			n := r.MinItems + rng.Intn(r.MaxItems-r.MinItems+1)
			foods := make([]string, n)
			for j := range foods {
				foods[j] = cats.Foods.Order[rng.Intn(len(cats.Foods.Order))]
			}
			all = append(all, entry{
				o: mapfile.OrderSpec{
					Start:    i * r.Spacing,
					Duration: r.MinDuration + rng.Intn(r.MaxDuration-r.MinDuration+1),
					Reward:   r.RewardPerItem * n,
					Foods:    foods,
				},
				seq: len(spec.Orders) + i,
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].o.Start != all[j].o.Start {
			return all[i].o.Start < all[j].o.Start
		}
		return all[i].seq < all[j].seq
	})

	q := &OrderQueue{}
	for i, e := range all {
		sig, err := RecipeSignature(cats, e.o.Foods)
		if err != nil {
			return nil, err
		}
		q.Scheduled = append(q.Scheduled, &Order{
			ID:        i + 1,
			Foods:     append([]string(nil), e.o.Foods...),
			Reward:    e.o.Reward,
			Created:   e.o.Start,
			Deadline:  e.o.Start + e.o.Duration,
			signature: sig,
		})
	}
	return q, nil
}
