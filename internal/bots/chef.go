package bots

import (
	"context"
	"sort"
	"strings"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
)

// Chef works the oldest pending order with the team's first robot. It keeps a
// plate on an assembly counter, prepares each food in the form the order
// needs (chopped on a counter, cooked on a cooker) and submits the finished
// dish. Other robots stay idle.
type Chef struct {
	side    game.Side
	kitchen game.Side
	orderID int

	assembly *game.Pos
	// prep is a counter holding a food that still needs chopping or waits
	// for a plate.
	prep   *game.Pos
	cookAt *game.Pos

	needPan bool
	hasPan  bool
}

func NewChef(side game.Side, _ mapfile.Layout) *Chef {
	return &Chef{side: side, kitchen: side}
}

var dirs = [8][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}

// turn bundles what one PlayTurn call works with.
type turn struct {
	c      *game.Controller
	id     int
	pos    game.Pos
	layout mapfile.Layout
	busy   map[game.Pos]bool
	dist   map[game.Pos]int
	first  map[game.Pos]game.Pos
}

func (b *Chef) PlayTurn(_ context.Context, c *game.Controller) error {
	ids := c.TeamBotIDs()
	if len(ids) == 0 {
		return nil
	}
	rb, ok := c.BotState(ids[0])
	if !ok {
		return nil
	}
	if m := c.ActiveMap(); m != b.kitchen {
		*b = Chef{side: b.side, kitchen: m}
	}
	t := newTurn(c, rb)

	order, ok := b.currentOrder(c)
	switch {
	case rb.Held == nil:
		if ok {
			b.emptyHanded(t, order)
		}
	case rb.Held.Kind == game.KindPlate:
		b.withPlate(t, order, ok, rb.Held)
	case rb.Held.Kind == game.KindPan:
		b.withPan(t)
	default:
		b.withFood(t, order, ok, rb.Held.Food)
	}
	return nil
}

func (b *Chef) currentOrder(c *game.Controller) (game.Order, bool) {
	orders := c.Orders()
	for _, o := range orders {
		if o.ID == b.orderID {
			return o, true
		}
	}
	if len(orders) == 0 {
		return game.Order{}, false
	}
	b.orderID = orders[0].ID
	return orders[0], true
}

func (b *Chef) emptyHanded(t *turn, order game.Order) {
	c := t.c
	plate := b.plate(c)

	if b.cookAt != nil {
		st, _ := c.Station(b.cookAt.X, b.cookAt.Y)
		f, ok := cookingFood(st.Item)
		switch {
		case !ok:
			b.cookAt = nil
		case f.Cook == game.Cooked || f.Cook == game.Burnt:
			if t.reach(*b.cookAt) && c.TakeFromPan(t.id, b.cookAt.X, b.cookAt.Y).OK {
				b.cookAt = nil
			}
			return
		case !st.Active:
			if t.reach(*b.cookAt) {
				c.StartCook(t.id, b.cookAt.X, b.cookAt.Y)
			}
			return
		}
	}

	if b.needPan && !b.hasPan {
		b.buy(t, catalogs.ToolPan)
		return
	}

	if plate == nil {
		b.buy(t, catalogs.ToolPlate)
		return
	}

	if b.prep != nil {
		st, _ := c.Station(b.prep.X, b.prep.Y)
		if st.Item == nil || st.Item.Kind != game.KindFood {
			b.prep = nil
		} else {
			want := required(c, st.Item.Food.ID)
			if want.Chopped && !st.Item.Food.Chopped {
				if t.reach(*b.prep) {
					c.Chop(t.id, b.prep.X, b.prep.Y)
				}
				return
			}
			if t.reach(*b.prep) && c.Pickup(t.id, b.prep.X, b.prep.Y).OK {
				b.prep = nil
			}
			return
		}
	}

	if wrongPlate(c, order, plate) || dishReady(c, order, plate) {
		if t.reach(*b.assembly) && c.Pickup(t.id, b.assembly.X, b.assembly.Y).OK {
			b.assembly = nil
		}
		return
	}

	// One cooker slot at a time: never hold a food that has nowhere to go.
	skip := func(id string) bool { return b.cookAt != nil && required(c, id).Cook == game.Cooked }
	if id := b.missing(c, order, plate, skip); id != "" {
		b.buy(t, id)
	}
}

func (b *Chef) withPlate(t *turn, order game.Order, haveOrder bool, plate *game.Item) {
	c := t.c
	switch {
	case plate.Dirty:
		t.act(mapfile.Sink, nil, c.PutDirtyPlateInSink)
	case haveOrder && dishReady(c, order, plate):
		t.act(mapfile.Submit, nil, c.Submit)
	case len(plate.Foods) > 0 && (!haveOrder || wrongPlate(c, order, plate)):
		t.act(mapfile.Trash, nil, c.Trash)
	default:
		if p, ok := t.act(mapfile.Counter, b.freeCounter(), c.Place); ok {
			b.assembly = &p
		}
	}
}

func (b *Chef) withPan(t *turn) {
	free := func(st game.Station) bool { return st.Item == nil }
	if _, ok := t.act(mapfile.Cooker, free, t.c.Place); ok {
		b.hasPan = true
	}
}

func (b *Chef) withFood(t *turn, order game.Order, haveOrder bool, f game.Food) {
	c := t.c
	want := required(c, f.ID)
	switch {
	case !haveOrder || f.Cook == game.Burnt || !orderNeeds(order, f.ID):
		t.act(mapfile.Trash, nil, c.Trash)

	case want.Chopped && !f.Chopped:
		if p, ok := t.act(mapfile.Counter, b.freeCounter(), c.Place); ok {
			b.prep = &p
		}

	case want.Cook == game.Cooked && f.Cook != game.Cooked && b.needPan && !b.hasPan:
		if p, ok := t.act(mapfile.Counter, b.freeCounter(), c.Place); ok {
			b.prep = &p
		}

	case want.Cook == game.Cooked && f.Cook != game.Cooked:
		accepts := func(st game.Station) bool {
			if st.Item == nil {
				return !b.needPan
			}
			return st.Item.Kind == game.KindPan && len(st.Item.Foods) == 0
		}
		p, ok := t.nearest(mapfile.Cooker, accepts)
		if !ok {
			return
		}
		if !t.reach(p) {
			return
		}
		switch res := c.Place(t.id, p.X, p.Y); {
		case res.OK:
			b.cookAt = &p
		case res.Code == protocol.ErrNotAllowed:
			// Cookers want a pan; the food is parked next turn.
			b.needPan = true
		}

	case b.assembly != nil:
		if t.reach(*b.assembly) {
			c.Place(t.id, b.assembly.X, b.assembly.Y)
		}

	default:
		if p, ok := t.act(mapfile.Counter, b.freeCounter(), c.Place); ok {
			b.prep = &p
		}
	}
}

func (b *Chef) buy(t *turn, item string) {
	price, ok := t.c.Price(item)
	if !ok || price > t.c.TeamMoney(b.side) {
		return
	}
	t.act(mapfile.Shop, nil, func(robot, x, y int) game.Result {
		return t.c.Buy(robot, item, x, y)
	})
}

// plate returns the plate on the assembly counter, forgetting the counter
// when the plate is gone.
func (b *Chef) plate(c *game.Controller) *game.Item {
	if b.assembly == nil {
		return nil
	}
	st, _ := c.Station(b.assembly.X, b.assembly.Y)
	if st.Item == nil || st.Item.Kind != game.KindPlate {
		b.assembly = nil
		return nil
	}
	return st.Item
}

func (b *Chef) freeCounter() func(game.Station) bool {
	return func(st game.Station) bool {
		if st.Item != nil {
			return false
		}
		for _, p := range []*game.Pos{b.assembly, b.prep} {
			if p != nil && *p == st.Pos {
				return false
			}
		}
		return true
	}
}

// missing is the first order food that is neither on the plate nor being
// prepared, ignoring foods skip rejects.
func (b *Chef) missing(c *game.Controller, order game.Order, plate *game.Item, skip func(string) bool) string {
	have := map[string]int{}
	for _, f := range plate.Foods {
		have[f.ID]++
	}
	for _, p := range []*game.Pos{b.prep, b.cookAt} {
		if p == nil {
			continue
		}
		st, _ := c.Station(p.X, p.Y)
		if f, ok := cookingFood(st.Item); ok {
			have[f.ID]++
		}
	}
	for _, id := range order.Foods {
		if have[id] > 0 {
			have[id]--
			continue
		}
		if !skip(id) {
			return id
		}
	}
	return ""
}

func required(c *game.Controller, id string) game.Food {
	def, _ := c.Food(id)
	f := game.Food{ID: id, Chopped: def.CanChop}
	if def.CanCook {
		f.Cook = game.Cooked
	}
	return f
}

func recipe(c *game.Controller, order game.Order) string {
	keys := make([]string, 0, len(order.Foods))
	for _, id := range order.Foods {
		keys = append(keys, required(c, id).Key())
	}
	sort.Strings(keys)
	return strings.Join(keys, "+")
}

func dishReady(c *game.Controller, order game.Order, plate *game.Item) bool {
	return len(plate.Foods) > 0 && plate.Signature() == recipe(c, order)
}

// wrongPlate reports a plate carrying something the order cannot use.
func wrongPlate(c *game.Controller, order game.Order, plate *game.Item) bool {
	need := map[string]int{}
	for _, id := range order.Foods {
		need[required(c, id).Key()]++
	}
	for _, f := range plate.Foods {
		if need[f.Key()] == 0 {
			return true
		}
		need[f.Key()]--
	}
	return false
}

func orderNeeds(order game.Order, id string) bool {
	for _, f := range order.Foods {
		if f == id {
			return true
		}
	}
	return false
}

func cookingFood(it *game.Item) (game.Food, bool) {
	switch {
	case it == nil:
	case it.Kind == game.KindFood:
		return it.Food, true
	case it.Kind == game.KindPan && len(it.Foods) > 0:
		return it.Foods[0], true
	}
	return game.Food{}, false
}

func newTurn(c *game.Controller, rb game.Robot) *turn {
	t := &turn{
		c:      c,
		id:     rb.ID,
		pos:    rb.Pos,
		layout: c.Map(),
		busy:   map[game.Pos]bool{},
		dist:   map[game.Pos]int{rb.Pos: 0},
		first:  map[game.Pos]game.Pos{},
	}
	obs := c.Observe()
	for _, r := range obs.Robots {
		if r.ID != rb.ID && r.Map == obs.ActiveMap {
			t.busy[game.Pos{X: r.X, Y: r.Y}] = true
		}
	}
	queue := []game.Pos{rb.Pos}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range dirs {
			n := cur.Add(d[0], d[1])
			if _, seen := t.dist[n]; seen || !t.walkable(n) {
				continue
			}
			t.dist[n] = t.dist[cur] + 1
			if cur == rb.Pos {
				t.first[n] = n
			} else {
				t.first[n] = t.first[cur]
			}
			queue = append(queue, n)
		}
	}
	return t
}

func (t *turn) walkable(p game.Pos) bool {
	tile := t.layout.At(p.X, p.Y)
	return (tile == mapfile.Floor || tile == mapfile.Spawn) && !t.busy[p]
}

// approach is the closest reachable cell next to target.
func (t *turn) approach(target game.Pos) (game.Pos, int, bool) {
	var best game.Pos
	bestD, found := 0, false
	for _, d := range dirs {
		n := target.Add(d[0], d[1])
		dd, ok := t.dist[n]
		if !ok {
			continue
		}
		if !found || dd < bestD {
			best, bestD, found = n, dd, true
		}
	}
	return best, bestD, found
}

// reach takes one step toward target and reports whether the robot now
// stands next to it.
func (t *turn) reach(target game.Pos) bool {
	cell, d, ok := t.approach(target)
	switch {
	case !ok:
		return false
	case d == 0:
		return true
	}
	step := t.first[cell]
	res := t.c.Move(t.id, step.X-t.pos.X, step.Y-t.pos.Y)
	if res.OK {
		t.pos = step
	}
	return res.OK && d == 1
}

// nearest finds the reachable station of the given tile closest to the
// robot; keep filters candidates.
func (t *turn) nearest(tile mapfile.Tile, keep func(game.Station) bool) (game.Pos, bool) {
	var best game.Pos
	bestD, found := 0, false
	for y := 0; y < t.layout.Height; y++ {
		for x := 0; x < t.layout.Width; x++ {
			if t.layout.At(x, y) != tile {
				continue
			}
			p := game.Pos{X: x, Y: y}
			if keep != nil {
				st, ok := t.c.Station(x, y)
				if !ok || !keep(st) {
					continue
				}
			}
			_, d, ok := t.approach(p)
			if !ok {
				continue
			}
			if !found || d < bestD {
				best, bestD, found = p, d, true
			}
		}
	}
	return best, found
}

// act walks to the nearest matching station and calls do on it once in
// reach. It reports the station used when do succeeded.
func (t *turn) act(tile mapfile.Tile, keep func(game.Station) bool, do func(robot, x, y int) game.Result) (game.Pos, bool) {
	p, ok := t.nearest(tile, keep)
	if !ok || !t.reach(p) {
		return p, false
	}
	return p, do(t.id, p.X, p.Y).OK
}
