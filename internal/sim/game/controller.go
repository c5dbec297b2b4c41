package game

import (
	"sync"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/mapfile"
)

// Controller is the only handle control code gets on the match. It is scoped
// to one team and one turn and works on a private clone of the state, so
// every call answers immediately while the authoritative state stays with
// the engine. Calls are recorded and replayed by the engine after the
// decision phase. Once the turn is over the controller is sealed and further
// calls report E_STALE.
//
// Results are provisional when both teams share a kitchen: the engine
// resolves the other team first (or second) and may reach a different
// outcome for contested cells.
type Controller struct {
	mu sync.Mutex

	r          *rules
	side       Side
	st         *State
	budget     turnBudget
	reqs       []protocol.ActionReq
	maxReqs    int
	deadlineMs int
	sealed     bool
}

func newController(r *rules, side Side, view *State) *Controller {
	return &Controller{
		r:          r,
		side:       side,
		st:         view,
		budget:     turnBudget{},
		maxReqs:    r.t.MaxRequestsPerTurn,
		deadlineMs: r.t.TurnTimeoutMs,
	}
}

// seal stops recording and hands back what the team asked for.
func (c *Controller) seal() []protocol.ActionReq {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	out := c.reqs
	c.reqs = nil
	return out
}

// Do submits one raw request. The typed helpers below all go through it.
func (c *Controller) Do(req protocol.ActionReq) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return reject(protocol.ErrStale)
	}
	if len(c.reqs) >= c.maxReqs {
		return reject(protocol.ErrRateLimit)
	}
	c.reqs = append(c.reqs, req)
	return c.st.apply(c.r, c.side, req, c.budget)
}

func (c *Controller) Move(robot, dx, dy int) Result {
	return c.Do(protocol.ActionReq{Robot: robot, Kind: protocol.ActMove, DX: dx, DY: dy})
}

func (c *Controller) at(robot int, kind string, x, y int) Result {
	return c.Do(protocol.ActionReq{Robot: robot, Kind: kind, X: x, Y: y})
}

func (c *Controller) Pickup(robot, x, y int) Result { return c.at(robot, protocol.ActPickup, x, y) }
func (c *Controller) Place(robot, x, y int) Result  { return c.at(robot, protocol.ActPlace, x, y) }
func (c *Controller) Chop(robot, x, y int) Result   { return c.at(robot, protocol.ActChop, x, y) }
func (c *Controller) Submit(robot, x, y int) Result { return c.at(robot, protocol.ActSubmit, x, y) }
func (c *Controller) Trash(robot, x, y int) Result  { return c.at(robot, protocol.ActTrash, x, y) }

func (c *Controller) StartCook(robot, x, y int) Result {
	return c.at(robot, protocol.ActStartCook, x, y)
}

func (c *Controller) TakeFromPan(robot, x, y int) Result {
	return c.at(robot, protocol.ActTakeFromPan, x, y)
}

func (c *Controller) WashSink(robot, x, y int) Result {
	return c.at(robot, protocol.ActWashSink, x, y)
}

func (c *Controller) AddFoodToPlate(robot, x, y int) Result {
	return c.at(robot, protocol.ActAddFoodToPlate, x, y)
}

func (c *Controller) TakeCleanPlate(robot, x, y int) Result {
	return c.at(robot, protocol.ActTakeCleanPlate, x, y)
}

func (c *Controller) PutDirtyPlateInSink(robot, x, y int) Result {
	return c.at(robot, protocol.ActPutDirtyPlateSink, x, y)
}

// Buy purchases item (a food id, PLATE or PAN) from the shop at x,y.
func (c *Controller) Buy(robot int, item string, x, y int) Result {
	return c.Do(protocol.ActionReq{Robot: robot, Kind: protocol.ActBuy, X: x, Y: y, Item: item})
}

// SwitchMaps moves the whole team into the other kitchen. Only legal while a
// switch window is open, once per window.
func (c *Controller) SwitchMaps() Result {
	return c.Do(protocol.ActionReq{Robot: -1, Kind: protocol.ActSwitchMaps})
}

func (c *Controller) Turn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Turn
}

func (c *Controller) Team() Side { return c.side }

func (c *Controller) TeamMoney(side Side) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Teams[side].Money
}

// ActiveMap is the kitchen the team currently works in.
func (c *Controller) ActiveMap() Side {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Teams[c.side].ActiveMap
}

// Orders returns copies of the team's pending orders, oldest first.
func (c *Controller) Orders() []Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.st.Orders[c.side]
	out := make([]Order, 0, len(q.Pending))
	for _, o := range q.Pending {
		out = append(out, *o.clone())
	}
	return out
}

// BotState returns a copy of any robot visible to the team.
func (c *Controller) BotState(id int) (Robot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rb := c.st.Robot(id)
	if rb == nil {
		return Robot{}, false
	}
	return *rb.clone(), true
}

func (c *Controller) TeamBotIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int
	for _, rb := range c.st.TeamRobots(c.side) {
		ids = append(ids, rb.ID)
	}
	return ids
}

// Tile reads the active kitchen. Out of bounds reads as Wall.
func (c *Controller) Tile(x, y int) mapfile.Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Kitchens[c.st.Teams[c.side].ActiveMap].TileAt(Pos{X: x, Y: y})
}

// Station returns a copy of the station at x,y in the active kitchen.
func (c *Controller) Station(x, y int) (Station, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st.Kitchens[c.st.Teams[c.side].ActiveMap].StationAt(Pos{X: x, Y: y})
	if st == nil {
		return Station{}, false
	}
	return *st.clone(), true
}

// Map returns a private copy of the active kitchen layout.
func (c *Controller) Map() mapfile.Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyLayout(c.st.Kitchens[c.st.Teams[c.side].ActiveMap].Layout)
}

// Food looks up a food definition in the match catalog.
func (c *Controller) Food(id string) (catalogs.FoodDef, bool) { return c.r.cats.Food(id) }

// Price is the shop price of a food, PLATE or PAN.
func (c *Controller) Price(id string) (int, bool) { return c.r.cats.Price(id) }

// CanMove reports whether robot could step by dx,dy right now.
func (c *Controller) CanMove(robot, dx, dy int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rb := c.st.Robot(robot)
	if rb == nil || rb.Team != c.side {
		return false
	}
	if b := c.budget[robot]; b != nil && b.moved {
		return false
	}
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return false
	}
	return c.st.IsPassable(rb.Map, rb.Pos.Add(dx, dy))
}

// Observe renders the team's view in wire form.
func (c *Controller) Observe() protocol.ObsMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return observe(c.st, c.r, c.side, c.deadlineMs)
}

func copyLayout(l mapfile.Layout) mapfile.Layout {
	l.Tiles = append([]mapfile.Tile(nil), l.Tiles...)
	return l
}
