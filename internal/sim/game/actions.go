package game

import (
	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

// rules is the read-only half of the resolver: tuning, catalogs and the
// switch schedule.
type rules struct {
	t       tuning.Tuning
	cats    *catalogs.Catalogs
	windows []mapfile.SwitchWindow
}

func (r *rules) windowAt(turn int) int {
	for i, w := range r.windows {
		if w.Contains(turn) {
			return i
		}
	}
	return -1
}

func (r *rules) canCook(f Food) bool {
	def, ok := r.cats.Food(f.ID)
	return ok && def.CanCook
}

func (r *rules) canChop(f Food) bool {
	def, ok := r.cats.Food(f.ID)
	return ok && def.CanChop
}

func (r *rules) plateHasRoom(p *Item) bool {
	return p != nil && p.Kind == KindPlate && !p.Dirty && len(p.Foods) < r.t.MaxPlateItems
}

// budget tracks the one move and one action each robot may spend per turn.
type budget struct {
	moved bool
	acted bool
}

type turnBudget map[int]*budget

func (b turnBudget) of(id int) *budget {
	x := b[id]
	if x == nil {
		x = &budget{}
		b[id] = x
	}
	return x
}

// apply validates one request for team side and, if legal, performs exactly
// one state mutation. Rejections never change state or spend budget.
func (s *State) apply(r *rules, side Side, req protocol.ActionReq, b turnBudget) Result {
	if req.Kind == protocol.ActSwitchMaps {
		return s.switchMaps(r, side)
	}
	if !protocol.IsKnownAction(req.Kind) {
		return reject(protocol.ErrBadRequest)
	}
	rb := s.Robot(req.Robot)
	if rb == nil || rb.Team != side {
		return reject(protocol.ErrUnknownRobot)
	}
	bud := b.of(rb.ID)

	if protocol.IsMoveKind(req.Kind) {
		if bud.moved {
			return reject(protocol.ErrAlreadyMoved)
		}
		res := s.move(rb, req.DX, req.DY)
		if res.OK {
			bud.moved = true
		}
		return res
	}

	if bud.acted {
		return reject(protocol.ErrAlreadyActed)
	}
	k := s.Kitchens[rb.Map]
	target := Pos{X: req.X, Y: req.Y}
	if !k.InBounds(target) || Chebyshev(rb.Pos, target) != 1 {
		return reject(protocol.ErrOutOfRange)
	}
	st := k.StationAt(target)

	var res Result
	switch req.Kind {
	case protocol.ActPickup:
		res = s.pickup(rb, st)
	case protocol.ActPlace:
		res = s.place(r, rb, st)
	case protocol.ActBuy:
		res = s.buy(r, rb, st, req.Item)
	case protocol.ActChop:
		res = s.chop(r, st)
	case protocol.ActStartCook:
		res = s.startCook(st)
	case protocol.ActTakeFromPan:
		res = s.takeFromPan(r, rb, st)
	case protocol.ActWashSink:
		res = s.washSink(r, k, st)
	case protocol.ActSubmit:
		res = s.submit(r, rb, st)
	case protocol.ActTrash:
		if st == nil || st.Tile != mapfile.Trash {
			res = reject(protocol.ErrBadTarget)
		} else {
			res = s.discard(rb)
		}
	case protocol.ActAddFoodToPlate:
		res = s.addFoodToPlate(r, rb, st)
	case protocol.ActTakeCleanPlate:
		res = s.takeCleanPlate(rb, st)
	case protocol.ActPutDirtyPlateSink:
		res = s.putDirtyPlate(rb, st)
	default:
		res = reject(protocol.ErrBadRequest)
	}
	if res.OK {
		bud.acted = true
	}
	return res
}

func (s *State) move(rb *Robot, dx, dy int) Result {
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return reject(protocol.ErrOutOfRange)
	}
	dst := rb.Pos.Add(dx, dy)
	if !s.IsPassable(rb.Map, dst) {
		return reject(protocol.ErrBlocked)
	}
	rb.Pos = dst
	return okResult
}

// switchMaps moves every robot of the team into the other kitchen. Allowed
// once per open switch window.
func (s *State) switchMaps(r *rules, side Side) Result {
	w := r.windowAt(s.Turn)
	if w < 0 {
		return reject(protocol.ErrNotAllowed)
	}
	team := s.Teams[side]
	if team.switchUsed[w] {
		return reject(protocol.ErrAlreadyActed)
	}
	target := team.ActiveMap.Other()
	if !s.relocate(side, target) {
		return reject(protocol.ErrBlocked)
	}
	team.ActiveMap = target
	team.switchUsed[w] = true
	return okResult
}

// relocate places all robots of side onto free cells of kitchen target.
// Nothing moves unless every robot fits.
func (s *State) relocate(side, target Side) bool {
	robots := s.TeamRobots(side)
	free := s.freeCells(target)
	if len(free) < len(robots) {
		return false
	}
	for i, rb := range robots {
		rb.Map = target
		rb.Pos = free[i]
	}
	return true
}

func (s *State) pickup(rb *Robot, st *Station) Result {
	if rb.Held != nil {
		return reject(protocol.ErrHandsFull)
	}
	if st == nil {
		return reject(protocol.ErrBadTarget)
	}
	switch st.Tile {
	case mapfile.Counter, mapfile.Cooker:
		if st.empty() {
			return reject(protocol.ErrBadTarget)
		}
		rb.Held = st.Item
		st.clear()
	case mapfile.Box:
		if st.Count == 0 {
			return reject(protocol.ErrBadTarget)
		}
		rb.Held = st.Item.Clone()
		st.Count--
		if st.Count == 0 {
			st.clear()
		}
	case mapfile.SinkTable:
		return s.takeCleanPlate(rb, st)
	default:
		return reject(protocol.ErrBadTarget)
	}
	return okResult
}

func (s *State) place(r *rules, rb *Robot, st *Station) Result {
	if rb.Held == nil {
		return reject(protocol.ErrHandsEmpty)
	}
	if st == nil {
		return reject(protocol.ErrBadTarget)
	}
	held := rb.Held
	switch st.Tile {
	case mapfile.Counter:
		if st.empty() {
			st.Item = held
			rb.Held = nil
			return okResult
		}
		if merged := r.combine(st.Item, held); merged != nil {
			st.Item = merged
			rb.Held = nil
			return okResult
		}
		return reject(protocol.ErrBadTarget)
	case mapfile.Cooker:
		return s.placeOnCooker(r, rb, st)
	case mapfile.Box:
		if !st.empty() && !st.Item.Equal(held) {
			return reject(protocol.ErrBadTarget)
		}
		if st.empty() {
			st.Item = held
		}
		st.Count++
		rb.Held = nil
		return okResult
	case mapfile.Trash:
		return s.discard(rb)
	case mapfile.Sink:
		return s.putDirtyPlate(rb, st)
	}
	return reject(protocol.ErrBadTarget)
}

// combine merges held into the item lying on a counter. Only plate+food and
// empty pan+cookable food pair up; anything else returns nil.
func (r *rules) combine(base, held *Item) *Item {
	switch {
	case r.plateHasRoom(base) && held.Kind == KindFood:
		out := base.Clone()
		out.Foods = append(out.Foods, held.Food)
		return out
	case base.Kind == KindFood && r.plateHasRoom(held):
		out := held.Clone()
		out.Foods = append(out.Foods, base.Food)
		return out
	case base.Kind == KindPan && len(base.Foods) == 0 && held.Kind == KindFood && r.canCook(held.Food):
		out := base.Clone()
		out.Foods = []Food{held.Food}
		return out
	case base.Kind == KindFood && r.canCook(base.Food) && held.Kind == KindPan && len(held.Foods) == 0:
		out := held.Clone()
		out.Foods = []Food{base.Food}
		return out
	}
	return nil
}

func (s *State) placeOnCooker(r *rules, rb *Robot, st *Station) Result {
	held := rb.Held
	switch {
	case st.empty():
		switch held.Kind {
		case KindPan:
		case KindFood:
			if r.t.RequirePan {
				return reject(protocol.ErrNotAllowed)
			}
			if !r.canCook(held.Food) {
				return reject(protocol.ErrBadTarget)
			}
		default:
			return reject(protocol.ErrBadTarget)
		}
		st.Item = held
	case st.Item.Kind == KindPan && len(st.Item.Foods) == 0 && held.Kind == KindFood && r.canCook(held.Food):
		st.Item.Foods = []Food{held.Food}
	default:
		return reject(protocol.ErrBadTarget)
	}
	rb.Held = nil
	if r.t.AutoStartCook && st.Item.cookable() != nil {
		st.Active = true
	}
	return okResult
}

// discard empties a held plate or pan; an empty container or bare food is
// thrown away whole.
func (s *State) discard(rb *Robot) Result {
	if rb.Held == nil {
		return reject(protocol.ErrHandsEmpty)
	}
	if rb.Held.Kind != KindFood && len(rb.Held.Foods) > 0 {
		rb.Held.Foods = nil
		return okResult
	}
	rb.Held = nil
	return okResult
}

func (s *State) buy(r *rules, rb *Robot, st *Station, id string) Result {
	if st == nil || st.Tile != mapfile.Shop {
		return reject(protocol.ErrBadTarget)
	}
	if rb.Held != nil {
		return reject(protocol.ErrHandsFull)
	}
	price, ok := r.cats.Price(id)
	if !ok {
		return reject(protocol.ErrBadRequest)
	}
	team := s.Teams[rb.Team]
	if !r.t.AllowOverdraft && team.Money < price {
		return reject(protocol.ErrNoMoney)
	}
	team.Money -= price
	switch id {
	case catalogs.ToolPlate:
		rb.Held = NewPlate()
	case catalogs.ToolPan:
		rb.Held = NewPan()
	default:
		rb.Held = NewFood(id)
	}
	return okResult
}

func (s *State) chop(r *rules, st *Station) Result {
	if st == nil || st.Tile != mapfile.Counter || st.empty() || st.Item.Kind != KindFood {
		return reject(protocol.ErrBadTarget)
	}
	f := &st.Item.Food
	if f.Chopped || f.Cook != Raw || !r.canChop(*f) {
		return reject(protocol.ErrBadTarget)
	}
	f.Chopped = true
	return okResult
}

func (s *State) startCook(st *Station) Result {
	if st == nil || st.Tile != mapfile.Cooker || st.Item.cookable() == nil {
		return reject(protocol.ErrBadTarget)
	}
	if st.Active {
		return reject(protocol.ErrConflict)
	}
	st.Active = true
	return okResult
}

// takeFromPan lifts the food out of a pan (or a bare food off a cooker) into
// empty hands or onto a held plate. The pan stays where it is.
func (s *State) takeFromPan(r *rules, rb *Robot, st *Station) Result {
	if st == nil || st.empty() || (st.Tile != mapfile.Cooker && st.Tile != mapfile.Counter) {
		return reject(protocol.ErrBadTarget)
	}
	var food Food
	switch {
	case st.Item.Kind == KindPan && len(st.Item.Foods) > 0:
		food = st.Item.Foods[0]
	case st.Item.Kind == KindFood && st.Tile == mapfile.Cooker:
		food = st.Item.Food
	default:
		return reject(protocol.ErrBadTarget)
	}
	switch {
	case rb.Held == nil:
		rb.Held = &Item{Kind: KindFood, Food: food}
	case r.plateHasRoom(rb.Held):
		rb.Held.Foods = append(rb.Held.Foods, food)
	default:
		return reject(protocol.ErrHandsFull)
	}
	if st.Item.Kind == KindPan {
		st.Item.Foods = nil
		if st.Tile == mapfile.Cooker {
			st.Active = false
		}
	} else {
		st.clear()
	}
	return okResult
}

func (s *State) washSink(r *rules, k *Kitchen, st *Station) Result {
	if st == nil || st.Tile != mapfile.Sink || st.DirtyPlates == 0 {
		return reject(protocol.ErrBadTarget)
	}
	table := k.nearest(mapfile.SinkTable, st.Pos)
	if table == nil {
		return reject(protocol.ErrNotAllowed)
	}
	st.WashProgress++
	if st.WashProgress >= r.t.WashActions {
		st.WashProgress = 0
		st.DirtyPlates--
		table.CleanPlates++
	}
	return okResult
}

func (s *State) submit(r *rules, rb *Robot, st *Station) Result {
	if st == nil || st.Tile != mapfile.Submit {
		return reject(protocol.ErrBadTarget)
	}
	held := rb.Held
	if held == nil {
		return reject(protocol.ErrHandsEmpty)
	}
	switch held.Kind {
	case KindFood:
		if r.t.RequirePlate {
			return reject(protocol.ErrNotAllowed)
		}
	case KindPlate:
		if held.Dirty || len(held.Foods) == 0 {
			return reject(protocol.ErrBadTarget)
		}
	default:
		return reject(protocol.ErrBadTarget)
	}

	q := s.Orders[rb.Team]
	i := q.match(held.Signature())
	if i < 0 {
		return reject(protocol.ErrNoMatch)
	}
	o := q.remove(i)
	q.Completed++
	s.Teams[rb.Team].Money += o.Reward
	rb.Held = nil

	// The plate goes back to the team's own sink, wherever it was served.
	if held.Kind == KindPlate && r.t.DirtyPlateToSink {
		if sinks := s.Kitchens[rb.Team].stationsOf(mapfile.Sink); len(sinks) > 0 {
			sinks[0].DirtyPlates++
		}
	}
	return okResult
}

func (s *State) addFoodToPlate(r *rules, rb *Robot, st *Station) Result {
	if rb.Held == nil {
		return reject(protocol.ErrHandsEmpty)
	}
	if st == nil || st.empty() {
		return reject(protocol.ErrBadTarget)
	}
	switch {
	case rb.Held.Kind == KindFood && st.Tile == mapfile.Counter && r.plateHasRoom(st.Item):
		st.Item.Foods = append(st.Item.Foods, rb.Held.Food)
		rb.Held = nil
	case r.plateHasRoom(rb.Held) && st.Item.Kind == KindFood && st.Tile == mapfile.Counter:
		rb.Held.Foods = append(rb.Held.Foods, st.Item.Food)
		st.clear()
	case r.plateHasRoom(rb.Held) && st.Item.Kind == KindFood && st.Tile == mapfile.Box:
		rb.Held.Foods = append(rb.Held.Foods, st.Item.Food)
		st.Count--
		if st.Count == 0 {
			st.clear()
		}
	default:
		return reject(protocol.ErrBadTarget)
	}
	return okResult
}

func (s *State) takeCleanPlate(rb *Robot, st *Station) Result {
	if st == nil || st.Tile != mapfile.SinkTable || st.CleanPlates == 0 {
		return reject(protocol.ErrBadTarget)
	}
	if rb.Held != nil {
		return reject(protocol.ErrHandsFull)
	}
	st.CleanPlates--
	rb.Held = NewPlate()
	return okResult
}

func (s *State) putDirtyPlate(rb *Robot, st *Station) Result {
	if st == nil || st.Tile != mapfile.Sink {
		return reject(protocol.ErrBadTarget)
	}
	if rb.Held == nil {
		return reject(protocol.ErrHandsEmpty)
	}
	if rb.Held.Kind != KindPlate || !rb.Held.Dirty {
		return reject(protocol.ErrBadTarget)
	}
	st.DirtyPlates++
	rb.Held = nil
	return okResult
}

// advanceCookers heats every active cooker by one turn.
func (s *State) advanceCookers(t tuning.Tuning) {
	for _, k := range s.Kitchens {
		for _, st := range k.stations {
			if st.Tile != mapfile.Cooker || !st.Active {
				continue
			}
			f := st.Item.cookable()
			if f == nil {
				st.Active = false
				continue
			}
			f.Progress++
			switch {
			case f.Progress >= t.BurnProgress:
				f.Cook = Burnt
			case f.Progress >= t.CookProgress:
				if f.Cook < Cooked {
					f.Cook = Cooked
				}
			default:
				if f.Cook == Raw {
					f.Cook = Cooking
				}
			}
		}
	}
}
