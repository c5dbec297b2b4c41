package game

import (
	"kitchenrush.ai/internal/sim/mapfile"
)

type Robot struct {
	ID   int
	Team Side
	// Map is the kitchen the robot currently stands in.
	Map  Side
	Pos  Pos
	Held *Item
}

func (r *Robot) clone() *Robot {
	out := *r
	out.Held = r.Held.Clone()
	return &out
}

type Team struct {
	Side      Side
	Money     int
	ActiveMap Side

	// switchUsed[i] is set once the team switched during window i.
	switchUsed []bool

	ConsecutiveForfeits int
	Forfeits            int
}

func (t *Team) clone() *Team {
	out := *t
	out.switchUsed = append([]bool(nil), t.switchUsed...)
	return &out
}

// State is the authoritative game state. Only the engine loop mutates it;
// control code works on clones.
type State struct {
	Turn     int
	Kitchens [2]*Kitchen
	Robots   []*Robot
	Teams    [2]*Team
	Orders   [2]*OrderQueue
}

func newState(spec mapfile.MapSpec, startingMoney int, sched *OrderQueue) *State {
	s := &State{}
	s.Kitchens[Red] = newKitchen(Red, spec.Red)
	s.Kitchens[Blue] = newKitchen(Blue, spec.Blue)
	for _, side := range []Side{Red, Blue} {
		s.Teams[side] = &Team{
			Side:       side,
			Money:      startingMoney,
			ActiveMap:  side,
			switchUsed: make([]bool, len(spec.Switch)),
		}
		s.Orders[side] = sched.clone()
	}
	// Robot ids: RED robots first, then BLUE, each in row-major spawn order.
	id := 0
	for _, side := range []Side{Red, Blue} {
		for _, p := range s.Kitchens[side].Spawns() {
			s.Robots = append(s.Robots, &Robot{ID: id, Team: side, Map: side, Pos: p})
			id++
		}
	}
	return s
}

// Clone deep-copies everything mutable. Layouts are shared read-only.
func (s *State) Clone() *State {
	out := &State{Turn: s.Turn}
	for i := range s.Kitchens {
		out.Kitchens[i] = s.Kitchens[i].clone()
		out.Teams[i] = s.Teams[i].clone()
		out.Orders[i] = s.Orders[i].clone()
	}
	out.Robots = make([]*Robot, len(s.Robots))
	for i, r := range s.Robots {
		out.Robots[i] = r.clone()
	}
	return out
}

func (s *State) Robot(id int) *Robot {
	if id < 0 || id >= len(s.Robots) {
		return nil
	}
	return s.Robots[id]
}

func (s *State) TeamRobots(side Side) []*Robot {
	var out []*Robot
	for _, r := range s.Robots {
		if r.Team == side {
			out = append(out, r)
		}
	}
	return out
}

func (s *State) robotAt(m Side, p Pos) *Robot {
	for _, r := range s.Robots {
		if r.Map == m && r.Pos == p {
			return r
		}
	}
	return nil
}

// IsPassable reports whether a robot could step onto p in kitchen m.
func (s *State) IsPassable(m Side, p Pos) bool {
	k := s.Kitchens[m]
	if !k.InBounds(p) || !walkable(k.TileAt(p)) {
		return false
	}
	return s.robotAt(m, p) == nil
}

// freeCells lists passable cells of kitchen m, spawns first then floor, row-major.
func (s *State) freeCells(m Side) []Pos {
	k := s.Kitchens[m]
	var out []Pos
	for _, p := range k.Spawns() {
		if s.robotAt(m, p) == nil {
			out = append(out, p)
		}
	}
	for y := 0; y < k.Layout.Height; y++ {
		for x := 0; x < k.Layout.Width; x++ {
			p := Pos{X: x, Y: y}
			if k.TileAt(p) == mapfile.Floor && s.robotAt(m, p) == nil {
				out = append(out, p)
			}
		}
	}
	return out
}
