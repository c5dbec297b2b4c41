package game

import (
	"fmt"

	"kitchenrush.ai/internal/sim/mapfile"
)

// InvariantError means the resolver broke its own contract. The engine
// panics with it; it is a bug, never a bad input.
type InvariantError struct {
	Turn int
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated after turn %d: %s", e.Turn, e.Msg)
}

func checkInvariants(s *State, r *rules) {
	if err := verify(s, r); err != nil {
		panic(err)
	}
}

func verify(s *State, r *rules) *InvariantError {
	fail := func(format string, args ...any) *InvariantError {
		return &InvariantError{Turn: s.Turn, Msg: fmt.Sprintf(format, args...)}
	}

	type cell struct {
		m Side
		p Pos
	}
	occupied := map[cell]int{}
	items := map[*Item]string{}
	own := func(it *Item, where string) *InvariantError {
		if it == nil {
			return nil
		}
		if prev, ok := items[it]; ok {
			return fail("item shared by %s and %s", prev, where)
		}
		items[it] = where
		if it.Kind == KindPan && len(it.Foods) > 1 {
			return fail("pan at %s holds %d foods", where, len(it.Foods))
		}
		if it.Kind == KindPlate && len(it.Foods) > r.t.MaxPlateItems {
			return fail("plate at %s holds %d foods", where, len(it.Foods))
		}
		return nil
	}

	for _, rb := range s.Robots {
		c := cell{rb.Map, rb.Pos}
		if other, ok := occupied[c]; ok {
			return fail("robots %d and %d share %s %v", other, rb.ID, rb.Map, rb.Pos)
		}
		occupied[c] = rb.ID
		k := s.Kitchens[rb.Map]
		if !k.InBounds(rb.Pos) || !walkable(k.TileAt(rb.Pos)) {
			return fail("robot %d stands on %s at %v", rb.ID, k.TileAt(rb.Pos), rb.Pos)
		}
		if err := own(rb.Held, fmt.Sprintf("robot %d", rb.ID)); err != nil {
			return err
		}
	}

	for _, k := range s.Kitchens {
		for _, st := range k.stations {
			where := fmt.Sprintf("%s %s %v", k.Side, st.Tile, st.Pos)
			if err := own(st.Item, where); err != nil {
				return err
			}
			if st.Count < 0 || st.DirtyPlates < 0 || st.CleanPlates < 0 {
				return fail("negative counter at %s", where)
			}
			if st.Tile == mapfile.Box && (st.Count > 0) != (st.Item != nil) {
				return fail("box %s count %d does not match contents", where, st.Count)
			}
			if st.WashProgress < 0 || st.WashProgress >= r.t.WashActions {
				return fail("wash progress %d at %s", st.WashProgress, where)
			}
			if st.Active && st.Tile != mapfile.Cooker {
				return fail("active non-cooker %s", where)
			}
		}
	}

	for i, team := range s.Teams {
		if team.Money < 0 && !r.t.AllowOverdraft {
			return fail("%s money %d", Side(i), team.Money)
		}
		for _, o := range s.Orders[i].Pending {
			if o.Deadline <= s.Turn {
				return fail("%s order %d deadline %d still pending", Side(i), o.ID, o.Deadline)
			}
		}
	}
	return nil
}
