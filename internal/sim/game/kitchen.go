package game

import (
	"kitchenrush.ai/internal/sim/mapfile"
)

// Station is the mutable state bound to a non-floor tile. Topology never
// changes during a match; only contents do.
type Station struct {
	Pos  Pos
	Tile mapfile.Tile

	// Counter, Cooker and Box contents. Box holds Count copies of Item.
	Item  *Item
	Count int

	// Cooker heats its item only while Active.
	Active bool

	DirtyPlates  int
	WashProgress int
	CleanPlates  int
}

func (st *Station) clone() *Station {
	out := *st
	out.Item = st.Item.Clone()
	return &out
}

func (st *Station) empty() bool {
	return st.Item == nil
}

func (st *Station) clear() {
	st.Item = nil
	st.Count = 0
	st.Active = false
}

// Kitchen is one team's map: the static layout plus per-station state.
type Kitchen struct {
	Side   Side
	Layout mapfile.Layout

	stations []*Station
	byPos    map[Pos]*Station
	spawns   []Pos
}

func newKitchen(side Side, layout mapfile.Layout) *Kitchen {
	k := &Kitchen{
		Side:   side,
		Layout: layout,
		byPos:  map[Pos]*Station{},
	}
	for y := 0; y < layout.Height; y++ {
		for x := 0; x < layout.Width; x++ {
			p := Pos{X: x, Y: y}
			switch t := layout.At(x, y); t {
			case mapfile.Floor, mapfile.Wall:
			case mapfile.Spawn:
				k.spawns = append(k.spawns, p)
			default:
				st := &Station{Pos: p, Tile: t}
				k.stations = append(k.stations, st)
				k.byPos[p] = st
			}
		}
	}
	return k
}

func (k *Kitchen) clone() *Kitchen {
	out := &Kitchen{
		Side:     k.Side,
		Layout:   k.Layout,
		stations: make([]*Station, len(k.stations)),
		byPos:    make(map[Pos]*Station, len(k.byPos)),
		spawns:   k.spawns,
	}
	for i, st := range k.stations {
		c := st.clone()
		out.stations[i] = c
		out.byPos[c.Pos] = c
	}
	return out
}

func (k *Kitchen) InBounds(p Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < k.Layout.Width && p.Y < k.Layout.Height
}

func (k *Kitchen) TileAt(p Pos) mapfile.Tile { return k.Layout.At(p.X, p.Y) }

// StationAt returns nil for floor, wall and spawn tiles.
func (k *Kitchen) StationAt(p Pos) *Station { return k.byPos[p] }

// Stations are in row-major order.
func (k *Kitchen) Stations() []*Station { return k.stations }

func (k *Kitchen) Spawns() []Pos { return k.spawns }

func walkable(t mapfile.Tile) bool {
	return t == mapfile.Floor || t == mapfile.Spawn
}

// stationsOf returns stations of one tile type in row-major order.
func (k *Kitchen) stationsOf(t mapfile.Tile) []*Station {
	var out []*Station
	for _, st := range k.stations {
		if st.Tile == t {
			out = append(out, st)
		}
	}
	return out
}

// nearest returns the station of type t closest to p; ties keep row-major order.
func (k *Kitchen) nearest(t mapfile.Tile, p Pos) *Station {
	var best *Station
	bestD := 0
	for _, st := range k.stations {
		if st.Tile != t {
			continue
		}
		d := Chebyshev(st.Pos, p)
		if best == nil || d < bestD {
			best, bestD = st, d
		}
	}
	return best
}
