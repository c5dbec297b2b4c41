package main

import (
	"strings"

	"kitchenrush.ai/internal/protocol"
)

const (
	cellFloor  = '.'
	cellSpawn  = 'b'
	cellShop   = '$'
	cellSubmit = 'U'
	cellTrash  = 'R'
)

type cell struct{ x, y int }

var dirs = [8]cell{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}

type courier struct {
	simple map[string]bool
	team   string
	rows   []string
}

func newCourier(foods []string) *courier {
	c := &courier{simple: map[string]bool{}}
	for _, f := range foods {
		if f = strings.ToUpper(strings.TrimSpace(f)); f != "" {
			c.simple[f] = true
		}
	}
	return c
}

func (c *courier) welcome(w protocol.WelcomeMsg) {
	c.team = w.Team
	c.rows = w.Map.Rows
}

func (c *courier) at(p cell) byte {
	if p.y < 0 || p.y >= len(c.rows) || p.x < 0 || p.x >= len(c.rows[p.y]) {
		return '#'
	}
	return c.rows[p.y][p.x]
}

func (c *courier) walkable(p cell) bool {
	t := c.at(p)
	return t == cellFloor || t == cellSpawn
}

// beside returns a tile of kind t next to p.
func (c *courier) beside(p cell, t byte) (cell, bool) {
	for _, d := range dirs {
		q := cell{p.x + d.x, p.y + d.y}
		if c.at(q) == t {
			return q, true
		}
	}
	return cell{}, false
}

// step is the first move of a shortest path from p to any cell beside a
// tile of kind t.
func (c *courier) step(p cell, t byte, busy map[cell]bool) (cell, bool) {
	first := map[cell]cell{p: {}}
	queue := []cell{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur != p {
			if _, ok := c.beside(cur, t); ok {
				return first[cur], true
			}
		}
		for _, d := range dirs {
			n := cell{cur.x + d.x, cur.y + d.y}
			if _, seen := first[n]; seen || !c.walkable(n) || busy[n] {
				continue
			}
			if cur == p {
				first[n] = d
			} else {
				first[n] = first[cur]
			}
			queue = append(queue, n)
		}
	}
	return cell{}, false
}

func (c *courier) decide(obs protocol.ObsMsg) []protocol.ActionReq {
	acts := []protocol.ActionReq{}
	if c.rows == nil || obs.ActiveMap != c.team {
		return acts
	}

	busy := map[cell]bool{}
	for _, r := range obs.Robots {
		if r.Map == obs.ActiveMap {
			busy[cell{r.X, r.Y}] = true
		}
	}

	// Orders already being carried.
	carried := map[string]int{}
	for _, r := range obs.Robots {
		if r.Team == obs.Team && r.Holding != nil && r.Holding.Kind == protocol.ItemFood {
			carried[r.Holding.Food]++
		}
	}

	for _, r := range obs.Robots {
		if r.Team != obs.Team {
			continue
		}
		pos := cell{r.X, r.Y}
		var target byte
		var act protocol.ActionReq
		switch {
		case r.Holding == nil:
			food := c.pick(obs.Orders, carried)
			if food == "" {
				continue
			}
			target = cellShop
			act = protocol.ActionReq{Robot: r.ID, Kind: protocol.ActBuy, Item: food}
			carried[food]++
		case r.Holding.Kind == protocol.ItemFood && c.simple[r.Holding.Food]:
			target = cellSubmit
			act = protocol.ActionReq{Robot: r.ID, Kind: protocol.ActSubmit}
		default:
			target = cellTrash
			act = protocol.ActionReq{Robot: r.ID, Kind: protocol.ActTrash}
		}

		if st, ok := c.beside(pos, target); ok {
			act.X, act.Y = st.x, st.y
			acts = append(acts, act)
			continue
		}
		if d, ok := c.step(pos, target, busy); ok {
			acts = append(acts, protocol.ActionReq{Robot: r.ID, Kind: protocol.ActMove, DX: d.x, DY: d.y})
			delete(busy, pos)
			busy[cell{pos.x + d.x, pos.y + d.y}] = true
		}
	}
	return acts
}

// pick returns a food for the oldest single-item order nobody carries yet.
func (c *courier) pick(orders []protocol.OrderView, carried map[string]int) string {
	seen := map[string]int{}
	for _, o := range orders {
		if len(o.Required) != 1 || !c.simple[o.Required[0]] {
			continue
		}
		f := o.Required[0]
		seen[f]++
		if seen[f] > carried[f] {
			return f
		}
	}
	return ""
}
