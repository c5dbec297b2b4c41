package game

import (
	"encoding/json"
	"fmt"
	"time"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/mapfile"
)

func itemView(it *Item) *protocol.ItemView {
	if it == nil {
		return nil
	}
	v := &protocol.ItemView{Kind: it.Kind.String(), Dirty: it.Dirty}
	if it.Kind == KindFood {
		v.Food = it.Food.ID
		v.Chopped = it.Food.Chopped
		v.Cook = it.Food.Cook.String()
		return v
	}
	for _, f := range it.Foods {
		v.Foods = append(v.Foods, protocol.ItemView{
			Kind:    protocol.ItemFood,
			Food:    f.ID,
			Chopped: f.Chopped,
			Cook:    f.Cook.String(),
		})
	}
	return v
}

// observe builds the per-team OBS: money, pending orders, the active kitchen
// and every robot standing in it plus the team's own robots.
func observe(s *State, r *rules, side Side, deadlineMs int) protocol.ObsMsg {
	team := s.Teams[side]
	k := s.Kitchens[team.ActiveMap]
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Turn:            s.Turn,
		Team:            side.String(),
		DeadlineMs:      deadlineMs,
		Money:           team.Money,
		OpponentMoney:   s.Teams[side.Other()].Money,
		ActiveMap:       team.ActiveMap.String(),
		SwitchOpen:      r.windowAt(s.Turn) >= 0,
		Orders:          []protocol.OrderView{},
		Robots:          []protocol.RobotView{},
		Stations:        []protocol.StationView{},
	}
	for _, o := range s.Orders[side].Pending {
		obs.Orders = append(obs.Orders, protocol.OrderView{
			ID:          o.ID,
			Required:    append([]string(nil), o.Foods...),
			Reward:      o.Reward,
			CreatedTurn: o.Created,
			ExpiresTurn: o.Deadline,
		})
	}
	for _, rb := range s.Robots {
		if rb.Team != side && rb.Map != team.ActiveMap {
			continue
		}
		obs.Robots = append(obs.Robots, protocol.RobotView{
			ID:      rb.ID,
			Team:    rb.Team.String(),
			Map:     rb.Map.String(),
			X:       rb.Pos.X,
			Y:       rb.Pos.Y,
			Holding: itemView(rb.Held),
		})
	}
	for _, st := range k.stations {
		v := protocol.StationView{
			X:            st.Pos.X,
			Y:            st.Pos.Y,
			Tile:         st.Tile.String(),
			Item:         itemView(st.Item),
			Count:        st.Count,
			Active:       st.Active,
			DirtyPlates:  st.DirtyPlates,
			CleanPlates:  st.CleanPlates,
			WashProgress: st.WashProgress,
		}
		if f := st.Item.cookable(); f != nil && st.Tile == mapfile.Cooker {
			v.CookProgress = f.Progress
		}
		obs.Stations = append(obs.Stations, v)
	}
	return obs
}

func itemV1(it *Item) *snapshot.ItemV1 {
	if it == nil {
		return nil
	}
	v := &snapshot.ItemV1{Kind: it.Kind.String(), Dirty: it.Dirty}
	if it.Kind == KindFood {
		v.Food = it.Food.ID
		v.Chopped = it.Food.Chopped
		v.Cook = it.Food.Cook.String()
		v.Progress = it.Food.Progress
		return v
	}
	for _, f := range it.Foods {
		v.Foods = append(v.Foods, snapshot.ItemV1{
			Kind:     protocol.ItemFood,
			Food:     f.ID,
			Chopped:  f.Chopped,
			Cook:     f.Cook.String(),
			Progress: f.Progress,
		})
	}
	return v
}

// exportFrame projects s into a frame. The frame shares nothing with s.
func exportFrame(s *State, digest string, status Status, forfeits [2]string, reqs [2][]protocol.ActionReq, results [2][]Result) snapshot.FrameV1 {
	f := snapshot.FrameV1{
		Turn:   s.Turn,
		Digest: digest,
		Status: status.String(),
	}
	for i, team := range s.Teams {
		q := s.Orders[i]
		f.Teams[i] = snapshot.TeamV1{
			Side:                team.Side.String(),
			Money:               team.Money,
			ActiveMap:           team.ActiveMap.String(),
			Forfeit:             forfeits[i],
			ConsecutiveForfeits: team.ConsecutiveForfeits,
			Completed:           q.Completed,
			Expired:             q.Expired,
		}
		for _, st := range s.Kitchens[i].stations {
			f.Stations[i] = append(f.Stations[i], snapshot.StationV1{
				X:            st.Pos.X,
				Y:            st.Pos.Y,
				Tile:         st.Tile.String(),
				Item:         itemV1(st.Item),
				Count:        st.Count,
				Active:       st.Active,
				DirtyPlates:  st.DirtyPlates,
				CleanPlates:  st.CleanPlates,
				WashProgress: st.WashProgress,
			})
		}
		for _, o := range q.Pending {
			f.Orders[i] = append(f.Orders[i], snapshot.OrderV1{
				ID:       o.ID,
				Foods:    append([]string(nil), o.Foods...),
				Reward:   o.Reward,
				Created:  o.Created,
				Deadline: o.Deadline,
			})
		}
		for j, res := range results[i] {
			req := reqs[i][j]
			f.Results[i] = append(f.Results[i], snapshot.ActResultV1{
				Robot: req.Robot,
				Kind:  req.Kind,
				DX:    req.DX,
				DY:    req.DY,
				X:     req.X,
				Y:     req.Y,
				Item:  req.Item,
				OK:    res.OK,
				Code:  res.Code,
			})
		}
	}
	for _, rb := range s.Robots {
		f.Robots = append(f.Robots, snapshot.RobotV1{
			ID:   rb.ID,
			Team: rb.Team.String(),
			Map:  rb.Map.String(),
			X:    rb.Pos.X,
			Y:    rb.Pos.Y,
			Held: itemV1(rb.Held),
		})
	}
	return f
}

// InputFromFrame rebuilds the turn input that produced f.
func InputFromFrame(f snapshot.FrameV1) TurnInput {
	var in TurnInput
	for i := range f.Teams {
		in.Forfeits[i] = f.Teams[i].Forfeit
		for _, r := range f.Results[i] {
			in.Actions[i] = append(in.Actions[i], protocol.ActionReq{
				Robot: r.Robot,
				Kind:  r.Kind,
				DX:    r.DX,
				DY:    r.DY,
				X:     r.X,
				Y:     r.Y,
				Item:  r.Item,
			})
		}
	}
	return in
}

func layoutV1(l mapfile.Layout) snapshot.LayoutV1 {
	return snapshot.LayoutV1{Width: l.Width, Height: l.Height, RLE: mapfile.EncodeTiles(l)}
}

// DecodeLayout is the inverse of the RLE layout stored in match headers.
func DecodeLayout(v snapshot.LayoutV1) (mapfile.Layout, error) {
	l, err := mapfile.DecodeTiles(v.Width, v.Height, v.RLE)
	if err != nil {
		return mapfile.Layout{}, fmt.Errorf("%w: layout: %v", ErrBadConfig, err)
	}
	return l, nil
}

// MatchHeader describes the match for replay files and snapshots.
func (e *Engine) MatchHeader(redBot, blueBot string) snapshot.MatchHeaderV1 {
	tb, _ := json.Marshal(e.cfg.Tuning)
	return snapshot.MatchHeaderV1{
		MatchID:     e.cfg.MatchID,
		Seed:        e.cfg.Seed,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		RedBot:      redBot,
		BlueBot:     blueBot,
		Tuning:      tb,
		FoodsDigest: e.cfg.Catalogs.Foods.Digest,
		ShopDigest:  e.cfg.Catalogs.Tools.Digest,
		Layouts:     [2]snapshot.LayoutV1{layoutV1(e.spec.Red), layoutV1(e.spec.Blue)},
		MapSource:   e.spec.Source,
	}
}

// Welcome is the handshake reply for a remote team.
func (e *Engine) Welcome(side Side) protocol.WelcomeMsg {
	l := e.spec.Red
	if side == Blue {
		l = e.spec.Blue
	}
	var ids []int
	for _, rb := range e.state.TeamRobots(side) {
		ids = append(ids, rb.ID)
	}
	t := e.cfg.Tuning
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		MatchID:         e.cfg.MatchID,
		Team:            side.String(),
		RobotIDs:        ids,
		MatchParams: protocol.MatchParams{
			TotalTurns:    t.TotalTurns,
			TurnTimeoutMs: t.TurnTimeoutMs,
			CookProgress:  t.CookProgress,
			BurnProgress:  t.BurnProgress,
			Seed:          e.cfg.Seed,
		},
		Map: protocol.MapView{Width: l.Width, Height: l.Height, Rows: l.Rows()},
		Catalogs: protocol.CatalogDigests{
			FoodsDigest: e.cfg.Catalogs.Foods.Digest,
			ShopDigest:  e.cfg.Catalogs.Tools.Digest,
		},
	}
}
