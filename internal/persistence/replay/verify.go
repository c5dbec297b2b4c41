package replay

import (
	"encoding/json"
	"fmt"
	"strings"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

// Mismatch describes the first turn whose recomputed digest differs from
// the recorded one.
type Mismatch struct {
	Turn int
	Want string
	Got  string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("replay diverged at turn %d: recorded %s, recomputed %s", m.Turn, m.Want, m.Got)
}

// Rebuild constructs a fresh engine for the recorded match. cats must be the
// catalogs the match ran with; digests are checked.
func Rebuild(rp *Replay, cats *catalogs.Catalogs) (*game.Engine, error) {
	h := rp.Match
	if cats.Foods.Digest != h.FoodsDigest || cats.Tools.Digest != h.ShopDigest {
		return nil, fmt.Errorf("%w: catalog digests differ from the recorded match", game.ErrBadConfig)
	}
	tu := tuning.Defaults()
	if len(h.Tuning) > 0 {
		if err := json.Unmarshal(h.Tuning, &tu); err != nil {
			return nil, fmt.Errorf("replay tuning: %w", err)
		}
	}
	spec, err := mapfile.Parse(strings.NewReader(h.MapSource))
	if err != nil {
		return nil, err
	}
	for i, l := range [2]mapfile.Layout{spec.Red, spec.Blue} {
		rec, err := game.DecodeLayout(h.Layouts[i])
		if err != nil {
			return nil, err
		}
		if !sameLayout(l, rec) {
			return nil, fmt.Errorf("%w: map source does not match recorded %s layout", game.ErrBadConfig, game.Side(i))
		}
	}
	return game.New(game.Config{MatchID: h.MatchID, Seed: h.Seed, Tuning: tu, Catalogs: cats}, spec, nil, nil)
}

// Verify replays every recorded frame through a fresh engine and compares
// digests turn by turn. It returns the number of turns checked.
func Verify(rp *Replay, cats *catalogs.Catalogs) (int, error) {
	eng, err := Rebuild(rp, cats)
	if err != nil {
		return 0, err
	}
	for i, f := range rp.Frames {
		for side, rs := range f.Results {
			for _, r := range rs {
				if !protocol.IsKnownCode(r.Code) {
					return i, fmt.Errorf("turn %d %s robot %d: unknown result code %q", f.Turn, game.Side(side), r.Robot, r.Code)
				}
			}
		}
		_, digest := eng.StepOnce(game.InputFromFrame(f))
		if digest != f.Digest {
			return i, &Mismatch{Turn: f.Turn, Want: f.Digest, Got: digest}
		}
	}
	return len(rp.Frames), nil
}

func sameLayout(a, b mapfile.Layout) bool {
	if a.Width != b.Width || a.Height != b.Height || len(a.Tiles) != len(b.Tiles) {
		return false
	}
	for i := range a.Tiles {
		if a.Tiles[i] != b.Tiles[i] {
			return false
		}
	}
	return true
}
