package game

import (
	"context"
	"strings"
	"sync"
	"testing"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

// Shop, Cooker and Submit all touch the spawn at (2,2).
const scenarioMap = `
######
#$KU.#
#.b..#
######
ORDERS:
0 100 10 EGG
`

// Every station type in reach of a few floor cells.
const labMap = `
#########
#$CKSTRU#
#.b.....#
#B......#
#########
ORDERS:
0 100 30 ONIONS,EGG
0 100 10 EGG
`

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.New(
		[]catalogs.FoodDef{
			{ID: "EGG", BuyCost: 5, CanCook: true},
			{ID: "ONIONS", BuyCost: 3, CanChop: true},
			{ID: "MEAT", BuyCost: 8, CanChop: true, CanCook: true},
			{ID: "NOODLES", BuyCost: 4},
		},
		[]catalogs.ToolDef{{ID: catalogs.ToolPlate, BuyCost: 2}, {ID: catalogs.ToolPan, BuyCost: 4}},
	)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return c
}

func testTuning() tuning.Tuning {
	tu := tuning.Defaults()
	tu.StartingMoney = 20
	tu.TurnTimeoutMs = 200
	return tu
}

func newTestEngine(t *testing.T, src string, mutate func(*tuning.Tuning), red, blue Factory) *Engine {
	t.Helper()
	spec, err := mapfile.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse map: %v", err)
	}
	tu := testTuning()
	if mutate != nil {
		mutate(&tu)
	}
	e, err := New(Config{MatchID: "test", Seed: 1, Tuning: tu, Catalogs: testCatalogs(t)}, spec, red, blue)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// do applies one request straight to the engine state with budget b.
func do(e *Engine, side Side, b turnBudget, req protocol.ActionReq) Result {
	return e.state.apply(e.r, side, req, b)
}

func at(robot int, kind string, x, y int) protocol.ActionReq {
	return protocol.ActionReq{Robot: robot, Kind: kind, X: x, Y: y}
}

func wantOK(t *testing.T, what string, r Result) {
	t.Helper()
	if !r.OK {
		t.Fatalf("%s: rejected with %s", what, r.Code)
	}
}

func wantCode(t *testing.T, what string, r Result, code string) {
	t.Helper()
	if r.OK || r.Code != code {
		t.Fatalf("%s: got %+v, want %s", what, r, code)
	}
}

type botFunc func(ctx context.Context, c *Controller) error

func (f botFunc) PlayTurn(ctx context.Context, c *Controller) error { return f(ctx, c) }

func factoryOf(b Bot) Factory {
	return func(Side, mapfile.Layout) (Bot, error) { return b, nil }
}

var idleBot = botFunc(func(context.Context, *Controller) error { return nil })

type frameRecorder struct {
	mu     sync.Mutex
	frames []snapshot.FrameV1
}

func (r *frameRecorder) WriteFrame(f snapshot.FrameV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *frameRecorder) all() []snapshot.FrameV1 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]snapshot.FrameV1(nil), r.frames...)
}

func findRobot(f snapshot.FrameV1, id int) snapshot.RobotV1 {
	for _, rb := range f.Robots {
		if rb.ID == id {
			return rb
		}
	}
	return snapshot.RobotV1{ID: -1}
}
