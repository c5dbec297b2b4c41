package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"kitchenrush.ai/internal/bots"
	persistlog "kitchenrush.ai/internal/persistence/log"
	"kitchenrush.ai/internal/persistence/replay"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

func recordMatch(t *testing.T, dir string) (replayPath, turnPath string) {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	spec, err := mapfile.Load("../../configs/maps/diner.txt")
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	chef, _ := bots.Lookup("chef")
	random, _ := bots.Lookup("random")
	tu := tuning.Defaults()
	tu.TotalTurns = 30
	e, err := game.New(game.Config{MatchID: "cli", Seed: 8, Tuning: tu, Catalogs: cats}, spec, chef, random)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	replayPath = filepath.Join(dir, "replay.jsonl.zst")
	turnPath = filepath.Join(dir, "turns.jsonl.zst")
	w, err := replay.Create(replayPath, e.MatchHeader("chef", "random"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tl := persistlog.NewTurnLogger(turnPath)
	e.SetFrameWriter(w)
	e.SetTurnLogger(tl)
	out, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := w.WriteResult(out); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("turn log Close: %v", err)
	}
	return replayPath, turnPath
}

func TestReplayVerifyAndCrossCheck(t *testing.T) {
	rp, tp := recordMatch(t, t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-replay", rp, "-configs", "../../configs", "-verify", "-turns", tp, "-show_turn", "2"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	got := stdout.String()
	for _, want := range []string{"replay match=cli", "turn log ok: checked=30", "replay ok: checked=30", `"turn": 2`} {
		if !strings.Contains(got, want) {
			t.Fatalf("stdout missing %q:\n%s", want, got)
		}
	}
}

func TestReplayUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Fatalf("no args: exit %d", code)
	}
	if code := run(context.Background(), []string{"-replay", filepath.Join(t.TempDir(), "none")}, &stdout, &stderr); code != 1 {
		t.Fatalf("missing file: exit %d", code)
	}
}
