package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	persistlog "kitchenrush.ai/internal/persistence/log"
	"kitchenrush.ai/internal/persistence/replay"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(_ context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path      = fs.String("replay", "", "path to replay .jsonl.zst")
		configDir = fs.String("configs", "./configs", "config directory")
		verify    = fs.Bool("verify", false, "re-simulate every turn and compare digests")
		turnLog   = fs.String("turns", "", "turn log to cross-check against the replay (optional)")
		showTurn  = fs.Int("show_turn", -1, "print one frame as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		fmt.Fprintln(stderr, "missing -replay")
		return 2
	}

	rp, err := replay.Read(*path)
	if err != nil {
		fmt.Fprintln(stderr, "read replay:", err)
		return 1
	}

	m := rp.Match
	fmt.Fprintf(stdout, "replay match=%s seed=%d red=%s blue=%s frames=%d foods=%.12s shop=%.12s\n",
		m.MatchID, m.Seed, m.RedBot, m.BlueBot, len(rp.Frames), m.FoodsDigest, m.ShopDigest)
	if rp.Result != nil {
		r := rp.Result
		fmt.Fprintf(stdout, "result winner=%s reason=%s turns=%d money=%d/%d forfeits=%d/%d\n",
			r.Winner, r.Reason, r.Turns, r.Money[game.Red], r.Money[game.Blue], r.Forfeits[game.Red], r.Forfeits[game.Blue])
	} else {
		fmt.Fprintln(stdout, "result missing (match interrupted?)")
	}

	if *showTurn >= 0 {
		found := false
		for _, f := range rp.Frames {
			if f.Turn == *showTurn {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(f)
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(stderr, "turn %d not in replay\n", *showTurn)
			return 1
		}
	}

	if *turnLog != "" {
		n, err := crossCheck(rp, *turnLog)
		if err != nil {
			fmt.Fprintln(stderr, "turn log:", err)
			return 1
		}
		fmt.Fprintf(stdout, "turn log ok: checked=%d turns\n", n)
	}

	if !*verify {
		return 0
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(stderr, "load catalogs:", err)
		return 1
	}
	n, err := replay.Verify(rp, cats)
	if err != nil {
		var mm *replay.Mismatch
		if errors.As(err, &mm) {
			fmt.Fprintf(stderr, "digest mismatch at turn %d: got=%s want=%s\n", mm.Turn, mm.Got, mm.Want)
		} else {
			fmt.Fprintln(stderr, "verify:", err)
		}
		return 1
	}
	fmt.Fprintf(stdout, "replay ok: checked=%d turns\n", n)
	return 0
}

// crossCheck compares the digests in a turn log with the replay frames.
func crossCheck(rp *replay.Replay, path string) (int, error) {
	byTurn := make(map[int]string, len(rp.Frames))
	for _, f := range rp.Frames {
		byTurn[f.Turn] = f.Digest
	}
	checked := 0
	err := persistlog.ReadTurnLog(path, func(e game.TurnLogEntry) error {
		want, ok := byTurn[e.Turn]
		if !ok {
			return fmt.Errorf("turn %d missing from replay", e.Turn)
		}
		if want != e.Digest {
			return fmt.Errorf("digest mismatch at turn %d: log=%s replay=%s", e.Turn, e.Digest, want)
		}
		checked++
		return nil
	})
	if err != nil {
		return checked, err
	}
	if checked != len(rp.Frames) {
		return checked, fmt.Errorf("turn log has %d turns, replay has %d", checked, len(rp.Frames))
	}
	return checked, nil
}
