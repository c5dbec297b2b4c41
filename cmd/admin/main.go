package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/game"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "metrics":
			metricsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "matches"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	matchID := fs.String("match", "", "match id (uses its latest snapshot)")
	snapPath := fs.String("path", "", "snapshot path (overrides -match)")
	full := fs.Bool("full", false, "print the whole frame as JSON")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*matchID) == "" {
			fmt.Fprintln(os.Stderr, "missing -match or -path")
			os.Exit(2)
		}
		path = latestSnapshot(filepath.Join(*dataDir, "matches", *matchID))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found for match", *matchID)
			os.Exit(2)
		}
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *full {
		printJSON(snap)
		return
	}
	f := snap.Frame
	fmt.Printf("snapshot v%d match=%s turn=%d status=%s digest=%.16s\n",
		snap.Header.Version, snap.Header.MatchID, snap.Header.Turn, f.Status, f.Digest)
	for i, t := range f.Teams {
		fmt.Printf("  %s bot=%s money=%d map=%s completed=%d expired=%d pending=%d\n",
			t.Side, botName(snap.Match, i), t.Money, t.ActiveMap, t.Completed, t.Expired, len(f.Orders[i]))
	}
}

func botName(h snapshot.MatchHeaderV1, side int) string {
	if game.Side(side) == game.Blue {
		return h.BlueBot
	}
	return h.RedBot
}

func latestSnapshot(matchDir string) string {
	dir := filepath.Join(matchDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	bestTurn := -1
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		turn, err := strconv.Atoi(strings.TrimSuffix(name, ".snap.zst"))
		if err != nil {
			continue
		}
		if turn > bestTurn {
			bestTurn = turn
			best = filepath.Join(dir, name)
		}
	}
	return best
}
