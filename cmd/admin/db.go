package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"kitchenrush.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	matchID := fs.String("match", "", "match id (turns, forfeits)")
	fromTurn := fs.Int("from", 0, "first turn (turns)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "results"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "matches.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()
	ctx := context.Background()

	if (q == "turns" || q == "forfeits") && strings.TrimSpace(*matchID) == "" {
		id, err := latestMatch(db)
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest match:", err)
			os.Exit(1)
		}
		if id == "" {
			fmt.Fprintln(os.Stderr, "no matches found")
			os.Exit(2)
		}
		*matchID = id
	}

	switch q {
	case "results":
		rows, err := indexdb.RecentResults(ctx, db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "turns":
		rows, err := indexdb.Turns(ctx, db, *matchID, *fromTurn, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "forfeits":
		rows, err := indexdb.Forfeits(ctx, db, *matchID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "snapshots":
		rows, err := db.Query(`SELECT match_id,turn,path FROM snapshots ORDER BY rowid DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				MatchID string `json:"match_id"`
				Turn    int    `json:"turn"`
				Path    string `json:"path"`
			}
			if err := rows.Scan(&r.MatchID, &r.Turn, &r.Path); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-match ID] [-from T] [-limit N] results|turns|forfeits|snapshots")
		os.Exit(2)
	}
}

func latestMatch(db *sql.DB) (string, error) {
	var id string
	err := db.QueryRow(`SELECT match_id FROM matches ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
