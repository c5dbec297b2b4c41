package indexdb

import (
	"context"
	"database/sql"
)

type ResultRow struct {
	MatchID      string `json:"match_id"`
	RedBot       string `json:"red_bot"`
	BlueBot      string `json:"blue_bot"`
	Winner       string `json:"winner"`
	Reason       string `json:"reason"`
	Turns        int    `json:"turns"`
	RedMoney     int    `json:"red_money"`
	BlueMoney    int    `json:"blue_money"`
	RedForfeits  int    `json:"red_forfeits"`
	BlueForfeits int    `json:"blue_forfeits"`
	RecordedAt   string `json:"recorded_at"`
}

// RecentResults lists finished matches, newest first.
func RecentResults(ctx context.Context, db *sql.DB, limit int) ([]ResultRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT r.match_id, COALESCE(m.red_bot,''), COALESCE(m.blue_bot,''),
		r.winner, r.reason, r.turns, r.red_money, r.blue_money, r.red_forfeits, r.blue_forfeits, r.recorded_at
		FROM results r LEFT JOIN matches m ON m.match_id = r.match_id
		ORDER BY r.recorded_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.MatchID, &r.RedBot, &r.BlueBot, &r.Winner, &r.Reason, &r.Turns,
			&r.RedMoney, &r.BlueMoney, &r.RedForfeits, &r.BlueForfeits, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type TurnRow struct {
	Turn      int    `json:"turn"`
	Digest    string `json:"digest"`
	RedMoney  int    `json:"red_money"`
	BlueMoney int    `json:"blue_money"`
}

// Turns lists one match's indexed turns in order, starting at fromTurn.
func Turns(ctx context.Context, db *sql.DB, matchID string, fromTurn, limit int) ([]TurnRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT turn, digest, red_money, blue_money FROM turns
		WHERE match_id = ? AND turn >= ? ORDER BY turn LIMIT ?`, matchID, fromTurn, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TurnRow
	for rows.Next() {
		var r TurnRow
		if err := rows.Scan(&r.Turn, &r.Digest, &r.RedMoney, &r.BlueMoney); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type ForfeitRow struct {
	Turn   int    `json:"turn"`
	Team   string `json:"team"`
	Reason string `json:"reason"`
}

func Forfeits(ctx context.Context, db *sql.DB, matchID string) ([]ForfeitRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT turn, team, reason FROM forfeits
		WHERE match_id = ? ORDER BY turn, team`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ForfeitRow
	for rows.Next() {
		var r ForfeitRow
		if err := rows.Scan(&r.Turn, &r.Team, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
