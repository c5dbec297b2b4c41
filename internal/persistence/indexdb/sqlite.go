package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/tuning"
)

// SQLiteIndex is a secondary, queryable index of matches. Writes are queued
// to a single writer goroutine and dropped when it falls behind; replay and
// turn log files remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMatch    atomic.Uint64
	dropTurn     atomic.Uint64
	dropResult   atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqMatch reqKind = iota + 1
	reqTurn
	reqResult
	reqSnapshot
)

type req struct {
	kind    reqKind
	matchID string

	match    snapshot.MatchHeaderV1
	turn     game.TurnLogEntry
	result   game.Outcome
	snapshot snapshotRow
}

type snapshotRow struct {
	Turn int
	Path string
}

// Stats reports queue pressure for /metrics.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropMatchTotal    uint64
	DropTurnTotal     uint64
	DropResultTotal   uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			red_bot TEXT NOT NULL,
			blue_bot TEXT NOT NULL,
			foods_digest TEXT NOT NULL,
			shop_digest TEXT NOT NULL,
			map_source TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			match_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			digest TEXT NOT NULL,
			red_money INTEGER NOT NULL,
			blue_money INTEGER NOT NULL,
			red_actions INTEGER NOT NULL,
			blue_actions INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (match_id, turn)
		);`,
		`CREATE TABLE IF NOT EXISTS forfeits (
			match_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			team TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (match_id, turn, team)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forfeits_team ON forfeits(match_id, team, turn);`,
		`CREATE TABLE IF NOT EXISTS results (
			match_id TEXT PRIMARY KEY,
			winner TEXT NOT NULL,
			reason TEXT NOT NULL,
			turns INTEGER NOT NULL,
			red_money INTEGER NOT NULL,
			blue_money INTEGER NOT NULL,
			red_forfeits INTEGER NOT NULL,
			blue_forfeits INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			match_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			path TEXT NOT NULL,
			PRIMARY KEY (match_id, turn)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB exposes the handle for read queries.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropMatchTotal:    s.dropMatch.Load(),
		DropTurnTotal:     s.dropTurn.Load(),
		DropResultTotal:   s.dropResult.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) RecordMatch(h snapshot.MatchHeaderV1) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqMatch, matchID: h.MatchID, match: h}, &s.dropMatch)
}

func (s *SQLiteIndex) RecordResult(matchID string, out game.Outcome) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqResult, matchID: matchID, result: out}, &s.dropResult)
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{Turn: snap.Header.Turn, Path: path}
	s.enqueue(req{kind: reqSnapshot, matchID: snap.Header.MatchID, snapshot: r}, &s.dropSnapshot)
}

// Match returns a game.TurnLogger that indexes every turn under matchID.
func (s *SQLiteIndex) Match(matchID string) *MatchLogger {
	return &MatchLogger{s: s, matchID: matchID}
}

type MatchLogger struct {
	s       *SQLiteIndex
	matchID string
}

func (m *MatchLogger) WriteTurn(e game.TurnLogEntry) error {
	if m.s == nil {
		return nil
	}
	m.s.enqueue(req{kind: reqTurn, matchID: m.matchID, turn: e}, &m.s.dropTurn)
	return nil
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "foods.json")); err == nil {
			rows = append(rows, kv{name: "foods", digest: cats.Foods.Digest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "shop.json")); err == nil {
			rows = append(rows, kv{name: "shop", digest: cats.Tools.Digest, json: b})
		}
	}

	// Tuning: store the values we actually apply (canonical JSON).
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(match_id,seed,red_bot,blue_bot,foods_digest,shop_digest,map_source,created_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(match_id,turn,digest,red_money,blue_money,red_actions,blue_actions,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertForfeit, _ := s.db.Prepare(`INSERT OR REPLACE INTO forfeits(match_id,turn,team,reason) VALUES(?,?,?,?)`)
	insertResult, _ := s.db.Prepare(`INSERT OR REPLACE INTO results(match_id,winner,reason,turns,red_money,blue_money,red_forfeits,blue_forfeits,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(match_id,turn,path) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMatch, insertTurn, insertForfeit, insertResult, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMatch:
			h := r.match
			created := h.CreatedAt
			if created == "" {
				created = time.Now().UTC().Format(time.RFC3339)
			}
			exec(insertMatch, h.MatchID, h.Seed, h.RedBot, h.BlueBot, h.FoodsDigest, h.ShopDigest, h.MapSource, created)

		case reqTurn:
			e := r.turn
			raw, _ := json.Marshal(e)
			if !exec(insertTurn, r.matchID, e.Turn, e.Digest,
				e.Money[game.Red], e.Money[game.Blue],
				len(e.Actions[game.Red]), len(e.Actions[game.Blue]),
				string(raw)) {
				continue
			}
			for i, reason := range e.Forfeits {
				if reason == "" {
					continue
				}
				if !exec(insertForfeit, r.matchID, e.Turn, game.Side(i).String(), reason) {
					break
				}
			}

		case reqResult:
			o := r.result
			exec(insertResult, r.matchID, o.Winner, o.Reason, o.Turns,
				o.Money[game.Red], o.Money[game.Blue],
				o.Forfeits[game.Red], o.Forfeits[game.Blue],
				time.Now().UTC().Format(time.RFC3339Nano))

		case reqSnapshot:
			exec(insertSnapshot, r.matchID, r.snapshot.Turn, r.snapshot.Path)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
