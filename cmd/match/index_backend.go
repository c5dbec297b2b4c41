package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kitchenrush.ai/internal/persistence/indexdb"
	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/tuning"
)

type matchIndex interface {
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordMatch(h snapshot.MatchHeaderV1)
	RecordResult(matchID string, out game.Outcome)
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Match(matchID string) *indexdb.MatchLogger
	Stats() indexdb.Stats
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "matches.sqlite")
}

func openMatchIndex(dataDir string, disableDB bool) (matchIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("KR_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath(dataDir))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported KR_INDEX_BACKEND: %s", backend)
	}
}
