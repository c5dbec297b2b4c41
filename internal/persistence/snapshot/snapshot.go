package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	MatchID string `json:"match_id"`
	Turn    int    `json:"turn"`
}

// MatchHeaderV1 is everything needed to rebuild a match from scratch:
// the layouts, the tuning actually applied and the catalog digests.
type MatchHeaderV1 struct {
	MatchID   string `json:"match_id"`
	Seed      int64  `json:"seed"`
	CreatedAt string `json:"created_at,omitempty"`

	RedBot  string `json:"red_bot"`
	BlueBot string `json:"blue_bot"`

	// Canonical JSON of the tuning in effect.
	Tuning json.RawMessage `json:"tuning"`

	FoodsDigest string `json:"foods_digest"`
	ShopDigest  string `json:"shop_digest"`

	Layouts [2]LayoutV1 `json:"layouts"`
	// Original map file text.
	MapSource string `json:"map_source"`
}

// LayoutV1 stores tile ids run-length encoded.
type LayoutV1 struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	RLE    string `json:"rle"`
}

// FrameV1 is the full projection of game state after one resolved turn.
type FrameV1 struct {
	Turn   int    `json:"turn"`
	Digest string `json:"digest"`
	Status string `json:"status"`

	Teams    [2]TeamV1        `json:"teams"`
	Robots   []RobotV1        `json:"robots"`
	Stations [2][]StationV1   `json:"stations"`
	Orders   [2][]OrderV1     `json:"orders"`
	Results  [2][]ActResultV1 `json:"results,omitempty"`
}

type TeamV1 struct {
	Side                string `json:"side"`
	Money               int    `json:"money"`
	ActiveMap           string `json:"active_map"`
	Forfeit             string `json:"forfeit,omitempty"`
	ConsecutiveForfeits int    `json:"consecutive_forfeits,omitempty"`
	Completed           int    `json:"completed"`
	Expired             int    `json:"expired"`
}

type RobotV1 struct {
	ID   int     `json:"id"`
	Team string  `json:"team"`
	Map  string  `json:"map"`
	X    int     `json:"x"`
	Y    int     `json:"y"`
	Held *ItemV1 `json:"held,omitempty"`
}

type ItemV1 struct {
	Kind     string   `json:"kind"`
	Food     string   `json:"food,omitempty"`
	Chopped  bool     `json:"chopped,omitempty"`
	Cook     string   `json:"cook,omitempty"`
	Progress int      `json:"progress,omitempty"`
	Dirty    bool     `json:"dirty,omitempty"`
	Foods    []ItemV1 `json:"foods,omitempty"`
}

type StationV1 struct {
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Tile         string  `json:"tile"`
	Item         *ItemV1 `json:"item,omitempty"`
	Count        int     `json:"count,omitempty"`
	Active       bool    `json:"active,omitempty"`
	DirtyPlates  int     `json:"dirty_plates,omitempty"`
	CleanPlates  int     `json:"clean_plates,omitempty"`
	WashProgress int     `json:"wash_progress,omitempty"`
}

type OrderV1 struct {
	ID       int      `json:"id"`
	Foods    []string `json:"foods"`
	Reward   int      `json:"reward"`
	Created  int      `json:"created"`
	Deadline int      `json:"deadline"`
}

// ActResultV1 is one applied request and how it resolved. Together with the
// team forfeits it is enough to replay the turn.
type ActResultV1 struct {
	Robot int    `json:"robot"`
	Kind  string `json:"kind"`
	DX    int    `json:"dx,omitempty"`
	DY    int    `json:"dy,omitempty"`
	X     int    `json:"x,omitempty"`
	Y     int    `json:"y,omitempty"`
	Item  string `json:"item,omitempty"`
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
}

// SnapshotV1 is a single self-contained state file (match header plus one frame).
type SnapshotV1 struct {
	Header Header        `json:"header"`
	Match  MatchHeaderV1 `json:"match"`
	Frame  FrameV1       `json:"frame"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, nil
}
