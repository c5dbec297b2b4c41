package snapshot

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "final.snap.zst")
	in := SnapshotV1{
		Header: Header{Version: Version, MatchID: "m1", Turn: 42},
		Match: MatchHeaderV1{
			MatchID: "m1",
			Seed:    7,
			Tuning:  json.RawMessage(`{"total_turns":42}`),
			Layouts: [2]LayoutV1{{Width: 3, Height: 1, RLE: "2x3"}, {Width: 3, Height: 1, RLE: "2x3"}},
		},
		Frame: FrameV1{
			Turn:   42,
			Digest: "abc",
			Teams:  [2]TeamV1{{Side: "RED", Money: 10}, {Side: "BLUE", Money: 12}},
			Robots: []RobotV1{{ID: 0, Team: "RED", Map: "RED", X: 1, Y: 1, Held: &ItemV1{Kind: "FOOD", Food: "EGG"}}},
		},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Header != in.Header || out.Match.Seed != 7 || string(out.Match.Tuning) != `{"total_turns":42}` {
		t.Fatalf("header mismatch: %+v", out)
	}
	if out.Frame.Teams[1].Money != 12 || out.Frame.Robots[0].Held.Food != "EGG" {
		t.Fatalf("frame mismatch: %+v", out.Frame)
	}
}

func TestReadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
