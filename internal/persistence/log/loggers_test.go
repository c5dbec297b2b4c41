package log

import (
	"errors"
	"path/filepath"
	"testing"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/game"
)

func TestTurnLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "turns.jsonl.zst")
	l := NewTurnLogger(path)
	for turn := 1; turn <= 3; turn++ {
		e := game.TurnLogEntry{
			Turn:   turn,
			Money:  [2]int{10 * turn, 5},
			Digest: "d",
		}
		e.Actions[game.Red] = []protocol.ActionReq{{Robot: 0, Kind: protocol.ActMove, DX: 1}}
		if turn == 2 {
			e.Forfeits[game.Blue] = game.ForfeitTimeout
		}
		if err := l.WriteTurn(e); err != nil {
			t.Fatalf("WriteTurn: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []game.TurnLogEntry
	if err := ReadTurnLog(path, func(e game.TurnLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadTurnLog: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries: %d", len(got))
	}
	if got[1].Forfeits[game.Blue] != game.ForfeitTimeout || got[2].Money[game.Red] != 30 {
		t.Fatalf("entry content: %+v", got)
	}
	if a := got[0].Actions[game.Red]; len(a) != 1 || a[0].DX != 1 {
		t.Fatalf("actions: %+v", a)
	}
}

func TestReadTurnLogStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl.zst")
	l := NewTurnLogger(path)
	_ = l.WriteTurn(game.TurnLogEntry{Turn: 1})
	_ = l.WriteTurn(game.TurnLogEntry{Turn: 2})
	_ = l.Close()

	stop := errors.New("stop")
	n := 0
	err := ReadTurnLog(path, func(game.TurnLogEntry) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}
