package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// stateDigest hashes everything that influences future turns. Two engines
// fed the same inputs produce the same digest sequence.
func stateDigest(s *State) string {
	h := sha256.New()
	var tmp [8]byte

	writeInt(h, &tmp, s.Turn)
	for _, team := range s.Teams {
		writeInt(h, &tmp, int(team.Side))
		writeInt(h, &tmp, team.Money)
		writeInt(h, &tmp, int(team.ActiveMap))
		writeInt(h, &tmp, team.ConsecutiveForfeits)
		writeInt(h, &tmp, team.Forfeits)
		for _, used := range team.switchUsed {
			writeBool(h, &tmp, used)
		}
	}
	for _, rb := range s.Robots {
		writeInt(h, &tmp, rb.ID)
		writeInt(h, &tmp, int(rb.Team))
		writeInt(h, &tmp, int(rb.Map))
		writeInt(h, &tmp, rb.Pos.X)
		writeInt(h, &tmp, rb.Pos.Y)
		writeItem(h, &tmp, rb.Held)
	}
	for _, k := range s.Kitchens {
		for _, st := range k.stations {
			writeInt(h, &tmp, st.Pos.X)
			writeInt(h, &tmp, st.Pos.Y)
			writeInt(h, &tmp, int(st.Tile))
			writeItem(h, &tmp, st.Item)
			writeInt(h, &tmp, st.Count)
			writeBool(h, &tmp, st.Active)
			writeInt(h, &tmp, st.DirtyPlates)
			writeInt(h, &tmp, st.WashProgress)
			writeInt(h, &tmp, st.CleanPlates)
		}
	}
	for _, q := range s.Orders {
		writeInt(h, &tmp, len(q.Scheduled))
		for _, o := range q.Scheduled {
			writeOrder(h, &tmp, o)
		}
		writeInt(h, &tmp, len(q.Pending))
		for _, o := range q.Pending {
			writeOrder(h, &tmp, o)
		}
		writeInt(h, &tmp, q.Completed)
		writeInt(h, &tmp, q.Expired)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeInt(h hash.Hash, tmp *[8]byte, v int) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
	h.Write(tmp[:])
}

func writeBool(h hash.Hash, tmp *[8]byte, v bool) {
	if v {
		writeInt(h, tmp, 1)
		return
	}
	writeInt(h, tmp, 0)
}

func writeString(h hash.Hash, tmp *[8]byte, s string) {
	writeInt(h, tmp, len(s))
	h.Write([]byte(s))
}

func writeFood(h hash.Hash, tmp *[8]byte, f Food) {
	writeString(h, tmp, f.ID)
	writeBool(h, tmp, f.Chopped)
	writeInt(h, tmp, int(f.Cook))
	writeInt(h, tmp, f.Progress)
}

func writeItem(h hash.Hash, tmp *[8]byte, it *Item) {
	if it == nil {
		writeInt(h, tmp, -1)
		return
	}
	writeInt(h, tmp, int(it.Kind))
	writeBool(h, tmp, it.Dirty)
	if it.Kind == KindFood {
		writeFood(h, tmp, it.Food)
		return
	}
	writeInt(h, tmp, len(it.Foods))
	for _, f := range it.Foods {
		writeFood(h, tmp, f)
	}
}

func writeOrder(h hash.Hash, tmp *[8]byte, o *Order) {
	writeInt(h, tmp, o.ID)
	writeInt(h, tmp, o.Created)
	writeInt(h, tmp, o.Deadline)
	writeInt(h, tmp, o.Reward)
	writeString(h, tmp, o.signature)
}
