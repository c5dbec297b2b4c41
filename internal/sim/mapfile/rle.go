package mapfile

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeTiles packs a layout's tiles as base64 of uvarint (palette id, run)
// pairs in row-major order.
func EncodeTiles(l Layout) string {
	buf := make([]byte, 0, 2*len(l.Tiles)/3+8)
	for i := 0; i < len(l.Tiles); {
		run := 1
		for i+run < len(l.Tiles) && l.Tiles[i+run] == l.Tiles[i] {
			run++
		}
		id, _ := l.Tiles[i].ID()
		buf = binary.AppendUvarint(buf, uint64(id))
		buf = binary.AppendUvarint(buf, uint64(run))
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeTiles rebuilds a width x height layout from EncodeTiles output.
func DecodeTiles(width, height int, s string) (Layout, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Layout{}, err
	}
	n := width * height
	l := Layout{Width: width, Height: height, Tiles: make([]Tile, 0, n)}
	for i := 0; i < len(raw); {
		id, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return Layout{}, fmt.Errorf("tile id: bad varint at %d", i)
		}
		i += k
		run, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return Layout{}, fmt.Errorf("tile run: bad varint at %d", i)
		}
		i += k
		t, ok := TileByID(uint16(id))
		if !ok || id > 0xFFFF {
			return Layout{}, fmt.Errorf("unknown tile id %d", id)
		}
		if run == 0 || uint64(len(l.Tiles))+run > uint64(n) {
			return Layout{}, fmt.Errorf("run of %d overflows %dx%d layout", run, width, height)
		}
		for ; run > 0; run-- {
			l.Tiles = append(l.Tiles, t)
		}
	}
	if len(l.Tiles) != n {
		return Layout{}, fmt.Errorf("decoded %d tiles, want %d", len(l.Tiles), n)
	}
	return l, nil
}
