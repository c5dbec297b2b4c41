package mapfile

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_SingleGridSharedByBothTeams(t *testing.T) {
	spec, err := Parse(strings.NewReader(`; comment
######
#$KU.#
#.b..#
######

ORDERS:
0 100 10 EGG
random 2
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Red.Width != 6 || spec.Red.Height != 4 {
		t.Fatalf("size: got %dx%d", spec.Red.Width, spec.Red.Height)
	}
	if spec.Red.At(1, 1) != Shop || spec.Red.At(2, 1) != Cooker || spec.Red.At(2, 2) != Spawn {
		t.Fatalf("tiles: %v", spec.Red.Rows())
	}
	if spec.Red.At(-1, 0) != Wall || spec.Red.At(6, 0) != Wall {
		t.Fatalf("out of bounds must read as wall")
	}
	if strings.Join(spec.Blue.Rows(), "\n") != strings.Join(spec.Red.Rows(), "\n") {
		t.Fatalf("blue should mirror red for a single grid")
	}
	if len(spec.Orders) != 1 {
		t.Fatalf("orders: %+v", spec.Orders)
	}
	if got := spec.Orders[0]; got.Start != 0 || got.Duration != 100 || got.Reward != 10 || got.Foods[0] != "EGG" {
		t.Fatalf("order 0: %+v", got)
	}
	if spec.RandomOrders != 2 {
		t.Fatalf("random orders: %d", spec.RandomOrders)
	}
}

func TestParse_FoodListIsNormalized(t *testing.T) {
	spec, err := Parse(strings.NewReader("###\n#b#\n###\nORDERS:\n1 10 5 onions,SAUCE\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	foods := spec.Orders[0].Foods
	if len(foods) != 2 || foods[0] != "ONIONS" || foods[1] != "SAUCE" {
		t.Fatalf("foods: %v", foods)
	}
}

func TestParse_TwoGridsAndSwitch(t *testing.T) {
	spec, err := Parse(strings.NewReader(`####
#b$#
####
---
#####
#$.b#
#####
SWITCH:
10-20
40 - 45
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Red.Width != 4 || spec.Blue.Width != 5 {
		t.Fatalf("widths: red=%d blue=%d", spec.Red.Width, spec.Blue.Width)
	}
	if len(spec.Switch) != 2 || spec.Switch[1] != (SwitchWindow{From: 40, To: 45}) {
		t.Fatalf("switch: %+v", spec.Switch)
	}
	if !spec.Switch[0].Contains(10) || spec.Switch[0].Contains(20) {
		t.Fatalf("window bounds wrong: %+v", spec.Switch[0])
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown tile":   "###\n#x#\n###\n",
		"ragged row":     "###\n#b##\n###\n",
		"no grid":        "ORDERS:\n0 10 1 EGG\n",
		"bad order":      "###\n#b#\n###\nORDERS:\n0 ten 1 EGG\n",
		"bad switch":     "###\n#b#\n###\nSWITCH:\n20-10\n",
		"three grids":    "#\n---\n#\n---\n#\n",
		"short order":    "###\n#b#\n###\nORDERS:\n0 10 EGG\n",
		"empty food":     "###\n#b#\n###\nORDERS:\n0 10 1 EGG,,\n",
		"bad random":     "###\n#b#\n###\nORDERS:\nrandom x\n",
		"lone separator": "---\n###\n",
	}
	for name, text := range cases {
		_, err := Parse(strings.NewReader(text))
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("%s: expected ErrSyntax, got %v", name, err)
		}
	}
}

func TestParse_ErrorCarriesLineNumber(t *testing.T) {
	_, err := Parse(strings.NewReader("###\n#b#\n#?#\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line 3 in error, got %v", err)
	}
}

func TestLoad_ShippedMaps(t *testing.T) {
	for _, name := range []string{"diner.txt", "split.txt"} {
		spec, err := Load(filepath.Join("..", "..", "..", "configs", "maps", name))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(spec.Orders) == 0 {
			t.Fatalf("%s: no orders", name)
		}
		if spec.Source == "" {
			t.Fatalf("%s: source not kept", name)
		}
	}
}

func TestTileIDs_RoundTrip(t *testing.T) {
	for _, tile := range Tiles {
		id, ok := tile.ID()
		if !ok {
			t.Fatalf("%v has no id", tile)
		}
		back, ok := TileByID(id)
		if !ok || back != tile {
			t.Fatalf("id %d: got %v want %v", id, back, tile)
		}
	}
	if _, ok := TileByID(uint16(len(Tiles))); ok {
		t.Fatalf("id past palette accepted")
	}
}

func TestEncodeTiles_RoundTrip(t *testing.T) {
	l := Layout{Width: 5, Height: 3, Tiles: []Tile{
		Wall, Wall, Wall, Wall, Wall,
		Wall, Shop, Floor, Floor, Submit,
		Wall, Wall, Wall, Wall, Wall,
	}}
	enc := EncodeTiles(l)
	got, err := DecodeTiles(5, 3, enc)
	if err != nil {
		t.Fatalf("DecodeTiles: %v", err)
	}
	for i := range l.Tiles {
		if got.Tiles[i] != l.Tiles[i] {
			t.Fatalf("tile %d: got %q want %q", i, got.Tiles[i], l.Tiles[i])
		}
	}
	if _, err := DecodeTiles(4, 3, enc); err == nil {
		t.Fatalf("expected size mismatch error")
	}
	if _, err := DecodeTiles(5, 3, "!!"); err == nil {
		t.Fatalf("expected base64 error")
	}
}
