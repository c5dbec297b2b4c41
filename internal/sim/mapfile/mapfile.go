package mapfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("map syntax error")

// Tile is the single-character code used in map files.
type Tile byte

const (
	Floor     Tile = '.'
	Wall      Tile = '#'
	Counter   Tile = 'C'
	Cooker    Tile = 'K'
	Sink      Tile = 'S'
	SinkTable Tile = 'T'
	Trash     Tile = 'R'
	Submit    Tile = 'U'
	Shop      Tile = '$'
	Box       Tile = 'B'
	Spawn     Tile = 'b'
)

// Tiles lists every code in palette order. The index is the tile's stable
// numeric id (used by the run-length layout encoding).
var Tiles = []Tile{Floor, Wall, Counter, Cooker, Sink, SinkTable, Trash, Submit, Shop, Box, Spawn}

func (t Tile) Valid() bool {
	_, ok := t.ID()
	return ok
}

func (t Tile) ID() (uint16, bool) {
	for i, c := range Tiles {
		if c == t {
			return uint16(i), true
		}
	}
	return 0, false
}

func TileByID(id uint16) (Tile, bool) {
	if int(id) >= len(Tiles) {
		return 0, false
	}
	return Tiles[id], true
}

func (t Tile) String() string {
	switch t {
	case Floor:
		return "FLOOR"
	case Wall:
		return "WALL"
	case Counter:
		return "COUNTER"
	case Cooker:
		return "COOKER"
	case Sink:
		return "SINK"
	case SinkTable:
		return "SINKTABLE"
	case Trash:
		return "TRASH"
	case Submit:
		return "SUBMIT"
	case Shop:
		return "SHOP"
	case Box:
		return "BOX"
	case Spawn:
		return "SPAWN"
	default:
		return fmt.Sprintf("TILE(%q)", byte(t))
	}
}

// Layout is one kitchen grid. Tiles are row-major; x is the column and y the row.
type Layout struct {
	Width  int
	Height int
	Tiles  []Tile
}

func (l Layout) At(x, y int) Tile {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return Wall
	}
	return l.Tiles[y*l.Width+x]
}

// Rows renders the layout back to its text form.
func (l Layout) Rows() []string {
	out := make([]string, 0, l.Height)
	for y := 0; y < l.Height; y++ {
		b := make([]byte, l.Width)
		for x := 0; x < l.Width; x++ {
			b[x] = byte(l.At(x, y))
		}
		out = append(out, string(b))
	}
	return out
}

// SwitchWindow allows switch_maps for turns in [From, To).
type SwitchWindow struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (w SwitchWindow) Contains(turn int) bool { return turn >= w.From && turn < w.To }

type OrderSpec struct {
	Start    int      `json:"start"`
	Duration int      `json:"duration"`
	Reward   int      `json:"reward"`
	Foods    []string `json:"foods"`
}

// MapSpec is the parsed form of a map file. Red and Blue are equal when the
// file declares a single grid.
type MapSpec struct {
	Red    Layout
	Blue   Layout
	Switch []SwitchWindow
	Orders []OrderSpec
	// Number of orders drawn from the seeded generator.
	RandomOrders int
	// Raw file contents, kept for replay headers.
	Source string
}

type section int

const (
	sectionGrid section = iota
	sectionSwitch
	sectionOrders
)

func Load(path string) (MapSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return MapSpec{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the map text format. Lines starting with ';' are comments.
func Parse(r io.Reader) (MapSpec, error) {
	var (
		spec   MapSpec
		grids  [][]string
		cur    []string
		sec    = sectionGrid
		lineNo int
		src    strings.Builder
	)
	flushGrid := func() {
		if len(cur) > 0 {
			grids = append(grids, cur)
			cur = nil
		}
	}
	fail := func(format string, args ...any) error {
		return fmt.Errorf("mapfile: line %d: %w: %s", lineNo, ErrSyntax, fmt.Sprintf(format, args...))
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), "\r")
		src.WriteString(raw)
		src.WriteByte('\n')
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, ";") {
			continue
		}
		switch strings.ToUpper(line) {
		case "SWITCH:":
			flushGrid()
			sec = sectionSwitch
			continue
		case "ORDERS:":
			flushGrid()
			sec = sectionOrders
			continue
		}
		if line == "" {
			if sec == sectionGrid {
				flushGrid()
			}
			continue
		}

		switch sec {
		case sectionGrid:
			if line == "---" {
				if len(cur) == 0 && len(grids) == 0 {
					return spec, fail("separator without a grid")
				}
				flushGrid()
				continue
			}
			for i := 0; i < len(line); i++ {
				if !Tile(line[i]).Valid() {
					return spec, fail("unknown tile code %q at column %d", line[i], i)
				}
			}
			if len(cur) > 0 && len(line) != len(cur[0]) {
				return spec, fail("row width %d, want %d", len(line), len(cur[0]))
			}
			cur = append(cur, line)

		case sectionSwitch:
			w, err := parseSwitch(line)
			if err != nil {
				return spec, fail("%v", err)
			}
			spec.Switch = append(spec.Switch, w)

		case sectionOrders:
			fields := strings.Fields(line)
			if strings.EqualFold(fields[0], "random") {
				if len(fields) != 2 {
					return spec, fail("random wants a count")
				}
				n, err := strconv.Atoi(fields[1])
				if err != nil || n < 0 {
					return spec, fail("bad random count %q", fields[1])
				}
				spec.RandomOrders += n
				continue
			}
			o, err := parseOrder(fields)
			if err != nil {
				return spec, fail("%v", err)
			}
			spec.Orders = append(spec.Orders, o)
		}
	}
	if err := sc.Err(); err != nil {
		return spec, err
	}
	flushGrid()

	switch len(grids) {
	case 0:
		return spec, fmt.Errorf("mapfile: %w: no grid", ErrSyntax)
	case 1:
		spec.Red = newLayout(grids[0])
		spec.Blue = spec.Red
	case 2:
		spec.Red = newLayout(grids[0])
		spec.Blue = newLayout(grids[1])
	default:
		return spec, fmt.Errorf("mapfile: %w: %d grids, want 1 or 2", ErrSyntax, len(grids))
	}
	spec.Source = src.String()
	return spec, nil
}

func newLayout(rows []string) Layout {
	l := Layout{Width: len(rows[0]), Height: len(rows)}
	l.Tiles = make([]Tile, 0, l.Width*l.Height)
	for _, r := range rows {
		for i := 0; i < len(r); i++ {
			l.Tiles = append(l.Tiles, Tile(r[i]))
		}
	}
	return l
}

func parseSwitch(line string) (SwitchWindow, error) {
	a, b, ok := strings.Cut(line, "-")
	if !ok {
		return SwitchWindow{}, fmt.Errorf("switch window %q: want <from>-<to>", line)
	}
	from, err1 := strconv.Atoi(strings.TrimSpace(a))
	to, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return SwitchWindow{}, fmt.Errorf("switch window %q: bad turn number", line)
	}
	if from < 0 || to <= from {
		return SwitchWindow{}, fmt.Errorf("switch window %q: empty range", line)
	}
	return SwitchWindow{From: from, To: to}, nil
}

func parseOrder(fields []string) (OrderSpec, error) {
	if len(fields) != 4 {
		return OrderSpec{}, fmt.Errorf("order wants <start> <duration> <reward> <FOOD>[,<FOOD>]")
	}
	var nums [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return OrderSpec{}, fmt.Errorf("order field %d: %q is not a number", i+1, fields[i])
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[1] <= 0 || nums[2] < 0 {
		return OrderSpec{}, fmt.Errorf("order start/duration/reward out of range")
	}
	var foods []string
	for _, f := range strings.Split(fields[3], ",") {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			return OrderSpec{}, fmt.Errorf("order has an empty food name")
		}
		foods = append(foods, f)
	}
	return OrderSpec{Start: nums[0], Duration: nums[1], Reward: nums[2], Foods: foods}, nil
}
