package game

import (
	"fmt"
	"sort"
	"strings"

	"kitchenrush.ai/internal/protocol"
)

// Side identifies a team. Red is index 0 everywhere.
type Side int

const (
	Red Side = iota
	Blue
)

func (s Side) Other() Side { return 1 - s }

func (s Side) String() string {
	if s == Blue {
		return "BLUE"
	}
	return "RED"
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RED":
		return Red, nil
	case "BLUE":
		return Blue, nil
	}
	return Red, fmt.Errorf("unknown side %q", s)
}

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Add(dx, dy int) Pos { return Pos{X: p.X + dx, Y: p.Y + dy} }

// Chebyshev is the king-move distance.
func Chebyshev(a, b Pos) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

type CookState int

const (
	Raw CookState = iota
	Cooking
	Cooked
	Burnt
)

func (c CookState) String() string {
	switch c {
	case Cooking:
		return protocol.CookCooking
	case Cooked:
		return protocol.CookCooked
	case Burnt:
		return protocol.CookBurnt
	default:
		return protocol.CookRaw
	}
}

// Food is one ingredient. Chopped and Cook only move forward.
type Food struct {
	ID       string
	Chopped  bool
	Cook     CookState
	Progress int
}

// Key identifies a food for recipe matching; cook progress is not part of it.
func (f Food) Key() string {
	c := "W"
	if f.Chopped {
		c = "C"
	}
	return f.ID + "/" + c + "/" + f.Cook.String()
}

type ItemKind int

const (
	KindFood ItemKind = iota
	KindPlate
	KindPan
)

func (k ItemKind) String() string {
	switch k {
	case KindPlate:
		return protocol.ItemPlate
	case KindPan:
		return protocol.ItemPan
	default:
		return protocol.ItemFood
	}
}

// Item is a value: a bare food, a plate (maybe dirty, holding foods) or a pan
// holding at most one food. Items are never shared between two holders.
type Item struct {
	Kind  ItemKind
	Food  Food
	Dirty bool
	Foods []Food
}

func NewFood(id string) *Item { return &Item{Kind: KindFood, Food: Food{ID: id}} }
func NewPlate() *Item         { return &Item{Kind: KindPlate} }
func NewPan() *Item           { return &Item{Kind: KindPan} }

func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	out := *it
	if it.Foods != nil {
		out.Foods = append([]Food(nil), it.Foods...)
	}
	return &out
}

// Signature is the sorted multiset of food keys the item carries. Two items
// with different contents never share a signature.
func (it *Item) Signature() string {
	if it == nil {
		return ""
	}
	switch it.Kind {
	case KindFood:
		return it.Food.Key()
	default:
		keys := make([]string, 0, len(it.Foods))
		for _, f := range it.Foods {
			keys = append(keys, f.Key())
		}
		sort.Strings(keys)
		return strings.Join(keys, "+")
	}
}

// Equal compares structure, including container kind and dirtiness.
func (it *Item) Equal(o *Item) bool {
	if it == nil || o == nil {
		return it == o
	}
	if it.Kind != o.Kind || it.Dirty != o.Dirty {
		return false
	}
	if it.Kind == KindFood {
		return it.Food == o.Food
	}
	if len(it.Foods) != len(o.Foods) {
		return false
	}
	return it.Signature() == o.Signature()
}

// cookable returns the food a cooker would heat, if any.
func (it *Item) cookable() *Food {
	if it == nil {
		return nil
	}
	switch it.Kind {
	case KindFood:
		return &it.Food
	case KindPan:
		if len(it.Foods) > 0 {
			return &it.Foods[0]
		}
	}
	return nil
}

// Result is what every controller call reports back. Rejections carry one of
// the protocol error codes and leave the state untouched.
type Result struct {
	OK   bool   `json:"ok"`
	Code string `json:"code,omitempty"`
}

var okResult = Result{OK: true}

func reject(code string) Result { return Result{Code: code} }
