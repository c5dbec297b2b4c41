package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Tool item ids sold by the shop next to foods.
const (
	ToolPlate = "PLATE"
	ToolPan   = "PAN"
)

type Catalogs struct {
	Foods FoodCatalog
	Tools ToolCatalog
}

type FoodCatalog struct {
	Order  []string
	Defs   map[string]FoodDef
	Digest string
}

type FoodDef struct {
	ID      string `json:"id"`
	BuyCost int    `json:"buy_cost"`
	CanChop bool   `json:"can_chop"`
	CanCook bool   `json:"can_cook"`
}

type ToolCatalog struct {
	Defs   map[string]ToolDef
	Digest string
}

type ToolDef struct {
	ID      string `json:"id"`
	BuyCost int    `json:"buy_cost"`
}

func Load(configDir string) (*Catalogs, error) {
	foodsRaw, err := os.ReadFile(filepath.Join(configDir, "foods.json"))
	if err != nil {
		return nil, err
	}
	var foods []FoodDef
	if err := json.Unmarshal(foodsRaw, &foods); err != nil {
		return nil, fmt.Errorf("foods.json: %w", err)
	}

	shopRaw, err := os.ReadFile(filepath.Join(configDir, "shop.json"))
	if err != nil {
		return nil, err
	}
	var tools []ToolDef
	if err := json.Unmarshal(shopRaw, &tools); err != nil {
		return nil, fmt.Errorf("shop.json: %w", err)
	}

	c, err := New(foods, tools)
	if err != nil {
		return nil, err
	}
	c.Foods.Digest = sha256Hex(foodsRaw)
	c.Tools.Digest = sha256Hex(shopRaw)
	return c, nil
}

// New builds catalogs from in-memory definitions. Digests are computed over
// the canonical JSON of the sorted definitions.
func New(foods []FoodDef, tools []ToolDef) (*Catalogs, error) {
	c := &Catalogs{
		Foods: FoodCatalog{Defs: map[string]FoodDef{}},
		Tools: ToolCatalog{Defs: map[string]ToolDef{}},
	}
	for _, f := range foods {
		if f.ID == "" {
			return nil, fmt.Errorf("foods.json: empty id")
		}
		if f.BuyCost < 0 {
			return nil, fmt.Errorf("foods.json: %s: negative buy_cost", f.ID)
		}
		if _, dup := c.Foods.Defs[f.ID]; dup {
			return nil, fmt.Errorf("foods.json: duplicate id %s", f.ID)
		}
		c.Foods.Defs[f.ID] = f
	}
	for _, t := range tools {
		switch t.ID {
		case ToolPlate, ToolPan:
		default:
			return nil, fmt.Errorf("shop.json: unknown tool %q", t.ID)
		}
		if _, clash := c.Foods.Defs[t.ID]; clash {
			return nil, fmt.Errorf("shop.json: tool %s collides with a food id", t.ID)
		}
		c.Tools.Defs[t.ID] = t
	}

	c.Foods.Order = make([]string, 0, len(c.Foods.Defs))
	for id := range c.Foods.Defs {
		c.Foods.Order = append(c.Foods.Order, id)
	}
	sort.Strings(c.Foods.Order)

	fb, _ := json.Marshal(sortedFoods(c.Foods))
	c.Foods.Digest = sha256Hex(fb)
	tb, _ := json.Marshal(sortedTools(c.Tools))
	c.Tools.Digest = sha256Hex(tb)
	return c, nil
}

// Price returns the shop price of a food or tool id.
func (c *Catalogs) Price(id string) (int, bool) {
	if f, ok := c.Foods.Defs[id]; ok {
		return f.BuyCost, true
	}
	if t, ok := c.Tools.Defs[id]; ok {
		return t.BuyCost, true
	}
	return 0, false
}

func (c *Catalogs) Food(id string) (FoodDef, bool) {
	f, ok := c.Foods.Defs[id]
	return f, ok
}

func sortedFoods(fc FoodCatalog) []FoodDef {
	out := make([]FoodDef, 0, len(fc.Defs))
	for _, id := range fc.Order {
		out = append(out, fc.Defs[id])
	}
	return out
}

func sortedTools(tc ToolCatalog) []ToolDef {
	out := make([]ToolDef, 0, len(tc.Defs))
	for _, t := range tc.Defs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
