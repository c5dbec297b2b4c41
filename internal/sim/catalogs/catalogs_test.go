package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadShippedConfigs(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Foods.Order) == 0 {
		t.Fatalf("no foods loaded")
	}
	for i := 1; i < len(c.Foods.Order); i++ {
		if c.Foods.Order[i-1] >= c.Foods.Order[i] {
			t.Fatalf("food order not sorted: %v", c.Foods.Order)
		}
	}
	if _, ok := c.Price(ToolPlate); !ok {
		t.Fatalf("shop does not sell plates")
	}
	if _, ok := c.Price(ToolPan); !ok {
		t.Fatalf("shop does not sell pans")
	}
	if c.Foods.Digest == "" || c.Tools.Digest == "" {
		t.Fatalf("missing digests")
	}
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name  string
		foods []FoodDef
		tools []ToolDef
	}{
		{"empty id", []FoodDef{{ID: ""}}, nil},
		{"negative cost", []FoodDef{{ID: "EGG", BuyCost: -1}}, nil},
		{"duplicate", []FoodDef{{ID: "EGG"}, {ID: "EGG"}}, nil},
		{"unknown tool", nil, []ToolDef{{ID: "KNIFE"}}},
		{"tool clash", []FoodDef{{ID: "PAN"}}, []ToolDef{{ID: ToolPan}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.foods, tc.tools); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDigestIgnoresDefinitionOrder(t *testing.T) {
	a, err := New([]FoodDef{{ID: "EGG", BuyCost: 1}, {ID: "ONIONS", BuyCost: 2}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, _ := New([]FoodDef{{ID: "ONIONS", BuyCost: 2}, {ID: "EGG", BuyCost: 1}}, nil)
	if a.Foods.Digest != b.Foods.Digest {
		t.Fatalf("digest depends on order")
	}
	c, _ := New([]FoodDef{{ID: "ONIONS", BuyCost: 3}, {ID: "EGG", BuyCost: 1}}, nil)
	if a.Foods.Digest == c.Foods.Digest {
		t.Fatalf("digest ignores prices")
	}
}

func TestLoadReportsBadJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foods.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected error")
	}
}
