package game

import (
	"errors"
	"testing"

	"kitchenrush.ai/internal/sim/mapfile"
)

func TestRecipeSignatureUsesCatalog(t *testing.T) {
	cats := testCatalogs(t)
	sig, err := RecipeSignature(cats, []string{"MEAT", "ONIONS", "NOODLES", "EGG"})
	if err != nil {
		t.Fatalf("RecipeSignature: %v", err)
	}
	want := "EGG/W/COOKED+MEAT/C/COOKED+NOODLES/W/RAW+ONIONS/C/RAW"
	if sig != want {
		t.Fatalf("got %s, want %s", sig, want)
	}

	dish := &Item{Kind: KindPlate, Foods: []Food{
		{ID: "ONIONS", Chopped: true},
		{ID: "NOODLES"},
		{ID: "MEAT", Chopped: true, Cook: Cooked, Progress: 25},
		{ID: "EGG", Cook: Cooked, Progress: 20},
	}}
	if dish.Signature() != sig {
		t.Fatalf("plate signature %s", dish.Signature())
	}

	if _, err := RecipeSignature(cats, []string{"CAVIAR"}); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("unknown food: %v", err)
	}
}

func TestOrderQueueLifecycle(t *testing.T) {
	q := &OrderQueue{Scheduled: []*Order{
		{ID: 1, Created: 0, Deadline: 5, signature: "A"},
		{ID: 2, Created: 2, Deadline: 4, signature: "A"},
		{ID: 3, Created: 3, Deadline: 3, signature: "B"}, // gone before it opens
		{ID: 4, Created: 9, Deadline: 20, signature: "A"},
	}}

	q.activate(0)
	if len(q.Pending) != 1 || len(q.Scheduled) != 3 {
		t.Fatalf("after activate(0): pending=%d scheduled=%d", len(q.Pending), len(q.Scheduled))
	}
	q.activate(3)
	if len(q.Pending) != 2 || q.Expired != 1 {
		t.Fatalf("after activate(3): pending=%d expired=%d", len(q.Pending), q.Expired)
	}

	if i := q.match("A"); q.Pending[i].ID != 1 {
		t.Fatalf("match picked order %d, want the oldest", q.Pending[i].ID)
	}
	if q.match("B") != -1 {
		t.Fatalf("expired order matched")
	}

	if n := q.expire(4); n != 1 || len(q.Pending) != 1 || q.Pending[0].ID != 1 {
		t.Fatalf("expire(4): dropped=%d pending=%+v", n, q.Pending)
	}
	q.expire(5)
	if len(q.Pending) != 0 || q.Expired != 3 {
		t.Fatalf("expire(5): pending=%d expired=%d", len(q.Pending), q.Expired)
	}
	if q.exhausted() {
		t.Fatalf("order 4 is still scheduled")
	}
	q.activate(9)
	o := q.remove(q.match("A"))
	if o.ID != 4 || !q.exhausted() {
		t.Fatalf("removed %d exhausted=%v", o.ID, q.exhausted())
	}
}

func TestMatchTieBreaksOnID(t *testing.T) {
	q := &OrderQueue{Pending: []*Order{
		{ID: 7, Created: 4, Deadline: 50, signature: "A"},
		{ID: 5, Created: 4, Deadline: 50, signature: "A"},
		{ID: 6, Created: 6, Deadline: 50, signature: "A"},
	}}
	if i := q.match("A"); q.Pending[i].ID != 5 {
		t.Fatalf("got order %d", q.Pending[i].ID)
	}
}

func TestBuildScheduleIsSeeded(t *testing.T) {
	cats := testCatalogs(t)
	spec := mapfile.MapSpec{
		Orders: []mapfile.OrderSpec{
			{Start: 30, Duration: 10, Reward: 5, Foods: []string{"EGG"}},
			{Start: 0, Duration: 10, Reward: 7, Foods: []string{"ONIONS"}},
		},
		RandomOrders: 5,
	}
	tu := testTuning()

	a, err := buildSchedule(spec, tu, cats, 99)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	b, _ := buildSchedule(spec, tu, cats, 99)
	if len(a.Scheduled) != 7 {
		t.Fatalf("scheduled: %d", len(a.Scheduled))
	}
	for i := range a.Scheduled {
		x, y := a.Scheduled[i], b.Scheduled[i]
		if x.ID != i+1 || x.ID != y.ID || x.signature != y.signature || x.Created != y.Created || x.Deadline != y.Deadline {
			t.Fatalf("order %d differs: %+v vs %+v", i, x, y)
		}
		if i > 0 && x.Created < a.Scheduled[i-1].Created {
			t.Fatalf("schedule not sorted by start")
		}
		r := tu.RandomOrders
		if n := len(x.Foods); x.Reward != r.RewardPerItem*n && x.Reward != 5 && x.Reward != 7 {
			t.Fatalf("order %d reward %d for %d foods", x.ID, x.Reward, n)
		}
	}
	// Fixed orders keep their relative position among equal starts.
	if a.Scheduled[0].Foods[0] != "ONIONS" {
		t.Fatalf("first order: %+v", a.Scheduled[0])
	}
}
