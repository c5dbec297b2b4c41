// Package bots holds the built-in control code a match can be started with.
package bots

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
)

var registry = map[string]game.Factory{
	"idle":   func(game.Side, mapfile.Layout) (game.Bot, error) { return Idle{}, nil },
	"chef":   func(side game.Side, l mapfile.Layout) (game.Bot, error) { return NewChef(side, l), nil },
	"random": func(side game.Side, _ mapfile.Layout) (game.Bot, error) { return NewRandom(int64(side) + 1), nil },
	"panic":  func(game.Side, mapfile.Layout) (game.Bot, error) { return Panicky{}, nil },
	"sleepy": func(game.Side, mapfile.Layout) (game.Bot, error) { return Sleepy{}, nil },
}

// Lookup returns the factory registered under name.
func Lookup(name string) (game.Factory, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", game.ErrUnknownBot, name, Names())
	}
	return f, nil
}

func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Idle never asks for anything.
type Idle struct{}

func (Idle) PlayTurn(context.Context, *game.Controller) error { return nil }

// Panicky panics on every turn.
type Panicky struct{}

func (Panicky) PlayTurn(context.Context, *game.Controller) error {
	panic("panicky bot")
}

// Sleepy ignores its deadline: it sleeps twice the turn budget and then
// tries to move, which the sealed controller refuses.
type Sleepy struct{}

func (Sleepy) PlayTurn(_ context.Context, c *game.Controller) error {
	d := time.Duration(c.Observe().DeadlineMs) * time.Millisecond
	time.Sleep(2 * d)
	for _, id := range c.TeamBotIDs() {
		c.Move(id, 1, 0)
	}
	return nil
}

// Random wanders and pokes at neighbouring stations.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (b *Random) PlayTurn(_ context.Context, c *game.Controller) error {
	for _, id := range c.TeamBotIDs() {
		rb, ok := c.BotState(id)
		if !ok {
			continue
		}
		dx, dy := b.rng.Intn(3)-1, b.rng.Intn(3)-1
		if c.CanMove(id, dx, dy) {
			c.Move(id, dx, dy)
			rb, _ = c.BotState(id)
		}
		x, y := rb.Pos.X+b.rng.Intn(3)-1, rb.Pos.Y+b.rng.Intn(3)-1
		switch b.rng.Intn(4) {
		case 0:
			c.Pickup(id, x, y)
		case 1:
			c.Place(id, x, y)
		case 2:
			c.Chop(id, x, y)
		default:
			c.Submit(id, x, y)
		}
	}
	return nil
}
