package game

import (
	"errors"
	"fmt"
	"time"

	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

var (
	ErrBadConfig  = errors.New("bad match config")
	ErrNoBot      = errors.New("team has no control code")
	ErrUnknownBot = errors.New("unknown control code")
)

// Config is fixed for the whole match. Several engines may run side by side
// with different configs.
type Config struct {
	MatchID  string
	Seed     int64
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// FPS paces Run for live rendering. 0 runs turns back to back.
	FPS int
}

func (c Config) TurnTimeout() time.Duration {
	return time.Duration(c.Tuning.TurnTimeoutMs) * time.Millisecond
}

func (c Config) validate(spec mapfile.MapSpec) error {
	if c.Catalogs == nil {
		return fmt.Errorf("%w: nil catalogs", ErrBadConfig)
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if c.FPS < 0 {
		return fmt.Errorf("%w: negative fps", ErrBadConfig)
	}
	for i, l := range []mapfile.Layout{spec.Red, spec.Blue} {
		side := Side(i)
		if l.Width == 0 || l.Height == 0 {
			return fmt.Errorf("%w: %s map is empty", ErrBadConfig, side)
		}
		spawns := 0
		for _, t := range l.Tiles {
			if t == mapfile.Spawn {
				spawns++
			}
		}
		if spawns == 0 {
			return fmt.Errorf("%w: %s map has no spawn", ErrBadConfig, side)
		}
	}
	for _, w := range spec.Switch {
		if w.From < 0 || w.To <= w.From {
			return fmt.Errorf("%w: bad switch window %d-%d", ErrBadConfig, w.From, w.To)
		}
	}
	return nil
}
