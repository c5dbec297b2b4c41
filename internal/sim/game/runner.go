package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/mapfile"
)

// Bot is a team's control code. PlayTurn runs on its own goroutine, once per
// turn, and must return before ctx is done. Whatever it does after the
// deadline is discarded.
type Bot interface {
	PlayTurn(ctx context.Context, c *Controller) error
}

// Factory builds a team's control code once per match. layout is a private
// copy of the team's own kitchen; the engine never touches it again.
type Factory func(side Side, layout mapfile.Layout) (Bot, error)

// ErrMalformed marks control code that answered with something the engine
// cannot use. Remote transports wrap it.
var ErrMalformed = errors.New("malformed actions")

// Forfeit reasons.
const (
	ForfeitTimeout   = "timeout"
	ForfeitPanic     = "panic"
	ForfeitBusy      = "busy"
	ForfeitMalformed = "malformed"
	ForfeitError     = "error"
	ForfeitAborted   = "aborted"
)

type seat struct {
	side Side
	bot  Bot

	// idle holds a token while no PlayTurn goroutine is alive. A call the
	// engine already gave up on keeps the token until it returns.
	idle chan struct{}
}

func newSeat(side Side, bot Bot) *seat {
	s := &seat{side: side, bot: bot, idle: make(chan struct{}, 1)}
	s.idle <- struct{}{}
	return s
}

type decision struct {
	reqs    []protocol.ActionReq
	forfeit string
}

// collect runs both teams' control code concurrently, each against its own
// clone of the state, and waits for both to answer or time out.
func (e *Engine) collect(ctx context.Context) TurnInput {
	var in TurnInput
	var wg sync.WaitGroup
	for i := range e.seats {
		view := e.state.Clone()
		wg.Add(1)
		go func(i int, view *State) {
			defer wg.Done()
			d := e.decide(ctx, e.seats[i], view)
			in.Actions[i] = d.reqs
			in.Forfeits[i] = d.forfeit
		}(i, view)
	}
	wg.Wait()
	return in
}

func (e *Engine) decide(ctx context.Context, s *seat, view *State) decision {
	tctx, cancel := context.WithTimeout(ctx, e.cfg.TurnTimeout())
	defer cancel()

	// A call that overran the previous turn may still finish inside this
	// turn's budget; only a call outliving it costs the team this turn.
	select {
	case <-s.idle:
	case <-tctx.Done():
		if ctx.Err() != nil {
			return decision{forfeit: ForfeitAborted}
		}
		return decision{forfeit: ForfeitBusy}
	}

	c := newController(e.r, s.side, view)

	done := make(chan string, 1)
	go func() {
		reason := ""
		defer func() {
			if p := recover(); p != nil {
				reason = ForfeitPanic
				e.log.Warn("control code panicked", "team", s.side.String(), "turn", view.Turn, "panic", fmt.Sprint(p))
			}
			s.idle <- struct{}{}
			done <- reason
		}()
		if err := s.bot.PlayTurn(tctx, c); err != nil {
			reason = forfeitReason(err)
			e.log.Warn("control code failed", "team", s.side.String(), "turn", view.Turn, "err", err)
		}
	}()

	select {
	case reason := <-done:
		reqs := c.seal()
		if reason == "" && tctx.Err() != nil {
			reason = ForfeitTimeout
		}
		if reason != "" {
			return decision{forfeit: reason}
		}
		return decision{reqs: reqs}
	case <-tctx.Done():
		c.seal()
		if ctx.Err() != nil {
			return decision{forfeit: ForfeitAborted}
		}
		return decision{forfeit: ForfeitTimeout}
	}
}

func forfeitReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ForfeitTimeout
	case errors.Is(err, context.Canceled):
		return ForfeitAborted
	case errors.Is(err, ErrMalformed):
		return ForfeitMalformed
	}
	return ForfeitError
}

func logForfeit(log *slog.Logger, side Side, turn int, reason string, streak int) {
	log.Warn("turn forfeited", "team", side.String(), "turn", turn, "reason", reason, "streak", streak)
}
