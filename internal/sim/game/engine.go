package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

var ErrAlreadyStarted = errors.New("match already started")

type Status int32

const (
	NotStarted Status = iota
	Running
	Finished
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	default:
		return "NOT_STARTED"
	}
}

// Reasons a match ends.
const (
	EndTurnLimit       = "turn_limit"
	EndOrdersExhausted = "orders_exhausted"
	EndForfeitLimit    = "forfeit_limit"
	EndAborted         = "aborted"
)

// TurnInput is everything the resolver consumes for one turn. Run builds it
// from the control code; replays rebuild it from the turn log.
type TurnInput struct {
	Actions  [2][]protocol.ActionReq
	Forfeits [2]string
}

type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

// TurnLogEntry is one resolved turn. Turn matches the frame of that turn.
type TurnLogEntry struct {
	Turn     int                     `json:"turn"`
	Actions  [2][]protocol.ActionReq `json:"actions"`
	Forfeits [2]string               `json:"forfeits"`
	Money    [2]int                  `json:"money"`
	Digest   string                  `json:"digest"`
}

// FrameWriter receives one frame per resolved turn, in order.
type FrameWriter interface {
	WriteFrame(f snapshot.FrameV1) error
}

type Outcome struct {
	Winner   string `json:"winner"`
	Money    [2]int `json:"money"`
	Turns    int    `json:"turns"`
	Reason   string `json:"reason"`
	Forfeits [2]int `json:"forfeits"`
}

// Metrics is a read-only view for HTTP handlers; updated by the engine loop.
type Metrics struct {
	Turn     int     `json:"turn"`
	StepMS   float64 `json:"step_ms"`
	Money    [2]int  `json:"money"`
	Forfeits [2]int  `json:"forfeits"`
	Pending  [2]int  `json:"pending_orders"`
}

// Engine owns the game state for one match and is its only writer.
type Engine struct {
	cfg   Config
	spec  mapfile.MapSpec
	r     *rules
	state *State
	seats [2]*seat
	log   *slog.Logger

	status atomic.Int32
	turn   atomic.Int64

	turnLogger TurnLogger
	frames     FrameWriter

	metrics atomic.Value
	outcome atomic.Value
}

// New validates the setup and builds the initial state. red and blue may be
// nil when the engine is only driven through StepOnce.
func New(cfg Config, spec mapfile.MapSpec, red, blue Factory) (*Engine, error) {
	if err := cfg.validate(spec); err != nil {
		return nil, err
	}
	sched, err := buildSchedule(spec, cfg.Tuning, cfg.Catalogs, cfg.Seed)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:  cfg,
		spec: spec,
		r: &rules{
			t:       cfg.Tuning,
			cats:    cfg.Catalogs,
			windows: append([]mapfile.SwitchWindow(nil), spec.Switch...),
		},
		state: newState(spec, cfg.Tuning.StartingMoney, sched),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for i, f := range [2]Factory{red, blue} {
		side := Side(i)
		if f == nil {
			continue
		}
		l := spec.Red
		if side == Blue {
			l = spec.Blue
		}
		bot, err := f(side, copyLayout(l))
		if err != nil {
			return nil, fmt.Errorf("%s control code: %w", side, err)
		}
		if bot == nil {
			return nil, fmt.Errorf("%s control code: %w", side, ErrNoBot)
		}
		e.seats[i] = newSeat(side, bot)
	}
	return e, nil
}

func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}
func (e *Engine) SetTurnLogger(l TurnLogger)   { e.turnLogger = l }
func (e *Engine) SetFrameWriter(w FrameWriter) { e.frames = w }

func (e *Engine) Config() Config        { return e.cfg }
func (e *Engine) Tuning() tuning.Tuning { return e.cfg.Tuning }
func (e *Engine) Status() Status        { return Status(e.status.Load()) }
func (e *Engine) CurrentTurn() int      { return int(e.turn.Load()) }

// TeamRobotIDs lists a team's robot ids. Not safe while Run is active.
func (e *Engine) TeamRobotIDs(side Side) []int {
	var ids []int
	for _, rb := range e.state.TeamRobots(side) {
		ids = append(ids, rb.ID)
	}
	return ids
}

func (e *Engine) Metrics() Metrics {
	v, _ := e.metrics.Load().(Metrics)
	return v
}

// Outcome is valid once Status is Finished.
func (e *Engine) Outcome() (Outcome, bool) {
	v, ok := e.outcome.Load().(Outcome)
	return v, ok
}

// Run plays the match to the end. Context cancellation ends it early with
// reason "aborted"; the returned outcome is still a full score.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	if e.seats[Red] == nil || e.seats[Blue] == nil {
		return Outcome{}, ErrNoBot
	}
	if !e.status.CompareAndSwap(int32(NotStarted), int32(Running)) {
		return Outcome{}, ErrAlreadyStarted
	}
	t := e.cfg.Tuning
	e.log.Info("match started",
		"match_id", e.cfg.MatchID, "seed", e.cfg.Seed,
		"turns", t.TotalTurns, "timeout_ms", t.TurnTimeoutMs, "fps", e.cfg.FPS)

	var pace <-chan time.Time
	if e.cfg.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(e.cfg.FPS))
		defer ticker.Stop()
		pace = ticker.C
	}

	reason := ""
	for {
		if reason = e.terminal(); reason != "" {
			break
		}
		if ctx.Err() != nil {
			reason = EndAborted
			break
		}
		e.beginTurn()
		in := e.collect(ctx)
		// An abort mid-collection is nobody's fault; the turn is not played.
		if ctx.Err() != nil {
			reason = EndAborted
			break
		}
		e.applyTurn(in)
		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace:
			}
		}
	}

	out := e.finish(reason)
	if reason == EndAborted {
		return out, ctx.Err()
	}
	return out, nil
}

// StepOnce resolves one turn from recorded input, with the same ordering as
// Run. It is meant for replays and tests.
func (e *Engine) StepOnce(in TurnInput) (turn int, digest string) {
	e.status.CompareAndSwap(int32(NotStarted), int32(Running))
	turn = e.state.Turn
	e.beginTurn()
	return turn, e.applyTurn(in)
}

// Done reports whether Run would stop before the next turn.
func (e *Engine) Done() bool { return e.terminal() != "" }

func (e *Engine) resolveOrder() [2]Side {
	if e.cfg.Tuning.ResolveOrder == tuning.ResolveBlueFirst {
		return [2]Side{Blue, Red}
	}
	return [2]Side{Red, Blue}
}

func (e *Engine) terminal() string {
	s := e.state
	t := e.cfg.Tuning
	if s.Turn >= t.TotalTurns {
		return EndTurnLimit
	}
	if t.EndWhenOrdersExhausted && s.Orders[Red].exhausted() && s.Orders[Blue].exhausted() {
		return EndOrdersExhausted
	}
	if t.MaxConsecutiveForfeits > 0 {
		for _, team := range s.Teams {
			if team.ConsecutiveForfeits >= t.MaxConsecutiveForfeits {
				return EndForfeitLimit
			}
		}
	}
	return ""
}

// beginTurn runs the turn-start bookkeeping the control code must see:
// teams whose switch window closed go home, scheduled orders open.
func (e *Engine) beginTurn() {
	s := e.state
	for _, side := range e.resolveOrder() {
		team := s.Teams[side]
		if team.ActiveMap == side || e.r.windowAt(s.Turn) >= 0 {
			continue
		}
		if s.relocate(side, side) {
			team.ActiveMap = side
			e.log.Info("switch window closed", "team", side.String(), "turn", s.Turn)
		}
	}
	for _, q := range s.Orders {
		q.activate(s.Turn)
	}
}

func (e *Engine) applyTurn(in TurnInput) string {
	start := time.Now()
	s := e.state
	// Turn n is decided while the counter reads n-1 and recorded as n, the
	// same number its frame carries.
	resolved := s.Turn + 1

	var results [2][]Result
	var applied [2][]protocol.ActionReq
	b := turnBudget{}
	for _, side := range e.resolveOrder() {
		team := s.Teams[side]
		if in.Forfeits[side] != "" {
			team.ConsecutiveForfeits++
			team.Forfeits++
			logForfeit(e.log, side, resolved, in.Forfeits[side], team.ConsecutiveForfeits)
			continue
		}
		team.ConsecutiveForfeits = 0
		reqs := in.Actions[side]
		if limit := e.cfg.Tuning.MaxRequestsPerTurn; len(reqs) > limit {
			reqs = reqs[:limit]
		}
		applied[side] = reqs
		activeBefore := team.ActiveMap
		for _, req := range reqs {
			results[side] = append(results[side], s.apply(e.r, side, req, b))
		}
		if team.ActiveMap != activeBefore {
			e.log.Info("team switched kitchens", "team", side.String(), "turn", resolved, "to", team.ActiveMap.String())
		}
	}

	s.advanceCookers(e.cfg.Tuning)
	s.Turn++
	for _, q := range s.Orders {
		q.expire(s.Turn)
	}
	checkInvariants(s, e.r)

	digest := stateDigest(s)
	if e.turnLogger != nil {
		if err := e.turnLogger.WriteTurn(TurnLogEntry{
			Turn:     resolved,
			Actions:  applied,
			Forfeits: in.Forfeits,
			Money:    [2]int{s.Teams[Red].Money, s.Teams[Blue].Money},
			Digest:   digest,
		}); err != nil {
			e.log.Error("turn log write failed", "turn", resolved, "err", err)
		}
	}
	if e.frames != nil {
		f := exportFrame(s, digest, e.Status(), in.Forfeits, applied, results)
		if err := e.frames.WriteFrame(f); err != nil {
			e.log.Error("frame write failed", "turn", resolved, "err", err)
		}
	}

	e.turn.Store(int64(s.Turn))
	e.metrics.Store(Metrics{
		Turn:     s.Turn,
		StepMS:   float64(time.Since(start).Microseconds()) / 1000.0,
		Money:    [2]int{s.Teams[Red].Money, s.Teams[Blue].Money},
		Forfeits: [2]int{s.Teams[Red].Forfeits, s.Teams[Blue].Forfeits},
		Pending:  [2]int{len(s.Orders[Red].Pending), len(s.Orders[Blue].Pending)},
	})
	return digest
}

func (e *Engine) finish(reason string) Outcome {
	s := e.state
	out := Outcome{
		Money:    [2]int{s.Teams[Red].Money, s.Teams[Blue].Money},
		Turns:    s.Turn,
		Reason:   reason,
		Forfeits: [2]int{s.Teams[Red].Forfeits, s.Teams[Blue].Forfeits},
	}
	out.Winner = winner(s, reason, e.cfg.Tuning.MaxConsecutiveForfeits)
	e.outcome.Store(out)
	e.status.Store(int32(Finished))
	e.log.Info("match finished",
		"match_id", e.cfg.MatchID, "winner", out.Winner, "reason", reason,
		"turns", out.Turns, "red_money", out.Money[Red], "blue_money", out.Money[Blue])
	return out
}

// winner: a team that hit the forfeit limit alone loses; otherwise money
// decides and equal money is a draw.
func winner(s *State, reason string, maxForfeits int) string {
	if reason == EndForfeitLimit {
		redOut := s.Teams[Red].ConsecutiveForfeits >= maxForfeits
		blueOut := s.Teams[Blue].ConsecutiveForfeits >= maxForfeits
		switch {
		case redOut && !blueOut:
			return Blue.String()
		case blueOut && !redOut:
			return Red.String()
		}
	}
	switch red, blue := s.Teams[Red].Money, s.Teams[Blue].Money; {
	case red > blue:
		return Red.String()
	case blue > red:
		return Blue.String()
	}
	return "DRAW"
}

// Finish ends a StepOnce-driven match and reports the outcome.
func (e *Engine) Finish(reason string) Outcome {
	if reason == "" {
		reason = e.terminal()
	}
	return e.finish(reason)
}

// Snapshot captures the current state as a self-contained snapshot file body.
func (e *Engine) Snapshot(redBot, blueBot string) snapshot.SnapshotV1 {
	digest := stateDigest(e.state)
	return snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, MatchID: e.cfg.MatchID, Turn: e.state.Turn},
		Match:  e.MatchHeader(redBot, blueBot),
		Frame:  exportFrame(e.state, digest, e.Status(), [2]string{}, [2][]protocol.ActionReq{}, [2][]Result{}),
	}
}

// Digest is the current state digest. Not safe while Run is active.
func (e *Engine) Digest() string { return stateDigest(e.state) }
