// Package ws seats remote control code: a team whose bot runs in another
// process and speaks the JSON protocol over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
)

var (
	ErrDisconnected = errors.New("remote team disconnected")
	ErrSeatTaken    = errors.New("seat already taken")
	ErrNoSeat       = errors.New("no remote seat for team")
	ErrBadToken     = errors.New("bad token")
)

type inbound struct {
	act protocol.ActMsg
	err error
}

// Remote is a seat waiting for, or played by, a remote client. It implements
// game.Bot: each PlayTurn sends one OBS and waits for the ACT of that turn.
type Remote struct {
	side  game.Side
	token string

	mu       sync.Mutex
	name     string
	attached bool

	connected chan struct{}
	gone      chan struct{}
	closing   chan struct{}
	goneOnce  sync.Once
	closeOnce sync.Once

	out  chan []byte
	acts chan inbound
}

func newRemote(side game.Side, token string) *Remote {
	return &Remote{
		side:      side,
		token:     token,
		connected: make(chan struct{}),
		gone:      make(chan struct{}),
		closing:   make(chan struct{}),
		out:       make(chan []byte, 8),
		acts:      make(chan inbound, 4),
	}
}

// Factory hands the seat to the engine.
func (r *Remote) Factory() game.Factory {
	return func(game.Side, mapfile.Layout) (game.Bot, error) { return r, nil }
}

// Name is what the client called itself in HELLO.
func (r *Remote) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Connected is closed once a client holds the seat.
func (r *Remote) Connected() <-chan struct{} { return r.connected }

func (r *Remote) PlayTurn(ctx context.Context, c *game.Controller) error {
	select {
	case <-r.gone:
		return ErrDisconnected
	default:
	}
	obs := c.Observe()
	b, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	select {
	case r.out <- b:
	case <-r.gone:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.gone:
			return ErrDisconnected
		case in := <-r.acts:
			if in.err != nil {
				return fmt.Errorf("%w: %v", game.ErrMalformed, in.err)
			}
			// Late answer to a turn the engine already gave up on.
			if in.act.Turn < obs.Turn {
				continue
			}
			if in.act.Turn != obs.Turn {
				return fmt.Errorf("%w: ACT for turn %d during turn %d", game.ErrMalformed, in.act.Turn, obs.Turn)
			}
			if in.act.ProtocolVersion != protocol.Version {
				return fmt.Errorf("%w: protocol_version %q", game.ErrMalformed, in.act.ProtocolVersion)
			}
			for _, a := range in.act.Actions {
				c.Do(a)
			}
			return nil
		}
	}
}

func (r *Remote) detach() {
	r.goneOnce.Do(func() { close(r.gone) })
}

func (r *Remote) finish(b []byte) {
	if b != nil {
		select {
		case r.out <- b:
		default:
		}
	}
	r.closeOnce.Do(func() { close(r.closing) })
}

// Server accepts remote teams. Seats are declared with Expect before the
// match starts; a seat is claimed by the first client that names its team and
// cannot be reclaimed after a disconnect.
type Server struct {
	log *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	seats   [2]*Remote
	welcome func(game.Side) protocol.WelcomeMsg
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Expect opens a seat for side. An empty token accepts any client.
func (s *Server) Expect(side game.Side, token string) *Remote {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := newRemote(side, token)
	s.seats[side] = r
	return r
}

// SetWelcome installs the handshake reply, normally Engine.Welcome. It must be
// set before clients connect.
func (s *Server) SetWelcome(fn func(game.Side) protocol.WelcomeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.welcome = fn
}

// WaitReady blocks until every expected seat is held.
func (s *Server) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	seats := s.seats
	s.mu.Unlock()
	for _, r := range seats {
		if r == nil {
			continue
		}
		select {
		case <-r.connected:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Finish sends RESULT to every connected seat and closes the connections.
func (s *Server) Finish(matchID string, out game.Outcome) {
	msg := protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		MatchID:         matchID,
		Winner:          out.Winner,
		RedMoney:        out.Money[game.Red],
		BlueMoney:       out.Money[game.Blue],
		Reason:          out.Reason,
		Turns:           out.Turns,
	}
	b, _ := json.Marshal(msg)
	s.mu.Lock()
	seats := s.seats
	s.mu.Unlock()
	for _, r := range seats {
		if r != nil {
			r.finish(b)
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		seat, err := s.handshake(conn)
		if err != nil {
			s.log.Warn("remote handshake rejected", "remote", r.RemoteAddr, "err", err)
			reason := protocol.ErrProtoBadRequest + ": " + err.Error()
			if len(reason) > 120 {
				reason = reason[:120]
			}
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
			return
		}
		s.log.Info("remote team connected", "team", seat.side.String(), "name", seat.Name(), "remote", r.RemoteAddr)
		defer func() {
			seat.detach()
			s.log.Info("remote team disconnected", "team", seat.side.String())
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-seat.out:
					if err := writeRaw(conn, b); err != nil {
						cancel()
						return
					}
				case <-seat.closing:
					drain(conn, seat.out)
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over"), time.Now().Add(time.Second))
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			env, err := protocol.Peek(msg)
			if err != nil {
				seat.push(inbound{err: err})
				continue
			}
			if env.Type != protocol.TypeAct {
				continue
			}
			act, err := protocol.DecodeAct(msg)
			seat.push(inbound{act: act, err: err})
		}
	}
}

// push drops the oldest queued answer when the bot outruns the engine.
func (r *Remote) push(in inbound) {
	for {
		select {
		case r.acts <- in:
			return
		default:
		}
		select {
		case <-r.acts:
		default:
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*Remote, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	env, err := protocol.Peek(msg)
	if err != nil || env.Type != protocol.TypeHello {
		return nil, errors.New("expected HELLO")
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, err
	}
	if hello.ProtocolVersion != protocol.Version {
		return nil, errors.New("bad protocol_version")
	}
	side, err := game.ParseSide(hello.Team)
	if err != nil {
		return nil, err
	}
	if hello.Name == "" {
		hello.Name = "remote"
	}

	s.mu.Lock()
	seat := s.seats[side]
	welcome := s.welcome
	if seat == nil || welcome == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w %s", ErrNoSeat, side)
	}
	if seat.token != "" && seat.token != hello.Token {
		s.mu.Unlock()
		return nil, ErrBadToken
	}
	seat.mu.Lock()
	if seat.attached {
		seat.mu.Unlock()
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSeatTaken, side)
	}
	seat.attached = true
	seat.name = hello.Name
	seat.mu.Unlock()
	w := welcome(side)
	s.mu.Unlock()

	if err := writeJSON(conn, w); err != nil {
		seat.detach()
		return nil, err
	}
	close(seat.connected)
	return seat, nil
}

func drain(conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case b := <-out:
			if writeRaw(conn, b) != nil {
				return
			}
		default:
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(conn, b)
}

func writeRaw(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
