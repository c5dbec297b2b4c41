// Package observer streams resolved turns to renderers and spectators.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"kitchenrush.ai/internal/observerproto"
	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/game"
)

type session struct {
	id          string
	skipResults bool
	out         chan []byte
}

// Hub is a game.FrameWriter that fans frames out to observer sessions. Slow
// sessions lose frames rather than stall the engine.
type Hub struct {
	log *slog.Logger

	// AllowRemote serves non-loopback clients too.
	AllowRemote bool

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	header   snapshot.MatchHeaderV1
	latest   *snapshot.FrameV1
	result   *game.Outcome
	sessions map[string]*session
	done     chan struct{}

	dropped atomic.Uint64
}

func NewHub(header snapshot.MatchHeaderV1, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		log:    logger,
		header: header,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
		done:     make(chan struct{}),
	}
}

// WriteFrame implements game.FrameWriter.
func (h *Hub) WriteFrame(f snapshot.FrameV1) error {
	full, err := json.Marshal(observerproto.FrameMsg{Type: observerproto.TypeFrame, ProtocolVersion: observerproto.Version, Frame: f})
	if err != nil {
		return err
	}
	var lean []byte

	h.mu.Lock()
	defer h.mu.Unlock()
	fc := f
	h.latest = &fc
	for _, s := range h.sessions {
		b := full
		if s.skipResults && len(f.Results[0])+len(f.Results[1]) > 0 {
			if lean == nil {
				g := f
				g.Results = [2][]snapshot.ActResultV1{}
				lean, _ = json.Marshal(observerproto.FrameMsg{Type: observerproto.TypeFrame, ProtocolVersion: observerproto.Version, Frame: g})
			}
			b = lean
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Finish pushes END to every session and closes them.
func (h *Hub) Finish(out game.Outcome) {
	b, _ := json.Marshal(observerproto.EndMsg{Type: observerproto.TypeEnd, ProtocolVersion: observerproto.Version, Result: out})
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.result != nil {
		return
	}
	h.result = &out
	for _, s := range h.sessions {
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
	close(h.done)
}

// Sessions is the number of connected observers.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Dropped counts frames not delivered to slow sessions.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !h.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		h.mu.Lock()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Match:           h.header,
			Latest:          h.latest,
			Result:          h.result,
		}
		if h.latest != nil {
			resp.Turn = h.latest.Turn + 1
		}
		h.mu.Unlock()

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !h.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		s := &session{
			id:          fmt.Sprintf("O%d", h.nextID.Add(1)),
			skipResults: sub.SkipResults,
			out:         make(chan []byte, 64),
		}
		h.mu.Lock()
		finished := h.result != nil
		if !finished {
			h.sessions[s.id] = s
		}
		h.mu.Unlock()
		if finished {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over"), time.Now().Add(time.Second))
			return
		}
		h.log.Debug("observer joined", "session", s.id, "remote", r.RemoteAddr)
		defer func() {
			h.mu.Lock()
			delete(h.sessions, s.id)
			h.mu.Unlock()
			h.log.Debug("observer left", "session", s.id)
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-s.out:
					if err := write(conn, b); err != nil {
						writeErr <- err
						return
					}
				case <-h.done:
					if err := drain(conn, s.out); err != nil {
						writeErr <- err
						return
					}
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over"), time.Now().Add(time.Second))
					writeErr <- nil
					return
				}
			}
		}()

		// Reader loop: only control frames are expected after SUBSCRIBE.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func drain(conn *websocket.Conn, out <-chan []byte) error {
	for {
		select {
		case b := <-out:
			if err := write(conn, b); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func write(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
