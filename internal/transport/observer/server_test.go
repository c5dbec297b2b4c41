package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kitchenrush.ai/internal/observerproto"
	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/game"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(snapshot.MatchHeaderV1{MatchID: "obs-test", Seed: 4}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", h.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", h.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return h, ts
}

func subscribe(t *testing.T, h *Hub, ts *httptest.Server, skipResults bool) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sub := observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, SkipResults: skipResults}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("SUBSCRIBE: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for h.Sessions() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func frame(turn int) snapshot.FrameV1 {
	f := snapshot.FrameV1{Turn: turn, Digest: "d", Status: "RUNNING"}
	f.Results[0] = []snapshot.ActResultV1{{Robot: 0, Kind: "move", DX: 1, OK: true}}
	return f
}

func TestHubStreamsFramesThenEnd(t *testing.T) {
	h, ts := newTestServer(t)
	conn := subscribe(t, h, ts, true)
	defer conn.Close()

	for turn := 0; turn < 2; turn++ {
		if err := h.WriteFrame(frame(turn)); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	h.Finish(game.Outcome{Winner: "RED", Turns: 2, Reason: game.EndTurnLimit})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for turn := 0; turn < 2; turn++ {
		var msg observerproto.FrameMsg
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read frame %d: %v", turn, err)
		}
		if msg.Type != observerproto.TypeFrame || msg.Frame.Turn != turn {
			t.Fatalf("frame %d: %+v", turn, msg)
		}
		if len(msg.Frame.Results[0]) != 0 {
			t.Fatalf("results not stripped: %+v", msg.Frame.Results)
		}
	}
	var end observerproto.EndMsg
	if err := conn.ReadJSON(&end); err != nil {
		t.Fatalf("read END: %v", err)
	}
	if end.Type != observerproto.TypeEnd || end.Result.Winner != "RED" {
		t.Fatalf("end: %+v", end)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}

func TestBootstrapReportsLatest(t *testing.T) {
	h, ts := newTestServer(t)
	_ = h.WriteFrame(frame(0))
	_ = h.WriteFrame(frame(1))

	resp, err := http.Get(ts.URL + "/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Match.MatchID != "obs-test" || b.Turn != 2 || b.Latest == nil || b.Latest.Turn != 1 || b.Result != nil {
		t.Fatalf("bootstrap: %+v", b)
	}
	if len(b.Latest.Results[0]) != 1 {
		t.Fatalf("bootstrap frame lost results")
	}
}

func TestRejectsNonLoopback(t *testing.T) {
	h := NewHub(snapshot.MatchHeaderV1{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/observer/bootstrap", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	rec := httptest.NewRecorder()
	h.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: %d", rec.Code)
	}

	h.AllowRemote = true
	rec = httptest.NewRecorder()
	h.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with AllowRemote: %d", rec.Code)
	}
}
