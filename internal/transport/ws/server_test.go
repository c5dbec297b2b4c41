package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"kitchenrush.ai/internal/protocol"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
)

const testMap = `
#######
#$K.CU#
#.b...#
#######
ORDERS:
0 60 30 EGG
`

type idle struct{}

func (idle) PlayTurn(context.Context, *game.Controller) error { return nil }

func newMatch(t *testing.T, srv *Server, turns int) *game.Engine {
	t.Helper()
	spec, err := mapfile.Parse(strings.NewReader(testMap))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cats, err := catalogs.New([]catalogs.FoodDef{{ID: "EGG", BuyCost: 5, CanCook: true}}, nil)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tu := tuning.Defaults()
	tu.TotalTurns = turns
	tu.StartingMoney = 50
	tu.TurnTimeoutMs = 2000
	red := srv.Expect(game.Red, "secret")
	blue := func(game.Side, mapfile.Layout) (game.Bot, error) { return idle{}, nil }
	e, err := game.New(game.Config{MatchID: "ws-test", Seed: 1, Tuning: tu, Catalogs: cats}, spec, red.Factory(), blue)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.SetWelcome(e.Welcome)
	return e
}

func dial(t *testing.T, ts *httptest.Server, team, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Team: team, Name: "tester", Token: token}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("HELLO: %v", err)
	}
	return conn
}

type clientLog struct {
	welcome protocol.WelcomeMsg
	obs     int
	result  *protocol.ResultMsg
}

// play answers every OBS with reply(turn) until RESULT or close.
func play(conn *websocket.Conn, reply func(w protocol.WelcomeMsg, turn int) []byte) clientLog {
	var lg clientLog
	for {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return lg
		}
		env, err := protocol.Peek(msg)
		if err != nil {
			return lg
		}
		switch env.Type {
		case protocol.TypeWelcome:
			_ = json.Unmarshal(msg, &lg.welcome)
		case protocol.TypeObs:
			var obs protocol.ObsMsg
			_ = json.Unmarshal(msg, &obs)
			lg.obs++
			_ = conn.WriteMessage(websocket.TextMessage, reply(lg.welcome, obs.Turn))
		case protocol.TypeResult:
			var res protocol.ResultMsg
			_ = json.Unmarshal(msg, &res)
			lg.result = &res
		}
	}
}

func runMatch(t *testing.T, srv *Server, e *game.Engine) game.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	out, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	srv.Finish("ws-test", out)
	return out
}

func TestRemoteTeamPlaysMatch(t *testing.T) {
	srv := NewServer(nil)
	e := newMatch(t, srv, 3)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts, "RED", "secret")
	defer conn.Close()
	done := make(chan clientLog, 1)
	go func() {
		done <- play(conn, func(w protocol.WelcomeMsg, turn int) []byte {
			act := protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Turn: turn, Actions: []protocol.ActionReq{}}
			if turn == 0 {
				act.Actions = append(act.Actions, protocol.ActionReq{Robot: w.RobotIDs[0], Kind: protocol.ActBuy, X: 1, Y: 1, Item: "EGG"})
			}
			b, _ := json.Marshal(act)
			return b
		})
	}()

	out := runMatch(t, srv, e)
	if out.Forfeits != [2]int{} {
		t.Fatalf("forfeits: %+v", out.Forfeits)
	}
	if out.Money[game.Red] != 45 || out.Winner != "BLUE" {
		t.Fatalf("outcome: %+v", out)
	}

	lg := <-done
	if lg.welcome.Team != "RED" || len(lg.welcome.RobotIDs) != 1 || lg.welcome.MatchID != "ws-test" {
		t.Fatalf("welcome: %+v", lg.welcome)
	}
	if lg.obs != 3 {
		t.Fatalf("obs count: %d", lg.obs)
	}
	if lg.result == nil || lg.result.Winner != "BLUE" || lg.result.Turns != 3 || lg.result.RedMoney != 45 {
		t.Fatalf("result: %+v", lg.result)
	}
}

func TestRemoteMalformedActForfeits(t *testing.T) {
	srv := NewServer(nil)
	e := newMatch(t, srv, 2)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts, "RED", "secret")
	defer conn.Close()
	go play(conn, func(_ protocol.WelcomeMsg, turn int) []byte {
		if turn == 0 {
			return []byte(`{"type":"ACT","protocol_version":"1.0","turn":0,"actions":[{"robot":0,"kind":"fly"}]}`)
		}
		// Wrong turn number.
		b, _ := json.Marshal(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Turn: turn + 5, Actions: []protocol.ActionReq{}})
		return b
	})

	out := runMatch(t, srv, e)
	if out.Forfeits[game.Red] != 2 || out.Forfeits[game.Blue] != 0 {
		t.Fatalf("forfeits: %+v", out.Forfeits)
	}
}

func TestHandshakeRejects(t *testing.T) {
	srv := NewServer(nil)
	newMatch(t, srv, 1)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	cases := []struct{ team, token string }{
		{"BLUE", "secret"}, // no seat
		{"RED", "wrong"},
		{"GREEN", "secret"},
	}
	for _, tc := range cases {
		conn := dial(t, ts, tc.team, tc.token)
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, err := conn.ReadMessage()
		var ce *websocket.CloseError
		if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
			t.Fatalf("%s/%s: got %v", tc.team, tc.token, err)
		}
		if !strings.HasPrefix(ce.Text, protocol.ErrProtoBadRequest) {
			t.Fatalf("%s/%s: close reason %q", tc.team, tc.token, ce.Text)
		}
		conn.Close()
	}

	first := dial(t, ts, "RED", "secret")
	defer first.Close()
	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := first.ReadMessage(); err != nil {
		t.Fatalf("first WELCOME: %v", err)
	}
	second := dial(t, ts, "RED", "secret")
	defer second.Close()
	_ = second.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := second.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("second claim: got %v", err)
	}
}
