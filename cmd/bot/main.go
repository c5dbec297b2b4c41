package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/lmittmann/tint"

	"kitchenrush.ai/internal/protocol"
)

// Sample remote team. It only serves orders whose foods need no preparation:
// buy at a shop, walk to a submit counter, hand it in.
func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/team/ws", "team ws url")
		team  = flag.String("team", "RED", "RED|BLUE")
		name  = flag.String("name", "courier", "team name")
		token = flag.String("token", "", "seat token (if the match requires one)")
		foods = flag.String("foods", "NOODLES,SAUCE", "foods served as bought")
	)
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Error("dial", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Team:            strings.ToUpper(*team),
		Name:            *name,
		Token:           *token,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Error("send HELLO", "err", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	c := newCourier(strings.Split(*foods, ","))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Info("connection closed", "err", err)
			return
		}
		env, err := protocol.Peek(msg)
		if err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			c.welcome(w)
			logger.Info("WELCOME", "match_id", w.MatchID, "team", w.Team, "robots", w.RobotIDs, "turns", w.MatchParams.TotalTurns)

		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				continue
			}
			act := protocol.ActMsg{
				Type:            protocol.TypeAct,
				ProtocolVersion: protocol.Version,
				Turn:            obs.Turn,
				Actions:         c.decide(obs),
			}
			if err := conn.WriteJSON(act); err != nil {
				logger.Error("send ACT", "err", err)
				return
			}

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			logger.Info("RESULT", "winner", r.Winner, "reason", r.Reason, "red", r.RedMoney, "blue", r.BlueMoney, "turns", r.Turns)
		}
	}
}
