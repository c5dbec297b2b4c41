package main

import (
	"fmt"
	"net/http"

	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/transport/observer"
)

func metricsHandler(matchID string, eng *game.Engine, idx matchIndex, hub *observer.Hub) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := eng.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP kitchenrush_match_turn Last resolved turn.\n")
		fmt.Fprintf(rw, "# TYPE kitchenrush_match_turn gauge\n")
		fmt.Fprintf(rw, "kitchenrush_match_turn{match=%q} %d\n", matchID, m.Turn)

		fmt.Fprintf(rw, "# HELP kitchenrush_match_step_ms Last turn resolve duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE kitchenrush_match_step_ms gauge\n")
		fmt.Fprintf(rw, "kitchenrush_match_step_ms{match=%q} %.3f\n", matchID, m.StepMS)

		fmt.Fprintf(rw, "# HELP kitchenrush_team_money Team money.\n")
		fmt.Fprintf(rw, "# TYPE kitchenrush_team_money gauge\n")
		fmt.Fprintf(rw, "# HELP kitchenrush_team_forfeits_total Forfeited turns.\n")
		fmt.Fprintf(rw, "# TYPE kitchenrush_team_forfeits_total counter\n")
		fmt.Fprintf(rw, "# HELP kitchenrush_team_pending_orders Orders waiting for a dish.\n")
		fmt.Fprintf(rw, "# TYPE kitchenrush_team_pending_orders gauge\n")
		for _, side := range []game.Side{game.Red, game.Blue} {
			team := side.String()
			fmt.Fprintf(rw, "kitchenrush_team_money{match=%q,team=%q} %d\n", matchID, team, m.Money[side])
			fmt.Fprintf(rw, "kitchenrush_team_forfeits_total{match=%q,team=%q} %d\n", matchID, team, m.Forfeits[side])
			fmt.Fprintf(rw, "kitchenrush_team_pending_orders{match=%q,team=%q} %d\n", matchID, team, m.Pending[side])
		}

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP kitchenrush_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE kitchenrush_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "kitchenrush_index_queue_depth %d\n", s.QueueDepth)
			fmt.Fprintf(rw, "# HELP kitchenrush_index_dropped_total Index writes dropped under backpressure.\n")
			fmt.Fprintf(rw, "# TYPE kitchenrush_index_dropped_total counter\n")
			fmt.Fprintf(rw, "kitchenrush_index_dropped_total{kind=%q} %d\n", "match", s.DropMatchTotal)
			fmt.Fprintf(rw, "kitchenrush_index_dropped_total{kind=%q} %d\n", "turn", s.DropTurnTotal)
			fmt.Fprintf(rw, "kitchenrush_index_dropped_total{kind=%q} %d\n", "result", s.DropResultTotal)
			fmt.Fprintf(rw, "kitchenrush_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
		}

		if hub != nil {
			fmt.Fprintf(rw, "# HELP kitchenrush_observer_sessions Connected observers.\n")
			fmt.Fprintf(rw, "# TYPE kitchenrush_observer_sessions gauge\n")
			fmt.Fprintf(rw, "kitchenrush_observer_sessions %d\n", hub.Sessions())
			fmt.Fprintf(rw, "# HELP kitchenrush_observer_dropped_total Frames dropped for slow observers.\n")
			fmt.Fprintf(rw, "# TYPE kitchenrush_observer_dropped_total counter\n")
			fmt.Fprintf(rw, "kitchenrush_observer_dropped_total %d\n", hub.Dropped())
		}
	}
}
