package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"kitchenrush.ai/internal/bots"
	persistlog "kitchenrush.ai/internal/persistence/log"
	"kitchenrush.ai/internal/persistence/replay"
	"kitchenrush.ai/internal/persistence/snapshot"
	"kitchenrush.ai/internal/sim/catalogs"
	"kitchenrush.ai/internal/sim/game"
	"kitchenrush.ai/internal/sim/mapfile"
	"kitchenrush.ai/internal/sim/tuning"
	"kitchenrush.ai/internal/transport/observer"
	"kitchenrush.ai/internal/transport/ws"
)

const remoteBot = "remote"

func main() {
	ctx, cancel := signalContext()
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		red        = fs.String("red", "chef", "red control code: "+strings.Join(bots.Names(), "|")+"|remote")
		blue       = fs.String("blue", "chef", "blue control code (same choices as -red)")
		mapPath    = fs.String("map", "./configs/maps/diner.txt", "map file")
		configDir  = fs.String("configs", "./configs", "config directory")
		tuningPath = fs.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		turns      = fs.Int("turns", 0, "override total_turns")
		timeout    = fs.Duration("timeout", 0, "override the per-turn decision timeout")
		fps        = fs.Int("fps", 10, "turns per second while rendering")
		render     = fs.Bool("render", false, "serve the observer stream and pace the match at -fps")
		addr       = fs.String("addr", ":8080", "http listen address (empty to disable)")
		replayPath = fs.String("replay", "", "replay output path (default: <data>/matches/<id>/replay.jsonl.zst)")
		dataDir    = fs.String("data", "./data", "runtime data directory")
		disableDB  = fs.Bool("disable_db", false, "disable the match index")
		seed       = fs.Int64("seed", 1, "match seed")
		logLevel   = fs.String("log_level", "info", "debug|info|warn|error")
		token      = fs.String("remote_token", "", "token remote teams must present in HELLO (optional)")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level, err := parseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(stderr, "bad -log_level:", err)
		return 2
	}
	logger := newLogger(stderr, level)

	remote := *red == remoteBot || *blue == remoteBot
	if remote && strings.TrimSpace(*addr) == "" {
		fmt.Fprintln(stderr, "remote teams need -addr")
		return 2
	}
	if *render && strings.TrimSpace(*addr) == "" {
		fmt.Fprintln(stderr, "-render needs -addr")
		return 2
	}

	teams := ws.NewServer(logger)
	redF, err := resolveTeam(*red, game.Red, teams, *token)
	if err != nil {
		fmt.Fprintln(stderr, "-red:", err)
		return 2
	}
	blueF, err := resolveTeam(*blue, game.Blue, teams, *token)
	if err != nil {
		fmt.Fprintln(stderr, "-blue:", err)
		return 2
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Error("load catalogs", "err", err)
		return 1
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error("load tuning", "err", err)
			return 1
		}
		logger.Warn("tuning not found; using defaults", "path", tp)
		tune = tuning.Defaults()
	}
	if *turns > 0 {
		tune.TotalTurns = *turns
	}
	if *timeout > 0 {
		tune.TurnTimeoutMs = int(*timeout / time.Millisecond)
	}
	if err := tune.Validate(); err != nil {
		logger.Error("tuning", "err", err)
		return 1
	}
	spec, err := mapfile.Load(*mapPath)
	if err != nil {
		logger.Error("load map", "err", err)
		return 1
	}

	matchID := uuid.NewString()
	cfg := game.Config{MatchID: matchID, Seed: *seed, Tuning: tune, Catalogs: cats}
	if *render {
		cfg.FPS = *fps
	}
	eng, err := game.New(cfg, spec, redF, blueF)
	if err != nil {
		logger.Error("match setup", "err", err)
		return 1
	}
	eng.SetLogger(logger.With("match_id", matchID))
	header := eng.MatchHeader(*red, *blue)

	matchDir := filepath.Join(*dataDir, "matches", matchID)
	rp := strings.TrimSpace(*replayPath)
	if rp == "" {
		rp = filepath.Join(matchDir, "replay.jsonl.zst")
	}
	rpw, err := replay.Create(rp, header)
	if err != nil {
		logger.Error("create replay", "err", err)
		return 1
	}
	defer rpw.Close()

	// Optional: read-model index (does not affect determinism).
	idx, err := openMatchIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Error("open index backend", "err", err)
		return 1
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Warn("index backend: upsert catalogs", "err", err)
		}
		idx.RecordMatch(header)
	}

	turnLog := persistlog.NewTurnLogger(filepath.Join(matchDir, "turns.jsonl.zst"))
	defer turnLog.Close()
	tl := multiTurnLogger{a: turnLog}
	if idx != nil {
		tl.b = idx.Match(matchID)
	}
	eng.SetTurnLogger(tl)

	var hub *observer.Hub
	if *render {
		hub = observer.NewHub(header, logger)
	}
	eng.SetFrameWriter(multiFrameWriter{a: rpw, b: hub})

	teams.SetWelcome(eng.Welcome)

	var srv *http.Server
	if strings.TrimSpace(*addr) != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(200)
			_, _ = fmt.Fprintf(rw, "ok status=%s turn=%d\n", eng.Status(), eng.CurrentTurn())
		})
		mux.HandleFunc("/metrics", metricsHandler(matchID, eng, idx, hub))
		mux.HandleFunc("/v1/team/ws", teams.Handler())
		if hub != nil {
			mux.HandleFunc("/v1/observer/bootstrap", hub.BootstrapHandler())
			mux.HandleFunc("/v1/observer/ws", hub.WSHandler())
		}
		ln, err := net.Listen("tcp", *addr)
		if err != nil {
			logger.Error("listen", "addr", *addr, "err", err)
			return 1
		}
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				logger.Error("http server stopped", "err", err)
			}
		}()
		defer func() {
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = srv.Shutdown(ctx2)
		}()
		logger.Info("listening", "addr", ln.Addr().String())
	}

	if remote {
		logger.Info("waiting for remote teams", "red", *red, "blue", *blue)
		if err := teams.WaitReady(ctx); err != nil {
			logger.Error("remote teams never connected", "err", err)
			return 1
		}
	}

	out, runErr := eng.Run(ctx)
	teams.Finish(matchID, out)
	if hub != nil {
		hub.Finish(out)
	}
	if err := rpw.WriteResult(out); err != nil {
		logger.Warn("replay result", "err", err)
	}

	snap := eng.Snapshot(*red, *blue)
	snapPath := filepath.Join(matchDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Turn))
	if err := snapshot.WriteSnapshot(snapPath, snap); err != nil {
		logger.Warn("snapshot write", "err", err)
	} else if idx != nil {
		idx.RecordSnapshot(snapPath, snap)
	}
	if idx != nil {
		idx.RecordResult(matchID, out)
	}

	logger.Info("match finished",
		"match_id", matchID, "winner", out.Winner, "reason", out.Reason, "turns", out.Turns,
		"red_money", out.Money[game.Red], "blue_money", out.Money[game.Blue], "replay", rp)
	printJSON(stdout, struct {
		MatchID string `json:"match_id"`
		game.Outcome
		Replay string `json:"replay"`
	}{matchID, out, rp})

	if runErr != nil {
		return 1
	}
	return 0
}

func resolveTeam(name string, side game.Side, teams *ws.Server, token string) (game.Factory, error) {
	if name == remoteBot {
		return teams.Expect(side, token).Factory(), nil
	}
	return bots.Lookup(name)
}

type multiTurnLogger struct {
	a game.TurnLogger
	b game.TurnLogger
}

func (m multiTurnLogger) WriteTurn(entry game.TurnLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTurn(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTurn(entry)
	}
	return nil
}

type multiFrameWriter struct {
	a *replay.Writer
	b *observer.Hub
}

func (m multiFrameWriter) WriteFrame(f snapshot.FrameV1) error {
	var err error
	if m.a != nil {
		err = m.a.WriteFrame(f)
	}
	if m.b != nil {
		_ = m.b.WriteFrame(f)
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
