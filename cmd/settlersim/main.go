// Command settlersim runs an autonomous hex settlement match.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/talgya/settlersim/internal/api"
	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/persistence"
	"github.com/talgya/settlersim/internal/transport/ws"
	"github.com/talgya/settlersim/internal/tuning"
	"github.com/talgya/settlersim/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("settlersim: autonomous hex settlement match")

	// ── Tuning ───────────────────────────────────────────────────────
	tuningPath := os.Getenv("SETTLERSIM_TUNING")
	if tuningPath == "" {
		tuningPath = "configs/tuning.yaml"
	}
	tu, err := tuning.Load(tuningPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Warn("tuning file not found, using defaults", "path", tuningPath)
		tu = tuning.Default()
	case err != nil:
		slog.Error("failed to load tuning", "path", tuningPath, "error", err)
		os.Exit(1)
	default:
		slog.Info("tuning loaded", "path", tuningPath)
	}

	apiPort := 8080
	if p := os.Getenv("SETTLERSIM_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			slog.Error("invalid SETTLERSIM_PORT", "value", p, "error", err)
			os.Exit(1)
		}
		apiPort = n
	}

	// ── Journal ──────────────────────────────────────────────────────
	dbPath := tu.Journal.DBPath
	journal, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open journal", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer journal.Close()
	slog.Info("journal opened", "path", dbPath)

	eventLog := persistence.NewEventLog(tu.Journal.LogDir, "events")
	defer eventLog.Close()

	// ── Match ────────────────────────────────────────────────────────
	match := engine.NewMatch(tu.MatchConfig())

	land := 0
	counts := map[world.TileType]int{}
	for _, t := range match.Board.Tiles() {
		counts[t.Type]++
		if t.Type.IsLand() {
			land++
		}
	}
	for t, c := range counts {
		slog.Info("terrain", "type", t, "count", c)
	}
	for _, p := range match.Players() {
		slog.Info("seat", "id", p.ID, "name", p.Name, "kind", p.Kind, "skill", p.Skill)
	}

	hub := ws.NewHub(match.Bus.Recent)
	match.Bus.Subscribe(journal.Add)
	match.Bus.Subscribe(eventLog.Observe)
	match.Bus.Subscribe(hub.Publish)

	if err := journal.SaveMeta("seed", strconv.FormatInt(match.Seed(), 10)); err != nil {
		slog.Error("initial save failed", "error", err)
	}

	eng := engine.NewEngine(tu.TickRate)

	// Wire tick callbacks. Events go to sqlite every second, standings every minute.
	eng.OnTick = func(tick uint64, now float64) {
		match.Step(tick, now, eng.Dt)
	}
	eng.OnSecond = func(tick uint64, now float64) {
		if err := journal.Flush(); err != nil {
			slog.Error("journal flush failed", "error", err)
		}
	}
	eng.OnMinute = func(tick uint64, now float64) {
		match.Report()
		if err := journal.SaveMatch(match); err != nil {
			slog.Error("periodic save failed", "error", err)
		}
		if err := eventLog.Flush(); err != nil {
			slog.Error("event log flush failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("SETTLERSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("SETTLERSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Match:    match,
		Eng:      eng,
		Journal:  journal,
		Hub:      hub,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nMatch %d: %d seats on %d land tiles.\n", match.Seed(), len(match.Seats()), land)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Printf("Stream: ws://localhost:%d/api/v1/stream\n", apiPort)
	fmt.Println("Starting match... (Ctrl+C to stop)")

	eng.Run()

	slog.Info("final save...")
	if err := journal.Flush(); err != nil {
		slog.Error("final event flush failed", "error", err)
	}
	if err := journal.SaveMatch(match); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if err := eventLog.Err(); err != nil {
		slog.Error("event log write failed", "error", err)
	}
	fmt.Println("Match stopped. Journal saved.")
}
