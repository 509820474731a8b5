// Command astrogator runs the galaxy map engine and its HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/astrogator/internal/api"
	"github.com/talgya/astrogator/internal/config"
	"github.com/talgya/astrogator/internal/demo"
	"github.com/talgya/astrogator/internal/fleet"
	"github.com/talgya/astrogator/internal/galaxy"
	"github.com/talgya/astrogator/internal/roster"
	"github.com/talgya/astrogator/internal/settings"
	"github.com/talgya/astrogator/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("Astrogator — Galaxy Map Engine")

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Registries and settings ──────────────────────────────────────
	players := roster.NewRegistry(db)
	units := fleet.NewRegistry(db)
	sets := settings.NewStore(db)

	// Seed the default scan range once so the UI has a value to edit.
	if _, ok, err := sets.Get(galaxy.SettingDefaultScanRange); err != nil {
		slog.Error("failed to read settings", "error", err)
		os.Exit(1)
	} else if !ok {
		if err := sets.SetInt(galaxy.SettingDefaultScanRange, cfg.DefaultScanRange); err != nil {
			slog.Error("failed to seed default scan range", "error", err)
			os.Exit(1)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	metrics := galaxy.NewMetrics(prometheus.DefaultRegisterer)
	svc := galaxy.NewService(db, players, units, sets, metrics)

	// Player and unit edits invalidate the cache; settings edits only
	// matter for the default scan range, which the engine filters itself.
	players.Subscribe(func() { svc.OnExternalChange(galaxy.ChangePlayers) })
	units.Subscribe(func() { svc.OnExternalChange(galaxy.ChangeUnits) })
	sets.Subscribe(svc.OnSettingChange)

	// ── Demo seed ─────────────────────────────────────────────────────
	if cfg.DemoWorlds > 0 {
		existing, err := svc.Worlds()
		if err != nil {
			slog.Error("failed to list worlds", "error", err)
			os.Exit(1)
		}
		if len(existing) == 0 {
			demoCfg := demo.DefaultConfig()
			demoCfg.Worlds = cfg.DemoWorlds
			demoCfg.Turns = cfg.DemoTurns
			if err := demo.Seed(svc, players, units, demoCfg); err != nil {
				slog.Error("demo seed failed", "error", err)
				os.Exit(1)
			}
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("admin_key not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Svc:      svc,
		Players:  players,
		Units:    units,
		Settings: sets,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	info, err := svc.MapInfo()
	if err != nil {
		slog.Error("failed to read map info", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\nAstrogator ready: turns 1..%d, map (%d,%d)-(%d,%d).\n",
		info.MaxTurn, info.MinX, info.MinY, info.MaxX, info.MaxY)
	fmt.Printf("API: http://localhost:%d/api/v1/worlds\n", cfg.Port)
	fmt.Println("Ctrl+C to stop.")

	// ── Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}
