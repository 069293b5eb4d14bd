package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/powergrid/internal/api"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/engine"
	"github.com/gyaneshwarpardhi/powergrid/internal/sim"
	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/grid.yaml", "Path to topology YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid log level", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	kinds := source.Defaults()
	if err := config.Validate(cfg, kinds); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Build initial world ───────────────────────────────────────────────────
	world, err := sim.Build(cfg, kinds, logger)
	if err != nil {
		slog.Error("failed to build world", "err", err)
		os.Exit(1)
	}
	slog.Info("world built", "relays", len(cfg.Relays), "networks", world.Grid().Len())

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, world, cfg.Engine, logger)

	rebuild := func(ctx context.Context, newCfg *config.GridConfig) error {
		if err := config.Validate(newCfg, kinds); err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		newWorld, err := sim.Build(newCfg, kinds, logger)
		if err != nil {
			return fmt.Errorf("world build failed: %w", err)
		}
		if err := eng.SwapWorld(ctx, newWorld); err != nil {
			// Not installed: the world is ours to discard.
			newWorld.Close()
			return err
		}
		slog.Info("world hot-reloaded", "relays", len(newCfg.Relays), "networks", newWorld.Grid().Len())
		return nil
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	var (
		reloadMu  sync.Mutex
		reloadErr error
	)
	loader.OnChange(func(newCfg *config.GridConfig) {
		err := rebuild(ctx, newCfg)
		reloadMu.Lock()
		reloadErr = err
		reloadMu.Unlock()
		if err != nil {
			slog.Warn("hot-reload skipped", "err", err)
		}
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
		stopWatch = func() {}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	// The OnChange callback above does the rebuild; the route reports its outcome.
	reload := func(r *http.Request) (*config.GridConfig, error) {
		newCfg, err := loader.Reload()
		if err != nil {
			return nil, err
		}
		reloadMu.Lock()
		defer reloadMu.Unlock()
		if reloadErr != nil {
			return nil, reloadErr
		}
		return newCfg, nil
	}
	handler := api.New(eng, reload)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	stopWatch()
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}
