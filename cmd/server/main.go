package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/earthlord-game/server/internal/catalog"
	"github.com/earthlord-game/server/internal/config"
	"github.com/earthlord-game/server/internal/database"
	"github.com/earthlord-game/server/internal/migrations"
	"github.com/earthlord-game/server/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Catalog ---
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading building catalog: %w", err)
	}
	logger.Info("loaded building catalog", "templates", len(cat.List()))

	// --- Store ---
	store := server.NewSQLiteStore(db)
	if err := store.SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:  logger,
		DB:      db,
		Store:   store,
		Catalog: cat,
		Broker:  server.NewBroker(),
		Tracking: server.TrackingRules{
			ClosureToleranceM: cfg.ClosureToleranceM,
			MinTrackPoints:    cfg.MinTrackPoints,
		},
		Upgrades: server.UpgradeRules{
			CostFactor: cfg.UpgradeCostFactor,
			TimeFactor: cfg.UpgradeTimeFactor,
		},
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
