package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/counter-pos/internal/config"
	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/pos"
	"github.com/safar/counter-pos/internal/shell"
	"github.com/safar/counter-pos/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("terminal stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	logger.Info("terminal started", "storage", cfg.Storage.Backend)

	console := shell.NewLineConsole(os.Stdin, os.Stdout)
	return shell.New(s, console, cfg.Terminal, logger).Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pos.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		db, err := database.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		s, err := store.OpenPostgresStore(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}

		return s, closeDB(db, logger), nil

	default:
		s, err := store.OpenFileStore(cfg.Storage, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store in %s: %w", cfg.Storage.DataDir, err)
		}
		return s, func() {}, nil
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}
}
