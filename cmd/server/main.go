// Package main runs the Reelsmith API server: per-principal generation
// queues with credit budgeting, exposed over HTTP with a live event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phrazzld/reelsmith-api/internal/config"
	"github.com/phrazzld/reelsmith-api/internal/platform/logger"
	"github.com/phrazzld/reelsmith-api/internal/platform/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	migrate := flag.String("migrate", "", "run a migration command (up, down, status, version) and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *migrate); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, migrateCommand string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"ledger_driver", cfg.Credits.LedgerDriver,
		"realtime_driver", cfg.Realtime.Driver)

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if migrateCommand != "" {
		return postgres.Migrate(ctx, db, migrateCommand, log)
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, "up", log); err != nil {
			return err
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		return err
	}
	defer app.cleanup()

	return app.Run(ctx)
}
