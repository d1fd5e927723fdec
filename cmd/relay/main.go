// Package main provides the relay binary that orders and fans out the
// commands of two-player games over websockets.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/relay"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrations := flag.String("migrations", "", "apply migrations from this directory before serving (persistent mode)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "relay")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting relay",
		zap.String("addr", cfg.Relay.Addr()),
		zap.String("mode", cfg.Server.Mode),
	)

	lifecycle := server.NewLifecycle(logger)

	var store relay.Store = relay.NopStore{}
	if cfg.Server.Persistent() {
		if *migrations != "" {
			res, err := postgres.Migrate(cfg.Database.DSN(), *migrations, postgres.Up, 0)
			if err != nil {
				logger.Fatal("migrating database", zap.Error(err))
			}
			logger.Info("schema ready", zap.Uint("version", res.Version), zap.Bool("changed", res.Changed))
		}
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		store = pool.RelayStore()
		lifecycle.Add("database", server.NewResource(pool.Close))
	}

	hub := relay.NewHub(cfg.Relay, command.DefaultRegistry(), store, logger)
	lifecycle.Add("relay", relay.NewServer(cfg.Relay, hub, logger))

	logger.Info("relay initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("relay stopped", zap.Error(err))
	}
}
