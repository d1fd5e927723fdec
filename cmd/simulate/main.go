// Package main replays a scripted game offline through a local session and
// prints the resulting game log.
package main

import (
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty uses defaults")
	teamsDir := flag.String("teams", "", "path to team YAML directory; overrides game.content_dir")
	scriptPath := flag.String("script", "", "path to the YAML command script")
	seed := flag.Uint64("seed", 0, "dice seed; overrides the script and config seeds when non-zero")
	flag.Parse()

	if *scriptPath == "" {
		log.Fatal("-script is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "simulate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	dir := cfg.Game.ContentDir
	if *teamsDir != "" {
		dir = *teamsDir
	}
	teams, err := roster.LoadDirectory(dir)
	if err != nil {
		logger.Fatal("loading teams", zap.String("dir", dir), zap.Error(err))
	}

	script, err := LoadScript(*scriptPath)
	if err != nil {
		logger.Fatal("loading script", zap.Error(err))
	}
	if script.TurningPoints == 0 {
		script.TurningPoints = cfg.Game.TurningPoints
	}

	src := dice.NewCryptoSource()
	switch {
	case *seed != 0:
		src = dice.NewSeededSource(*seed)
	case script.Seed != 0:
		src = dice.NewSeededSource(script.Seed)
	case cfg.Game.Seed != 0:
		src = dice.NewSeededSource(cfg.Game.Seed)
	}

	res, err := Run(script, teams, src, logger, os.Stdout)
	if err != nil {
		logger.Fatal("running script", zap.Error(err))
	}
	logger.Info("script finished",
		zap.Int("accepted", res.Accepted),
		zap.Int("rejected", res.Rejected),
		zap.String("phase", string(res.Final.Phase)),
	)
	if res.Rejected > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.LoadFromViper(config.Defaults())
	}
	return config.Load(path)
}
