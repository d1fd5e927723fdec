// Package main applies the relay's PostgreSQL schema migrations.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	dir := flag.String("migrations", "migrations", "path to the migrations directory")
	flag.Parse()

	dbCfg, err := config.LoadDatabase(*configPath)
	if err != nil {
		log.Fatalf("loading database config: %v", err)
	}

	d, err := postgres.ParseDirection(*direction)
	if err != nil {
		log.Fatal(err)
	}

	res, err := postgres.Migrate(dbCfg.DSN(), *dir, d, *steps)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if !res.Changed {
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", res.Version, res.Dirty, time.Since(start))
		return
	}
	fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", d, res.Version, res.Dirty, time.Since(start))
}
