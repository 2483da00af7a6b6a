// Package main provides the schema migration runner for the Fable knowledge
// store. It reads the database section of the game configuration, so the
// runner and the game always target the same instance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/oakmund/fable/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/fable.yaml", "path to configuration file")
	migrationsPath := flag.String("migrations", "migrations", "path to the migration files")
	dsn := flag.String("dsn", "", "database URL; overrides the configured database section")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		log.Fatalf("invalid direction %q: must be 'up' or 'down'", *direction)
	}

	url := *dsn
	if url == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		url = cfg.Database.DSN()
	}

	m, err := migrate.New("file://"+*migrationsPath, url)
	if err != nil {
		log.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migrating knowledge store schema: %v", err)
	}

	version, dirty, _ := m.Version()
	elapsed := time.Since(start)

	if err == migrate.ErrNoChange {
		fmt.Fprintf(os.Stdout, "knowledge store schema unchanged (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	} else {
		fmt.Fprintf(os.Stdout, "knowledge store schema migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
	}
}
