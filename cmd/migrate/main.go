package main

import (
	"fmt"
	"os"

	"socialfeed/internal/config"
	"socialfeed/internal/database"
	"socialfeed/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infow("database config", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "database", cfg.Database.DBName)
	if err := database.Connect(cfg.Database, log); err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close()

	log.Info("running database migrations")
	if err := database.Migrate(log); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}
}
