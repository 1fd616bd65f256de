package main

// Run database migrations:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate -down      revert the latest migration
//   go run ./cmd/migrate -version   print the applied schema version

import (
	"context"
	"flag"
	"log"
	"os"

	"resume-ats/internal/shared/config"
	"resume-ats/internal/shared/storage/db"
)

func main() {
	down := flag.Bool("down", false, "revert the most recent migration")
	versionOnly := flag.Bool("version", false, "print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *versionOnly:
	case *down:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			log.Printf("failed to roll back migration: %v", err)
			os.Exit(1)
		}
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	}

	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		log.Printf("failed to read schema version: %v", err)
		os.Exit(1)
	}
	log.Printf("schema version %d", version)
}
