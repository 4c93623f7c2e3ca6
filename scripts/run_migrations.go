package main

import (
	"context"
	"log"
	"os"

	"github.com/safar/counter-pos/internal/config"
	"github.com/safar/counter-pos/internal/database"
	"github.com/safar/counter-pos/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != store.MigrateUp && direction != store.MigrateDown {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	applied, err := store.Migrate(ctx, db, direction)
	if err != nil {
		log.Fatalf("Migrate: %v", err)
	}

	for _, name := range applied {
		log.Printf("Ran migration: %s", name)
	}
	log.Printf("Successfully ran %d migration(s) %s", len(applied), direction)
}
