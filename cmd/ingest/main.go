package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pracame/internal/config"
	"pracame/internal/ingest"
)

// Offline index build: reads the documents directory, splits every
// file into overlapping windows, embeds them and rewrites the
// persisted passage index the API answers from.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgresdriver.Open(cfg.Index.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to open passage index: %v", err)
	}

	embedder, err := cfg.AI.NewEmbedder(ctx)
	if err != nil {
		log.Fatalf("failed to create embedding model: %v", err)
	}

	indexer := ingest.NewIndexer(db, embedder, cfg.Ingest)

	count, err := indexer.Rebuild(ctx)
	if err != nil {
		log.Fatalf("index rebuild failed: %v", err)
	}

	log.Printf("[ingest] index rebuilt with %d passages from %s", count, cfg.Ingest.DocsDir)
}
