package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pracame/internal/config"
	"pracame/internal/handler"
	"pracame/internal/handler/watch"
	"pracame/internal/service/answer"
	convoservice "pracame/internal/service/convo"
	"pracame/internal/service/retrieval"
	turnservice "pracame/internal/service/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := openIndex(cfg.Index)
	if err != nil {
		log.Fatalf("failed to open passage index: %v", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	embedder, err := cfg.AI.NewEmbedder(ctx)
	if err != nil {
		log.Fatalf("failed to create embedding model: %v", err)
	}

	generator, err := answer.NewGenerator(ctx, chatModel)
	if err != nil {
		log.Fatalf("failed to build answer generator: %v", err)
	}

	store := retrieval.NewStore(db, embedder)
	convoSvc := convoservice.NewService()
	hub := watch.NewHub(convoSvc)

	controller := turnservice.NewController(store, generator, turnservice.Config{
		Threshold:       cfg.Retrieval.RelevanceThreshold,
		RetrievalK:      cfg.Retrieval.K,
		HistoryWindow:   cfg.Retrieval.HistoryWindow,
		SearchTimeout:   cfg.Retrieval.SearchTimeout,
		GenerateTimeout: cfg.Retrieval.GenerateTimeout,
	}, hub.Notify)

	router := handler.NewRouter(convoSvc, controller, hub)

	startServer(ctx, cfg.Server, router)
}

// openIndex connects to the passage index and verifies it is
// reachable. An unreachable index at startup is fatal; at query time
// it degrades to "no evidence" instead.
func openIndex(cfg config.IndexConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgresdriver.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, err
	}

	return db, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Pracame backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
