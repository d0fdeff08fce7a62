package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cert-verification/internal/config"
	"cert-verification/internal/db"
	"cert-verification/internal/logger"
	"cert-verification/internal/ocr"
	"cert-verification/internal/queue"
	"cert-verification/internal/storage"
	"cert-verification/internal/store"
	"cert-verification/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting verification worker")

	// Initialize database (reference record store)
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize document storage
	blobs, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document storage")
	}

	// Initialize result store and conversion/recognition adapter
	results := store.NewRedisStore(redisClient.Client(), cfg)
	adapter := ocr.NewAdapter(cfg, ocr.NewPopplerRasterizer(cfg), ocr.NewTesseractRecognizer(cfg))

	// Create verification worker
	verifyWorker := worker.NewVerifyWorker(cfg, results, blobs, adapter, repo, redisClient)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker
	go func() {
		if err := verifyWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Verification worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down verification worker...")

	// Cancel context to stop worker
	cancel()
	verifyWorker.Stop()

	log.Info().Msg("Verification worker exited")
}
