package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"coursebridge/internal/app"
	"coursebridge/internal/config"
	"coursebridge/internal/logger"
	"coursebridge/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	if cfg.KafkaBrokers == "" {
		logger.Fatal("KAFKA_BROKERS is required for the worker")
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application: %v", err)
	}
	defer a.Close()

	// Initialize worker
	w := worker.New(cfg, logger, a.Processor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker
	logger.Info("Starting worker...")
	go w.Start(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	w.Stop()
}
