package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/database"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/metrics"
	"trade-journal-go/internal/quotes"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	store := database.NewStore(db, log)

	// Quote source and the caches in front of it
	restClient := quotes.NewRestClient(&cfg.Quotes, log)
	quoteCache := quotes.NewCache(
		restClient,
		time.Duration(cfg.Quotes.CacheTTLMinutes)*time.Minute,
		time.Duration(cfg.Quotes.FailureWindowMinutes)*time.Minute,
		log,
	)
	seriesCache := quotes.NewSeriesCache(
		cfg.Quotes.SeriesCacheCapacity,
		time.Duration(cfg.Quotes.SeriesCacheTTLHours)*time.Hour,
		log,
	)
	history := quotes.NewHistory(restClient, seriesCache, log)

	// Metrics orchestrator
	orchestrator := metrics.NewOrchestrator(quoteCache, store, store, cfg.Journal.StartingCapital, log)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize the journal engine and its API
	engine := journal.NewEngine(log, &cfg, store, orchestrator)
	api := journal.NewAPIServer(engine, history, log)
	api.Start()

	engine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}

	log.Info("Journal has been shut down.")
}
