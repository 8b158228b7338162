package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/olympe-app/portfolio-service/internal/api"
	"github.com/olympe-app/portfolio-service/internal/cache"
	"github.com/olympe-app/portfolio-service/internal/config"
	"github.com/olympe-app/portfolio-service/internal/database"
	"github.com/olympe-app/portfolio-service/internal/kafka"
	"github.com/olympe-app/portfolio-service/internal/portfolio"
	"github.com/olympe-app/portfolio-service/internal/pricing"
	"github.com/olympe-app/portfolio-service/internal/summary"
)

func main() {
	// Load .env when present; real deployments set the environment.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid APP_TIMEZONE %q: %v", cfg.Timezone, err)
	}

	// Connect to database
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(cfg.Database.ConnectionString()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("Connected to PostgreSQL database")

	// Connect to Redis
	cacheClient, err := cache.New(cfg.Redis, cfg.Providers.CacheTTL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v (continuing without cache)", err)
		cacheClient = nil
	} else {
		defer cacheClient.Close()
		log.Println("Connected to Redis cache")
	}

	// Price provider chain: finnhub, then eodhd, then yahoo.
	finnhub := pricing.NewFinnhub(cfg.Providers.Finnhub, cfg.Providers.Timeout, cfg.Providers.RequestsPerSecond)
	eodhd := pricing.NewEODHD(cfg.Providers.EODHD, cfg.Providers.Timeout, cfg.Providers.RequestsPerSecond)
	yahoo := pricing.NewYahoo(cfg.Providers.Yahoo, cfg.Providers.Timeout, cfg.Providers.RequestsPerSecond)

	var quoteCache pricing.QuoteCache
	if cacheClient != nil {
		quoteCache = cacheClient
	}
	resolver := pricing.NewResolver(quoteCache, finnhub, eodhd, yahoo)

	// Create Kafka producer for movement events
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.MovementsTopic)
	defer producer.Close()
	log.Printf("Kafka producer initialized (brokers: %v)", cfg.Kafka.Brokers)

	var notifier portfolio.PriceNotifier
	if cacheClient != nil {
		notifier = cacheClient
	}
	svc := portfolio.NewService(db, resolver, yahoo, producer, notifier, loc)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and start Kafka consumer for the external price feed
	consumer := kafka.NewPriceConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.PricesTopic,
		cfg.Kafka.ConsumerGroup,
		svc,
	)
	go func() {
		log.Printf("Starting Kafka price consumer for topic: %s (group: %s-prices)",
			cfg.Kafka.PricesTopic, cfg.Kafka.ConsumerGroup)
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka price consumer error: %v", err)
		}
	}()

	// Background refresh and snapshot loops
	scheduler := portfolio.NewScheduler(svc, cfg.Scheduler)
	scheduler.Start()

	summarizer := summary.New(cfg.Summary)

	// Set up HTTP handler and routes
	handler := api.NewHandler(db, svc, scheduler, finnhub, summarizer, cacheClient, producer, loc)
	router := api.SetupRoutes(handler)

	// Create HTTP server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel context to stop the Kafka consumer
	cancel()
	scheduler.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := consumer.Close(); err != nil {
		log.Printf("Error closing Kafka price consumer: %v", err)
	}

	log.Println("Server stopped")
}

func runMigrations(databaseUrl string) error {
	m, err := migrate.New("file://./db/migrations", databaseUrl)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			log.Println("No migrations to apply; database is up to date.")
			return nil
		}
		return err
	}
	return nil
}
