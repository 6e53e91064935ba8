package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/gnosistrack/internal/infra/gateway/frankfurter"
	"github.com/kislikjeka/gnosistrack/internal/infra/gateway/gnosisscan"
	"github.com/kislikjeka/gnosistrack/internal/infra/postgres"
	infraredis "github.com/kislikjeka/gnosistrack/internal/infra/redis"
	"github.com/kislikjeka/gnosistrack/internal/schedule"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/pkg/config"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

// The worker runs the periodic jobs: forex rate refresh and wallet sync.
// It shares the document store with the API server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting GnosisTrack worker", "env", cfg.Env)

	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	userRepo := postgres.NewUserRepository(db.Pool)
	docStore := postgres.NewDocumentStore(db.Pool)
	trackerSvc := tracker.NewService(docStore, log)
	rateCache := infraredis.NewRateCache(redisClient, log)
	ratesClient := frankfurter.NewClient(log)

	// Wallet sync needs an explorer key; without one only forex runs.
	var transfers schedule.TransferSource
	if cfg.GnosisscanAPIKey != "" {
		transfers = gnosisscan.NewSyncAdapter(gnosisscan.NewClient(cfg.GnosisscanAPIKey, log))
	} else {
		log.Warn("GNOSISSCAN_API_KEY not configured, wallet sync disabled")
	}

	ratesSpec := "0 * * * *"
	if mins := int(cfg.ForexRefreshInterval.Minutes()); mins > 0 && mins < 60 {
		ratesSpec = fmt.Sprintf("*/%d * * * *", mins)
	}

	sched, err := schedule.New(schedule.Config{
		Users:     userRepo,
		Tracker:   trackerSvc,
		Rates:     ratesClient,
		Transfers: transfers,
		Cache:     rateCache,
		Logger:    log,
		RatesSpec: ratesSpec,
	})
	if err != nil {
		log.Error("Failed to build scheduler", "error", err)
		os.Exit(1)
	}

	// Refresh once on boot so a fresh deployment has rates immediately.
	sched.RefreshRates(ctx)

	sched.Start()
	<-ctx.Done()
	log.Info("Shutdown signal received")
	sched.Stop()
}
