package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/gnosistrack/internal/infra/postgres"
	"github.com/kislikjeka/gnosistrack/internal/platform/user"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/handler"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/gnosistrack/pkg/config"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting GnosisTrack API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

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

	// Repositories and services
	userRepo := postgres.NewUserRepository(db.Pool)
	docStore := postgres.NewDocumentStore(db.Pool)

	userSvc := user.NewService(userRepo, log)
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	trackerSvc := tracker.NewService(docStore, log)
	log.Info("Tracker service initialized")

	// HTTP handlers
	authHandler := handler.NewAuthHandler(userSvc, jwtSvc)
	transactionHandler := handler.NewTransactionHandler(trackerSvc)
	analyticsHandler := handler.NewAnalyticsHandler(trackerSvc)
	settingsHandler := handler.NewSettingsHandler(trackerSvc)
	healthHandler := handler.NewHealthHandler(db, redisPinger{redisClient})

	allowedOrigins := []string{"http://localhost:5173"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	r := httpapi.NewRouter(httpapi.Config{
		Logger:             log,
		AllowedOrigins:     allowedOrigins,
		AuthHandler:        authHandler,
		TransactionHandler: transactionHandler,
		AnalyticsHandler:   analyticsHandler,
		SettingsHandler:    settingsHandler,
		HealthHandler:      healthHandler,
		JWTMiddleware:      middleware.JWTMiddleware(jwtSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// redisPinger adapts the redis client to the health handler's Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
