package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/handler"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger             *logger.Logger
	AllowedOrigins     []string
	AuthHandler        *handler.AuthHandler
	TransactionHandler *handler.TransactionHandler
	AnalyticsHandler   *handler.AnalyticsHandler
	SettingsHandler    *handler.SettingsHandler
	HealthHandler      *handler.HealthHandler
	JWTMiddleware      func(http.Handler) http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // 100 req/s with burst of 20

	// Health check endpoints (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}

		// Protected routes (require JWT authentication)
		if cfg.JWTMiddleware != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.JWTMiddleware)

				if cfg.AuthHandler != nil {
					r.Put("/me/wallet", cfg.AuthHandler.UpdateWallet)
				}

				if cfg.TransactionHandler != nil {
					r.Post("/transactions/import", cfg.TransactionHandler.Import)
					r.Post("/transactions", cfg.TransactionHandler.Create)
					r.Get("/transactions", cfg.TransactionHandler.List)
					r.Patch("/transactions/{id}", cfg.TransactionHandler.Patch)
					r.Delete("/transactions/{id}", cfg.TransactionHandler.Delete)
				}

				if cfg.AnalyticsHandler != nil {
					r.Post("/analytics/calculate", cfg.AnalyticsHandler.Calculate)
					r.Get("/analytics", cfg.AnalyticsHandler.Get)
				}

				if cfg.SettingsHandler != nil {
					r.Get("/settings", cfg.SettingsHandler.Get)
					r.Put("/settings/base-currency", cfg.SettingsHandler.SetBaseCurrency)
					r.Put("/settings/rates", cfg.SettingsHandler.UpdateRates)
					r.Post("/settings/convert", cfg.SettingsHandler.Convert)
					r.Get("/operations", cfg.SettingsHandler.Operations)
				}
			})
		}
	})

	return r
}
