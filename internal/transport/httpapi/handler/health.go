package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks connectivity of one dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// GetHealth handles GET /health
// Basic health check - returns 200 OK if service is running
func GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{
		Status: "ok",
		Uptime: time.Since(startTime).String(),
		Checks: map[string]string{},
	}, http.StatusOK)
}

// GetLiveness handles GET /health/live
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}

// GetReadiness handles GET /health/ready
// Checks database and cache connectivity.
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["database"] = "healthy"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			checks["cache"] = "healthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "degraded" {
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, HealthResponse{
		Status: status,
		Uptime: time.Since(startTime).String(),
		Checks: checks,
	}, httpStatus)
}
