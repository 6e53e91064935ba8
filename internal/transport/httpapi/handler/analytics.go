package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/analytics"
	"github.com/kislikjeka/gnosistrack/internal/basecurrency"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
)

// AnalyticsServiceInterface defines the tracker operations needed by
// AnalyticsHandler
type AnalyticsServiceInterface interface {
	CalculateAnalytics(ctx context.Context, userID uuid.UUID) (*analytics.Analytics, error)
	Document(ctx context.Context, userID uuid.UUID) (*tracker.Document, error)
}

// AnalyticsHandler handles analytics HTTP requests
type AnalyticsHandler struct {
	svc AnalyticsServiceInterface
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(svc AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Calculate handles POST /analytics/calculate
// Recomputes analytics and base currency detection from the ledger.
func (h *AnalyticsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.svc.CalculateAnalytics(r.Context(), userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, result, http.StatusOK)
}

// Get handles GET /analytics
// Returns the stored snapshot: analytics, detection and budget alert.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doc, err := h.svc.Document(r.Context(), userID)
	if err != nil {
		respondAppError(w, err)
		return
	}

	// Never hand clients a null detection; the sentinel carries the
	// zeroed statistics and the no-data reason instead.
	detection := doc.Detection
	if detection == nil {
		detection = basecurrency.NoData()
	}

	respondJSON(w, map[string]any{
		"analytics":              doc.Analytics,
		"detected_base_currency": detection,
		"budget_alert":           doc.BudgetAlert,
	}, http.StatusOK)
}
