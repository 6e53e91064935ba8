package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
)

// SettingsServiceInterface defines the tracker operations needed by
// SettingsHandler
type SettingsServiceInterface interface {
	SetBaseCurrency(ctx context.Context, userID uuid.UUID, currency string) error
	UpdateExchangeRates(ctx context.Context, userID uuid.UUID, rates []forex.ExchangeRate) error
	ConvertTransactionValues(ctx context.Context, userID uuid.UUID, target string) error
	Document(ctx context.Context, userID uuid.UUID) (*tracker.Document, error)
	Operations(ctx context.Context, userID uuid.UUID, limit int) ([]tracker.Operation, error)
}

// SettingsHandler handles tracker settings HTTP requests
type SettingsHandler struct {
	svc SettingsServiceInterface
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc SettingsServiceInterface) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, doc.Settings, http.StatusOK)
}

// BaseCurrencyRequest represents the base currency override request
type BaseCurrencyRequest struct {
	Currency string `json:"currency"`
}

// SetBaseCurrency handles PUT /settings/base-currency
func (h *SettingsHandler) SetBaseCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req BaseCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.SetBaseCurrency(r.Context(), userID, req.Currency); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RatesRequest represents the exchange rate table replacement request
type RatesRequest struct {
	Rates []forex.ExchangeRate `json:"rates"`
}

// UpdateRates handles PUT /settings/rates
func (h *SettingsHandler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req RatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.svc.UpdateExchangeRates(r.Context(), userID, req.Rates); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConvertRequest represents the convert-transaction-values request
type ConvertRequest struct {
	TargetCurrency string `json:"target_currency,omitempty"`
}

// Convert handles POST /settings/convert
// Re-runs currency conversion over the whole ledger.
func (h *SettingsHandler) Convert(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ConvertRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	if err := h.svc.ConvertTransactionValues(r.Context(), userID, req.TargetCurrency); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Operations handles GET /operations
func (h *SettingsHandler) Operations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	ops, err := h.svc.Operations(r.Context(), userID, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, map[string]any{"operations": ops}, http.StatusOK)
}
