package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/importer"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/middleware"
)

// LedgerServiceInterface defines the tracker operations needed by
// TransactionHandler
type LedgerServiceInterface interface {
	ImportBatch(ctx context.Context, userID uuid.UUID, params tracker.ImportBatchParams) (*tracker.ImportResult, error)
	Add(ctx context.Context, userID uuid.UUID, input importer.Input) (*ledger.Transaction, error)
	Update(ctx context.Context, userID uuid.UUID, id string, patch ledger.Patch) (*ledger.Transaction, error)
	Delete(ctx context.Context, userID uuid.UUID, id string) error
	Document(ctx context.Context, userID uuid.UUID) (*tracker.Document, error)
}

// TransactionHandler handles ledger HTTP requests
type TransactionHandler struct {
	svc LedgerServiceInterface
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(svc LedgerServiceInterface) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// ImportRequest represents a raw export import request
type ImportRequest struct {
	RawText        string   `json:"raw_text"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
	TrackedAddress string   `json:"tracked_address"`
}

// Import handles POST /transactions/import
func (h *TransactionHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Rows without their own id get stable generated ones
	ids := req.TransactionIDs
	if len(ids) == 0 {
		for i := 0; i < countDataLines(req.RawText); i++ {
			ids = append(ids, uuid.New().String())
		}
	}

	result, err := h.svc.ImportBatch(r.Context(), userID, tracker.ImportBatchParams{
		RawText:          req.RawText,
		TransactionIDs:   ids,
		TrackedAddress:   req.TrackedAddress,
		DefaultTimestamp: time.Now().UTC(),
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, result, http.StatusCreated)
}

// countDataLines counts non-empty lines beyond the header.
func countDataLines(raw string) int {
	count := 0
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	if count > 0 {
		count-- // header line
	}
	return count
}

// Create handles POST /transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var input importer.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if input.TxHash == "" {
		respondError(w, "tx_hash is required", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Add(r.Context(), userID, input)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, tx, http.StatusCreated)
}

// List handles GET /transactions
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
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

	respondJSON(w, map[string]any{
		"transactions": doc.Transactions,
		"metadata":     doc.Metadata,
	}, http.StatusOK)
}

// Patch handles PATCH /transactions/{id}
func (h *TransactionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	var patch ledger.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Update(r.Context(), userID, id, patch)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, tx, http.StatusOK)
}

// Delete handles DELETE /transactions/{id}
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
