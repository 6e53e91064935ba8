package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/analytics"
	"github.com/kislikjeka/gnosistrack/internal/basecurrency"
	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/importer"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
	"github.com/kislikjeka/gnosistrack/pkg/token"
)

// Service is the operations surface of the tracker. Every public method
// loads the user's document, applies one operation, persists the result
// and appends an audit record to the operation log.
type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// ImportBatchParams carries one raw export to be merged into the ledger.
type ImportBatchParams struct {
	RawText          string
	TransactionIDs   []string
	TrackedAddress   string
	DefaultTimestamp time.Time
}

// ImportResult reports what an import actually changed.
type ImportResult struct {
	Added    []ledger.Transaction `json:"added"`
	Total    int                  `json:"total"`
	Metadata ledger.Metadata      `json:"metadata"`
}

// ImportBatch parses a raw export, builds transactions and merges them
// into the ledger with hash dedup and contract exclusion.
func (s *Service) ImportBatch(ctx context.Context, userID uuid.UUID, params ImportBatchParams) (*ImportResult, error) {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	parsed, err := importer.ParseImport(params.RawText)
	if err != nil {
		return nil, s.finish(ctx, userID, OpImportBatch, err)
	}
	incoming, err := importer.BuildTransactions(parsed, importer.BuildOptions{
		TrackedAddress:   params.TrackedAddress,
		DefaultTimestamp: params.DefaultTimestamp,
		TransactionIDs:   params.TransactionIDs,
	})
	if err != nil {
		return nil, s.finish(ctx, userID, OpImportBatch, err)
	}

	merged, added, err := ledger.Merge(doc.Transactions, incoming, doc.Settings.ExcludedContracts)
	if err != nil {
		return nil, s.finish(ctx, userID, OpImportBatch, mapLedgerErr(err))
	}
	doc.Transactions = merged
	doc.Metadata = ledger.RecomputeMetadata(doc.Metadata, merged, added, params.TrackedAddress, s.now())

	if err := s.store.Save(ctx, userID, doc); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("batch imported",
		"user_id", userID,
		"added", len(added),
		"total", len(merged),
	)
	return &ImportResult{
		Added:    added,
		Total:    len(merged),
		Metadata: doc.Metadata,
	}, s.finish(ctx, userID, OpImportBatch, nil)
}

// Add builds a single transaction from raw field values and merges it
// into the ledger. A missing id is generated.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, input importer.Input) (*ledger.Transaction, error) {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	tx := importer.BuildFromInput(input, doc.Metadata.TrackedAddress)

	merged, added, err := ledger.Merge(doc.Transactions, []ledger.Transaction{tx}, doc.Settings.ExcludedContracts)
	if err != nil {
		return nil, s.finish(ctx, userID, OpAdd, mapLedgerErr(err))
	}
	if len(added) == 0 {
		err := apperrors.Conflict("transaction already exists or is excluded")
		return nil, s.finish(ctx, userID, OpAdd, err)
	}
	doc.Transactions = merged
	doc.Metadata = ledger.RecomputeMetadata(doc.Metadata, merged, added, doc.Metadata.TrackedAddress, s.now())

	if err := s.store.Save(ctx, userID, doc); err != nil {
		return nil, err
	}
	return &added[0], s.finish(ctx, userID, OpAdd, nil)
}

// SyncInputs merges a batch of explorer-fetched transactions, classifying
// them against the synced wallet address. Duplicates drop out in the merge,
// so re-syncing the same range is safe. Returns how many were added.
func (s *Service) SyncInputs(ctx context.Context, userID uuid.UUID, address string, inputs []importer.Input) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return 0, err
	}

	incoming := make([]ledger.Transaction, 0, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			in.ID = uuid.New().String()
		}
		incoming = append(incoming, importer.BuildFromInput(in, address))
	}

	merged, added, err := ledger.Merge(doc.Transactions, incoming, doc.Settings.ExcludedContracts)
	if err != nil {
		return 0, s.finish(ctx, userID, OpImportBatch, mapLedgerErr(err))
	}
	doc.Transactions = merged
	doc.Metadata = ledger.RecomputeMetadata(doc.Metadata, merged, added, address, s.now())

	if err := s.store.Save(ctx, userID, doc); err != nil {
		return 0, err
	}
	s.log.WithContext(ctx).Info("wallet batch synced",
		"user_id", userID,
		"added", len(added),
		"total", len(merged),
	)
	return len(added), s.finish(ctx, userID, OpImportBatch, nil)
}

// Update applies a partial patch to one transaction.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, id string, patch ledger.Patch) (*ledger.Transaction, error) {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := ledger.Update(doc.Transactions, id, patch); err != nil {
		return nil, s.finish(ctx, userID, OpUpdate, mapLedgerErr(err))
	}
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return nil, err
	}
	var updated *ledger.Transaction
	for i := range doc.Transactions {
		if doc.Transactions[i].ID == id {
			updated = &doc.Transactions[i]
			break
		}
	}
	return updated, s.finish(ctx, userID, OpUpdate, nil)
}

// Delete removes one transaction by id.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return err
	}

	remaining, err := ledger.Delete(doc.Transactions, id)
	if err != nil {
		return s.finish(ctx, userID, OpDelete, mapLedgerErr(err))
	}
	doc.Transactions = remaining
	doc.Metadata.TotalTransactions = len(remaining)
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return err
	}
	return s.finish(ctx, userID, OpDelete, nil)
}

// SetBaseCurrency pins the base currency, overriding detection. An empty
// value clears the override. Known stablecoin aliases are normalized.
func (s *Service) SetBaseCurrency(ctx context.Context, userID uuid.UUID, currency string) error {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return err
	}

	doc.Settings.BaseCurrency = token.Normalize(currency)
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return err
	}
	return s.finish(ctx, userID, OpSetBaseCurrency, nil)
}

// UpdateExchangeRates replaces the stored rate table and stamps the
// refresh time.
func (s *Service) UpdateExchangeRates(ctx context.Context, userID uuid.UUID, rates []forex.ExchangeRate) error {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return err
	}

	now := s.now()
	doc.Settings.ExchangeRates = rates
	doc.Settings.LastForexUpdate = &now
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return err
	}
	return s.finish(ctx, userID, OpUpdateExchangeRates, nil)
}

// ConvertTransactionValues re-runs currency conversion over the whole
// ledger using the stored rate table. An empty target falls back to the
// resolved base currency.
func (s *Service) ConvertTransactionValues(ctx context.Context, userID uuid.UUID, target string) error {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return err
	}

	if target == "" {
		target = s.resolveBaseCurrency(doc)
	}
	for i := range doc.Transactions {
		doc.Transactions[i] = forex.Convert(doc.Transactions[i], doc.Settings.ExchangeRates, target)
	}
	if err := s.store.Save(ctx, userID, doc); err != nil {
		return err
	}
	return s.finish(ctx, userID, OpConvertValues, nil)
}

// CalculateAnalytics recomputes spending analytics and, with them, the
// detected base currency. The fresh snapshots replace the stored ones,
// so an emptied ledger clears both.
func (s *Service) CalculateAnalytics(ctx context.Context, userID uuid.UUID) (*analytics.Analytics, error) {
	doc, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	base := s.resolveBaseCurrency(doc)
	result, detection := analytics.Aggregate(doc.Transactions, base, doc.Settings.DetectionOptions())
	doc.Analytics = &result
	doc.Detection = detection

	projected := analytics.ProjectMonthlySpend(result.MonthlyBreakdown, s.now(), base)
	doc.BudgetAlert = analytics.CheckBudget(projected, doc.Settings.MonthlyBudget, doc.Settings.AlertThresholdPct)

	if err := s.store.Save(ctx, userID, doc); err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("analytics recalculated",
		"user_id", userID,
		"base_currency", base,
		"transactions", len(doc.Transactions),
	)
	return doc.Analytics, s.finish(ctx, userID, OpCalculateAnalytics, nil)
}

// Document returns the current state of a user's tracker.
func (s *Service) Document(ctx context.Context, userID uuid.UUID) (*Document, error) {
	return s.store.Load(ctx, userID)
}

// Operations returns the most recent audit records.
func (s *Service) Operations(ctx context.Context, userID uuid.UUID, limit int) ([]Operation, error) {
	return s.store.Operations(ctx, userID, limit)
}

// resolveBaseCurrency prefers the pinned setting, then the last detection,
// then USD.
func (s *Service) resolveBaseCurrency(doc *Document) string {
	if doc.Settings.BaseCurrency != "" {
		return doc.Settings.BaseCurrency
	}
	if detection := basecurrency.Detect(doc.Transactions, doc.Settings.DetectionOptions()); detection != nil {
		return detection.Stablecoin
	}
	return "USD"
}

// mapLedgerErr translates ledger sentinels into structured errors for
// the operation log and API surface.
func mapLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return apperrors.NotFound("transaction")
	case errors.Is(err, ledger.ErrEmptyBatch):
		return apperrors.EmptyBatch("batch contains no transactions")
	}
	return err
}

// finish appends the audit record for an operation and passes the
// operation's error back through. Failures are logged as data on the
// record rather than replacing the original error.
func (s *Service) finish(ctx context.Context, userID uuid.UUID, kind string, opErr error) error {
	op := Operation{
		ID:        uuid.New(),
		Kind:      kind,
		AppliedAt: s.now(),
	}
	if opErr != nil {
		op.Error = apperrors.AsAppError(opErr)
	}
	if err := s.store.AppendOperation(ctx, userID, op); err != nil {
		s.log.WithContext(ctx).WithError(err).Error("failed to append operation log", "kind", kind)
	}
	return opErr
}
