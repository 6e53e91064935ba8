package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
)

// DocumentStore implements tracker.Store on PostgreSQL. The document's
// scalar views live as jsonb columns on one row per user; transactions
// are individual rows so the ledger stays queryable.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that DocumentStore implements tracker.Store
var _ tracker.Store = (*DocumentStore)(nil)

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Load reads a user's document. Users without one get a fresh default.
func (s *DocumentStore) Load(ctx context.Context, userID uuid.UUID) (*tracker.Document, error) {
	doc := tracker.NewDocument()

	query := `
		SELECT metadata, settings, analytics, detection, budget_alert
		FROM tracker_documents
		WHERE user_id = $1
	`

	var metadataJSON, settingsJSON, analyticsJSON, detectionJSON, alertJSON []byte
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&metadataJSON,
		&settingsJSON,
		&analyticsJSON,
		&detectionJSON,
		&alertJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	if err := unmarshalInto(metadataJSON, &doc.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalInto(settingsJSON, &doc.Settings); err != nil {
		return nil, err
	}
	if err := unmarshalInto(analyticsJSON, &doc.Analytics); err != nil {
		return nil, err
	}
	if err := unmarshalInto(detectionJSON, &doc.Detection); err != nil {
		return nil, err
	}
	if err := unmarshalInto(alertJSON, &doc.BudgetAlert); err != nil {
		return nil, err
	}

	txs, err := s.loadTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	doc.Transactions = txs
	return doc, nil
}

func (s *DocumentStore) loadTransactions(ctx context.Context, userID uuid.UUID) ([]ledger.Transaction, error) {
	query := `
		SELECT data
		FROM tracker_transactions
		WHERE user_id = $1
		ORDER BY position
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	txs := []ledger.Transaction{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		var tx ledger.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Save writes the whole document transactionally. The transaction rows
// are replaced wholesale since merge order is part of the document.
func (s *DocumentStore) Save(ctx context.Context, userID uuid.UUID, doc *tracker.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	settingsJSON, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	analyticsJSON, err := marshalNullable(doc.Analytics)
	if err != nil {
		return err
	}
	detectionJSON, err := marshalNullable(doc.Detection)
	if err != nil {
		return err
	}
	alertJSON, err := marshalNullable(doc.BudgetAlert)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO tracker_documents (user_id, metadata, settings, analytics, detection, budget_alert, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE
		SET metadata = EXCLUDED.metadata,
		    settings = EXCLUDED.settings,
		    analytics = EXCLUDED.analytics,
		    detection = EXCLUDED.detection,
		    budget_alert = EXCLUDED.budget_alert,
		    updated_at = now()
	`
	if _, err := tx.Exec(ctx, upsert, userID, metadataJSON, settingsJSON, analyticsJSON, detectionJSON, alertJSON); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tracker_transactions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear transactions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, t := range doc.Transactions {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction %s: %w", t.ID, err)
		}
		batch.Queue(
			`INSERT INTO tracker_transactions (user_id, id, tx_hash, position, data) VALUES ($1, $2, $3, $4, $5)`,
			userID, t.ID, t.TxHash, i, data,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert transactions: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// AppendOperation writes one audit record.
func (s *DocumentStore) AppendOperation(ctx context.Context, userID uuid.UUID, op tracker.Operation) error {
	errJSON, err := marshalNullable(op.Error)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tracker_operations (id, user_id, kind, applied_at, error)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.pool.Exec(ctx, query, op.ID, userID, op.Kind, op.AppliedAt, errJSON); err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}
	return nil
}

// Operations returns audit records in applied order, most recent last.
func (s *DocumentStore) Operations(ctx context.Context, userID uuid.UUID, limit int) ([]tracker.Operation, error) {
	query := `
		SELECT id, kind, applied_at, error
		FROM (
			SELECT id, kind, applied_at, error
			FROM tracker_operations
			WHERE user_id = $1
			ORDER BY applied_at DESC
			LIMIT $2
		) recent
		ORDER BY applied_at
	`
	if limit <= 0 {
		limit = 1000
	}

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}
	defer rows.Close()

	ops := []tracker.Operation{}
	for rows.Next() {
		var op tracker.Operation
		var errJSON []byte
		if err := rows.Scan(&op.ID, &op.Kind, &op.AppliedAt, &errJSON); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		if err := unmarshalInto(errJSON, &op.Error); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// marshalNullable maps a nil pointer to a NULL column so Load can
// distinguish absent from empty.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}
	return data, nil
}

func unmarshalInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode stored value: %w", err)
	}
	return nil
}
