package ledger

import (
	"strings"
	"time"
)

// Merge appends incoming transactions to the existing ledger with
// de-duplication and exclusion rules applied.
//
// An incoming transaction is dropped when its TxHash is already present,
// either in the existing ledger or earlier in the same batch, or when its
// contract address is in the exclusion set (compared case-insensitively).
// Surviving transactions keep their batch order and are appended after the
// existing ones.
//
// Returns the merged ledger and the transactions actually added by this
// call. An empty incoming batch is a caller error and yields ErrEmptyBatch.
func Merge(existing, incoming []Transaction, excludedContracts []string) ([]Transaction, []Transaction, error) {
	if len(incoming) == 0 {
		return nil, nil, ErrEmptyBatch
	}

	excluded := make(map[string]struct{}, len(excludedContracts))
	for _, addr := range excludedContracts {
		excluded[strings.ToLower(addr)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, tx := range existing {
		seen[tx.TxHash] = struct{}{}
	}

	added := make([]Transaction, 0, len(incoming))
	for _, tx := range incoming {
		if _, dup := seen[tx.TxHash]; dup {
			continue
		}
		if _, skip := excluded[strings.ToLower(tx.ContractAddress)]; skip {
			continue
		}
		seen[tx.TxHash] = struct{}{}
		added = append(added, tx)
	}

	merged := make([]Transaction, 0, len(existing)+len(added))
	merged = append(merged, existing...)
	merged = append(merged, added...)

	return merged, added, nil
}

// RecomputeMetadata rebuilds ledger metadata after a merge. The date range
// covers the transactions added in this call; when none of them carries a
// valid timestamp the previous range is kept. The tracked address declared
// by the batch overwrites any previous value.
func RecomputeMetadata(prev Metadata, merged, added []Transaction, trackedAddress string, now time.Time) Metadata {
	meta := Metadata{
		ImportedAt:        now,
		TotalTransactions: len(merged),
		DateRange:         prev.DateRange,
		TrackedAddress:    trackedAddress,
	}

	var rng *DateRange
	for _, tx := range added {
		if tx.Timestamp.IsZero() {
			continue
		}
		if rng == nil {
			rng = &DateRange{StartDate: tx.Timestamp, EndDate: tx.Timestamp}
			continue
		}
		if tx.Timestamp.Before(rng.StartDate) {
			rng.StartDate = tx.Timestamp
		}
		if tx.Timestamp.After(rng.EndDate) {
			rng.EndDate = tx.Timestamp
		}
	}
	if rng != nil {
		meta.DateRange = rng
	}

	return meta
}

// Patch is a partial update to a single transaction. Every field is
// independently optional; nil means "leave unchanged".
type Patch struct {
	Timestamp       *time.Time       `json:"timestamp,omitempty"`
	FromAddress     *string          `json:"from_address,omitempty"`
	ToAddress       *string          `json:"to_address,omitempty"`
	ContractAddress *string          `json:"contract_address,omitempty"`
	ValueIn         *TokenValue      `json:"value_in,omitempty"`
	ValueOut        *TokenValue      `json:"value_out,omitempty"`
	TxnFee          *TokenValue      `json:"txn_fee,omitempty"`
	HistoricalPrice *PriceInfo       `json:"historical_price,omitempty"`
	CurrentValue    *PriceInfo       `json:"current_value,omitempty"`
	ConvertedValue  *PriceInfo       `json:"converted_value,omitempty"`
	Status          *Status          `json:"status,omitempty"`
	ErrorCode       *string          `json:"error_code,omitempty"`
	Method          *string          `json:"method,omitempty"`
	Type            *TransactionType `json:"transaction_type,omitempty"`
	SignedAmount    *float64         `json:"signed_amount,omitempty"`
}

// Update applies a partial patch to the transaction with the given id,
// in place. Returns ErrTransactionNotFound for an unknown id.
func Update(txs []Transaction, id string, patch Patch) error {
	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		applyPatch(&txs[i], patch)
		return nil
	}
	return ErrTransactionNotFound
}

// Delete removes the transaction with the given id, preserving order.
// Returns ErrTransactionNotFound for an unknown id.
func Delete(txs []Transaction, id string) ([]Transaction, error) {
	for i := range txs {
		if txs[i].ID == id {
			return append(txs[:i:i], txs[i+1:]...), nil
		}
	}
	return nil, ErrTransactionNotFound
}

func applyPatch(tx *Transaction, patch Patch) {
	if patch.Timestamp != nil {
		tx.Timestamp = *patch.Timestamp
	}
	if patch.FromAddress != nil {
		tx.FromAddress = *patch.FromAddress
	}
	if patch.ToAddress != nil {
		tx.ToAddress = *patch.ToAddress
	}
	if patch.ContractAddress != nil {
		tx.ContractAddress = *patch.ContractAddress
	}
	if patch.ValueIn != nil {
		tx.ValueIn = patch.ValueIn
	}
	if patch.ValueOut != nil {
		tx.ValueOut = patch.ValueOut
	}
	if patch.TxnFee != nil {
		tx.TxnFee = *patch.TxnFee
	}
	if patch.HistoricalPrice != nil {
		tx.HistoricalPrice = patch.HistoricalPrice
	}
	if patch.CurrentValue != nil {
		tx.CurrentValue = patch.CurrentValue
	}
	if patch.ConvertedValue != nil {
		tx.ConvertedValue = patch.ConvertedValue
	}
	if patch.Status != nil {
		tx.Status = *patch.Status
	}
	if patch.ErrorCode != nil {
		tx.ErrorCode = *patch.ErrorCode
	}
	if patch.Method != nil {
		tx.Method = *patch.Method
	}
	if patch.Type != nil {
		tx.Type = *patch.Type
	}
	if patch.SignedAmount != nil {
		tx.SignedAmount = *patch.SignedAmount
	}
}
