package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
)

func tx(id, hash string, ts time.Time) ledger.Transaction {
	return ledger.Transaction{
		Entry: ledger.Entry{
			ID:        id,
			TxHash:    hash,
			Timestamp: ts,
			TxnFee:    ledger.TokenValue{Token: "USD"},
			Status:    ledger.StatusSuccess,
		},
		Type: ledger.TypeNeutral,
	}
}

func TestMerge_DedupAgainstExisting(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	existing := []ledger.Transaction{tx("1", "0xaaa", now)}
	incoming := []ledger.Transaction{
		tx("2", "0xaaa", now),
		tx("3", "0xbbb", now),
	}

	merged, added, err := ledger.Merge(existing, incoming, nil)
	require.NoError(t, err)

	assert.Len(t, merged, 2)
	assert.Len(t, added, 1)
	assert.Equal(t, "0xbbb", added[0].TxHash)
}

func TestMerge_DedupWithinBatch(t *testing.T) {
	// Two incoming rows sharing the same hash in one batch: second is dropped
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	incoming := []ledger.Transaction{
		tx("1", "0xccc", now),
		tx("2", "0xccc", now),
	}

	merged, added, err := ledger.Merge(nil, incoming, nil)
	require.NoError(t, err)

	assert.Len(t, merged, 1)
	assert.Len(t, added, 1)
	assert.Equal(t, "1", merged[0].ID)
}

func TestMerge_Idempotent(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	batch := []ledger.Transaction{
		tx("1", "0xaaa", now),
		tx("2", "0xbbb", now),
	}

	once, _, err := ledger.Merge(nil, batch, nil)
	require.NoError(t, err)

	twice, added, err := ledger.Merge(once, batch, nil)
	require.NoError(t, err)

	assert.Empty(t, added)
	assert.Equal(t, once, twice)
}

func TestMerge_ExcludedContracts(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	blocked := tx("1", "0xaaa", now)
	blocked.ContractAddress = "0xBAD0000000000000000000000000000000000000"
	kept := tx("2", "0xbbb", now)

	merged, added, err := ledger.Merge(nil, []ledger.Transaction{blocked, kept},
		[]string{"0xbad0000000000000000000000000000000000000"})
	require.NoError(t, err)

	assert.Len(t, merged, 1)
	assert.Len(t, added, 1)
	assert.Equal(t, "2", merged[0].ID)
}

func TestMerge_EmptyBatch(t *testing.T) {
	_, _, err := ledger.Merge(nil, nil, nil)
	assert.ErrorIs(t, err, ledger.ErrEmptyBatch)
}

func TestMerge_PreservesBatchOrder(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	existing := []ledger.Transaction{tx("e", "0x0", now)}
	incoming := []ledger.Transaction{
		tx("1", "0x1", now),
		tx("2", "0x2", now),
		tx("3", "0x3", now),
	}

	merged, _, err := ledger.Merge(existing, incoming, nil)
	require.NoError(t, err)

	ids := make([]string, len(merged))
	for i, m := range merged {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"e", "1", "2", "3"}, ids)
}

func TestRecomputeMetadata(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	early := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	added := []ledger.Transaction{tx("1", "0x1", late), tx("2", "0x2", early)}
	merged := added

	meta := ledger.RecomputeMetadata(ledger.Metadata{}, merged, added, "0xme", now)

	assert.Equal(t, 2, meta.TotalTransactions)
	assert.Equal(t, "0xme", meta.TrackedAddress)
	assert.Equal(t, now, meta.ImportedAt)
	require.NotNil(t, meta.DateRange)
	assert.Equal(t, early, meta.DateRange.StartDate)
	assert.Equal(t, late, meta.DateRange.EndDate)
}

func TestRecomputeMetadata_KeepsPreviousRangeWhenNoValidDates(t *testing.T) {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	prevRange := &ledger.DateRange{
		StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	prev := ledger.Metadata{DateRange: prevRange, TrackedAddress: "0xold"}

	added := []ledger.Transaction{tx("1", "0x1", time.Time{})}

	meta := ledger.RecomputeMetadata(prev, added, added, "0xnew", now)

	assert.Equal(t, prevRange, meta.DateRange)
	assert.Equal(t, "0xnew", meta.TrackedAddress, "tracked address is overwritten by the batch")
}

func TestUpdate_PartialPatch(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	txs := []ledger.Transaction{tx("1", "0xaaa", now)}

	method := "transfer"
	status := ledger.StatusFailed
	err := ledger.Update(txs, "1", ledger.Patch{Method: &method, Status: &status})
	require.NoError(t, err)

	assert.Equal(t, "transfer", txs[0].Method)
	assert.Equal(t, ledger.StatusFailed, txs[0].Status)
	// Untouched fields survive
	assert.Equal(t, "0xaaa", txs[0].TxHash)
	assert.Equal(t, now, txs[0].Timestamp)
}

func TestUpdate_NotFound(t *testing.T) {
	err := ledger.Update(nil, "missing", ledger.Patch{})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestDelete(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	txs := []ledger.Transaction{tx("1", "0x1", now), tx("2", "0x2", now), tx("3", "0x3", now)}

	remaining, err := ledger.Delete(txs, "2")
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "1", remaining[0].ID)
	assert.Equal(t, "3", remaining[1].ID)

	_, err = ledger.Delete(remaining, "2")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}
