package importer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/importer"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
)

var defaultTS = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func buildOne(t *testing.T, raw string, opts importer.BuildOptions) ledger.Transaction {
	t.Helper()
	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)
	txs, err := importer.BuildTransactions(imp, opts)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	return txs[0]
}

func TestBuildTransactions_ValueInFromHeaderHint(t *testing.T) {
	// Header hint carries the token, Value_OUT of zero collapses to nil
	raw := "Transaction Hash,DateTime (UTC),From,To,Value_IN(EURe),Value_OUT(EURe)\n" +
		"0xabc,2024-03-05 10:30:00,0x1,0x2,25.5,0\n"

	tx := buildOne(t, raw, importer.BuildOptions{
		DefaultTimestamp: defaultTS,
		TransactionIDs:   []string{"id-1"},
	})

	require.NotNil(t, tx.ValueIn)
	assert.Equal(t, 25.5, tx.ValueIn.Amount)
	assert.Equal(t, "EURe", tx.ValueIn.Token)
	assert.Nil(t, tx.ValueOut)
	assert.Equal(t, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), tx.Timestamp)
}

func TestBuildTransactions_InsufficientIDs(t *testing.T) {
	raw := "hash,value\n0xabc,1\n0xdef,2\n"
	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)

	txs, err := importer.BuildTransactions(imp, importer.BuildOptions{
		DefaultTimestamp: defaultTS,
		TransactionIDs:   []string{"only-one"},
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidFormat))
	assert.Nil(t, txs, "all-or-nothing: no transactions on precondition failure")
}

func TestBuildTransactions_TokenPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "symbol column beats header hint",
			raw:      "hash,TokenSymbol,Value_OUT(EURe)\n0x1,USDC,5\n",
			expected: "USDC",
		},
		{
			name:     "symbol column is normalized",
			raw:      "hash,TokenSymbol,Value_OUT(EURe)\n0x1,usd,5\n",
			expected: "USDC",
		},
		{
			name:     "header hint when no symbol",
			raw:      "hash,TokenSymbol,Value_OUT(GBPe)\n0x1,,5\n",
			expected: "GBPe",
		},
		{
			name:     "contract address when no symbol or hint",
			raw:      "hash,ContractAddress,Value_OUT\n0x1,0xc0ffee,5\n",
			expected: "0xc0ffee",
		},
		{
			name:     "hard default",
			raw:      "hash,Value_OUT\n0x1,5\n",
			expected: "ETH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := buildOne(t, tt.raw, importer.BuildOptions{
				DefaultTimestamp: defaultTS,
				TransactionIDs:   []string{"id"},
			})
			require.NotNil(t, tx.ValueOut)
			assert.Equal(t, tt.expected, tx.ValueOut.Token)
		})
	}
}

func TestBuildTransactions_Classification(t *testing.T) {
	tracked := "0xAbCd000000000000000000000000000000000001"

	tests := []struct {
		name         string
		from, to     string
		valueIn      string
		valueOut     string
		expectedType ledger.TransactionType
		expectedAmt  float64
	}{
		{"outgoing is expense", tracked, "0x2", "", "12.5", ledger.TypeExpense, -12.5},
		{"incoming is income", "0x2", tracked, "30", "", ledger.TypeIncome, 30},
		{"expense falls back to valueIn", tracked, "0x2", "7", "", ledger.TypeExpense, -7},
		{"income falls back to valueOut", "0x2", tracked, "", "9", ledger.TypeIncome, 9},
		{"self transfer is neutral", tracked, tracked, "5", "", ledger.TypeNeutral, 0},
		{"unrelated is neutral", "0x2", "0x3", "5", "", ledger.TypeNeutral, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "hash,From,To,valueIn,valueOut\n" +
				"0x1," + tt.from + "," + tt.to + "," + tt.valueIn + "," + tt.valueOut + "\n"

			tx := buildOne(t, raw, importer.BuildOptions{
				// Addresses compare case-insensitively
				TrackedAddress:   "0xabcd000000000000000000000000000000000001",
				DefaultTimestamp: defaultTS,
				TransactionIDs:   []string{"id"},
			})

			assert.Equal(t, tt.expectedType, tx.Type)
			assert.Equal(t, tt.expectedAmt, tx.SignedAmount)
		})
	}
}

func TestBuildTransactions_NoTrackedAddress(t *testing.T) {
	raw := "hash,From,To,valueOut\n0x1,0x2,0x3,5\n"

	tx := buildOne(t, raw, importer.BuildOptions{
		DefaultTimestamp: defaultTS,
		TransactionIDs:   []string{"id"},
	})

	assert.Equal(t, ledger.TypeNeutral, tx.Type)
	assert.Zero(t, tx.SignedAmount)
}

func TestBuildTransactions_Status(t *testing.T) {
	tests := []struct {
		raw      string
		expected ledger.Status
	}{
		{"1", ledger.StatusSuccess},
		{"success", ledger.StatusSuccess},
		{"SUCCESS", ledger.StatusSuccess},
		{"Success", ledger.StatusSuccess},
		{"0", ledger.StatusFailed},
		{"error", ledger.StatusFailed},
		{"", ledger.StatusFailed},
	}

	for _, tt := range tests {
		t.Run("status "+tt.raw, func(t *testing.T) {
			raw := "hash,Status\n0x1," + tt.raw + "\n"
			imp, err := importer.ParseImport(raw)
			require.NoError(t, err)
			txs, err := importer.BuildTransactions(imp, importer.BuildOptions{
				DefaultTimestamp: defaultTS,
				TransactionIDs:   []string{"id"},
			})
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, tt.expected, txs[0].Status)
		})
	}
}

func TestBuildTransactions_FeeToken(t *testing.T) {
	t.Run("fee hint from header", func(t *testing.T) {
		raw := "hash,TxnFee(DAI)\n0x1,0.002\n"
		tx := buildOne(t, raw, importer.BuildOptions{
			DefaultTimestamp: defaultTS,
			TransactionIDs:   []string{"id"},
		})
		assert.Equal(t, 0.002, tx.TxnFee.Amount)
		assert.Equal(t, "DAI", tx.TxnFee.Token)
	})

	t.Run("fee defaults to zero USD", func(t *testing.T) {
		raw := "hash,fee\n0x1,garbage\n"
		tx := buildOne(t, raw, importer.BuildOptions{
			DefaultTimestamp: defaultTS,
			TransactionIDs:   []string{"id"},
		})
		assert.Zero(t, tx.TxnFee.Amount)
		assert.Equal(t, "USD", tx.TxnFee.Token)
	})
}

func TestBuildTransactions_PermissiveValues(t *testing.T) {
	tests := []struct {
		name string
		cell string
	}{
		{"empty", ""},
		{"zero", "0"},
		{"negative", "-4"},
		{"garbage", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "hash,valueOut\n0x1," + tt.cell + "\n"
			tx := buildOne(t, raw, importer.BuildOptions{
				DefaultTimestamp: defaultTS,
				TransactionIDs:   []string{"id"},
			})
			assert.Nil(t, tx.ValueOut, "non-positive amounts collapse to nil, not zero")
		})
	}
}

func TestBuildTransactions_TimestampFallback(t *testing.T) {
	tests := []struct {
		name     string
		cell     string
		expected time.Time
	}{
		{"datetime utc layout", "2024-03-05 10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"date only", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", "1709634600", time.Unix(1709634600, 0).UTC()},
		{"empty falls back", "", defaultTS},
		{"garbage falls back", "not-a-date", defaultTS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "hash,DateTime (UTC)\n0x1," + tt.cell + "\n"
			tx := buildOne(t, raw, importer.BuildOptions{
				DefaultTimestamp: defaultTS,
				TransactionIDs:   []string{"id"},
			})
			assert.Equal(t, tt.expected, tx.Timestamp)
		})
	}
}

func TestBuildFromInput(t *testing.T) {
	ts := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	tx := importer.BuildFromInput(importer.Input{
		ID:          "id-1",
		TxHash:      "0xfeed",
		Timestamp:   ts,
		FromAddress: "0xme",
		ToAddress:   "0xshop",
		ValueOut:    &ledger.TokenValue{Amount: 42, Token: "eur"},
		Status:      "1",
	}, "0xME")

	assert.Equal(t, ledger.TypeExpense, tx.Type)
	assert.Equal(t, -42.0, tx.SignedAmount)
	require.NotNil(t, tx.ValueOut)
	assert.Equal(t, "EURe", tx.ValueOut.Token, "input tokens are normalized")
	assert.Equal(t, ledger.StatusSuccess, tx.Status)
	assert.Equal(t, "USD", tx.TxnFee.Token, "fee is always present with a default token")
}

func TestBuildFromInput_NonPositiveValueDropped(t *testing.T) {
	tx := importer.BuildFromInput(importer.Input{
		ID:      "id-1",
		TxHash:  "0xfeed",
		ValueIn: &ledger.TokenValue{Amount: 0, Token: "USDC"},
		Status:  "success",
	}, "")

	assert.Nil(t, tx.ValueIn)
	assert.Equal(t, ledger.TypeNeutral, tx.Type)
}
