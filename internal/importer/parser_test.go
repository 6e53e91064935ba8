package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/importer"
	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
)

func TestParseImport_HeaderAndRows(t *testing.T) {
	raw := "\"Transaction Hash\",From,To,Value_IN(EURe)\n" +
		"0xabc,0x1,0x2,25.5\n" +
		"0xdef,0x3,0x4,10\n"

	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Transaction Hash", "From", "To", "Value_IN(EURe)"}, imp.Headers)
	require.Len(t, imp.Rows, 2)
	assert.Equal(t, "0xabc", imp.Rows[0]["Transaction Hash"])
	assert.Equal(t, "25.5", imp.Rows[0]["Value_IN(EURe)"])
}

func TestParseImport_QuotedCells(t *testing.T) {
	raw := "hash,\"value\"\n\"0xabc\",\"1.5\"\n"

	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"hash", "value"}, imp.Headers)
	assert.Equal(t, "0xabc", imp.Rows[0]["hash"])
	assert.Equal(t, "1.5", imp.Rows[0]["value"])
}

func TestParseImport_SkipsMismatchedRows(t *testing.T) {
	raw := "hash,value\n0xabc,1.5\nonly-one-cell\n0xdef,2.5,extra\n0x123,3\n"

	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)

	require.Len(t, imp.Rows, 2)
	assert.Equal(t, "0xabc", imp.Rows[0]["hash"])
	assert.Equal(t, "0x123", imp.Rows[1]["hash"])
}

func TestParseImport_SkipsBlankLines(t *testing.T) {
	raw := "\n\r\nhash,value\n\n0xabc,1.5\n\n"

	imp, err := importer.ParseImport(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"hash", "value"}, imp.Headers)
	assert.Len(t, imp.Rows, 1)
}

func TestParseImport_TooFewLines(t *testing.T) {
	for _, raw := range []string{"", "   \n  ", "hash,value\n"} {
		_, err := importer.ParseImport(raw)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidFormat))
	}
}

func TestResolveHeaders_ExactMatchWins(t *testing.T) {
	headers := importer.ResolveHeaders([]string{"DateTime (UTC)", "Transaction Hash", "From", "To"})

	assert.Equal(t, "DateTime (UTC)", headers[importer.FieldTimestamp].Header)
	assert.Equal(t, "Transaction Hash", headers[importer.FieldTxHash].Header)
	assert.Equal(t, "From", headers[importer.FieldFrom].Header)
}

func TestResolveHeaders_FuzzyContainment(t *testing.T) {
	// "Value_IN(EURe)" is no exact variant but normalizes to a superstring
	// of "valuein"
	headers := importer.ResolveHeaders([]string{"Value_IN(EURe)", "Value_OUT(EURe)", "TxHash"})

	in := headers[importer.FieldValueIn]
	assert.Equal(t, "Value_IN(EURe)", in.Header)
	assert.Equal(t, "EURe", in.TokenHint)

	out := headers[importer.FieldValueOut]
	assert.Equal(t, "Value_OUT(EURe)", out.Header)
	assert.Equal(t, "EURe", out.TokenHint)

	assert.Equal(t, "TxHash", headers[importer.FieldTxHash].Header)
}

func TestResolveHeaders_CaseInsensitive(t *testing.T) {
	headers := importer.ResolveHeaders([]string{"TIMESTAMP", "TOKENSYMBOL", "blockno"})

	assert.Equal(t, "TIMESTAMP", headers[importer.FieldTimestamp].Header)
	assert.Equal(t, "TOKENSYMBOL", headers[importer.FieldTokenSymbol].Header)
	assert.Equal(t, "blockno", headers[importer.FieldBlockNumber].Header)
}

func TestResolveHeaders_PlaceholderHintIgnored(t *testing.T) {
	headers := importer.ResolveHeaders([]string{"Value_IN(x)"})

	in := headers[importer.FieldValueIn]
	assert.Equal(t, "Value_IN(x)", in.Header)
	assert.Empty(t, in.TokenHint)
}

func TestResolveHeaders_NoMatch(t *testing.T) {
	headers := importer.ResolveHeaders([]string{"Unrelated", "Columns"})

	assert.Empty(t, headers[importer.FieldTxHash].Header)
	assert.Empty(t, headers[importer.FieldValueIn].Header)
}

func TestResolveHeaders_FeeHint(t *testing.T) {
	headers := importer.ResolveHeaders([]string{"TxnFee(DAI)"})

	fee := headers[importer.FieldTxnFee]
	assert.Equal(t, "TxnFee(DAI)", fee.Header)
	assert.Equal(t, "DAI", fee.TokenHint)
}
