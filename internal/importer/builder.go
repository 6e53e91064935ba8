package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
	"github.com/kislikjeka/gnosistrack/pkg/token"
)

// timestampLayouts are tried in order when parsing cell timestamps.
// Etherscan-style exports use "2006-01-02 15:04:05" in UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// BuildOptions configures a batch build from parsed rows.
type BuildOptions struct {
	// TrackedAddress is the user's address for income/expense
	// classification. Empty means every transaction is NEUTRAL.
	TrackedAddress string
	// DefaultTimestamp is used when a row's timestamp cell is empty or
	// unparseable.
	DefaultTimestamp time.Time
	// TransactionIDs supplies one opaque id per data row, in row order.
	// Fewer ids than rows is a structural error.
	TransactionIDs []string
}

// BuildTransactions converts every parsed row into a canonical transaction.
//
// The identifier-count precondition is all-or-nothing: when the supplied ids
// cannot cover the data rows the whole build fails with INVALID_FORMAT and
// no transactions are returned.
func BuildTransactions(imp *ParsedImport, opts BuildOptions) ([]ledger.Transaction, error) {
	if len(opts.TransactionIDs) < len(imp.Rows) {
		return nil, apperrors.InvalidFormat(fmt.Sprintf(
			"insufficient transaction identifiers: have %d, need %d",
			len(opts.TransactionIDs), len(imp.Rows)))
	}

	headers := ResolveHeaders(imp.Headers)

	txs := make([]ledger.Transaction, 0, len(imp.Rows))
	for i, row := range imp.Rows {
		txs = append(txs, buildFromRow(row, headers, opts.TransactionIDs[i], opts))
	}
	return txs, nil
}

func buildFromRow(row ParsedRow, headers HeaderMap, id string, opts BuildOptions) ledger.Transaction {
	cell := func(field string) string {
		return row[headers[field].Header]
	}

	entry := ledger.Entry{
		ID:              id,
		TxHash:          cell(FieldTxHash),
		BlockNumber:     cell(FieldBlockNumber),
		Timestamp:       parseTimestamp(cell(FieldTimestamp), opts.DefaultTimestamp),
		FromAddress:     cell(FieldFrom),
		ToAddress:       cell(FieldTo),
		ContractAddress: cell(FieldContractAddress),
		Status:          resolveStatus(cell(FieldStatus)),
		ErrorCode:       cell(FieldErrCode),
		Method:          cell(FieldMethod),
	}

	symbol := cell(FieldTokenSymbol)
	if in := parseValue(cell(FieldValueIn)); in != nil {
		entry.ValueIn = &ledger.TokenValue{
			Amount: *in,
			Token:  resolveToken(symbol, headers[FieldValueIn].TokenHint, entry.ContractAddress),
		}
	}
	if out := parseValue(cell(FieldValueOut)); out != nil {
		entry.ValueOut = &ledger.TokenValue{
			Amount: *out,
			Token:  resolveToken(symbol, headers[FieldValueOut].TokenHint, entry.ContractAddress),
		}
	}

	entry.TxnFee = ledger.TokenValue{
		Amount: parseFee(cell(FieldTxnFee)),
		Token:  resolveFeeToken(headers[FieldTxnFee].TokenHint),
	}

	txType, signed := Classify(entry, opts.TrackedAddress)
	return ledger.Transaction{Entry: entry, Type: txType, SignedAmount: signed}
}

// Input is the direct build path for manual adds and explorer API records.
// Amounts are expected to be already decimal-scaled by the caller.
type Input struct {
	ID              string             `json:"id,omitempty"`
	TxHash          string             `json:"tx_hash"`
	BlockNumber     string             `json:"block_number,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	FromAddress     string             `json:"from_address,omitempty"`
	ToAddress       string             `json:"to_address,omitempty"`
	ContractAddress string             `json:"contract_address,omitempty"`
	ValueIn         *ledger.TokenValue `json:"value_in,omitempty"`
	ValueOut        *ledger.TokenValue `json:"value_out,omitempty"`
	TxnFee          *ledger.TokenValue `json:"txn_fee,omitempty"`
	Status          string             `json:"status,omitempty"`
	ErrorCode       string             `json:"error_code,omitempty"`
	Method          string             `json:"method,omitempty"`
}

// BuildFromInput converts a structured input into a canonical transaction,
// applying the same normalization and classification as the import path.
func BuildFromInput(in Input, trackedAddress string) ledger.Transaction {
	entry := ledger.Entry{
		ID:              in.ID,
		TxHash:          in.TxHash,
		BlockNumber:     in.BlockNumber,
		Timestamp:       in.Timestamp,
		FromAddress:     in.FromAddress,
		ToAddress:       in.ToAddress,
		ContractAddress: in.ContractAddress,
		ValueIn:         normalizeValue(in.ValueIn),
		ValueOut:        normalizeValue(in.ValueOut),
		Status:          resolveStatus(in.Status),
		ErrorCode:       in.ErrorCode,
		Method:          in.Method,
	}

	if in.TxnFee != nil {
		entry.TxnFee = *in.TxnFee
	}
	if entry.TxnFee.Token == "" {
		entry.TxnFee.Token = "USD"
	}

	txType, signed := Classify(entry, trackedAddress)
	return ledger.Transaction{Entry: entry, Type: txType, SignedAmount: signed}
}

// Classify derives the income/expense type and signed amount of an entry
// relative to a tracked address. Addresses compare lower-cased; when both or
// neither side matches the tracked address the entry is NEUTRAL.
func Classify(entry ledger.Entry, trackedAddress string) (ledger.TransactionType, float64) {
	tracked := strings.ToLower(strings.TrimSpace(trackedAddress))
	if tracked == "" {
		return ledger.TypeNeutral, 0
	}

	from := strings.ToLower(entry.FromAddress)
	to := strings.ToLower(entry.ToAddress)

	switch {
	case from == tracked && to != tracked:
		return ledger.TypeExpense, -outgoingAmount(entry)
	case to == tracked && from != tracked:
		return ledger.TypeIncome, incomingAmount(entry)
	default:
		return ledger.TypeNeutral, 0
	}
}

// outgoingAmount prefers the parsed valueOut, falling back to valueIn.
func outgoingAmount(entry ledger.Entry) float64 {
	if entry.ValueOut != nil {
		return entry.ValueOut.Amount
	}
	if entry.ValueIn != nil {
		return entry.ValueIn.Amount
	}
	return 0
}

// incomingAmount prefers the parsed valueIn, falling back to valueOut.
func incomingAmount(entry ledger.Entry) float64 {
	if entry.ValueIn != nil {
		return entry.ValueIn.Amount
	}
	if entry.ValueOut != nil {
		return entry.ValueOut.Amount
	}
	return 0
}

// resolveToken applies the token precedence for a value side: explicit
// symbol column, then the matched header's parenthetical hint, then the
// contract address, then the chain default.
func resolveToken(symbol, headerHint, contractAddress string) string {
	if s := strings.TrimSpace(symbol); s != "" {
		return token.Normalize(s)
	}
	if headerHint != "" {
		return token.Normalize(headerHint)
	}
	if contractAddress != "" {
		return contractAddress
	}
	return "ETH"
}

// resolveFeeToken uses the fee column's token hint when present
// (e.g. "TxnFee(DAI)"), defaulting to USD.
func resolveFeeToken(headerHint string) string {
	if headerHint != "" {
		return headerHint
	}
	return "USD"
}

// resolveStatus treats "1" or any casing of "success" as SUCCESS.
func resolveStatus(raw string) ledger.Status {
	raw = strings.TrimSpace(raw)
	if raw == "1" || strings.EqualFold(raw, "success") {
		return ledger.StatusSuccess
	}
	return ledger.StatusFailed
}

// parseValue parses a value cell permissively: unparseable or non-positive
// amounts collapse to nil, never to zero.
func parseValue(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// parseFee parses a fee cell, defaulting to zero.
func parseFee(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseTimestamp tries the known layouts, then unix seconds, then falls back
// to the caller-supplied default. Results are normalized to UTC.
func parseTimestamp(cell string, fallback time.Time) time.Time {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseInt(cell, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return fallback
}

// normalizeValue enforces the positive-amount invariant and canonical token
// form on a caller-supplied token value.
func normalizeValue(v *ledger.TokenValue) *ledger.TokenValue {
	if v == nil || v.Amount <= 0 {
		return nil
	}
	out := *v
	out.Token = token.Normalize(out.Token)
	return &out
}
