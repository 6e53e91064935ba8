package ledger

import "time"

// TokenValue is a monetary amount denominated in a token, with an optional
// USD-equivalent cache populated by the forex step.
type TokenValue struct {
	Amount   float64  `json:"amount"`
	Token    string   `json:"token"`
	USDValue *float64 `json:"usd_value,omitempty"`
}

// PriceInfo is a point-in-time price quotation.
type PriceInfo struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Status is the on-chain execution status of a transaction.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// TransactionType classifies a transaction relative to the tracked address.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
	TypeNeutral TransactionType = "NEUTRAL"
)

// Entry is the basic ledger entry: provenance, values and status, with no
// address-relative classification.
//
// ValueIn/ValueOut are nil rather than zero when the parsed amount was
// missing, unparseable or not positive. TxnFee is always present; a missing
// fee parses to amount 0.
type Entry struct {
	ID              string      `json:"id"`
	TxHash          string      `json:"tx_hash"`
	BlockNumber     string      `json:"block_number,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
	FromAddress     string      `json:"from_address,omitempty"`
	ToAddress       string      `json:"to_address,omitempty"`
	ContractAddress string      `json:"contract_address,omitempty"`
	ValueIn         *TokenValue `json:"value_in,omitempty"`
	ValueOut        *TokenValue `json:"value_out,omitempty"`
	TxnFee          TokenValue  `json:"txn_fee"`
	HistoricalPrice *PriceInfo  `json:"historical_price,omitempty"`
	CurrentValue    *PriceInfo  `json:"current_value,omitempty"`
	ConvertedValue  *PriceInfo  `json:"converted_value,omitempty"`
	Status          Status      `json:"status"`
	ErrorCode       string      `json:"error_code,omitempty"`
	Method          string      `json:"method,omitempty"`
}

// Transaction is the address-classified ledger entry: an Entry extended with
// the income/expense classification derived at creation time relative to the
// tracked address. SignedAmount is positive for income, negative for expense
// and zero for neutral transactions.
type Transaction struct {
	Entry
	Type         TransactionType `json:"transaction_type"`
	SignedAmount float64         `json:"signed_amount"`
}

// DateRange is the closed timestamp interval covered by a set of entries.
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Metadata describes the ledger as a whole. It is recomputed after every
// ledger change, never independently mutated.
type Metadata struct {
	ImportedAt        time.Time  `json:"imported_at"`
	TotalTransactions int        `json:"total_transactions"`
	DateRange         *DateRange `json:"date_range,omitempty"`
	TrackedAddress    string     `json:"tracked_address,omitempty"`
}
