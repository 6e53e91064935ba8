package tracker

import (
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/gnosistrack/internal/analytics"
	"github.com/kislikjeka/gnosistrack/internal/basecurrency"
	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
)

// Settings is the user-controlled configuration of a tracker document.
type Settings struct {
	// BaseCurrency overrides detection when set; empty means "use the
	// detected stablecoin".
	BaseCurrency      string               `json:"base_currency"`
	LastForexUpdate   *time.Time           `json:"last_forex_update,omitempty"`
	ExchangeRates     []forex.ExchangeRate `json:"exchange_rates"`
	ExcludedContracts []string             `json:"excluded_contracts,omitempty"`

	// MonthlyBudget of 0 disables budget alerts. AlertThresholdPct
	// defaults to 80 when unset.
	MonthlyBudget     float64 `json:"monthly_budget,omitempty"`
	AlertThresholdPct float64 `json:"alert_threshold_pct,omitempty"`

	// Detection knobs; both historical behaviors stay available.
	DetectionPolicy        basecurrency.Policy `json:"detection_policy,omitempty"`
	IncludeFeesInDetection bool                `json:"include_fees_in_detection,omitempty"`
}

// DetectionOptions assembles the detector options from settings.
func (s Settings) DetectionOptions() basecurrency.Options {
	return basecurrency.Options{
		Policy:      s.DetectionPolicy,
		IncludeFees: s.IncludeFeesInDetection,
	}
}

// Document is one user's complete tracker state: the ledger plus its
// derived, independently recomputed views.
type Document struct {
	Transactions []ledger.Transaction    `json:"transactions"`
	Metadata     ledger.Metadata         `json:"metadata"`
	Settings     Settings                `json:"settings"`
	Analytics    *analytics.Analytics    `json:"analytics,omitempty"`
	Detection    *basecurrency.Detection `json:"detected_base_currency,omitempty"`
	BudgetAlert  *analytics.BudgetAlert  `json:"budget_alert,omitempty"`
}

// NewDocument returns an empty document with default settings.
func NewDocument() *Document {
	return &Document{
		Transactions: []ledger.Transaction{},
		Settings: Settings{
			DetectionPolicy: basecurrency.CountFirst,
		},
	}
}

// Operation kinds, one per entry point of the service.
const (
	OpImportBatch         = "import-batch"
	OpAdd                 = "add-one"
	OpUpdate              = "update-one"
	OpDelete              = "delete-one"
	OpSetBaseCurrency     = "set-base-currency"
	OpUpdateExchangeRates = "update-exchange-rates"
	OpConvertValues       = "convert-transaction-values"
	OpCalculateAnalytics  = "calculate-analytics"
)

// Operation is one audit record of the operation log. Structural failures
// are recorded here as data instead of aborting the log.
type Operation struct {
	ID        uuid.UUID           `json:"id"`
	Kind      string              `json:"kind"`
	AppliedAt time.Time           `json:"applied_at"`
	Error     *apperrors.AppError `json:"error,omitempty"`
}
