// Package forex applies stored exchange rates to ledger transactions.
package forex

import (
	"time"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
)

// ExchangeRate is one directed conversion rate. The rates list is flat and
// caller-ordered; lookups take the first match, with no recency sorting.
type ExchangeRate struct {
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// FindRate returns the first rate matching the (from, to) pair.
func FindRate(rates []ExchangeRate, from, to string) (float64, bool) {
	for _, r := range rates {
		if r.FromCurrency == from && r.ToCurrency == to {
			return r.Rate, true
		}
	}
	return 0, false
}

// Convert returns a copy of the transaction with conversion fields patched.
//
// When valueIn is denominated in another currency and a rate exists, the
// converted value is stored in the target currency. Independently, a USD
// target also tries to populate the usdValue cache on the fee, valueIn and
// valueOut; each lookup stands alone and a missing rate leaves that field
// untouched rather than erased.
func Convert(tx ledger.Transaction, rates []ExchangeRate, targetCurrency string) ledger.Transaction {
	out := tx

	if tx.ValueIn != nil && tx.ValueIn.Token != targetCurrency {
		if rate, ok := FindRate(rates, tx.ValueIn.Token, targetCurrency); ok {
			out.ConvertedValue = &ledger.PriceInfo{
				Amount:   tx.ValueIn.Amount * rate,
				Currency: targetCurrency,
			}
		}
	}

	if targetCurrency == "USD" {
		out.TxnFee = withUSDValue(tx.TxnFee, rates)
		out.ValueIn = withUSDValuePtr(tx.ValueIn, rates)
		out.ValueOut = withUSDValuePtr(tx.ValueOut, rates)
	}

	return out
}

func withUSDValue(v ledger.TokenValue, rates []ExchangeRate) ledger.TokenValue {
	if rate, ok := FindRate(rates, v.Token, "USD"); ok {
		usd := v.Amount * rate
		v.USDValue = &usd
	}
	return v
}

func withUSDValuePtr(v *ledger.TokenValue, rates []ExchangeRate) *ledger.TokenValue {
	if v == nil {
		return nil
	}
	patched := withUSDValue(*v, rates)
	return &patched
}
