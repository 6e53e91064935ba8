// Package analytics derives spending/income views from the ledger. The
// Analytics value has no identity of its own: every recomputation replaces
// it wholesale.
package analytics

import (
	"sort"
	"time"

	"github.com/kislikjeka/gnosistrack/internal/basecurrency"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
)

// MonthlyFlow is one month's cash flow, keyed by YYYY-MM.
type MonthlyFlow struct {
	Month            string  `json:"month"` // "2024-03"
	Year             int     `json:"year"`
	Income           float64 `json:"income"`
	Expenses         float64 `json:"expenses"`
	Net              float64 `json:"net"`
	TransactionCount int     `json:"transaction_count"`
}

// Analytics is the fully derived aggregate over the ledger for a resolved
// base currency.
type Analytics struct {
	TotalSpent          *ledger.TokenValue `json:"total_spent"`
	AverageTransaction  *ledger.TokenValue `json:"average_transaction"`
	TransactionsByToken []ledger.TokenValue `json:"transactions_by_token"`
	MonthlyBreakdown    []MonthlyFlow      `json:"monthly_breakdown"`
}

// Aggregate walks the ledger once and produces spending analytics in the
// given base currency.
//
// Every run also re-invokes the base-currency detector over the same
// snapshot; callers are expected to overwrite their cached detection with
// the returned one, nil included. An empty ledger yields all-null analytics
// and a nil detection, clearing the cache.
func Aggregate(txs []ledger.Transaction, baseCurrency string, detectOpts basecurrency.Options) (Analytics, *basecurrency.Detection) {
	if len(txs) == 0 {
		return Analytics{
			TransactionsByToken: []ledger.TokenValue{},
			MonthlyBreakdown:    []MonthlyFlow{},
		}, nil
	}

	detection := basecurrency.Detect(txs, detectOpts)

	totalSpent := 0.0
	byToken := map[string]*ledger.TokenValue{}
	var tokenOrder []string
	months := map[string]*MonthlyFlow{}

	for _, tx := range txs {
		expense := resolveExpenseAmount(tx, baseCurrency)
		income := resolveIncomeAmount(tx, baseCurrency)
		totalSpent += expense

		// Raw token exposure table: original valueOut token and amount,
		// deliberately unconverted
		if tx.ValueOut != nil {
			tv, ok := byToken[tx.ValueOut.Token]
			if !ok {
				tv = &ledger.TokenValue{Token: tx.ValueOut.Token}
				byToken[tx.ValueOut.Token] = tv
				tokenOrder = append(tokenOrder, tx.ValueOut.Token)
			}
			tv.Amount += tx.ValueOut.Amount
			if tx.ValueOut.USDValue != nil {
				usd := *tx.ValueOut.USDValue
				if tv.USDValue != nil {
					usd += *tv.USDValue
				}
				tv.USDValue = &usd
			}
		}

		key := tx.Timestamp.Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &MonthlyFlow{Month: key, Year: tx.Timestamp.Year()}
			months[key] = m
		}
		m.Income += income
		m.Expenses += expense
		m.Net = m.Income - m.Expenses
		m.TransactionCount++
	}

	byTokenList := make([]ledger.TokenValue, 0, len(tokenOrder))
	for _, tok := range tokenOrder {
		byTokenList = append(byTokenList, *byToken[tok])
	}

	monthly := make([]MonthlyFlow, 0, len(months))
	for _, m := range months {
		monthly = append(monthly, *m)
	}
	sort.Slice(monthly, func(i, j int) bool {
		return monthly[i].Month > monthly[j].Month
	})

	// The average divides by the full transaction count, not only those
	// with a resolved amount
	average := totalSpent / float64(len(txs))

	return Analytics{
		TotalSpent:          &ledger.TokenValue{Amount: totalSpent, Token: baseCurrency},
		AverageTransaction:  &ledger.TokenValue{Amount: average, Token: baseCurrency},
		TransactionsByToken: byTokenList,
		MonthlyBreakdown:    monthly,
	}, detection
}

// resolveExpenseAmount resolves a transaction's outgoing amount in the base
// currency: the stored conversion wins, then a direct token match, then the
// USD cache when the base is USD. Unresolvable transactions contribute zero.
func resolveExpenseAmount(tx ledger.Transaction, baseCurrency string) float64 {
	if tx.ConvertedValue != nil {
		return tx.ConvertedValue.Amount
	}
	if tx.ValueOut == nil {
		return 0
	}
	if tx.ValueOut.Token == baseCurrency {
		return tx.ValueOut.Amount
	}
	if baseCurrency == "USD" && tx.ValueOut.USDValue != nil {
		return *tx.ValueOut.USDValue
	}
	return 0
}

// resolveIncomeAmount is the valueIn analog of resolveExpenseAmount.
func resolveIncomeAmount(tx ledger.Transaction, baseCurrency string) float64 {
	if tx.ValueIn == nil {
		return 0
	}
	if tx.ValueIn.Token == baseCurrency {
		return tx.ValueIn.Amount
	}
	if baseCurrency == "USD" && tx.ValueIn.USDValue != nil {
		return *tx.ValueIn.USDValue
	}
	return 0
}

// ProjectMonthlySpend extrapolates the current month's spend to a full
// month, scaling by days elapsed. Returns nil when the breakdown has no
// entry for now's month.
func ProjectMonthlySpend(monthly []MonthlyFlow, now time.Time, baseCurrency string) *ledger.TokenValue {
	key := now.Format("2006-01")
	for _, m := range monthly {
		if m.Month != key {
			continue
		}
		daysElapsed := float64(now.Day())
		daysInMonth := float64(time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day())
		projected := m.Expenses / daysElapsed * daysInMonth
		return &ledger.TokenValue{Amount: projected, Token: baseCurrency}
	}
	return nil
}

// BudgetAlert reports a projected overrun against a user-set monthly budget.
type BudgetAlert struct {
	MonthlyBudget  float64 `json:"monthly_budget"`
	ProjectedSpend float64 `json:"projected_spend"`
	ThresholdPct   float64 `json:"threshold_pct"`
	Triggered      bool    `json:"triggered"`
}

// CheckBudget compares a projection against the monthly budget. The alert
// triggers when the projection reaches thresholdPct percent of the budget
// (default 80). Returns nil without a budget or a projection.
func CheckBudget(projected *ledger.TokenValue, monthlyBudget, thresholdPct float64) *BudgetAlert {
	if projected == nil || monthlyBudget <= 0 {
		return nil
	}
	if thresholdPct <= 0 {
		thresholdPct = 80
	}
	return &BudgetAlert{
		MonthlyBudget:  monthlyBudget,
		ProjectedSpend: projected.Amount,
		ThresholdPct:   thresholdPct,
		Triggered:      projected.Amount >= monthlyBudget*thresholdPct/100,
	}
}
