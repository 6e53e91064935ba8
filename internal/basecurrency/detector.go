// Package basecurrency infers the user's settlement stablecoin from the
// ledger's stablecoin-denominated flows.
//
// Two historical call sites disagreed on whether transaction count or volume
// is the primary ranking key, and on whether fee tokens count toward volume.
// Both behaviors are preserved behind explicit options instead of silently
// picking one.
package basecurrency

import (
	"fmt"
	"math"
	"sort"

	"github.com/kislikjeka/gnosistrack/internal/ledger"
	"github.com/kislikjeka/gnosistrack/pkg/token"
)

// Policy selects the primary ranking metric.
type Policy string

const (
	// CountFirst ranks stablecoins by flow count, breaking ties by volume.
	CountFirst Policy = "count_first"
	// VolumeFirst ranks stablecoins by volume, breaking ties by flow count.
	VolumeFirst Policy = "volume_first"
)

// NoDataReason is the user-visible explanation when the ledger holds no
// stablecoin-denominated flows.
const NoDataReason = "No Gnosis Pay stablecoin transactions found"

// Options configures a detection run.
type Options struct {
	// Policy defaults to CountFirst.
	Policy Policy
	// IncludeFees counts transaction fee tokens toward the statistics.
	IncludeFees bool
}

// Detection is the cached result of a detector run. It is recomputed on
// every analytics recalculation, never incrementally maintained.
type Detection struct {
	Stablecoin        string             `json:"stablecoin"`
	CurrencyCode      string             `json:"currency_code"`
	Confidence        float64            `json:"confidence"`
	TransactionCounts map[string]int     `json:"transaction_counts"`
	TotalVolume       map[string]float64 `json:"total_volume"`
	Reason            string             `json:"reason"`
}

// NoData returns the zero-valued sentinel detection for call sites that
// record "no result" as data rather than handling a nil.
func NoData() *Detection {
	return &Detection{
		TransactionCounts: map[string]int{token.USDC: 0, token.EURe: 0, token.GBPe: 0},
		TotalVolume:       map[string]float64{token.USDC: 0, token.EURe: 0, token.GBPe: 0},
		Reason:            NoDataReason,
	}
}

// Detect scans the transactions' stablecoin flows and picks the dominant
// settlement currency. Returns nil when no stablecoin flows exist.
//
// Volume always accumulates absolute amounts, never net or signed ones. The
// confidence score is 0.6*min(gap/max(top,1),1)+0.4 over whichever metric
// decided the ranking, so it lands in [0.4, 1.0].
func Detect(txs []ledger.Transaction, opts Options) *Detection {
	if opts.Policy == "" {
		opts.Policy = CountFirst
	}

	counts := map[string]int{}
	volumes := map[string]float64{}
	for _, sc := range token.Supported() {
		counts[sc] = 0
		volumes[sc] = 0
	}

	totalFlows := 0
	for _, tx := range txs {
		for _, v := range stablecoinFlows(tx, opts.IncludeFees) {
			sc := token.Normalize(v.Token)
			counts[sc]++
			volumes[sc] += math.Abs(v.Amount)
			totalFlows++
		}
	}

	if totalFlows == 0 {
		return nil
	}

	candidates := append([]string(nil), token.Supported()...)
	primary, secondary := metricsFor(opts.Policy, counts, volumes)

	sort.SliceStable(candidates, func(i, j int) bool {
		return primary(candidates[i]) > primary(candidates[j])
	})

	top, second := candidates[0], candidates[1]
	decisive := primary
	decisiveIsPrimary := true
	if primary(top) == primary(second) {
		// Exact tie on the primary metric: the secondary decides
		decisive = secondary
		decisiveIsPrimary = false
		if secondary(second) > secondary(top) {
			top, second = second, top
		}
	}

	gap := decisive(top) - decisive(second)
	confidence := 0.6*math.Min(gap/math.Max(decisive(top), 1), 1) + 0.4

	return &Detection{
		Stablecoin:        top,
		CurrencyCode:      token.CurrencyCode(top),
		Confidence:        confidence,
		TransactionCounts: counts,
		TotalVolume:       volumes,
		Reason:            buildReason(opts.Policy, decisiveIsPrimary, top, counts, volumes, totalFlows),
	}
}

// stablecoinFlows collects the transaction's token values that normalize to
// a supported stablecoin. Fees join only when enabled and non-zero.
func stablecoinFlows(tx ledger.Transaction, includeFees bool) []ledger.TokenValue {
	var flows []ledger.TokenValue
	if tx.ValueIn != nil && token.IsSupportedStablecoin(tx.ValueIn.Token) {
		flows = append(flows, *tx.ValueIn)
	}
	if tx.ValueOut != nil && token.IsSupportedStablecoin(tx.ValueOut.Token) {
		flows = append(flows, *tx.ValueOut)
	}
	if includeFees && tx.TxnFee.Amount > 0 && token.IsSupportedStablecoin(tx.TxnFee.Token) {
		flows = append(flows, tx.TxnFee)
	}
	return flows
}

// metricsFor returns (primary, secondary) metric accessors for a policy.
func metricsFor(policy Policy, counts map[string]int, volumes map[string]float64) (func(string) float64, func(string) float64) {
	countOf := func(sc string) float64 { return float64(counts[sc]) }
	volumeOf := func(sc string) float64 { return volumes[sc] }
	if policy == VolumeFirst {
		return volumeOf, countOf
	}
	return countOf, volumeOf
}

// buildReason produces the user-visible explanation of the decision. These
// strings surface in the UI verbatim; tests pin them.
func buildReason(policy Policy, decisiveIsPrimary bool, top string, counts map[string]int, volumes map[string]float64, totalFlows int) string {
	countDecided := (policy == CountFirst) == decisiveIsPrimary

	var reason string
	if countDecided {
		pct := float64(counts[top]) / float64(totalFlows) * 100
		reason = fmt.Sprintf("%s selected by transaction count: %d of %d stablecoin flows (%.1f%%)",
			top, counts[top], totalFlows, pct)
	} else {
		totalVolume := 0.0
		for _, v := range volumes {
			totalVolume += v
		}
		pct := 0.0
		if totalVolume > 0 {
			pct = volumes[top] / totalVolume * 100
		}
		reason = fmt.Sprintf("%s selected by volume: %.2f of %.2f total stablecoin volume (%.1f%%)",
			top, volumes[top], totalVolume, pct)
	}

	if !decisiveIsPrimary {
		if policy == CountFirst {
			reason += " (tie on transaction count broken by volume)"
		} else {
			reason += " (tie on volume broken by transaction count)"
		}
	}
	return reason
}
