// Package token canonicalizes free-text token symbols into the three
// Gnosis Pay settlement stablecoins. Every other package normalizes
// through here before comparing symbols.
package token

import "strings"

// Canonical display forms of the supported stablecoins.
const (
	USDC = "USDC"
	EURe = "EURe"
	GBPe = "GBPe"
)

// Supported returns the supported stablecoins in their fixed ranking order.
func Supported() []string {
	return []string{USDC, EURe, GBPe}
}

// Normalize maps a free-text symbol to its canonical display form.
// Comparison is trimmed and case-insensitive, but the returned value is the
// canonical casing, not the upper-cased input. Unknown symbols pass through
// trimmed with their original case. Empty input yields an empty string.
func Normalize(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	switch strings.ToUpper(trimmed) {
	case "USDC", "USD":
		return USDC
	case "EUR", "EURE":
		return EURe
	case "GBP", "GBPE":
		return GBPe
	default:
		return trimmed
	}
}

// IsSupportedStablecoin reports whether the symbol normalizes to one of the
// supported stablecoins.
func IsSupportedStablecoin(symbol string) bool {
	switch Normalize(symbol) {
	case USDC, EURe, GBPe:
		return true
	default:
		return false
	}
}

// CurrencyCode returns the ISO currency code backing a canonical stablecoin
// symbol ("USDC" -> "USD"). Unknown symbols are returned unchanged.
func CurrencyCode(stablecoin string) string {
	switch stablecoin {
	case USDC:
		return "USD"
	case EURe:
		return "EUR"
	case GBPe:
		return "GBP"
	default:
		return stablecoin
	}
}
