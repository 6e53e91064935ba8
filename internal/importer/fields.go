package importer

import (
	"regexp"
	"strings"
)

// Canonical field names resolved out of an import's header row.
const (
	FieldTimestamp       = "timestamp"
	FieldTxHash          = "txHash"
	FieldBlockNumber     = "blockNumber"
	FieldFrom            = "from"
	FieldTo              = "to"
	FieldContractAddress = "contractAddress"
	FieldValueIn         = "valueIn"
	FieldValueOut        = "valueOut"
	FieldTokenSymbol     = "tokenSymbol"
	FieldTxnFee          = "txnFee"
	FieldStatus          = "status"
	FieldErrCode         = "errCode"
	FieldMethod          = "method"
)

// fieldSpec declares the accepted header variants for one canonical field.
// Variants are tried in priority order. Fields with tokenHint extract a
// parenthesized token suffix from the matched header, e.g. "Value_IN(EURe)".
type fieldSpec struct {
	name      string
	variants  []string
	tokenHint bool
}

// fieldTable is the single declarative source of header matching rules.
// Resolution is centralized in ResolveHeaders so the fuzzy matching stays in
// one auditable place.
var fieldTable = []fieldSpec{
	{name: FieldTimestamp, variants: []string{"DateTime (UTC)", "DateTime", "timestamp", "date"}},
	{name: FieldTxHash, variants: []string{"Transaction Hash", "TxHash", "hash"}},
	{name: FieldBlockNumber, variants: []string{"Blockno", "Block Number", "blockNumber"}},
	{name: FieldFrom, variants: []string{"From"}},
	{name: FieldTo, variants: []string{"To"}},
	{name: FieldContractAddress, variants: []string{"ContractAddress", "tokenAddress"}},
	{name: FieldValueIn, variants: []string{"Value_IN", "valueIn", "amountIn"}, tokenHint: true},
	{name: FieldValueOut, variants: []string{"Value_OUT", "valueOut", "amountOut", "value", "amount"}, tokenHint: true},
	{name: FieldTokenSymbol, variants: []string{"TokenSymbol", "token", "symbol", "asset"}},
	{name: FieldTxnFee, variants: []string{"TxnFee(DAI)", "TxnFee(USD)", "TxnFee", "fee", "gasFee"}, tokenHint: true},
	{name: FieldStatus, variants: []string{"Status"}},
	{name: FieldErrCode, variants: []string{"ErrCode"}},
	{name: FieldMethod, variants: []string{"Method"}},
}

// ResolvedField is the outcome of matching one canonical field against the
// actual header row.
type ResolvedField struct {
	// Header is the original header string to index ParsedRow with.
	// Empty when nothing matched.
	Header string
	// TokenHint is the parenthesized token extracted from the matched
	// header, when the field supports hints. The "x" placeholder used by
	// some explorer exports is treated as no hint.
	TokenHint string
}

// HeaderMap maps canonical field names to their resolved headers.
type HeaderMap map[string]ResolvedField

// ResolveHeaders matches the actual header row against the field table.
//
// For each field, resolution runs in two passes over the variants in
// priority order: an exact case-sensitive match first, then a fuzzy pass
// where both sides are lower-cased and stripped of non-alphanumerics and the
// first actual header where either normalized string contains the other
// wins.
func ResolveHeaders(headers []string) HeaderMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	out := make(HeaderMap, len(fieldTable))
	for _, spec := range fieldTable {
		match := resolveField(spec, headers, normalized)
		if match.Header != "" && spec.tokenHint {
			match.TokenHint = extractTokenHint(match.Header)
		}
		out[spec.name] = match
	}
	return out
}

func resolveField(spec fieldSpec, headers, normalized []string) ResolvedField {
	// Pass 1: exact case-sensitive match
	for _, variant := range spec.variants {
		for _, h := range headers {
			if h == variant {
				return ResolvedField{Header: h}
			}
		}
	}

	// Pass 2: normalized substring containment, either direction
	for _, variant := range spec.variants {
		nv := normalizeHeader(variant)
		if nv == "" {
			continue
		}
		for i, nh := range normalized {
			if nh == "" {
				continue
			}
			if strings.Contains(nh, nv) || strings.Contains(nv, nh) {
				return ResolvedField{Header: headers[i]}
			}
		}
	}

	return ResolvedField{}
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader lower-cases and strips all non-alphanumeric characters,
// so "Value_IN(EURe)" and "valueIn" both compare as substrings.
func normalizeHeader(h string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(h), "")
}

var tokenHintPattern = regexp.MustCompile(`\(([^)]+)\)`)

// extractTokenHint pulls a parenthesized token out of a header name.
// Returns empty string when there is no suffix or the placeholder "x".
func extractTokenHint(header string) string {
	m := tokenHintPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	hint := strings.TrimSpace(m[1])
	if strings.EqualFold(hint, "x") {
		return ""
	}
	return hint
}
