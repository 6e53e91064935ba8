package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kislikjeka/gnosistrack/pkg/token"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"usdc canonical", "USDC", "USDC"},
		{"usd alias", "USD", "USDC"},
		{"usd lowercase", "usd", "USDC"},
		{"eur alias", "EUR", "EURe"},
		{"eure uppercase", "EURE", "EURe"},
		{"eure mixed case", "EURe", "EURe"},
		{"gbp alias", "GBP", "GBPe"},
		{"gbpe lowercase", "gbpe", "GBPe"},
		{"whitespace trimmed", "  eure  ", "EURe"},
		{"unknown passes through", "DAI", "DAI"},
		{"unknown keeps case", "wEth", "wEth"},
		{"unknown trimmed", " xDAI ", "xDAI"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, token.Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"USD", "usdc", "eur", "EURE", "gbp", "GBPe", "DAI", " wxdai ", ""}
	for _, in := range inputs {
		once := token.Normalize(in)
		assert.Equal(t, once, token.Normalize(once), "normalize must be idempotent for %q", in)
	}
}

func TestIsSupportedStablecoin(t *testing.T) {
	assert.True(t, token.IsSupportedStablecoin("usd"))
	assert.True(t, token.IsSupportedStablecoin("EURe"))
	assert.True(t, token.IsSupportedStablecoin("GBPE"))
	assert.False(t, token.IsSupportedStablecoin("DAI"))
	assert.False(t, token.IsSupportedStablecoin("ETH"))
	assert.False(t, token.IsSupportedStablecoin(""))
}

func TestCurrencyCode(t *testing.T) {
	assert.Equal(t, "USD", token.CurrencyCode(token.USDC))
	assert.Equal(t, "EUR", token.CurrencyCode(token.EURe))
	assert.Equal(t, "GBP", token.CurrencyCode(token.GBPe))
	assert.Equal(t, "DAI", token.CurrencyCode("DAI"))
}
