package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/ledger"
	"github.com/kislikjeka/gnosistrack/internal/tracker"
	"github.com/kislikjeka/gnosistrack/internal/transport/httpapi/handler"
)

func getSettings(t *testing.T, r http.Handler) tracker.Settings {
	t.Helper()
	rec := doJSON(t, r, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings tracker.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	return settings
}

// Base currency tests

func TestSettingsHandler_SetBaseCurrency(t *testing.T) {
	r, _ := newTestRouter(uuid.New())

	rec := doJSON(t, r, http.MethodPut, "/settings/base-currency", handler.BaseCurrencyRequest{
		Currency: "eur",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Aliases are normalized before storage
	assert.Equal(t, "EURe", getSettings(t, r).BaseCurrency)
}

func TestSettingsHandler_SetBaseCurrency_BadBody(t *testing.T) {
	r, _ := newTestRouter(uuid.New())

	req := httptest.NewRequest(http.MethodPut, "/settings/base-currency", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Exchange rate tests

func TestSettingsHandler_UpdateRates(t *testing.T) {
	r, _ := newTestRouter(uuid.New())

	rec := doJSON(t, r, http.MethodPut, "/settings/rates", handler.RatesRequest{
		Rates: []forex.ExchangeRate{
			{FromCurrency: "EURe", ToCurrency: "USD", Rate: 1.1},
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	settings := getSettings(t, r)
	require.Len(t, settings.ExchangeRates, 1)
	assert.Equal(t, 1.1, settings.ExchangeRates[0].Rate)
	assert.NotNil(t, settings.LastForexUpdate)
}

func TestSettingsHandler_Convert(t *testing.T) {
	r, _ := newTestRouter(uuid.New())
	seedImport(t, r)

	rec := doJSON(t, r, http.MethodPut, "/settings/rates", handler.RatesRequest{
		Rates: []forex.ExchangeRate{
			{FromCurrency: "EURe", ToCurrency: "USD", Rate: 1.1},
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/settings/convert", handler.ConvertRequest{
		TargetCurrency: "USD",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Transactions []ledger.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Transactions, 2)

	// Converting to USD populates the usd_value caches from the rate table
	expense := body.Transactions[1]
	require.NotNil(t, expense.ValueOut)
	require.NotNil(t, expense.ValueOut.USDValue)
	assert.InDelta(t, 44.0, *expense.ValueOut.USDValue, 1e-9)
}

// Operations tests

func TestSettingsHandler_Operations(t *testing.T) {
	r, _ := newTestRouter(uuid.New())
	seedImport(t, r)

	rec := doJSON(t, r, http.MethodPut, "/settings/base-currency", handler.BaseCurrencyRequest{
		Currency: "USDC",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/operations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Operations []tracker.Operation `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Operations, 2)
	assert.Equal(t, tracker.OpImportBatch, body.Operations[0].Kind)
	assert.Equal(t, tracker.OpSetBaseCurrency, body.Operations[1].Kind)
}

func TestSettingsHandler_Operations_InvalidLimit(t *testing.T) {
	r, _ := newTestRouter(uuid.New())

	rec := doJSON(t, r, http.MethodGet, "/operations?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
