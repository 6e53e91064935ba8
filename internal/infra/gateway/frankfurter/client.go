package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
	"github.com/kislikjeka/gnosistrack/pkg/token"
)

const (
	defaultBaseURL = "https://api.frankfurter.app"
	requestTimeout = 30 * time.Second
)

// Client fetches fiat reference rates from the Frankfurter API (ECB data,
// no API key). Stablecoin pairs map onto their fiat currency codes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new Frankfurter API client
func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		logger:     log.WithField("component", "frankfurter"),
	}
}

// SetBaseURL overrides the default base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates builds the full directed rate table between the supported
// stablecoins, quoting each pair through its fiat code.
func (c *Client) FetchRates(ctx context.Context) ([]forex.ExchangeRate, error) {
	start := time.Now()
	supported := token.Supported()

	var rates []forex.ExchangeRate
	for _, from := range supported {
		base := token.CurrencyCode(from)

		symbols := make([]string, 0, len(supported)-1)
		codeToToken := make(map[string]string, len(supported)-1)
		for _, to := range supported {
			if to == from {
				continue
			}
			code := token.CurrencyCode(to)
			symbols = append(symbols, code)
			codeToToken[code] = to
		}

		fetched, err := c.latest(ctx, base, symbols)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		for code, rate := range fetched {
			to, ok := codeToToken[code]
			if !ok {
				continue
			}
			rates = append(rates, forex.ExchangeRate{
				FromCurrency: from,
				ToCurrency:   to,
				Rate:         rate,
				UpdatedAt:    now,
			})
			// USD pairs double as the USD cache source
			if code == "USD" {
				rates = append(rates, forex.ExchangeRate{
					FromCurrency: from,
					ToCurrency:   "USD",
					Rate:         rate,
					UpdatedAt:    now,
				})
			}
		}
	}

	// USDC trades at par for the USD cache
	rates = append(rates, forex.ExchangeRate{
		FromCurrency: token.USDC,
		ToCurrency:   "USD",
		Rate:         1,
		UpdatedAt:    time.Now().UTC(),
	})

	c.logger.Info("rates fetched", "pairs", len(rates), "duration_ms", time.Since(start).Milliseconds())
	return rates, nil
}

func (c *Client) latest(ctx context.Context, base string, symbols []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("from", base)
	if len(symbols) > 0 {
		to := symbols[0]
		for _, s := range symbols[1:] {
			to += "," + s
		}
		params.Set("to", to)
	}
	reqURL := c.baseURL + "/latest?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Frankfurter API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Frankfurter response: %w", err)
	}
	return parsed.Rates, nil
}
