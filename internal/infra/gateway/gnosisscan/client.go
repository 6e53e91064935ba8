package gnosisscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

const (
	defaultBaseURL = "https://api.gnosisscan.io/api"
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	pageSize       = 1000
)

// Client is an HTTP client for the Gnosisscan (Etherscan-compatible) API
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewClient creates a new Gnosisscan API client
func NewClient(apiKey string, log *logger.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		baseURL: defaultBaseURL,
		logger:  log.WithField("component", "gnosisscan"),
	}
}

// SetBaseURL overrides the default base URL (useful for testing)
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// doRequest performs an HTTP request with rate-limit retry.
// It retries up to maxRetries times with exponential backoff (1s, 2s, 4s) on 429 responses.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	backoff := time.Second
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.logger.Debug("API request", "module", params.Get("module"), "action", params.Get("action"), "attempt", attempt)
		attemptStart := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusOK {
			c.logger.Debug("API response", "status_code", resp.StatusCode, "duration_ms", time.Since(attemptStart).Milliseconds())
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				c.logger.Error("rate limit exhausted", "attempts", maxRetries+1)
				return nil, &RateLimitError{
					RetryAfter: backoff,
					Message:    "Gnosisscan API rate limit exceeded after retries",
				}
			}
			c.logger.Warn("rate limited, retrying", "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				continue
			}
		}

		c.logger.Error("API error", "status_code", resp.StatusCode)
		return nil, fmt.Errorf("Gnosisscan API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil, fmt.Errorf("Gnosisscan API: exhausted retries")
}

// GetTokenTransfers fetches ERC-20 transfer events touching an address
// since a block. Pagination walks pages of pageSize until a short page.
func (c *Client) GetTokenTransfers(ctx context.Context, address string, startBlock int64) ([]RawTokenTransfer, error) {
	fetchStart := time.Now()

	var all []RawTokenTransfer
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("module", "account")
		params.Set("action", "tokentx")
		params.Set("address", address)
		params.Set("startblock", strconv.FormatInt(startBlock, 10))
		params.Set("page", strconv.Itoa(page))
		params.Set("offset", strconv.Itoa(pageSize))
		params.Set("sort", "asc")

		body, err := c.doRequest(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("GetTokenTransfers failed: %w", err)
		}

		var resp TokenTransferResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode Gnosisscan response: %w", err)
		}
		// "0" with "No transactions found" is an empty page, not an error
		if resp.Status != "1" && resp.Message != "No transactions found" {
			return nil, fmt.Errorf("Gnosisscan API error: %s", resp.Message)
		}

		all = append(all, resp.Result...)
		if len(resp.Result) < pageSize {
			break
		}
	}

	c.logger.Info("token transfers fetched", "address", address, "count", len(all), "duration_ms", time.Since(fetchStart).Milliseconds())
	return all, nil
}

// RateLimitError represents a rate limit error from the Gnosisscan API
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is (or wraps) a rate limit error
func IsRateLimitError(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
