package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

const (
	// DefaultTTL keeps rates fresh within one forex refresh cycle.
	DefaultTTL = 15 * time.Minute

	// StaleTTL is the TTL for stale rate fallback when the provider is down.
	StaleTTL = 24 * time.Hour

	// KeyPrefix is the prefix for rate cache keys
	KeyPrefix = "rate:"
)

// RateCache is a Redis-backed exchange rate cache. The refresh worker
// writes every fetched table through it and reads it back, stale copies
// included, when the rate provider is unreachable.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRateCache creates a rate cache with the default TTL
func NewRateCache(client *redis.Client, log *logger.Logger) *RateCache {
	return NewRateCacheWithTTL(client, DefaultTTL, log)
}

// NewRateCacheWithTTL creates a rate cache with a custom TTL
func NewRateCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *RateCache {
	return &RateCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "rate_cache"),
	}
}

// cachedRate wraps a rate with provenance metadata
type cachedRate struct {
	Rate      forex.ExchangeRate `json:"rate"`
	UpdatedAt time.Time          `json:"updated_at"`
	Source    string             `json:"source"`
}

func rateKey(from, to string) string {
	return fmt.Sprintf("%s%s:%s", KeyPrefix, from, to)
}

// Get retrieves a cached rate for a directed currency pair.
func (c *RateCache) Get(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error) {
	return c.get(ctx, rateKey(from, to))
}

// GetStale retrieves a rate from the stale fallback cache.
func (c *RateCache) GetStale(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error) {
	return c.get(ctx, rateKey(from, to)+":stale")
}

func (c *RateCache) get(ctx context.Context, key string) (*forex.ExchangeRate, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get cached rate: %w", err)
	}

	var cached cachedRate
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rate: %w", err)
	}

	c.logger.Debug("cache hit", "key", key)
	return &cached.Rate, true, nil
}

// SetAll caches a whole rate table in one pipeline. Every entry is
// written twice: a fresh copy expiring with the refresh cycle and a
// long-lived stale copy for provider outages.
func (c *RateCache) SetAll(ctx context.Context, rates []forex.ExchangeRate, source string) error {
	if len(rates) == 0 {
		return nil
	}

	now := time.Now().UTC()
	pipe := c.client.Pipeline()
	for _, rate := range rates {
		data, err := json.Marshal(cachedRate{Rate: rate, UpdatedAt: now, Source: source})
		if err != nil {
			return fmt.Errorf("failed to marshal rate: %w", err)
		}
		key := rateKey(rate.FromCurrency, rate.ToCurrency)
		pipe.Set(ctx, key, data, c.ttl)
		pipe.Set(ctx, key+":stale", data, StaleTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache rates: %w", err)
	}
	return nil
}

// Clear removes all cached rates including stale copies.
func (c *RateCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return iter.Err()
}
