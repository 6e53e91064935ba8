package schedule_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/gnosistrack/internal/analytics"
	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/importer"
	"github.com/kislikjeka/gnosistrack/internal/platform/user"
	"github.com/kislikjeka/gnosistrack/internal/schedule"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
)

// Fakes

type fakeRateProvider struct {
	rates []forex.ExchangeRate
	err   error
	calls int
}

func (f *fakeRateProvider) FetchRates(ctx context.Context) ([]forex.ExchangeRate, error) {
	f.calls++
	return f.rates, f.err
}

type fakeRateCache struct {
	fresh   map[string]forex.ExchangeRate
	stale   map[string]forex.ExchangeRate
	setAlls int
}

func pairKey(from, to string) string { return from + ":" + to }

func (f *fakeRateCache) SetAll(ctx context.Context, rates []forex.ExchangeRate, source string) error {
	f.setAlls++
	return nil
}

func (f *fakeRateCache) Get(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error) {
	if r, ok := f.fresh[pairKey(from, to)]; ok {
		return &r, true, nil
	}
	return nil, false, nil
}

func (f *fakeRateCache) GetStale(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error) {
	if r, ok := f.stale[pairKey(from, to)]; ok {
		return &r, true, nil
	}
	return nil, false, nil
}

type fakeUsers struct {
	users []*user.User
}

func (f *fakeUsers) ListWithWallet(ctx context.Context) ([]*user.User, error) {
	return f.users, nil
}

type fakeTracker struct {
	ratesByUser map[uuid.UUID][]forex.ExchangeRate
	converted   map[uuid.UUID]int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		ratesByUser: make(map[uuid.UUID][]forex.ExchangeRate),
		converted:   make(map[uuid.UUID]int),
	}
}

func (f *fakeTracker) SyncInputs(ctx context.Context, userID uuid.UUID, address string, inputs []importer.Input) (int, error) {
	return len(inputs), nil
}

func (f *fakeTracker) UpdateExchangeRates(ctx context.Context, userID uuid.UUID, rates []forex.ExchangeRate) error {
	f.ratesByUser[userID] = rates
	return nil
}

func (f *fakeTracker) ConvertTransactionValues(ctx context.Context, userID uuid.UUID, target string) error {
	f.converted[userID]++
	return nil
}

func (f *fakeTracker) CalculateAnalytics(ctx context.Context, userID uuid.UUID) (*analytics.Analytics, error) {
	return &analytics.Analytics{}, nil
}

func walletUser() *user.User {
	return &user.User{
		ID:            uuid.New(),
		Email:         "alice@example.com",
		WalletAddress: "0x1111111111111111111111111111111111111111",
	}
}

func newScheduler(t *testing.T, provider *fakeRateProvider, cache *fakeRateCache, users *fakeUsers, tr *fakeTracker) *schedule.Scheduler {
	t.Helper()
	s, err := schedule.New(schedule.Config{
		Users:   users,
		Tracker: tr,
		Rates:   provider,
		Cache:   cache,
		Logger:  logger.New("test", io.Discard),
	})
	require.NoError(t, err)
	return s
}

// RefreshRates tests

func TestScheduler_RefreshRates(t *testing.T) {
	u := walletUser()
	provider := &fakeRateProvider{rates: []forex.ExchangeRate{
		{FromCurrency: "EURe", ToCurrency: "USDC", Rate: 1.08},
		{FromCurrency: "EURe", ToCurrency: "USD", Rate: 1.08},
	}}
	cache := &fakeRateCache{}
	tr := newFakeTracker()

	s := newScheduler(t, provider, cache, &fakeUsers{users: []*user.User{u}}, tr)
	s.RefreshRates(context.Background())

	assert.Equal(t, 1, cache.setAlls)
	require.Len(t, tr.ratesByUser[u.ID], 2)
	assert.Equal(t, 1.08, tr.ratesByUser[u.ID][0].Rate)
	assert.Equal(t, 1, tr.converted[u.ID])
}

func TestScheduler_RefreshRates_ProviderDownUsesCachedRates(t *testing.T) {
	u := walletUser()
	provider := &fakeRateProvider{err: errors.New("connection refused")}
	now := time.Now().UTC()
	cache := &fakeRateCache{
		fresh: map[string]forex.ExchangeRate{
			pairKey("EURe", "USDC"): {FromCurrency: "EURe", ToCurrency: "USDC", Rate: 1.08, UpdatedAt: now},
		},
		stale: map[string]forex.ExchangeRate{
			pairKey("GBPe", "USDC"): {FromCurrency: "GBPe", ToCurrency: "USDC", Rate: 1.27, UpdatedAt: now.Add(-2 * time.Hour)},
		},
	}
	tr := newFakeTracker()

	s := newScheduler(t, provider, cache, &fakeUsers{users: []*user.User{u}}, tr)
	s.RefreshRates(context.Background())

	// Accounts still get a rate table, assembled from fresh plus stale
	// cache entries, and nothing is written back to the cache.
	assert.Zero(t, cache.setAlls)
	got := tr.ratesByUser[u.ID]
	require.Len(t, got, 2)

	rateFor := func(from, to string) float64 {
		for _, r := range got {
			if r.FromCurrency == from && r.ToCurrency == to {
				return r.Rate
			}
		}
		return 0
	}
	assert.Equal(t, 1.08, rateFor("EURe", "USDC"))
	assert.Equal(t, 1.27, rateFor("GBPe", "USDC"))
	assert.Equal(t, 1, tr.converted[u.ID])
}

func TestScheduler_RefreshRates_ProviderDownEmptyCache(t *testing.T) {
	u := walletUser()
	provider := &fakeRateProvider{err: errors.New("connection refused")}
	tr := newFakeTracker()

	s := newScheduler(t, provider, &fakeRateCache{}, &fakeUsers{users: []*user.User{u}}, tr)
	s.RefreshRates(context.Background())

	// Nothing to push, accounts keep their previous rate table.
	assert.Empty(t, tr.ratesByUser)
	assert.Zero(t, tr.converted[u.ID])
}
