package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kislikjeka/gnosistrack/internal/analytics"
	"github.com/kislikjeka/gnosistrack/internal/forex"
	"github.com/kislikjeka/gnosistrack/internal/importer"
	"github.com/kislikjeka/gnosistrack/internal/platform/user"
	"github.com/kislikjeka/gnosistrack/pkg/logger"
	"github.com/kislikjeka/gnosistrack/pkg/token"
)

// RateProvider fetches the current stablecoin exchange rate table.
type RateProvider interface {
	FetchRates(ctx context.Context) ([]forex.ExchangeRate, error)
}

// TransferSource fetches on-chain transfers for a wallet address.
type TransferSource interface {
	FetchInputs(ctx context.Context, address string, startBlock int64) ([]importer.Input, error)
}

// UserSource lists accounts with an attached wallet address.
type UserSource interface {
	ListWithWallet(ctx context.Context) ([]*user.User, error)
}

// TrackerService is the subset of tracker operations the jobs drive.
type TrackerService interface {
	SyncInputs(ctx context.Context, userID uuid.UUID, address string, inputs []importer.Input) (int, error)
	UpdateExchangeRates(ctx context.Context, userID uuid.UUID, rates []forex.ExchangeRate) error
	ConvertTransactionValues(ctx context.Context, userID uuid.UUID, target string) error
	CalculateAnalytics(ctx context.Context, userID uuid.UUID) (*analytics.Analytics, error)
}

// RateCache caches fetched rates and serves them back when the provider
// is down. Optional.
type RateCache interface {
	SetAll(ctx context.Context, rates []forex.ExchangeRate, source string) error
	Get(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error)
	GetStale(ctx context.Context, from, to string) (*forex.ExchangeRate, bool, error)
}

// Scheduler runs the periodic background jobs: forex refresh and wallet
// sync. Jobs are best-effort per user; one failing user never aborts the
// rest of a run.
type Scheduler struct {
	cron      *cron.Cron
	users     UserSource
	tracker   TrackerService
	rates     RateProvider
	transfers TransferSource
	cache     RateCache
	log       *logger.Logger

	jobTimeout time.Duration
}

// Config wires the scheduler's dependencies and cron specs.
type Config struct {
	Users     UserSource
	Tracker   TrackerService
	Rates     RateProvider
	Transfers TransferSource
	Cache     RateCache
	Logger    *logger.Logger

	// Cron specs; empty uses the defaults.
	RatesSpec string // default: every 15 minutes
	SyncSpec  string // default: hourly
}

const (
	defaultRatesSpec  = "*/15 * * * *"
	defaultSyncSpec   = "0 * * * *"
	defaultJobTimeout = 10 * time.Minute
)

// New creates the scheduler and registers its jobs.
func New(cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		users:      cfg.Users,
		tracker:    cfg.Tracker,
		rates:      cfg.Rates,
		transfers:  cfg.Transfers,
		cache:      cfg.Cache,
		log:        cfg.Logger.WithField("component", "scheduler"),
		jobTimeout: defaultJobTimeout,
	}

	ratesSpec := cfg.RatesSpec
	if ratesSpec == "" {
		ratesSpec = defaultRatesSpec
	}
	syncSpec := cfg.SyncSpec
	if syncSpec == "" {
		syncSpec = defaultSyncSpec
	}

	if s.rates != nil {
		if _, err := s.cron.AddFunc(ratesSpec, s.runWithTimeout(s.RefreshRates)); err != nil {
			return nil, err
		}
	}
	if s.transfers != nil {
		if _, err := s.cron.AddFunc(syncSpec, s.runWithTimeout(s.SyncWallets)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runWithTimeout(job func(context.Context)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		job(ctx)
	}
}

// RefreshRates fetches the current rate table, caches it and pushes it
// into every wallet-holding account's settings. When the provider is
// unreachable the previously cached table is reused, stale copies
// included, so accounts keep a usable rate list across outages.
func (s *Scheduler) RefreshRates(ctx context.Context) {
	start := time.Now()
	rates, err := s.rates.FetchRates(ctx)
	if err != nil {
		s.log.WithError(err).Warn("forex fetch failed, falling back to cached rates")
		rates = s.cachedRates(ctx)
		if len(rates) == 0 {
			s.log.Error("forex refresh failed, no cached rates available")
			return
		}
	} else if s.cache != nil {
		if err := s.cache.SetAll(ctx, rates, "provider"); err != nil {
			s.log.WithError(err).Warn("failed to cache rates")
		}
	}

	users, err := s.users.ListWithWallet(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list users for forex refresh")
		return
	}
	updated := 0
	for _, u := range users {
		if err := s.tracker.UpdateExchangeRates(ctx, u.ID, rates); err != nil {
			s.log.WithError(err).Warn("failed to update rates", "user_id", u.ID)
			continue
		}
		if err := s.tracker.ConvertTransactionValues(ctx, u.ID, ""); err != nil {
			s.log.WithError(err).Warn("failed to reconvert values", "user_id", u.ID)
			continue
		}
		updated++
	}
	s.log.WithDuration(time.Since(start)).Info("forex refresh done", "rates", len(rates), "users_updated", updated)
}

// cachedRates rebuilds the rate table from the cache, preferring fresh
// entries and dropping to the stale copies otherwise.
func (s *Scheduler) cachedRates(ctx context.Context) []forex.ExchangeRate {
	if s.cache == nil {
		return nil
	}

	var rates []forex.ExchangeRate
	for _, pair := range ratePairs() {
		rate, ok, err := s.cache.Get(ctx, pair[0], pair[1])
		if err != nil || !ok {
			rate, ok, err = s.cache.GetStale(ctx, pair[0], pair[1])
		}
		if err != nil || !ok {
			continue
		}
		rates = append(rates, *rate)
	}
	return rates
}

// ratePairs enumerates every directed pair the refresh job writes: the
// stablecoin cross pairs plus the USD quote for each coin.
func ratePairs() [][2]string {
	supported := token.Supported()

	var pairs [][2]string
	for _, from := range supported {
		for _, to := range supported {
			if from != to {
				pairs = append(pairs, [2]string{from, to})
			}
		}
		pairs = append(pairs, [2]string{from, "USD"})
	}
	return pairs
}

// SyncWallets pulls fresh transfers for every attached wallet and merges
// them as one batch per user, then refreshes analytics when anything new
// landed. Already-known hashes are dropped by the merge.
func (s *Scheduler) SyncWallets(ctx context.Context) {
	start := time.Now()
	users, err := s.users.ListWithWallet(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list users for wallet sync")
		return
	}

	for _, u := range users {
		inputs, err := s.transfers.FetchInputs(ctx, u.WalletAddress, 0)
		if err != nil {
			s.log.WithError(err).Warn("wallet sync fetch failed", "user_id", u.ID, "address", u.WalletAddress)
			continue
		}

		added, err := s.tracker.SyncInputs(ctx, u.ID, u.WalletAddress, inputs)
		if err != nil {
			s.log.WithError(err).Warn("wallet sync merge failed", "user_id", u.ID)
			continue
		}
		if added > 0 {
			if _, err := s.tracker.CalculateAnalytics(ctx, u.ID); err != nil {
				s.log.WithError(err).Warn("post-sync analytics failed", "user_id", u.ID)
			}
		}
		s.log.Info("wallet synced", "user_id", u.ID, "fetched", len(inputs), "added", added)
	}
	s.log.WithDuration(time.Since(start)).Info("wallet sync done", "users", len(users))
}
