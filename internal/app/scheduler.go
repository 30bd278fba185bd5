package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// priceUpdater is satisfied by service.PriceRefresher.
type priceUpdater interface {
	UpdatePrices(ctx context.Context, currency string) error
}

// RefreshScheduler periodically rebuilds the price datasets of a fixed set
// of currencies.
type RefreshScheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// NewRefreshScheduler registers one job per currency. Jobs of a currency
// never overlap.
func NewRefreshScheduler(updater priceUpdater, currencies []string, interval time.Duration, logger *slog.Logger) (*RefreshScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	logger = logger.With("component", "refresh-scheduler")

	for _, cur := range currencies {
		_, err := scheduler.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func(ctx context.Context) {
				started := time.Now()
				if err := updater.UpdatePrices(ctx, cur); err != nil {
					logger.Error("scheduled price refresh failed", "currency", cur, "error", err)
					return
				}
				logger.Info("scheduled price refresh done", "currency", cur, "elapsed", time.Since(started))
			}),
			gocron.WithName("refresh_prices_"+cur),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = scheduler.Shutdown()
			return nil, fmt.Errorf("failed to create job for %s: %w", cur, err)
		}
		logger.Info("scheduled price refresh", "currency", cur, "interval", interval)
	}
	return &RefreshScheduler{scheduler: scheduler, logger: logger}, nil
}

func (s *RefreshScheduler) Start() { s.scheduler.Start() }

func (s *RefreshScheduler) Shutdown() error { return s.scheduler.Shutdown() }
