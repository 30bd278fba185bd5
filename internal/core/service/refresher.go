package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// SeriesReplacer swaps the in-memory series served to lookups.
type SeriesReplacer interface {
	Replace(series *domain.PriceSeries)
}

// PriceRefresher rebuilds stored price datasets from a market-data source.
// It is independent of request servicing; refreshes run one at a time.
type PriceRefresher struct {
	source   domain.MarketDataSource
	store    domain.SeriesStore
	replacer SeriesReplacer
	networks []domain.Network
	logger   *slog.Logger
	mu       sync.Mutex
}

func NewPriceRefresher(source domain.MarketDataSource, store domain.SeriesStore, replacer SeriesReplacer, networks []domain.Network, logger *slog.Logger) *PriceRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(networks) == 0 {
		networks = domain.Networks
	}
	return &PriceRefresher{
		source:   source,
		store:    store,
		replacer: replacer,
		networks: networks,
		logger:   logger.With("component", "price-refresher"),
	}
}

// UpdatePrices fetches the full history of every network's coin in currency,
// overwrites the stored dataset and publishes it to lookups. The first
// failure is returned as a *domain.RefreshError.
func (r *PriceRefresher) UpdatePrices(ctx context.Context, currency string) error {
	cur, err := domain.NormalizeCurrency(currency)
	if err != nil {
		return &domain.RefreshError{Currency: currency, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.networks {
		if err := r.refreshOne(ctx, n, cur); err != nil {
			r.logger.Error("price refresh failed", "currency", cur, "coin", n.Code, "error", err)
			return &domain.RefreshError{Currency: cur, Coin: n.Code, Err: err}
		}
	}
	return nil
}

func (r *PriceRefresher) refreshOne(ctx context.Context, n domain.Network, currency string) error {
	snapshots, err := r.source.FetchHistory(ctx, n.CoinGeckoID, currency)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	if len(snapshots) == 0 {
		return errors.New("market data source returned an empty series")
	}

	series := &domain.PriceSeries{Coin: n.Code, Currency: currency, Snapshots: snapshots}
	if err := r.store.Save(series); err != nil {
		return fmt.Errorf("saving dataset: %w", err)
	}
	if r.replacer != nil {
		r.replacer.Replace(series)
	}
	r.logger.Info("updated prices", "currency", currency, "coin", n.Code, "snapshots", len(snapshots))
	return nil
}
