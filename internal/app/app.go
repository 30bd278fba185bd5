// Package app wires configuration into a ready-to-use report service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/cache"
	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/chain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/coingecko"
	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/metrics"
	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/price"
	"github.com/TeneoProtocolAI/staking-rewards/internal/adapters/subscan"
	"github.com/TeneoProtocolAI/staking-rewards/internal/config"
	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/core/service"
	"github.com/TeneoProtocolAI/staking-rewards/internal/pkg/retry"
)

// App holds the wired components.
type App struct {
	Reports   *service.ReportService
	Refresher *service.PriceRefresher
	Provider  *price.Provider
	Metrics   *metrics.Prometheus

	cache *cache.RedisPriceCache
}

// New builds every component from cfg. The Redis cache is optional: when
// REDIS_ADDR is set but unreachable, live conversions run uncached.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	networks := []struct {
		network domain.Network
		url     string
	}{
		{domain.Polkadot, cfg.SubscanPolkadotURL},
		{domain.Kusama, cfg.SubscanKusamaURL},
	}
	chains := make([]domain.ChainService, 0, len(networks))
	for _, n := range networks {
		client := subscan.NewClient(subscan.Config{BaseURL: n.url, APIKey: cfg.SubscanAPIKey, Logger: logger})
		chains = append(chains, chain.NewSubstrateService(n.network, client, logger))
	}

	store := price.NewFileStore(cfg.PricesDir)
	provider, err := price.LoadProvider(store, domain.SupportedCurrencies, domain.Networks, cfg.Location, logger)
	if err != nil {
		return nil, fmt.Errorf("loading price datasets: %w", err)
	}

	a := &App{Provider: provider, Metrics: metrics.NewPrometheus()}

	var priceCache domain.PriceCache
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisPriceCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PriceCacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("redis unavailable, live prices will not be cached", "addr", cfg.RedisAddr, "error", err)
			_ = rc.Close()
		} else {
			a.cache = rc
			priceCache = rc
		}
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.PriceRetryMax
	if cfg.PriceRetryBackoff > 0 {
		retryCfg.InitialBackoff = cfg.PriceRetryBackoff
	}

	a.Reports = service.NewReportService(chains, provider, service.ReportConfig{
		PageSize:       service.DefaultPageSize,
		PageDelay:      cfg.PageDelay,
		RequestTimeout: cfg.RequestTimeout,
		Location:       cfg.Location,
		Retry:          retryCfg,
		Cache:          priceCache,
		Logger:         logger,
		Recorder:       a.Metrics,
	})

	gecko := coingecko.ClientConfigDefaults()
	gecko.BaseURL = cfg.CoinGeckoBaseURL
	gecko.APIKey = cfg.CoinGeckoAPIKey
	gecko.Logger = logger
	a.Refresher = service.NewPriceRefresher(coingecko.NewClient(gecko), store, provider, domain.Networks, logger)

	return a, nil
}

// Close releases external connections.
func (a *App) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
