package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/pkg/retry"
)

// Price sources reported to the Recorder.
const (
	SourceDataset = "dataset"
	SourceRemote  = "remote"
)

// PriceResolver resolves the fiat price of a coin at a block timestamp.
// The bundled dataset is consulted first; on a miss the live converter is
// asked. Throttling re-enters the whole sequence after a backoff, up to the
// configured retry cap.
type PriceResolver struct {
	provider  domain.PriceProvider
	converter domain.PriceConverter
	location  *time.Location
	retryCfg  retry.Config
	logger    *slog.Logger
	recorder  domain.Recorder
}

// ResolverConfig configures a PriceResolver.
type ResolverConfig struct {
	Location *time.Location
	Retry    retry.Config
	Logger   *slog.Logger
	Recorder domain.Recorder
}

func NewPriceResolver(provider domain.PriceProvider, converter domain.PriceConverter, cfg ResolverConfig) *PriceResolver {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	return &PriceResolver{
		provider:  provider,
		converter: converter,
		location:  cfg.Location,
		retryCfg:  cfg.Retry,
		logger:    cfg.Logger.With("component", "price-resolver"),
		recorder:  cfg.Recorder,
	}
}

// Resolve returns the price rounded to two decimal places. The error wraps
// domain.ErrPriceNotFound or domain.ErrThrottled when resolution is terminal
// for the event, or the context error when the request was cancelled.
func (r *PriceResolver) Resolve(ctx context.Context, network domain.Network, currency string, timestamp int64) (decimal.Decimal, error) {
	day := time.Unix(timestamp, 0).In(r.location)

	isThrottled := func(err error) bool {
		return errors.Is(err, domain.ErrThrottled)
	}
	onRetry := func(attempt int, err error, backoff time.Duration) {
		r.logger.Warn("price lookup throttled, retrying",
			"network", network.Code,
			"timestamp", timestamp,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
	}

	return retry.Do(ctx, r.retryCfg, isThrottled, onRetry, func() (decimal.Decimal, error) {
		price, err := r.provider.Lookup(network.Code, currency, day)
		if err == nil {
			r.recorder.PriceResolved(network.Code, SourceDataset)
			return price, nil
		}
		if !errors.Is(err, domain.ErrPriceNotFound) {
			return decimal.Zero, fmt.Errorf("dataset lookup: %w", err)
		}
		if r.converter == nil {
			return decimal.Zero, err
		}

		price, err = r.converter.ConvertPrice(ctx, timestamp, network.Code, currency)
		if err != nil {
			return decimal.Zero, fmt.Errorf("remote conversion: %w", err)
		}
		r.recorder.PriceResolved(network.Code, SourceRemote)
		return price.Round(2), nil
	})
}
