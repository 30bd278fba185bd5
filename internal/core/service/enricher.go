package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// DateLayout renders event dates, e.g. "Tue Mar 02 2021".
const DateLayout = "Mon Jan 02 2006"

// fiatPlaces is the reporting precision of fiat values.
const fiatPlaces = 2

type priceResolver interface {
	Resolve(ctx context.Context, network domain.Network, currency string, timestamp int64) (decimal.Decimal, error)
}

// Enricher attaches prices and fiat values to reward events and totals them.
type Enricher struct {
	resolver priceResolver
	location *time.Location
	logger   *slog.Logger
	recorder domain.Recorder
}

// EnricherConfig configures an Enricher.
type EnricherConfig struct {
	Location *time.Location
	Logger   *slog.Logger
	Recorder domain.Recorder
}

func NewEnricher(resolver priceResolver, cfg EnricherConfig) *Enricher {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	return &Enricher{
		resolver: resolver,
		location: cfg.Location,
		logger:   cfg.Logger.With("component", "enricher"),
		recorder: cfg.Recorder,
	}
}

// Enrich walks events in order and returns the priced subset with totals.
// Events whose price cannot be resolved are dropped and do not contribute
// to either total. The input slice is not modified. A non-nil error is
// returned only when ctx is done.
func (e *Enricher) Enrich(ctx context.Context, events []domain.RewardEvent, network domain.Network, currency string, progress domain.ProgressFunc) (*domain.AggregateResult, error) {
	result := &domain.AggregateResult{
		Events:         make([]domain.RewardEvent, 0, len(events)),
		TotalFiatValue: decimal.Zero,
		TotalCoinValue: decimal.Zero,
		CurrencyCode:   currency,
		CoinCode:       network.Code,
	}

	for i, src := range events {
		price, err := e.resolver.Resolve(ctx, network, currency, src.BlockTimestamp)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			e.logger.Warn("no price found, excluding event",
				"network", network.Code,
				"currency", currency,
				"timestamp", src.BlockTimestamp,
				"error", err,
			)
			e.recorder.EventExcluded(network.Code)
			result.Excluded++
			continue
		}

		ev := src
		ev.CoinAmount = network.ToCoin(src.Amount)
		ev.PricePerCoin = price
		ev.FiatValue = price.Mul(ev.CoinAmount).Round(fiatPlaces)
		ev.Date = src.Time().In(e.location).Format(DateLayout)

		result.Events = append(result.Events, ev)
		result.TotalFiatValue = result.TotalFiatValue.Add(ev.FiatValue)
		result.TotalCoinValue = result.TotalCoinValue.Add(ev.CoinAmount)

		if progress != nil {
			progress(domain.Progress{Stage: "enrich", Events: len(events), Enriched: i + 1})
		}
	}

	result.TotalFiatValue = result.TotalFiatValue.Round(fiatPlaces)
	return result, nil
}
