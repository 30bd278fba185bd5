package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// CachingConverter memoises successful live conversions in a PriceCache.
// Cache failures are logged and never fail the conversion.
type CachingConverter struct {
	next   domain.PriceConverter
	cache  domain.PriceCache
	logger *slog.Logger
}

func NewCachingConverter(next domain.PriceConverter, cache domain.PriceCache, logger *slog.Logger) *CachingConverter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingConverter{next: next, cache: cache, logger: logger.With("component", "price-cache")}
}

func (c *CachingConverter) ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error) {
	key := ConversionKey(timestamp, coin, currency)
	if price, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("price cache read failed", "key", key, "error", err)
	} else if ok {
		return price, nil
	}

	price, err := c.next.ConvertPrice(ctx, timestamp, coin, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.cache.Set(ctx, key, price); err != nil {
		c.logger.Warn("price cache write failed", "key", key, "error", err)
	}
	return price, nil
}

// ConversionKey identifies a cached conversion.
func ConversionKey(timestamp int64, coin, currency string) string {
	return fmt.Sprintf("price:%s:%s:%d", coin, currency, timestamp)
}
