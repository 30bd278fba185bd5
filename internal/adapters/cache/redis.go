// Package cache keeps live price conversions in Redis so repeated reports
// for the same account do not hit the explorer again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// Ensure RedisPriceCache implements the PriceCache interface
var _ domain.PriceCache = (*RedisPriceCache)(nil)

// RedisPriceCache stores prices as decimal strings with a fixed TTL.
type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPriceCache(addr, password string, db int, ttl time.Duration) *RedisPriceCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPriceCache{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (r *RedisPriceCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisPriceCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached price %q: %w", val, err)
	}
	return price, true, nil
}

func (r *RedisPriceCache) Set(ctx context.Context, key string, price decimal.Decimal) error {
	return r.client.Set(ctx, key, price.String(), r.ttl).Err()
}

func (r *RedisPriceCache) Close() error {
	return r.client.Close()
}
