package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/pkg/retry"
)

// pageSource serves pre-built pages; the page after the last is terminal.
type pageSource struct {
	pages    []*domain.RewardPage
	failAt   int
	requests []int
}

func (s *pageSource) FetchRewardPage(ctx context.Context, address string, page, rows int) (*domain.RewardPage, error) {
	s.requests = append(s.requests, page)
	if s.failAt > 0 && page == s.failAt {
		return nil, errors.New("connection reset")
	}
	if page >= len(s.pages) {
		return &domain.RewardPage{Count: 0}, nil
	}
	return s.pages[page], nil
}

// makePage builds a page of n events labelled "<page>-<i>".
func makePage(page, n int, ts int64, amount int64) *domain.RewardPage {
	events := make(map[int]domain.RewardEvent, n)
	for i := 0; i < n; i++ {
		events[i] = domain.RewardEvent{
			BlockTimestamp: ts,
			Amount:         decimal.NewFromInt(amount),
			EventID:        fmt.Sprintf("%d-%d", page, i),
			ModuleID:       "staking",
		}
	}
	return &domain.RewardPage{Events: events, Count: n}
}

type mapProvider struct {
	prices map[string]decimal.Decimal // key "COIN/cur/2006-01-02"
	calls  int
	mu     sync.Mutex
}

func (p *mapProvider) Lookup(coin, currency string, day time.Time) (decimal.Decimal, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	price, ok := p.prices[coin+"/"+currency+"/"+day.UTC().Format("2006-01-02")]
	if !ok {
		return decimal.Zero, domain.ErrPriceNotFound
	}
	return price.Round(2), nil
}

// scriptedConverter returns errs in order, then price.
type scriptedConverter struct {
	errs  []error
	price decimal.Decimal
	calls int
}

func (c *scriptedConverter) ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error) {
	c.calls++
	if c.calls <= len(c.errs) {
		return decimal.Zero, c.errs[c.calls-1]
	}
	if c.price.IsZero() {
		return decimal.Zero, domain.ErrPriceNotFound
	}
	return c.price, nil
}

type fakeChain struct {
	*pageSource
	converter domain.PriceConverter
	network   domain.Network
	addrErr   error
}

func (f *fakeChain) ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error) {
	return f.converter.ConvertPrice(ctx, timestamp, coin, currency)
}

func (f *fakeChain) IsSupported(network string) bool {
	return network == f.network.Code || network == f.network.Name
}

func (f *fakeChain) Network() domain.Network { return f.network }

func (f *fakeChain) ValidateAddress(address string) error { return f.addrErr }

type memCache struct {
	data map[string]decimal.Decimal
}

func (m *memCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	p, ok := m.data[key]
	return p, ok, nil
}

func (m *memCache) Set(ctx context.Context, key string, price decimal.Decimal) error {
	m.data[key] = price
	return nil
}

func fastRetry(n int) retry.Config {
	return retry.Config{MaxRetries: n, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func noSleep(context.Context, time.Duration) error { return nil }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 2021-03-01 12:00:00 UTC
const march1 int64 = 1614600000
