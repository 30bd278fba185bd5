// Package price serves bundled historical coin prices.
package price

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

const dayLayout = "2006-01-02"

var _ domain.PriceProvider = (*Provider)(nil)

type seriesKey struct {
	coin     string
	currency string
}

// dayIndex maps a calendar day to the first snapshot recorded for it.
type dayIndex map[string]decimal.Decimal

// Provider answers exact-day price lookups from immutable in-memory series.
// Replace publishes a new generation atomically, so lookups never observe a
// partially updated series and need no locking.
type Provider struct {
	location *time.Location
	current  atomic.Pointer[map[seriesKey]dayIndex]
	writeMu  sync.Mutex
}

// NewProvider returns an empty provider. Days are bucketed in loc.
func NewProvider(loc *time.Location) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	p := &Provider{location: loc}
	empty := make(map[seriesKey]dayIndex)
	p.current.Store(&empty)
	return p
}

// LoadProvider reads the dataset of every (currency, network) pair from
// store. Pairs with no stored dataset are left empty; every lookup for them
// falls through to the live converter.
func LoadProvider(store domain.SeriesStore, currencies []string, networks []domain.Network, loc *time.Location, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := NewProvider(loc)
	for _, cur := range currencies {
		for _, n := range networks {
			series, err := store.Load(cur, n.Code)
			if errors.Is(err, ErrDatasetMissing) {
				logger.Warn("no bundled price dataset", "currency", cur, "coin", n.Code)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("loading %s/%s prices: %w", cur, n.Code, err)
			}
			p.Replace(series)
			logger.Debug("loaded price dataset", "currency", cur, "coin", n.Code, "snapshots", len(series.Snapshots))
		}
	}
	return p, nil
}

// Replace installs series for its (coin, currency) pair.
func (p *Provider) Replace(series *domain.PriceSeries) {
	idx := make(dayIndex, len(series.Snapshots))
	for _, s := range series.Snapshots {
		day := s.Day.In(p.location).Format(dayLayout)
		if _, seen := idx[day]; seen {
			continue
		}
		idx[day] = s.Price
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	old := *p.current.Load()
	next := make(map[seriesKey]dayIndex, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[keyFor(series.Coin, series.Currency)] = idx
	p.current.Store(&next)
}

// Lookup returns the price for the calendar day containing day, rounded to
// two decimal places. There is no interpolation between days.
func (p *Provider) Lookup(coin, currency string, day time.Time) (decimal.Decimal, error) {
	idx, ok := (*p.current.Load())[keyFor(coin, currency)]
	if !ok {
		return decimal.Zero, domain.ErrPriceNotFound
	}
	price, ok := idx[day.In(p.location).Format(dayLayout)]
	if !ok {
		return decimal.Zero, domain.ErrPriceNotFound
	}
	return price.Round(2), nil
}

// Len returns the number of days known for a pair.
func (p *Provider) Len(coin, currency string) int {
	return len((*p.current.Load())[keyFor(coin, currency)])
}

func keyFor(coin, currency string) seriesKey {
	return seriesKey{coin: strings.ToUpper(coin), currency: strings.ToLower(currency)}
}
