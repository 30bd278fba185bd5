package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RewardPageSource fetches single pages of an account's reward/slash listing.
type RewardPageSource interface {
	// FetchRewardPage returns the page at the given zero-based index.
	// A page with a nil Events map signals that the listing is exhausted.
	FetchRewardPage(ctx context.Context, address string, page, rows int) (*RewardPage, error)
}

// PriceConverter converts one coin to fiat at an exact timestamp using a live endpoint.
type PriceConverter interface {
	// ConvertPrice returns ErrThrottled when the endpoint refuses for rate
	// reasons and ErrPriceNotFound when it has no answer.
	ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error)
}

// ChainService defines the operations required to interact with a relay chain.
type ChainService interface {
	RewardPageSource
	PriceConverter

	// IsSupported checks if the network is served by this service.
	IsSupported(network string) bool

	// Network returns the static description of the served network.
	Network() Network

	// ValidateAddress checks that address is a well-formed account of this network.
	ValidateAddress(address string) error
}

// PriceProvider looks up bundled historical prices.
type PriceProvider interface {
	// Lookup returns the price on the calendar day of day, rounded to two
	// decimal places, or ErrPriceNotFound.
	Lookup(coin, currency string, day time.Time) (decimal.Decimal, error)
}

// SeriesStore persists historical price datasets.
type SeriesStore interface {
	Load(currency, coin string) (*PriceSeries, error)
	Save(series *PriceSeries) error
}

// MarketDataSource fetches full historical series from a public market-data API.
type MarketDataSource interface {
	FetchHistory(ctx context.Context, coinID, currency string) ([]PriceSnapshot, error)
}

// PriceCache stores prices obtained from a PriceConverter.
type PriceCache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) (price decimal.Decimal, ok bool, err error)
	Set(ctx context.Context, key string, price decimal.Decimal) error
}

// Recorder receives operational counters.
type Recorder interface {
	PageFetched(network string)
	PriceResolved(network, source string)
	EventExcluded(network string)
	ReportCompleted(network string, d time.Duration, err error)
}
