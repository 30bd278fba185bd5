// Package coingecko fetches full historical price series from CoinGecko's
// market_chart endpoint. Requests are paced by a token-bucket limiter and
// retried on 429/5xx responses.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// Compile-time check that Client implements domain.MarketDataSource.
var _ domain.MarketDataSource = (*Client)(nil)

// ClientConfig holds configuration for the CoinGecko client.
type ClientConfig struct {
	// APIKey is an optional demo API key sent as x-cg-demo-api-key.
	APIKey string

	// BaseURL defaults to https://api.coingecko.com/api/v3
	BaseURL string

	Timeout time.Duration

	MaxRetries int

	// RateLimitPerMin defaults to 25, under the public tier's 30/min.
	RateLimitPerMin int

	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         "https://api.coingecko.com/api/v3",
		Timeout:         60 * time.Second,
		MaxRetries:      3,
		RateLimitPerMin: 25,
		Logger:          slog.Default(),
	}
}

// Client implements domain.MarketDataSource.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(config ClientConfig) *Client {
	defaults := ClientConfigDefaults()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	var hc *resty.Client
	if config.HTTPClient != nil {
		hc = resty.NewWithClient(config.HTTPClient)
	} else {
		hc = resty.New()
	}
	hc.SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if config.APIKey != "" {
		hc.SetHeader("x-cg-demo-api-key", config.APIKey)
	}

	rps := float64(config.RateLimitPerMin) / 60.0
	return &Client{
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  config.Logger.With("component", "coingecko-client"),
	}
}

// marketChartResponse represents /coins/{id}/market_chart.
//
//	{"prices": [[1704067200000, 3456.78], ...], "market_caps": [...], "total_volumes": [...]}
type marketChartResponse struct {
	Prices [][]json.Number `json:"prices"`
}

type apiError struct {
	Error  string `json:"error"`
	Status struct {
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// FetchHistory returns the complete daily history (days=max) of coinID in currency.
func (c *Client) FetchHistory(ctx context.Context, coinID, currency string) ([]domain.PriceSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var out marketChartResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", coinID).
		SetQueryParams(map[string]string{
			"vs_currency": strings.ToLower(currency),
			"days":        "max",
			"interval":    "daily",
		}).
		SetResult(&out).
		Get("/coins/{id}/market_chart")
	if err != nil {
		return nil, fmt.Errorf("coingecko market_chart %s: %w", coinID, err)
	}
	if res.StatusCode() != http.StatusOK {
		var apiErr apiError
		msg := strings.TrimSpace(string(res.Body()))
		if jsonErr := json.Unmarshal(res.Body(), &apiErr); jsonErr == nil {
			if apiErr.Error != "" {
				msg = apiErr.Error
			} else if apiErr.Status.ErrorMessage != "" {
				msg = apiErr.Status.ErrorMessage
			}
		}
		return nil, fmt.Errorf("coingecko market_chart %s: HTTP %d: %s", coinID, res.StatusCode(), msg)
	}

	snapshots := make([]domain.PriceSnapshot, 0, len(out.Prices))
	for i, p := range out.Prices {
		if len(p) < 2 {
			continue
		}
		ms, err := p[0].Float64()
		if err != nil {
			return nil, fmt.Errorf("point %d: bad timestamp %q", i, p[0])
		}
		price, err := decimal.NewFromString(p[1].String())
		if err != nil {
			return nil, fmt.Errorf("point %d: bad price %q: %w", i, p[1], err)
		}
		snapshots = append(snapshots, domain.PriceSnapshot{Day: time.UnixMilli(int64(ms)), Price: price})
	}
	c.logger.Debug("fetched market chart", "coin", coinID, "currency", currency, "points", len(snapshots))
	return snapshots, nil
}
