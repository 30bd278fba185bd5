// Package subscan talks to the Subscan explorer API of one relay chain.
package subscan

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

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

const (
	rewardSlashPath    = "/api/scan/account/reward_slash"
	priceConverterPath = "/api/open/price_converter"
)

var (
	_ domain.RewardPageSource = (*Client)(nil)
	_ domain.PriceConverter   = (*Client)(nil)
)

// Config holds configuration for a Subscan client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// Client issues reward and price-conversion requests against one network.
// It never retries on its own: callers decide how failures propagate.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var hc *resty.Client
	if cfg.HTTPClient != nil {
		hc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		hc = resty.New()
	}
	hc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		hc.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		http:   hc,
		logger: cfg.Logger.With("component", "subscan-client", "base_url", cfg.BaseURL),
	}
}

// FetchRewardPage fetches one page of reward_slash. When data.list is null
// the returned page is terminal. Other array or object valued fields of data
// are returned as parallel keyed collections.
func (c *Client) FetchRewardPage(ctx context.Context, address string, page, rows int) (*domain.RewardPage, error) {
	var env envelope
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(rewardSlashRequest{Row: rows, Page: page, Address: address}).
		Post(rewardSlashPath)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rewardSlashPath, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST %s: unexpected HTTP %d: %s", rewardSlashPath, res.StatusCode(), truncate(res.Body()))
	}
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return nil, fmt.Errorf("decoding reward_slash response: %w", err)
	}
	if env.Code != 0 {
		return nil, errorf(env.Code, env.Message)
	}

	var data map[string]json.RawMessage
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decoding reward_slash data: %w", err)
		}
	}

	out := &domain.RewardPage{Extra: make(map[string]map[int]json.RawMessage)}
	for field, raw := range data {
		if field == "count" {
			if err := json.Unmarshal(raw, &out.Count); err != nil {
				return nil, fmt.Errorf("decoding reward_slash count: %w", err)
			}
			continue
		}
		values, isNull, ok, err := keyed(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding reward_slash field %q: %w", field, err)
		}
		if field == "list" && !ok {
			return nil, fmt.Errorf("decoding reward_slash list: not an indexed collection: %s", truncate(raw))
		}
		if field != "list" {
			if ok && !isNull {
				out.Extra[field] = values
			}
			continue
		}
		if isNull {
			out.Events = nil
			continue
		}
		out.Events = make(map[int]domain.RewardEvent, len(values))
		for idx, item := range values {
			var ri rewardItem
			if err := json.Unmarshal(item, &ri); err != nil {
				return nil, fmt.Errorf("decoding reward %d: %w", idx, err)
			}
			out.Events[idx] = domain.RewardEvent{
				BlockTimestamp: ri.BlockTimestamp,
				Amount:         ri.Amount,
				EventID:        ri.EventID,
				ModuleID:       ri.ModuleID,
				ExtrinsicHash:  ri.ExtrinsicHash,
				Stash:          ri.Stash,
			}
		}
	}
	c.logger.Debug("fetched reward page", "page", page, "events", len(out.Events), "terminal", out.IsTerminal())
	return out, nil
}

// ConvertPrice asks price_converter for the value of one coin at timestamp.
func (c *Client) ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(priceConverterRequest{
			Time:  timestamp,
			Value: 1,
			From:  strings.ToUpper(coin),
			Quote: strings.ToUpper(currency),
		}).
		Post(priceConverterPath)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: POST %s: %v", domain.ErrThrottled, priceConverterPath, err)
	}

	status := res.StatusCode()
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return decimal.Zero, fmt.Errorf("%w: POST %s: HTTP %d", domain.ErrThrottled, priceConverterPath, status)
	}
	if status != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: POST %s: HTTP %d: %s", domain.ErrPriceNotFound, priceConverterPath, status, truncate(res.Body()))
	}

	var env envelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding price_converter response: %v", domain.ErrPriceNotFound, err)
	}
	if env.Code != 0 {
		if strings.Contains(strings.ToLower(env.Message), "rate limit") {
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrThrottled, errorf(env.Code, env.Message))
		}
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrPriceNotFound, errorf(env.Code, env.Message))
	}

	var data priceConverterData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding price_converter data: %v", domain.ErrPriceNotFound, err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(data.Output.String()))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price_converter output %q at %d", domain.ErrPriceNotFound, data.Output, timestamp)
	}
	return price, nil
}

func truncate(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
