package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportInput represents the parameters of a single reward report request.
type ReportInput struct {
	Address  string `json:"address"`  // SS58 account address
	Network  string `json:"network"`  // "DOT" or "KSM"
	Currency string `json:"currency"` // fiat code, e.g. "usd"
}

// RewardEvent is one staking reward or slash for an account.
// Index is the page-corrected position assigned during pagination.
type RewardEvent struct {
	Index          int             `json:"-"`
	BlockTimestamp int64           `json:"block_timestamp"`
	Amount         decimal.Decimal `json:"amount"` // smallest coin unit
	EventID        string          `json:"event_id,omitempty"`
	ModuleID       string          `json:"module_id,omitempty"`
	ExtrinsicHash  string          `json:"extrinsic_hash,omitempty"`
	Stash          string          `json:"stash,omitempty"`

	// Populated by enrichment.
	Date         string          `json:"date,omitempty"`
	CoinAmount   decimal.Decimal `json:"-"`
	PricePerCoin decimal.Decimal `json:"-"`
	FiatValue    decimal.Decimal `json:"-"`
}

// Time returns the block time of the event.
func (e RewardEvent) Time() time.Time {
	return time.Unix(e.BlockTimestamp, 0)
}

// RewardPage is one page of the upstream reward_slash listing, keyed by the
// page-local index. A nil Events map marks the terminal page.
type RewardPage struct {
	Events map[int]RewardEvent
	// Extra holds any parallel keyed collections returned alongside the list.
	Extra map[string]map[int]json.RawMessage
	// Count is the listing total reported by the upstream, not the page size.
	Count int
}

// IsTerminal reports whether the page signals exhaustion of the listing.
func (p *RewardPage) IsTerminal() bool {
	return p == nil || p.Events == nil
}

// IndexedValue is an entry of a merged parallel collection.
type IndexedValue struct {
	Index int
	Value json.RawMessage
}

// RewardHistory is the merged result of a full pagination run.
type RewardHistory struct {
	Events []RewardEvent
	Extra  map[string][]IndexedValue
	Pages  int
	// Reported is the total the upstream listing claimed, zero if unknown.
	Reported int
}

// PriceSnapshot is the recorded fiat price of a coin for one calendar day.
type PriceSnapshot struct {
	Day   time.Time       `json:"day"`
	Price decimal.Decimal `json:"price"`
}

// PriceSeries is the ordered daily history for one (coin, currency) pair.
type PriceSeries struct {
	Coin      string
	Currency  string
	Snapshots []PriceSnapshot
}

// AggregateResult is the enriched, filtered event list and its totals.
// TotalFiatValue always equals the sum of FiatValue over Events.
type AggregateResult struct {
	ReportID       string
	Address        string
	Events         []RewardEvent
	TotalFiatValue decimal.Decimal
	TotalCoinValue decimal.Decimal
	CurrencyCode   string // lower case, e.g. "usd"
	CoinCode       string // upper case, e.g. "DOT"
	Excluded       int
}

// Progress describes how far a report request has advanced.
type Progress struct {
	Stage    string `json:"stage"` // "page", "enrich", "done"
	Page     int    `json:"page,omitempty"`
	Events   int    `json:"events"`
	Enriched int    `json:"enriched,omitempty"`
}

// ProgressFunc receives progress notifications. It must not block.
type ProgressFunc func(Progress)

// Supported fiat currencies for bundled price datasets.
var SupportedCurrencies = []string{"usd", "aud", "cad", "chf", "eur", "sgd"}

// NormalizeCurrency lower-cases the code and checks it against SupportedCurrencies.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	for _, s := range SupportedCurrencies {
		if s == c {
			return c, nil
		}
	}
	return "", ErrUnsupportedCurrency
}
