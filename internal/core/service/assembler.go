package service

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// Report is the externally consumable shape of an AggregateResult:
//
//	{"list": [...], "total_value_usd": 12.34, "total_value_DOT": 5.6789}
type Report map[string]any

// ResultAssembler reshapes aggregate results. It performs no validation.
type ResultAssembler struct{}

func NewResultAssembler() *ResultAssembler {
	return &ResultAssembler{}
}

// Assemble builds the currency-tagged report object.
func (a *ResultAssembler) Assemble(res *domain.AggregateResult) Report {
	list := make([]map[string]any, 0, len(res.Events))
	for _, ev := range res.Events {
		row := map[string]any{
			"block_timestamp": ev.BlockTimestamp,
			"amount":          number(ev.CoinAmount),
			"date":            ev.Date,
		}
		row[res.CurrencyCode+"_price_per_coin"] = number(ev.PricePerCoin)
		row[res.CurrencyCode+"_value"] = number(ev.FiatValue)
		if ev.EventID != "" {
			row["event_id"] = ev.EventID
		}
		if ev.ModuleID != "" {
			row["module_id"] = ev.ModuleID
		}
		if ev.ExtrinsicHash != "" {
			row["extrinsic_hash"] = ev.ExtrinsicHash
		}
		if ev.Stash != "" {
			row["stash"] = ev.Stash
		}
		list = append(list, row)
	}

	return Report{
		"list":                            list,
		"total_value_" + res.CurrencyCode: number(res.TotalFiatValue),
		"total_value_" + res.CoinCode:     number(res.TotalCoinValue),
	}
}

// CSVHeader returns the column names matching CSVRecords.
func (a *ResultAssembler) CSVHeader(res *domain.AggregateResult) []string {
	return []string{
		"date",
		"block_timestamp",
		"event_id",
		"module_id",
		"extrinsic_hash",
		"stash",
		"amount",
		res.CurrencyCode + "_price_per_coin",
		res.CurrencyCode + "_value",
	}
}

// CSVRecords returns one flat record per event.
func (a *ResultAssembler) CSVRecords(res *domain.AggregateResult) [][]string {
	records := make([][]string, 0, len(res.Events))
	for _, ev := range res.Events {
		records = append(records, []string{
			ev.Date,
			strconv.FormatInt(ev.BlockTimestamp, 10),
			ev.EventID,
			ev.ModuleID,
			ev.ExtrinsicHash,
			ev.Stash,
			ev.CoinAmount.String(),
			ev.PricePerCoin.StringFixed(2),
			ev.FiatValue.StringFixed(2),
		})
	}
	return records
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
