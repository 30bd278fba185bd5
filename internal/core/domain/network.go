package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Network describes a supported relay chain and its native coin.
type Network struct {
	Code        string // "DOT"
	Name        string // "polkadot"
	Exponent    int32  // decimal exponent of the smallest unit
	SS58Prefix  uint16
	SubscanURL  string
	CoinGeckoID string
}

// ToCoin converts an amount in smallest units to whole-coin units.
func (n Network) ToCoin(amount decimal.Decimal) decimal.Decimal {
	return amount.Shift(-n.Exponent)
}

var (
	Polkadot = Network{
		Code:        "DOT",
		Name:        "polkadot",
		Exponent:    10,
		SS58Prefix:  0,
		SubscanURL:  "https://polkadot.api.subscan.io",
		CoinGeckoID: "polkadot",
	}
	Kusama = Network{
		Code:        "KSM",
		Name:        "kusama",
		Exponent:    12,
		SS58Prefix:  2,
		SubscanURL:  "https://kusama.api.subscan.io",
		CoinGeckoID: "kusama",
	}
)

// Networks lists every supported network.
var Networks = []Network{Polkadot, Kusama}

// LookupNetwork finds a network by coin code or name, case-insensitively.
func LookupNetwork(s string) (Network, error) {
	s = strings.TrimSpace(s)
	for _, n := range Networks {
		if strings.EqualFold(n.Code, s) || strings.EqualFold(n.Name, s) {
			return n, nil
		}
	}
	return Network{}, ErrUnsupportedNetwork
}
