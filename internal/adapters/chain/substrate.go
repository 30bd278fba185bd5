package chain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

// Explorer is the upstream API of one network.
type Explorer interface {
	domain.RewardPageSource
	domain.PriceConverter
}

// SubstrateService implements ChainService for a Substrate relay chain.
type SubstrateService struct {
	network  domain.Network
	explorer Explorer
	logger   *slog.Logger
}

var _ domain.ChainService = (*SubstrateService)(nil)

func NewSubstrateService(network domain.Network, explorer Explorer, logger *slog.Logger) *SubstrateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubstrateService{
		network:  network,
		explorer: explorer,
		logger:   logger.With("component", "chain", "network", network.Code),
	}
}

func (s *SubstrateService) IsSupported(network string) bool {
	network = strings.TrimSpace(network)
	return strings.EqualFold(network, s.network.Code) || strings.EqualFold(network, s.network.Name)
}

func (s *SubstrateService) Network() domain.Network {
	return s.network
}

// ValidateAddress accepts addresses encoded for this network or with the
// generic Substrate prefix.
func (s *SubstrateService) ValidateAddress(address string) error {
	addr, err := DecodeAddress(strings.TrimSpace(address))
	if err != nil {
		return err
	}
	if addr.Prefix != s.network.SS58Prefix && addr.Prefix != GenericSubstratePrefix {
		return fmt.Errorf("%w: prefix %d is not a %s address", domain.ErrInvalidAddress, addr.Prefix, s.network.Name)
	}
	s.logger.Debug("validated address", "address", address, "public_key", addr.Hex())
	return nil
}

func (s *SubstrateService) FetchRewardPage(ctx context.Context, address string, page, rows int) (*domain.RewardPage, error) {
	return s.explorer.FetchRewardPage(ctx, address, page, rows)
}

func (s *SubstrateService) ConvertPrice(ctx context.Context, timestamp int64, coin, currency string) (decimal.Decimal, error) {
	return s.explorer.ConvertPrice(ctx, timestamp, coin, currency)
}
