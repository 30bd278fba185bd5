package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/pkg/retry"
)

// ReportConfig configures a ReportService.
type ReportConfig struct {
	PageSize  int
	PageDelay time.Duration
	// RequestTimeout bounds a whole request, including throttled retries.
	// Zero disables the timeout.
	RequestTimeout time.Duration
	Location       *time.Location
	Retry          retry.Config
	Cache          domain.PriceCache
	Logger         *slog.Logger
	Recorder       domain.Recorder
}

// ReportService is the request boundary: it validates input, paginates the
// reward history and enriches it with prices.
type ReportService struct {
	chains    []domain.ChainService
	provider  domain.PriceProvider
	paginator *RewardPaginator
	cfg       ReportConfig
	logger    *slog.Logger
}

func NewReportService(chains []domain.ChainService, provider domain.PriceProvider, cfg ReportConfig) *ReportService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportService{
		chains:   chains,
		provider: provider,
		paginator: NewRewardPaginator(PaginatorConfig{
			PageSize:  cfg.PageSize,
			PageDelay: cfg.PageDelay,
			Logger:    cfg.Logger,
			Recorder:  cfg.Recorder,
		}),
		cfg:    cfg,
		logger: cfg.Logger.With("component", "report-service"),
	}
}

// GenerateReport retrieves and prices the full reward history of an account.
func (s *ReportService) GenerateReport(ctx context.Context, input domain.ReportInput) (*domain.AggregateResult, error) {
	return s.GenerateReportWithProgress(ctx, input, nil)
}

// GenerateReportWithProgress is GenerateReport with progress notifications.
func (s *ReportService) GenerateReportWithProgress(ctx context.Context, input domain.ReportInput, progress domain.ProgressFunc) (res *domain.AggregateResult, err error) {
	// 1. Find correct chain service
	chain, err := s.chainFor(input.Network)
	if err != nil {
		return nil, err
	}
	network := chain.Network()

	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, input.Currency)
	}
	if err := chain.ValidateAddress(input.Address); err != nil {
		return nil, err
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	reportID := uuid.NewString()
	logger := s.logger.With("report_id", reportID, "network", network.Code, "currency", currency)
	started := time.Now()
	defer func() {
		s.cfg.Recorder.ReportCompleted(network.Code, time.Since(started), err)
	}()

	// 2. Fetch the merged reward history
	history, err := s.paginator.FetchAll(ctx, network.Code, chain, input.Address, progress)
	if err != nil {
		logger.Error("reward retrieval failed", "error", err)
		return nil, err
	}
	logger.Info("reward history retrieved", "pages", history.Pages, "events", len(history.Events))

	// 3. Price every event
	var converter domain.PriceConverter = chain
	if s.cfg.Cache != nil {
		converter = NewCachingConverter(chain, s.cfg.Cache, s.cfg.Logger)
	}
	resolver := NewPriceResolver(s.provider, converter, ResolverConfig{
		Location: s.cfg.Location,
		Retry:    s.cfg.Retry,
		Logger:   logger,
		Recorder: s.cfg.Recorder,
	})
	enricher := NewEnricher(resolver, EnricherConfig{
		Location: s.cfg.Location,
		Logger:   logger,
		Recorder: s.cfg.Recorder,
	})
	res, err = enricher.Enrich(ctx, history.Events, network, currency, progress)
	if err != nil {
		logger.Error("enrichment aborted", "error", err)
		return nil, fmt.Errorf("enriching rewards: %w", err)
	}

	res.ReportID = reportID
	res.Address = input.Address
	logger.Info("report ready",
		"events", len(res.Events),
		"excluded", res.Excluded,
		"total_fiat", res.TotalFiatValue.String(),
		"total_coin", res.TotalCoinValue.String(),
		"elapsed", time.Since(started),
	)
	if progress != nil {
		progress(domain.Progress{Stage: "done", Events: len(res.Events), Enriched: len(res.Events)})
	}
	return res, nil
}

func (s *ReportService) chainFor(network string) (domain.ChainService, error) {
	for _, cs := range s.chains {
		if cs.IsSupported(network) {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedNetwork, network)
}
