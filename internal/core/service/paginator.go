package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
	"github.com/TeneoProtocolAI/staking-rewards/internal/pkg/retry"
)

const (
	// DefaultPageSize is the row count requested per reward page.
	DefaultPageSize = 100
	// DefaultPageDelay is the cooldown between consecutive page requests. It
	// is also the minimum: shorter delays are raised to it.
	DefaultPageDelay = time.Second
)

// PaginatorConfig configures a RewardPaginator.
type PaginatorConfig struct {
	PageSize  int
	PageDelay time.Duration
	Logger    *slog.Logger
	Recorder  domain.Recorder
}

// RewardPaginator drives a full, strictly serial retrieval of an account's
// reward history.
type RewardPaginator struct {
	pageSize  int
	delay     time.Duration
	logger    *slog.Logger
	recorder  domain.Recorder
	sleepFunc func(context.Context, time.Duration) error
}

func NewRewardPaginator(cfg PaginatorConfig) *RewardPaginator {
	if cfg.PageSize <= 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageDelay < DefaultPageDelay {
		cfg.PageDelay = DefaultPageDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	return &RewardPaginator{
		pageSize:  cfg.PageSize,
		delay:     cfg.PageDelay,
		logger:    cfg.Logger.With("component", "reward-paginator"),
		recorder:  cfg.Recorder,
		sleepFunc: retry.Sleep,
	}
}

// OffsetStride is the per-page index correction. The upstream listing numbers
// pages so that consecutive pages overlap by one index; entries that share a
// corrected index keep their arrival order.
func (p *RewardPaginator) OffsetStride() int {
	return p.pageSize - 1
}

// FetchAll requests pages 0, 1, 2, ... until the source returns a terminal
// page. Any page failure aborts the run and no partial history is returned.
func (p *RewardPaginator) FetchAll(ctx context.Context, network string, source domain.RewardPageSource, address string, progress domain.ProgressFunc) (*domain.RewardHistory, error) {
	acc := newAccumulator()
	for page := 0; ; page++ {
		rp, err := source.FetchRewardPage(ctx, address, page, p.pageSize)
		if err != nil {
			return nil, &domain.TransportError{Page: page, Err: err}
		}
		p.recorder.PageFetched(network)
		if rp != nil && rp.Count > acc.reported {
			acc.reported = rp.Count
		}
		if rp.IsTerminal() {
			p.logger.Debug("reward listing exhausted", "network", network, "pages", page)
			break
		}

		acc.merge(rp, page*p.OffsetStride())
		p.logger.Debug("merged reward page",
			"network", network,
			"page", page,
			"events", len(rp.Events),
			"total", acc.len(),
		)
		if progress != nil {
			progress(domain.Progress{Stage: "page", Page: page, Events: acc.len()})
		}

		if err := p.sleepFunc(ctx, p.delay); err != nil {
			return nil, fmt.Errorf("waiting between reward pages: %w", err)
		}
	}
	history := acc.history()
	if history.Reported > 0 && history.Reported != len(history.Events) {
		p.logger.Warn("merged reward count differs from upstream total",
			"network", network,
			"merged", len(history.Events),
			"reported", history.Reported,
		)
	}
	return history, nil
}

// accumulator collects page entries in arrival order, each tagged with its
// page-corrected index. Ordering is derived from the index, never from map
// iteration.
type accumulator struct {
	events   []domain.RewardEvent
	extra    map[string][]domain.IndexedValue
	pages    int
	reported int
}

func newAccumulator() *accumulator {
	return &accumulator{extra: make(map[string][]domain.IndexedValue)}
}

func (a *accumulator) len() int { return len(a.events) }

func (a *accumulator) merge(page *domain.RewardPage, offset int) {
	a.pages++
	for _, local := range sortedKeys(page.Events) {
		ev := page.Events[local]
		ev.Index = local + offset
		a.events = append(a.events, ev)
	}
	for field, values := range page.Extra {
		for _, local := range sortedKeys(values) {
			a.extra[field] = append(a.extra[field], domain.IndexedValue{Index: local + offset, Value: values[local]})
		}
	}
}

func (a *accumulator) history() *domain.RewardHistory {
	sort.SliceStable(a.events, func(i, j int) bool {
		return a.events[i].Index < a.events[j].Index
	})
	for field := range a.extra {
		values := a.extra[field]
		sort.SliceStable(values, func(i, j int) bool {
			return values[i].Index < values[j].Index
		})
	}
	return &domain.RewardHistory{Events: a.events, Extra: a.extra, Pages: a.pages, Reported: a.reported}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
