package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

func newTestPaginator() (*RewardPaginator, *int) {
	p := NewRewardPaginator(PaginatorConfig{PageSize: 100, PageDelay: time.Second})
	sleeps := 0
	p.sleepFunc = func(ctx context.Context, d time.Duration) error {
		if d != time.Second {
			panic("unexpected delay")
		}
		sleeps++
		return nil
	}
	return p, &sleeps
}

func TestRewardPaginator_StopsOnTerminalPage(t *testing.T) {
	src := &pageSource{pages: []*domain.RewardPage{
		makePage(0, 100, march1, 1),
		makePage(1, 100, march1, 1),
		makePage(2, 7, march1, 1),
	}}
	p, sleeps := newTestPaginator()

	history, err := p.FetchAll(context.Background(), "DOT", src, "addr", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(history.Events) != 207 {
		t.Errorf("expected 207 events, got %d", len(history.Events))
	}
	if history.Pages != 3 {
		t.Errorf("expected 3 merged pages, got %d", history.Pages)
	}
	if len(src.requests) != 4 {
		t.Errorf("expected 4 requests including the terminal one, got %v", src.requests)
	}
	if *sleeps != 3 {
		t.Errorf("expected a cooldown after each merged page, got %d", *sleeps)
	}
}

func TestRewardPaginator_OffsetStrideAlignment(t *testing.T) {
	src := &pageSource{pages: []*domain.RewardPage{
		makePage(0, 100, march1, 1),
		makePage(1, 40, march1, 1),
	}}
	p, _ := newTestPaginator()
	if p.OffsetStride() != 99 {
		t.Fatalf("expected stride 99, got %d", p.OffsetStride())
	}

	history, err := p.FetchAll(context.Background(), "DOT", src, "addr", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(history.Events) != 140 {
		t.Fatalf("expected 140 events, got %d", len(history.Events))
	}

	// page 0 keeps indices 0..99 in order
	for i := 0; i < 100; i++ {
		ev := history.Events[i]
		if ev.Index != i {
			t.Fatalf("event %d: expected index %d, got %d", i, i, ev.Index)
		}
		if ev.EventID != "0-"+itoa(i) {
			t.Fatalf("event %d: expected page 0 entry, got %s", i, ev.EventID)
		}
	}
	// page 1 is reindexed from 99 and follows page 0's entries
	for j := 0; j < 40; j++ {
		ev := history.Events[100+j]
		if ev.Index != 99+j {
			t.Fatalf("page 1 entry %d: expected index %d, got %d", j, 99+j, ev.Index)
		}
		if ev.EventID != "1-"+itoa(j) {
			t.Fatalf("page 1 entry %d: got %s", j, ev.EventID)
		}
	}
}

func TestRewardPaginator_MergesParallelCollections(t *testing.T) {
	p0 := makePage(0, 100, march1, 1)
	p0.Extra = map[string]map[int]json.RawMessage{"meta": {0: json.RawMessage(`"a"`), 99: json.RawMessage(`"b"`)}}
	p1 := makePage(1, 2, march1, 1)
	p1.Extra = map[string]map[int]json.RawMessage{"meta": {1: json.RawMessage(`"c"`)}}

	p, _ := newTestPaginator()
	history, err := p.FetchAll(context.Background(), "DOT", &pageSource{pages: []*domain.RewardPage{p0, p1}}, "addr", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	meta := history.Extra["meta"]
	if len(meta) != 3 {
		t.Fatalf("expected 3 meta entries, got %d", len(meta))
	}
	wantIdx := []int{0, 99, 100}
	for i, w := range wantIdx {
		if meta[i].Index != w {
			t.Errorf("meta %d: expected index %d, got %d", i, w, meta[i].Index)
		}
	}
	if string(meta[2].Value) != `"c"` {
		t.Errorf("unexpected value %s", meta[2].Value)
	}
}

func TestRewardPaginator_TransportFailureAborts(t *testing.T) {
	src := &pageSource{
		pages:  []*domain.RewardPage{makePage(0, 100, march1, 1), makePage(1, 100, march1, 1)},
		failAt: 1,
	}
	p, _ := newTestPaginator()

	history, err := p.FetchAll(context.Background(), "DOT", src, "addr", nil)
	if history != nil {
		t.Error("expected no partial history")
	}
	var te *domain.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Page != 1 {
		t.Errorf("expected failure on page 1, got %d", te.Page)
	}
}

func TestRewardPaginator_EmptyHistory(t *testing.T) {
	p, sleeps := newTestPaginator()
	history, err := p.FetchAll(context.Background(), "KSM", &pageSource{}, "addr", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(history.Events) != 0 || *sleeps != 0 {
		t.Errorf("expected empty history without delays, got %d events, %d sleeps", len(history.Events), *sleeps)
	}
}

func TestRewardPaginator_CancelledDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRewardPaginator(PaginatorConfig{PageSize: 100, PageDelay: time.Hour})
	src := &pageSource{pages: []*domain.RewardPage{makePage(0, 1, march1, 1), makePage(1, 1, march1, 1)}}

	var stages []string
	_, err := p.FetchAll(ctx, "DOT", src, "addr", func(pr domain.Progress) {
		stages = append(stages, pr.Stage)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(src.requests) != 1 {
		t.Errorf("expected a single request before cancellation, got %v", src.requests)
	}
	if len(stages) != 1 || stages[0] != "page" {
		t.Errorf("unexpected progress %v", stages)
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestRewardPaginator_CooldownIsMandatory(t *testing.T) {
	for _, delay := range []time.Duration{0, 10 * time.Millisecond} {
		p := NewRewardPaginator(PaginatorConfig{PageDelay: delay})
		var waits []time.Duration
		p.sleepFunc = func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}
		src := &pageSource{pages: []*domain.RewardPage{
			makePage(0, 100, march1, 1),
			makePage(1, 3, march1, 1),
		}}

		if _, err := p.FetchAll(context.Background(), "DOT", src, "addr", nil); err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if len(waits) != 2 || waits[0] != DefaultPageDelay || waits[1] != DefaultPageDelay {
			t.Errorf("PageDelay=%v: expected two %v cooldowns, got %v", delay, DefaultPageDelay, waits)
		}
	}
}

func TestRewardPaginator_KeepsReportedTotal(t *testing.T) {
	first := makePage(0, 100, march1, 1)
	second := makePage(1, 40, march1, 1)
	first.Count, second.Count = 140, 140
	src := &pageSource{pages: []*domain.RewardPage{first, second}}
	p, _ := newTestPaginator()

	history, err := p.FetchAll(context.Background(), "DOT", src, "addr", nil)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if history.Reported != 140 || len(history.Events) != 140 {
		t.Errorf("expected 140 reported and merged, got %d / %d", history.Reported, len(history.Events))
	}
}
