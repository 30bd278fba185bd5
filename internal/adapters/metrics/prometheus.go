// Package metrics exposes report pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TeneoProtocolAI/staking-rewards/internal/core/domain"
)

var _ domain.Recorder = (*Prometheus)(nil)

// Prometheus implements domain.Recorder on its own registry.
type Prometheus struct {
	registry       *prometheus.Registry
	pages          *prometheus.CounterVec
	prices         *prometheus.CounterVec
	excluded       *prometheus.CounterVec
	reports        *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staking_rewards",
			Name:      "reward_pages_fetched_total",
			Help:      "Reward pages requested from the explorer.",
		}, []string{"network"}),
		prices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staking_rewards",
			Name:      "prices_resolved_total",
			Help:      "Prices resolved, by source.",
		}, []string{"network", "source"}),
		excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staking_rewards",
			Name:      "events_excluded_total",
			Help:      "Reward events dropped because no price could be resolved.",
		}, []string{"network"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staking_rewards",
			Name:      "reports_total",
			Help:      "Completed report requests by outcome.",
		}, []string{"network", "outcome"}),
		reportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staking_rewards",
			Name:      "report_duration_seconds",
			Help:      "Wall time of report requests.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"network"}),
	}
	p.registry.MustRegister(p.pages, p.prices, p.excluded, p.reports, p.reportDuration)
	return p
}

func (p *Prometheus) PageFetched(network string) {
	p.pages.WithLabelValues(network).Inc()
}

func (p *Prometheus) PriceResolved(network, source string) {
	p.prices.WithLabelValues(network, source).Inc()
}

func (p *Prometheus) EventExcluded(network string) {
	p.excluded.WithLabelValues(network).Inc()
}

func (p *Prometheus) ReportCompleted(network string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.reports.WithLabelValues(network, outcome).Inc()
	p.reportDuration.WithLabelValues(network).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
