// Package metrics exposes Prometheus counters for crawl, store and notification activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "presswatch"

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeUnsupported = "unsupported_rule"
	OutcomeError       = "error"
)

// Metrics holds all counters. A nil *Metrics records nothing.
type Metrics struct {
	SourcesCrawled *prometheus.CounterVec
	ItemsStored    *prometheus.CounterVec
	ItemsNotified  *prometheus.CounterVec
	ItemsSkipped   *prometheus.CounterVec
}

// New creates and registers the counters on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SourcesCrawled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "sources_total",
			Help:      "Source crawls by outcome.",
		}, []string{"source", "outcome"}),
		ItemsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "items_total",
			Help:      "Item upserts by outcome.",
		}, []string{"outcome"}),
		ItemsNotified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "items_total",
			Help:      "Items offered for notification.",
		}, []string{"group"}),
		ItemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "skipped_total",
			Help:      "Eligible items dropped by the per-run cap.",
		}, []string{"group"}),
	}
}

func (m *Metrics) SourceCrawled(sourceID, outcome string) {
	if m == nil {
		return
	}
	m.SourcesCrawled.WithLabelValues(sourceID, outcome).Inc()
}

func (m *Metrics) ItemStored(outcome string) {
	if m == nil {
		return
	}
	m.ItemsStored.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notified(groupID string, delivered, skipped int) {
	if m == nil {
		return
	}
	m.ItemsNotified.WithLabelValues(groupID).Add(float64(delivered))
	m.ItemsSkipped.WithLabelValues(groupID).Add(float64(skipped))
}
