package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SourceCrawled("acme", OutcomeOK)
	m.SourceCrawled("acme", OutcomeOK)
	m.SourceCrawled("acme", OutcomeFetchFailed)
	m.ItemStored(OutcomeOK)
	m.Notified("g", 3, 2)

	if got := testutil.ToFloat64(m.SourcesCrawled.WithLabelValues("acme", OutcomeOK)); got != 2 {
		t.Fatalf("sources ok = %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsNotified.WithLabelValues("g")); got != 3 {
		t.Fatalf("notified = %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsSkipped.WithLabelValues("g")); got != 2 {
		t.Fatalf("skipped = %v", got)
	}
	if n := testutil.CollectAndCount(m.ItemsStored); n != 1 {
		t.Fatalf("stored series = %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.SourceCrawled("acme", OutcomeOK)
	m.ItemStored(OutcomeError)
	m.Notified("g", 1, 0)
}
