package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawl engine. They live on a
// dedicated registry rather than the default one, so a one-shot CLI run does
// not leak global state and tests can assert on fresh collectors.
type Metrics struct {
	Registry *prometheus.Registry

	PagesTotal    prometheus.Counter
	ItemsTotal    prometheus.Counter
	RetriesTotal  prometheus.Counter
	ErrorsTotal   *prometheus.CounterVec
	FetchDuration prometheus.Histogram
}

// NewMetrics constructs and registers all engine metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibid_pages_scraped_total",
		Help: "Total pages with a recognizable state block.",
	})
	items := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibid_items_emitted_total",
		Help: "Total hydrated lots emitted to the caller.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hibid_fetch_retries_total",
		Help: "Total fetch retry attempts scheduled.",
	})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hibid_errors_total",
		Help: "Total engine errors by stage.",
	}, []string{"stage"})
	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hibid_fetch_duration_seconds",
		Help:    "HTTP fetch latency per attempt.",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(pages, items, retries, errorsTotal, fetchDuration)

	return &Metrics{
		Registry:      registry,
		PagesTotal:    pages,
		ItemsTotal:    items,
		RetriesTotal:  retries,
		ErrorsTotal:   errorsTotal,
		FetchDuration: fetchDuration,
	}
}

// IncPages increments the scraped-pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncItems increments the emitted-items counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsTotal.Inc()
}

// IncRetries increments the fetch-retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the error counter for a stage label.
func (m *Metrics) IncError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// ObserveFetchDuration records one fetch attempt's latency.
func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}
