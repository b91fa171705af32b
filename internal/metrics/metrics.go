// Package metrics exposes Prometheus metrics for ingestion, the snapshot
// cache, report generation and HTTP traffic.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector of the service. A nil *Metrics is valid and
// records nothing, so services can be built without it in tests.
type Metrics struct {
	registry *prometheus.Registry

	imagesProcessed    *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	reviewsSaved       *prometheus.CounterVec
	snapshotLookups    *prometheus.CounterVec
	snapshotSize       prometheus.Gauge
	reportsGenerated   *prometheus.CounterVec
	reportDuration     prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates the metrics and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}
	m.initMetrics()

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register service metrics: %w", err)
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.imagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_ingest_images_total",
			Help: "Uploaded review screenshots by extraction outcome.",
		},
		[]string{"outcome"}, // extracted, invalid, failed, duplicate
	)

	m.extractionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_ingest_extraction_duration_seconds",
		Help:    "Time spent extracting one screenshot.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	m.reviewsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_store_writes_total",
			Help: "Confirmed reviews by save outcome.",
		},
		[]string{"outcome"}, // saved, skipped
	)

	m.snapshotLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_snapshot_lookups_total",
			Help: "Snapshot cache lookups by result.",
		},
		[]string{"result"}, // hit, miss
	)

	m.snapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "review_snapshot_reviews",
		Help: "Number of reviews in the most recently loaded snapshot.",
	})

	m.reportsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_reports_total",
			Help: "Intelligence report generations by language and status.",
		},
		[]string{"language", "status"},
	)

	m.reportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_report_duration_seconds",
		Help:    "Time taken to stream one intelligence report.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status_code"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.imagesProcessed.Describe(ch)
	ch <- m.extractionDuration.Desc()
	m.reviewsSaved.Describe(ch)
	m.snapshotLookups.Describe(ch)
	ch <- m.snapshotSize.Desc()
	m.reportsGenerated.Describe(ch)
	ch <- m.reportDuration.Desc()
	m.httpRequests.Describe(ch)
	m.httpDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.imagesProcessed.Collect(ch)
	m.extractionDuration.Collect(ch)
	m.reviewsSaved.Collect(ch)
	m.snapshotLookups.Collect(ch)
	m.snapshotSize.Collect(ch)
	m.reportsGenerated.Collect(ch)
	m.reportDuration.Collect(ch)
	m.httpRequests.Collect(ch)
	m.httpDuration.Collect(ch)
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordImage(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.imagesProcessed.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.extractionDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) RecordSave(saved, skipped int) {
	if m == nil {
		return
	}
	m.reviewsSaved.WithLabelValues("saved").Add(float64(saved))
	m.reviewsSaved.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) RecordSnapshotLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.snapshotLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetSnapshotSize(n int) {
	if m == nil {
		return
	}
	m.snapshotSize.Set(float64(n))
}

func (m *Metrics) RecordReport(language, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(language, status).Inc()
	m.reportDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
