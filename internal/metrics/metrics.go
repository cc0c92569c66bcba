// Package metrics exposes Prometheus collectors for scans and the catalog.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fosse-media/fosse/internal/errors"
	"github.com/fosse-media/fosse/internal/scanner"
)

// Metrics holds the application's collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Scan metrics
	ScansTotal          *prometheus.CounterVec
	ScanDurationSeconds prometheus.Histogram
	VideosProcessed     *prometheus.CounterVec
	NotebooksProcessed  *prometheus.CounterVec
	ScanErrorsTotal     prometheus.Counter
	LastScanTimestamp   prometheus.Gauge

	// Catalog metrics
	CatalogVideos prometheus.Gauge
}

// New creates the collectors on a private registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fosse_scans_total",
				Help: "Scan sessions by outcome",
			},
			[]string{"outcome"},
		),
		ScanDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fosse_scan_duration_seconds",
				Help:    "Wall time of completed scans",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
			},
		),
		VideosProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fosse_scan_videos_total",
				Help: "Videos handled by committed scans, by action",
			},
			[]string{"action"},
		),
		NotebooksProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fosse_scan_notebooks_total",
				Help: "Notebooks handled by committed scans, by action",
			},
			[]string{"action"},
		),
		ScanErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fosse_scan_file_errors_total",
				Help: "Per-path problems reported by committed scans",
			},
		),
		LastScanTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fosse_last_scan_timestamp_seconds",
				Help: "Completion time of the last committed scan",
			},
		),
		CatalogVideos: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fosse_catalog_videos",
				Help: "Videos in the catalog",
			},
		),
	}
}

// Outcome labels for ScansTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeRootNotFound = "root_not_found"
	OutcomeBusy         = "busy"
	OutcomeCanceled     = "canceled"
	OutcomeFailed       = "failed"
)

// ScanFinished records one scan. It satisfies scanner.Recorder.
func (m *Metrics) ScanFinished(result *scanner.ScanResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOf(err)
	m.ScansTotal.WithLabelValues(outcome).Inc()
	if err != nil || result == nil {
		return
	}

	m.ScanDurationSeconds.Observe(elapsed.Seconds())
	m.LastScanTimestamp.Set(float64(result.CompletedAt.Unix()))
	m.ScanErrorsTotal.Add(float64(len(result.Errors)))

	for action, n := range map[string]int{
		"added":     result.Added,
		"updated":   result.Updated,
		"unchanged": result.Unchanged,
		"removed":   result.Removed,
		"skipped":   result.Skipped,
		"cascaded":  result.Cascaded,
	} {
		m.VideosProcessed.WithLabelValues(action).Add(float64(n))
	}
	for action, n := range map[string]int{
		"added":   result.NotebooksAdded,
		"updated": result.NotebooksUpdated,
		"removed": result.NotebooksRemoved,
		"failed":  result.NotebooksFailed,
	} {
		m.NotebooksProcessed.WithLabelValues(action).Add(float64(n))
	}
}

// SetCatalogSize records the number of catalogued videos.
func (m *Metrics) SetCatalogSize(videos int) {
	if m == nil {
		return
	}
	m.CatalogVideos.Set(float64(videos))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errors.ErrRootNotFound):
		return OutcomeRootNotFound
	case errors.Is(err, errors.ErrScanInProgress):
		return OutcomeBusy
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}
