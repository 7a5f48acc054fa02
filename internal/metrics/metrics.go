// Package metrics owns the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vahan"

// Reload results.
const (
	ResultSuccess  = "success"
	ResultFallback = "fallback"
	ResultFailure  = "failure"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	datasetRecords  prometheus.Gauge
	datasetLoadedAt prometheus.Gauge
	reloads         *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	ingestedRows    prometheus.Counter
}

// New registers every collector plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		datasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Number of registration records in the active dataset snapshot.",
		}),
		datasetLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time the active dataset snapshot was loaded.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset reload attempts by result.",
		}, []string{"result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent computing analytics responses.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"endpoint"}),
		ingestedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_rows_total",
			Help:      "Registration rows written through the ingestion API.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.datasetRecords,
		m.datasetLoadedAt,
		m.reloads,
		m.queryDuration,
		m.ingestedRows,
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// DatasetLoaded records a successful (possibly fallback) load.
func (m *Metrics) DatasetLoaded(records int, loadedAt time.Time, fallback bool) {
	if m == nil {
		return
	}
	m.datasetRecords.Set(float64(records))
	m.datasetLoadedAt.Set(float64(loadedAt.Unix()))
	if fallback {
		m.reloads.WithLabelValues(ResultFallback).Inc()
		return
	}
	m.reloads.WithLabelValues(ResultSuccess).Inc()
}

// DatasetLoadFailed records a reload that left the previous snapshot in place.
func (m *Metrics) DatasetLoadFailed() {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(ResultFailure).Inc()
}

// ObserveQuery records how long an endpoint took to compute its response.
func (m *Metrics) ObserveQuery(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RowsIngested counts rows written by an upload.
func (m *Metrics) RowsIngested(n int) {
	if m == nil {
		return
	}
	m.ingestedRows.Add(float64(n))
}
