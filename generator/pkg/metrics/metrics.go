package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "viewgen_build_info",
			Help: "Build information of viewgen",
		},
		[]string{"version", "commit", "date"},
	)

	ViewsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewgen_views_generated_total",
			Help: "Total number of view generations",
		},
		[]string{"view_type", "status"},
	)

	ViewGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewgen_view_generation_duration_seconds",
			Help:    "Duration of single view generations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
		[]string{"view_type"},
	)

	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewgen_catalog_requests_total",
			Help: "Total number of metric catalog HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	MissingCatalogEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viewgen_missing_catalog_entries_total",
			Help: "Total number of views whose application was not found in the metric catalog",
		},
	)
)
