// Package metrics declares the Prometheus collectors for the research
// pipeline and the HTTP handler that exposes them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_runs_total",
			Help: "Total number of research runs by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ainalyst_run_duration_seconds",
			Help:    "Duration of a full research run in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ainalyst_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	StageDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_stage_degraded_total",
			Help: "Number of stage outputs that fell back to a degraded value",
		},
		[]string{"stage"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_model_calls_total",
			Help: "Model completion calls by result",
		},
		[]string{"result"},
	)

	ModelCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "ainalyst_model_call_duration_seconds",
			Help: "Latency of model completion calls in seconds",
		},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_search_requests_total",
			Help: "Retriever search calls by variant and result",
		},
		[]string{"retriever", "result"},
	)

	ScrapeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_scrape_requests_total",
			Help: "Page content extraction calls by result",
		},
		[]string{"retriever", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ainalyst_search_cache_lookups_total",
			Help: "Search cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
