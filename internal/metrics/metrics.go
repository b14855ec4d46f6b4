// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysisRequests counts analyses by category, model and outcome kind ("ok" or an error kind).
	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_analysis_requests_total",
			Help: "Total number of analysis requests",
		},
		[]string{"analysis_type", "model", "status"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_analysis_duration_seconds",
			Help:    "Analysis compute latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"analysis_type", "model"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_llm_requests_total",
			Help: "Total number of LLM calls made by the advisor",
		},
		[]string{"provider", "operation", "status"},
	)

	UploadRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_upload_rows",
			Help:    "Rows parsed per uploaded file",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_lookups_total",
			Help: "Analysis result cache lookups",
		},
		[]string{"result"}, // hit, miss, error
	)
)
