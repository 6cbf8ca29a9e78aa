package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrater_searches_total",
		Help: "Total number of rating searches by mode and outcome",
	}, []string{"mode", "status"})

	ModelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookrater_model_request_duration_seconds",
		Help:    "Duration of generation endpoint calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrater_http_requests_total",
		Help: "Total number of HTTP requests to the web adapter",
	}, []string{"endpoint", "code"})
)
