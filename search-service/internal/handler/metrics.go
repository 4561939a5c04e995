package handler

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/weiawesome/cdc-search/search-service/internal/repository"
)

var requestsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_requests_total",
	Help: "Total search requests",
}, []string{"status"})

var latencyHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "search_latency_seconds",
	Help:    "Search latency in seconds",
	Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
}, []string{"index"})

var errorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "search_errors_total",
	Help: "Search errors by type",
}, []string{"error_type"})

func errorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, repository.ErrIndexNotFound):
		return "index_not_found"
	default:
		return "backend"
	}
}
