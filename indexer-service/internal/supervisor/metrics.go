package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "indexer_events_total",
	Help: "The total number of change events handled, by resulting action",
}, []string{"action"})

var applyErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "indexer_apply_errors_total",
	Help: "The total number of index actions the store failed",
}, []string{"index"})

var invalidationErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "indexer_invalidation_errors_total",
	Help: "The total number of search cache invalidations that failed after a successful apply",
}, []string{"index"})

var applyDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "indexer_apply_duration_seconds",
	Help:    "The time it takes to apply one index action to the store",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
}, []string{"action"})

var commitsCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "indexer_commits_total",
	Help: "The total number of offsets committed to the broker",
})

var reconnectsCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "indexer_reconnects_total",
	Help: "The total number of broker reconnections after a lost connection",
})

var stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexer_state",
	Help: "Current run state (0 starting, 1 connected, 2 running, 3 draining, 4 stopped)",
})
