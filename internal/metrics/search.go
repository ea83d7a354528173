package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/usecase/search"
)

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compsearch",
			Name:      "searches_total",
			Help:      "Total number of searches dispatched to the index worker",
		},
		[]string{"mode"},
	)

	SearchRepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compsearch",
			Name:      "search_replies_total",
			Help:      "Worker replies by outcome",
		},
		[]string{"outcome"}, // "ok" / "error" / "stale"
	)

	WorkerEvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "compsearch",
			Name:      "worker_evaluation_duration_seconds",
			Help:      "Time the index worker spends evaluating one request",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode", "status"},
	)

	DatasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compsearch",
			Name:      "dataset_loads_total",
			Help:      "Dataset loads by source and status",
		},
		[]string{"source", "status"},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compsearch",
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers the search and HTTP metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchRepliesTotal)
	prometheus.MustRegister(WorkerEvaluationDuration)
	prometheus.MustRegister(DatasetLoadsTotal)
	prometheus.MustRegister(ResponseCacheTotal)
	searchMetricsRegistered = true
}

// SearchObserver feeds orchestrator events into the search counters.
type SearchObserver struct{}

// Dispatched counts a dispatched search.
func (SearchObserver) Dispatched(m mode.Mode) {
	SearchesTotal.WithLabelValues(string(m)).Inc()
}

// Resolved counts a handled worker reply.
func (SearchObserver) Resolved(o search.Outcome) {
	SearchRepliesTotal.WithLabelValues(string(o)).Inc()
}
