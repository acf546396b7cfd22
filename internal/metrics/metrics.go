// Package metrics defines the Prometheus collectors used by docsearch.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and retrieval metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	RetrievalCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "retrieval_candidates",
			Help:      "Number of candidates returned per retrieval method",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		},
		[]string{"method"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "retrieval_errors_total",
			Help:      "Retrieval method failures",
		},
		[]string{"method"},
	)
)

// Indexing and embedding metrics.
var (
	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "index_operations_total",
			Help:      "Indexing pipeline operations by type and outcome",
		},
		[]string{"op", "status"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "embedding_requests_total",
			Help:      "Embedding provider requests by model and outcome",
		},
		[]string{"model", "status"},
	)

	EmbeddingFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "embedding_fallbacks_total",
			Help:      "Zero-vector substitutions made by batch maintenance indexing",
		},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var registerOnce sync.Once

// Register registers all collectors with the default Prometheus registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchDuration,
			RetrievalCandidates,
			RetrievalErrorsTotal,
			IndexOperationsTotal,
			EmbeddingRequestsTotal,
			EmbeddingFallbacksTotal,
			EmbeddingCacheTotal,
		)
	})
}

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
