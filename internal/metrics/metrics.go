// Package metrics holds the Prometheus instruments for sync and query
// observability. Register must be called once from main; nothing here
// registers via init side effects.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SyncOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchsync",
			Name:      "sync_operations_total",
			Help:      "Total sync operations against the search engine",
		},
		[]string{"kind", "operation", "result"},
	)

	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "searchsync",
			Name:      "sync_duration_seconds",
			Help:      "Sync operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind", "operation"},
	)

	DocumentsSynced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchsync",
			Name:      "documents_synced_total",
			Help:      "Documents written to the search engine",
		},
		[]string{"kind"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchsync",
			Name:      "queries_total",
			Help:      "Search queries executed",
		},
		[]string{"status"},
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "searchsync",
			Name:      "query_duration_seconds",
			Help:      "Search query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ReindexRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "searchsync",
			Name:      "reindex_runs_total",
			Help:      "Operator reindex runs",
		},
		[]string{"result"},
	)
)

var registered bool

// Register registers all instruments. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(SyncOperationsTotal)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(DocumentsSynced)
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(ReindexRunsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	registered = true
}
