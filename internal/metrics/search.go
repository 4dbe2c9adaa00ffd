package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "semsearch",
			Name:      "queries_total",
			Help:      "Total number of search queries",
		},
		[]string{"status"}, // "success" / "error"
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semsearch",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds (embed + rank + evaluate)",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	PrecisionAtK = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "semsearch",
			Name:      "precision_at_k",
			Help:      "Observed precision@k per evaluated query",
			Buckets:   []float64{0, 0.2, 0.4, 0.6, 0.8, 1},
		},
	)

	IndexedDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "semsearch",
			Name:      "indexed_documents",
			Help:      "Number of documents in the serving index",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(PrecisionAtK)
	prometheus.MustRegister(IndexedDocuments)
	searchMetricsRegistered = true
}
