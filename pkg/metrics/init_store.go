package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_store_operations_total",
			Help: "Total number of result store operations",
		},
		[]string{"operation", "status"},
	)

	r.StoreOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydronet_store_operation_duration_seconds",
			Help:    "Result store operation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"operation"},
	)

	r.StoreRunsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydronet_store_runs",
			Help: "Number of runs persisted in the result store",
		},
	)
}
