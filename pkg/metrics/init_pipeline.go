package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPipelineMetrics() {
	r.BuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_builds_total",
			Help: "Total number of model builds by outcome",
		},
		[]string{"status"},
	)

	r.BuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hydronet_build_duration_seconds",
			Help:    "Snapshot-to-model build duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.DiagnosticsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_diagnostics_total",
			Help: "Total number of diagnostics emitted by kind and severity",
		},
		[]string{"kind", "severity"},
	)

	r.ModelNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydronet_model_nodes",
			Help: "Number of nodes in the most recently built model",
		},
	)

	r.ModelLinksTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydronet_model_links",
			Help: "Number of links in the most recently built model",
		},
	)

	r.SnapMergesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "hydronet_snap_merges_total",
			Help: "Total number of coordinate clusters merged during snapping",
		},
	)
}
