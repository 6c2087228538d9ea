package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydronet_runs_total",
			Help: "Total number of simulation runs by final state",
		},
		[]string{"mode", "state"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydronet_run_duration_seconds",
			Help:    "Simulation run wall-clock duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 60.0},
		},
		[]string{"mode"},
	)

	r.RunsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "hydronet_runs_in_flight",
			Help: "Number of simulation runs currently executing",
		},
	)

	r.StepsExecuted = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "hydronet_steps_executed_total",
			Help: "Total number of hydraulic timesteps solved",
		},
	)
}
