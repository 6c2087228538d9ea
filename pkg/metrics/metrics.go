package metrics

import (
	"runtime"
	"time"
)

// RecordRun records a completed simulation run with its duration and the
// number of timesteps it solved
func (r *Registry) RecordRun(mode, state string, duration time.Duration, steps int) {
	r.RunsTotal.WithLabelValues(mode, state).Inc()
	r.RunDuration.WithLabelValues(mode).Observe(duration.Seconds())
	r.StepsExecuted.Add(float64(steps))
}

// RecordBuild records a snapshot-to-model build
func (r *Registry) RecordBuild(status string, duration time.Duration, nodes, links int) {
	r.BuildsTotal.WithLabelValues(status).Inc()
	r.BuildDuration.Observe(duration.Seconds())
	r.ModelNodesTotal.Set(float64(nodes))
	r.ModelLinksTotal.Set(float64(links))
}

// RecordSnapMerges records explicit-point merges performed during snapping
func (r *Registry) RecordSnapMerges(n int) {
	r.SnapMergesTotal.Add(float64(n))
}

// RecordDiagnostic records a single emitted diagnostic
func (r *Registry) RecordDiagnostic(kind, severity string) {
	r.DiagnosticsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordStoreOperation records a result store operation
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes process-level gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
