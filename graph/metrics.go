package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects Prometheus-compatible metrics for an Executor.
// All metrics are namespaced "graphrun". Attach one to an Executor with
// WithMetrics; nil is a valid Option value (metrics recording is then a
// no-op) so callers that don't care about observability never need a
// conditional.
//
// Metrics exposed:
//
//  1. active_workers (gauge): nodes currently executing within a superstep.
//     No labels.
//  2. superstep_duration_ms (histogram): wall-clock duration of one
//     superstep barrier, from dispatch to every active node settling.
//     Labels: run_id, status (ok/fatal).
//  3. node_retries_total (counter): retry attempts issued by
//     executeWithRetry, one increment per attempt beyond the first.
//     Labels: run_id, node_id.
//  4. node_timeouts_total (counter): nodes whose per-node timeout elapsed.
//     Labels: run_id, node_id.
//  5. fallback_invocations_total (counter): times a node's fallback ran
//     after the primary action exhausted its retries.
//     Labels: run_id, node_id, outcome (success/failure).
//  6. checkpoints_saved_total (counter): successful checkpoint persists.
//     Labels: run_id.
type PrometheusMetrics struct {
	activeWorkers prometheus.Gauge

	superstepDuration *prometheus.HistogramVec

	retries      *prometheus.CounterVec
	timeouts     *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	checkpoints  *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers graphrun's metric family with registry and
// returns a ready-to-use collector. A nil registry registers against
// prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{enabled: true}

	pm.activeWorkers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "graphrun",
		Name:      "active_workers",
		Help:      "Nodes currently executing within the in-flight superstep",
	})

	pm.superstepDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphrun",
		Name:      "superstep_duration_ms",
		Help:      "Wall-clock duration of one superstep barrier in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
	}, []string{"run_id", "status"})

	pm.retries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphrun",
		Name:      "node_retries_total",
		Help:      "Retry attempts issued beyond a node's first execution attempt",
	}, []string{"run_id", "node_id"})

	pm.timeouts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphrun",
		Name:      "node_timeouts_total",
		Help:      "Nodes whose per-node timeout elapsed before completion",
	}, []string{"run_id", "node_id"})

	pm.fallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphrun",
		Name:      "fallback_invocations_total",
		Help:      "Fallback node invocations after a primary action exhausted its retries",
	}, []string{"run_id", "node_id", "outcome"})

	pm.checkpoints = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphrun",
		Name:      "checkpoints_saved_total",
		Help:      "Successful checkpoint persists",
	}, []string{"run_id"})

	return pm
}

// SetActiveWorkers records the number of nodes currently in flight.
func (pm *PrometheusMetrics) SetActiveWorkers(n int) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.activeWorkers.Set(float64(n))
}

// ObserveSuperstepDuration records one superstep's wall-clock duration.
func (pm *PrometheusMetrics) ObserveSuperstepDuration(runID string, d time.Duration, status string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.superstepDuration.WithLabelValues(runID, status).Observe(float64(d.Milliseconds()))
}

// IncRetry records one retry attempt for nodeID.
func (pm *PrometheusMetrics) IncRetry(runID, nodeID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.retries.WithLabelValues(runID, nodeID).Inc()
}

// IncTimeout records one timed-out execution for nodeID.
func (pm *PrometheusMetrics) IncTimeout(runID, nodeID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.timeouts.WithLabelValues(runID, nodeID).Inc()
}

// IncFallback records one fallback invocation for nodeID, tagged by whether
// the fallback itself ultimately succeeded.
func (pm *PrometheusMetrics) IncFallback(runID, nodeID, outcome string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.fallbacks.WithLabelValues(runID, nodeID, outcome).Inc()
}

// IncCheckpointSaved records one successful checkpoint persist.
func (pm *PrometheusMetrics) IncCheckpointSaved(runID string) {
	if pm == nil || !pm.isEnabled() {
		return
	}
	pm.checkpoints.WithLabelValues(runID).Inc()
}

// Disable stops metric recording without unregistering collectors, useful
// in tests that share a process-wide registry across cases.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
