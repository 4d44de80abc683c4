package graph

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects execution metrics for graph runs, tool-calling
// agents, and memory lookups.
//
// Metrics exposed (all namespaced with "stategraph_"):
//
//   - inflight_runs (gauge): runs currently executing.
//   - runs_total (counter): finished runs. Labels: status.
//   - step_latency_ms (histogram): node execution duration. Labels: node_id, status.
//   - routes_total (counter): edge traversals. Labels: from, to.
//   - tool_calls_total (counter): tool invocations. Labels: tool, status.
//   - memory_lookups_total (counter): HITL memory lookups. Labels: result.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	engine, _ := graph.New(compiled, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use and on a nil receiver.
type PrometheusMetrics struct {
	inflightRuns  prometheus.Gauge
	runs          *prometheus.CounterVec
	stepLatency   *prometheus.HistogramVec
	routes        *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	memoryLookups *prometheus.CounterVec

	enabled atomic.Bool
}

// NewPrometheusMetrics creates and registers all metrics with registry.
// A nil registry selects prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{}
	pm.enabled.Store(true)

	pm.inflightRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "stategraph",
		Name:      "inflight_runs",
		Help:      "Number of graph runs currently executing",
	})

	pm.runs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stategraph",
		Name:      "runs_total",
		Help:      "Finished graph runs",
	}, []string{"status"}) // status: success, error

	pm.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stategraph",
		Name:      "step_latency_ms",
		Help:      "Node execution duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
	}, []string{"node_id", "status"})

	pm.routes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stategraph",
		Name:      "routes_total",
		Help:      "Edge traversals between nodes",
	}, []string{"from", "to"})

	pm.toolCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stategraph",
		Name:      "tool_calls_total",
		Help:      "Tool invocations requested by tool-calling agents",
	}, []string{"tool", "status"})

	pm.memoryLookups = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stategraph",
		Name:      "memory_lookups_total",
		Help:      "HITL memory lookups performed before node computation",
	}, []string{"result"}) // result: hit, miss, error

	return pm
}

func (pm *PrometheusMetrics) on() bool {
	return pm != nil && pm.enabled.Load()
}

// RunStarted increments the in-flight gauge.
func (pm *PrometheusMetrics) RunStarted() {
	if !pm.on() {
		return
	}
	pm.inflightRuns.Inc()
}

// RunFinished decrements the in-flight gauge and counts the run.
func (pm *PrometheusMetrics) RunFinished(status string) {
	if !pm.on() {
		return
	}
	pm.inflightRuns.Dec()
	pm.runs.WithLabelValues(status).Inc()
}

// RecordStepLatency records the execution duration of a node.
func (pm *PrometheusMetrics) RecordStepLatency(nodeID string, latency time.Duration, status string) {
	if !pm.on() {
		return
	}
	pm.stepLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// RecordRoute counts a traversal from -> to.
func (pm *PrometheusMetrics) RecordRoute(from, to string) {
	if !pm.on() {
		return
	}
	pm.routes.WithLabelValues(from, to).Inc()
}

// RecordToolCall counts a tool invocation.
func (pm *PrometheusMetrics) RecordToolCall(tool, status string) {
	if !pm.on() {
		return
	}
	pm.toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordMemoryLookup counts a memory lookup outcome.
func (pm *PrometheusMetrics) RecordMemoryLookup(result string) {
	if !pm.on() {
		return
	}
	pm.memoryLookups.WithLabelValues(result).Inc()
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.enabled.Store(false)
}

// Enable re-enables metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.enabled.Store(true)
}
