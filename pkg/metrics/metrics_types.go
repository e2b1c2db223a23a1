// Package metrics exposes graph-insight's Prometheus instruments.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all metrics for the application
type Registry struct {
	// Graph Metrics
	GraphNodes          prometheus.Gauge
	GraphEdges          prometheus.Gauge
	GraphRejectedEdges  prometheus.Gauge
	GraphInvalidWeights prometheus.Gauge
	GraphLoadDuration   prometheus.Histogram

	// Louvain Metrics
	LouvainRunsTotal       *prometheus.CounterVec
	LouvainLevelsTotal     prometheus.Counter
	LouvainMovesTotal      prometheus.Counter
	LouvainModularity      prometheus.Gauge
	LouvainCommunities     prometheus.Gauge
	LouvainRunDuration     prometheus.Histogram
	LouvainLevelModularity *prometheus.GaugeVec

	// Sampling Metrics
	BFSSeedsTotal       prometheus.Counter
	BFSReachedNodes     prometheus.Histogram
	SamplingRunsTotal   *prometheus.CounterVec
	SamplingRunDuration *prometheus.HistogramVec

	// Job Metrics
	JobsTotal   *prometheus.CounterVec
	JobsRunning prometheus.Gauge

	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initGraphMetrics()
	r.initLouvainMetrics()
	r.initSamplingMetrics()
	r.initJobMetrics()
	r.initHTTPMetrics()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
