package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSamplingMetrics() {
	r.BFSSeedsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphinsight_bfs_seeds_total",
			Help: "Total number of BFS traversals run by the path sampler",
		},
	)

	r.BFSReachedNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphinsight_bfs_reached_nodes",
			Help:    "Nodes reached by a single BFS traversal",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		},
	)

	r.SamplingRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphinsight_sampling_runs_total",
			Help: "Total number of sampling estimations",
		},
		[]string{"kind", "status"}, // paths, degrees
	)

	r.SamplingRunDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphinsight_sampling_run_duration_seconds",
			Help:    "Duration of sampling estimations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
}
