package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLouvainMetrics() {
	r.LouvainRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphinsight_louvain_runs_total",
			Help: "Total number of Louvain runs",
		},
		[]string{"stop_reason"},
	)

	r.LouvainLevelsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphinsight_louvain_levels_total",
			Help: "Total number of Louvain levels processed",
		},
	)

	r.LouvainMovesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphinsight_louvain_moves_total",
			Help: "Total number of node moves committed by local optimisation",
		},
	)

	r.LouvainModularity = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_louvain_modularity",
			Help: "Modularity of the last completed Louvain run",
		},
	)

	r.LouvainCommunities = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_louvain_communities",
			Help: "Number of communities found by the last completed Louvain run",
		},
	)

	r.LouvainRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphinsight_louvain_run_duration_seconds",
			Help:    "Duration of Louvain runs in seconds",
			Buckets: []float64{0.01, 0.1, 1, 10, 60, 300, 900},
		},
	)

	r.LouvainLevelModularity = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphinsight_louvain_level_modularity",
			Help: "Modularity reached at the end of each level of the last run",
		},
		[]string{"level"},
	)
}
