package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_graph_nodes",
			Help: "Number of nodes in the loaded graph",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_graph_edges",
			Help: "Number of distinct directed edges in the loaded graph",
		},
	)

	r.GraphRejectedEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_graph_rejected_edges_total",
			Help: "Edges rejected during ingestion because an endpoint was unknown",
		},
	)

	r.GraphInvalidWeights = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_graph_invalid_weights_total",
			Help: "Edges rejected during ingestion because of a non-positive or non-finite weight",
		},
	)

	r.GraphLoadDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphinsight_graph_load_duration_seconds",
			Help:    "Time spent building the graph from input files",
			Buckets: []float64{0.1, 1, 5, 15, 30, 60, 120, 300},
		},
	)
}
