package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initJobMetrics() {
	r.JobsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphinsight_jobs_total",
			Help: "Total number of analysis jobs by kind and final status",
		},
		[]string{"kind", "status"},
	)

	r.JobsRunning = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphinsight_jobs_running",
			Help: "Number of analysis jobs currently running",
		},
	)
}
