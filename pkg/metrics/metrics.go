package metrics

import (
	"strconv"
	"time"

	"github.com/gilchrisn/graph-insight/pkg/graph"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
)

var _ louvain.Observer = (*Registry)(nil)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// UpdateGraphMetrics publishes the size and data-quality counters of g.
func (r *Registry) UpdateGraphMetrics(g *graph.Graph) {
	stats := g.Stats()
	r.GraphNodes.Set(float64(g.NumNodes()))
	r.GraphEdges.Set(float64(g.NumEdges()))
	r.GraphRejectedEdges.Set(float64(stats.RejectedEdges))
	r.GraphInvalidWeights.Set(float64(stats.InvalidWeights))
}

// RecordGraphLoad records how long building the graph took
func (r *Registry) RecordGraphLoad(duration time.Duration) {
	r.GraphLoadDuration.Observe(duration.Seconds())
}

// ObserveLevel records one completed Louvain level.
func (r *Registry) ObserveLevel(level, moves int, modularity float64) {
	r.LouvainLevelsTotal.Inc()
	r.LouvainMovesTotal.Add(float64(moves))
	r.LouvainLevelModularity.WithLabelValues(strconv.Itoa(level)).Set(modularity)
}

// ObserveRun records a finished Louvain run.
func (r *Registry) ObserveRun(result *louvain.Result, elapsed time.Duration) {
	r.LouvainRunsTotal.WithLabelValues(string(result.StopReason)).Inc()
	r.LouvainModularity.Set(result.Modularity)
	r.LouvainCommunities.Set(float64(result.NumCommunities))
	r.LouvainRunDuration.Observe(elapsed.Seconds())
}

// ObserveSeed counts one BFS traversal of the path sampler. Its signature
// matches analysis.WithSeedCallback.
func (r *Registry) ObserveSeed(seed, reached int) {
	r.BFSSeedsTotal.Inc()
	r.BFSReachedNodes.Observe(float64(reached))
}

// RecordSampling records a sampling estimation
func (r *Registry) RecordSampling(kind, status string, duration time.Duration) {
	r.SamplingRunsTotal.WithLabelValues(kind, status).Inc()
	r.SamplingRunDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordJob records a job reaching a final status
func (r *Registry) RecordJob(kind, status string) {
	r.JobsTotal.WithLabelValues(kind, status).Inc()
}
