package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-insight/pkg/graph"
	"github.com/gilchrisn/graph-insight/pkg/louvain"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	assert.NotNil(t, r.HTTPRequestsTotal)
	assert.NotNil(t, r.GraphNodes)
	assert.NotNil(t, r.LouvainMovesTotal)
	assert.NotNil(t, r.BFSSeedsTotal)
	assert.NotNil(t, r.JobsTotal)
	assert.NotNil(t, r.GetPrometheusRegistry())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/v1/health", "200", 10*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/v1/health", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/api/v1/jobs/{jobId}", "404", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/jobs/{jobId}", "404")))
}

func TestUpdateGraphMetrics(t *testing.T) {
	g := graph.NewWithNodes(3)
	g.AddEdge(0, 1, 1)
	g.AddEdge(1, 2, 1)
	g.AddEdge(2, 7, 1)
	g.AddEdge(0, 2, -1)

	r := NewRegistry()
	r.UpdateGraphMetrics(g)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.GraphNodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.GraphEdges))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GraphRejectedEdges))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GraphInvalidWeights))
}

func TestLouvainObserver(t *testing.T) {
	r := NewRegistry()
	r.ObserveLevel(0, 12, 0.3)
	r.ObserveLevel(1, 3, 0.41)
	r.ObserveRun(&louvain.Result{
		Modularity:     0.41,
		NumCommunities: 4,
		StopReason:     louvain.StopNoMoves,
	}, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.LouvainLevelsTotal))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.LouvainMovesTotal))
	assert.Equal(t, 0.41, testutil.ToFloat64(r.LouvainModularity))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.LouvainCommunities))
	assert.Equal(t, 0.3, testutil.ToFloat64(r.LouvainLevelModularity.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LouvainRunsTotal.WithLabelValues("no_moves")))
}

func TestObserverWiredIntoRun(t *testing.T) {
	g := graph.NewWithNodes(4)
	for _, e := range [][2]int{{0, 1}, {1, 0}, {2, 3}, {3, 2}} {
		g.AddEdge(e[0], e[1], 1)
	}
	cfg := louvain.NewConfig()
	cfg.Set("algorithm.random_seed", 1)
	cfg.Set("logging.level", "disabled")

	r := NewRegistry()
	res, err := louvain.Run(t.Context(), g, cfg, louvain.WithObserver(r))
	require.NoError(t, err)

	assert.Equal(t, res.Modularity, testutil.ToFloat64(r.LouvainModularity))
	assert.Equal(t, float64(res.NumLevels), testutil.ToFloat64(r.LouvainLevelsTotal))
	assert.Equal(t, float64(res.Statistics.TotalMoves), testutil.ToFloat64(r.LouvainMovesTotal))
}

func TestSeedAndSamplingMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveSeed(1, 10)
	r.ObserveSeed(2, 0)
	r.RecordSampling("paths", "success", time.Second)
	r.RecordJob("louvain", "completed")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.BFSSeedsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SamplingRunsTotal.WithLabelValues("paths", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.JobsTotal.WithLabelValues("louvain", "completed")))
}

func TestExposition(t *testing.T) {
	r := NewRegistry()
	r.GraphNodes.Set(5)

	expected := `
# HELP graphinsight_graph_nodes Number of nodes in the loaded graph
# TYPE graphinsight_graph_nodes gauge
graphinsight_graph_nodes 5
`
	require.NoError(t, testutil.GatherAndCompare(r.GetPrometheusRegistry(),
		strings.NewReader(expected), "graphinsight_graph_nodes"))
}
