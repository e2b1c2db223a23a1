package louvain

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// TestGraph is one entry of the shared graph table
type TestGraph struct {
	Name        string
	Graph       *graph.Graph
	ExpectedMin int // Minimum expected communities
	ExpectedMax int // Maximum expected communities
}

func buildGraph(t testing.TB, base, n int, edges [][3]float64) *graph.Graph {
	t.Helper()
	g := graph.New(base, n)
	for id := base; id < base+n; id++ {
		require.NoError(t, g.AddNode(id, nil))
	}
	for _, e := range edges {
		require.True(t, g.AddEdge(int(e[0]), int(e[1]), e[2]), "edge %v", e)
	}
	return g
}

// both stores every edge in both directions
func both(edges ...[3]float64) [][3]float64 {
	out := make([][3]float64, 0, 2*len(edges))
	for _, e := range edges {
		out = append(out, e, [3]float64{e[1], e[0], e[2]})
	}
	return out
}

// clique returns the symmetric edges of a complete graph over ids
func clique(w float64, ids ...int) [][3]float64 {
	var edges [][3]float64
	for i, u := range ids {
		for _, v := range ids[i+1:] {
			edges = append(edges, both([3]float64{float64(u), float64(v), w})...)
		}
	}
	return edges
}

func testConfig() *Config {
	config := NewConfig()
	config.Set("algorithm.random_seed", int64(42))
	config.Set("algorithm.check_invariants", true)
	config.Set("logging.level", "disabled")
	return config
}

func twoCliquesWithBridge(t testing.TB) *graph.Graph {
	edges := append(clique(1, 1, 2, 3, 4), clique(1, 5, 6, 7, 8)...)
	edges = append(edges, both([3]float64{1, 5, 1})...)
	return buildGraph(t, 1, 8, edges)
}

func createTestGraphs(t testing.TB) []TestGraph {
	ring := [][3]float64{}
	for c := 0; c < 4; c++ {
		lo := 1 + 5*c
		ring = append(ring, clique(1, lo, lo+1, lo+2, lo+3, lo+4)...)
		next := 1 + 5*((c+1)%4)
		ring = append(ring, both([3]float64{float64(lo), float64(next), 1})...)
	}

	return []TestGraph{
		{Name: "SingleEdge", Graph: buildGraph(t, 0, 2, [][3]float64{{0, 1, 1}}), ExpectedMin: 1, ExpectedMax: 2},
		{Name: "Triangle", Graph: buildGraph(t, 0, 3, clique(1, 0, 1, 2)), ExpectedMin: 1, ExpectedMax: 1},
		{Name: "TwoPairs", Graph: buildGraph(t, 1, 4, both([3]float64{1, 2, 1}, [3]float64{3, 4, 1})), ExpectedMin: 2, ExpectedMax: 2},
		{Name: "TwoCliquesBridge", Graph: twoCliquesWithBridge(t), ExpectedMin: 2, ExpectedMax: 2},
		{Name: "RingOfCliques", Graph: buildGraph(t, 1, 20, ring), ExpectedMin: 2, ExpectedMax: 4},
		{Name: "DirectedCycle", Graph: buildGraph(t, 0, 6, [][3]float64{{0, 1, 1}, {1, 2, 1}, {2, 3, 1}, {3, 4, 1}, {4, 5, 1}, {5, 0, 1}}), ExpectedMin: 1, ExpectedMax: 6},
		{Name: "WeightedSelfLoops", Graph: buildGraph(t, 0, 4, [][3]float64{{0, 0, 3}, {0, 1, 2}, {1, 0, 2}, {2, 3, 1}, {3, 3, 0.5}}), ExpectedMin: 1, ExpectedMax: 4},
	}
}

func TestTwoDisjointPairs(t *testing.T) {
	g := buildGraph(t, 1, 4, both([3]float64{1, 2, 1}, [3]float64{3, 4, 1}))

	result, err := Run(context.Background(), g, testConfig())
	require.NoError(t, err)

	p := result.Partition
	c1, _ := p.Of(1)
	c2, _ := p.Of(2)
	c3, _ := p.Of(3)
	c4, _ := p.Of(4)
	assert.Equal(t, c1, c2)
	assert.Equal(t, c3, c4)
	assert.NotEqual(t, c1, c3)
	assert.Equal(t, 2, result.NumCommunities)
	assert.InDelta(t, 0.5, result.Modularity, 1e-12)
	assert.InDelta(t, -0.25, result.BaselineModularity, 1e-12)
	assert.True(t, result.Converged)
	assert.Equal(t, StopNoMoves, result.StopReason)
	assert.NoError(t, result.Warning)
}

func TestRunLouvain(t *testing.T) {
	for _, tg := range createTestGraphs(t) {
		t.Run(tg.Name, func(t *testing.T) {
			result, err := Run(context.Background(), tg.Graph, testConfig())
			require.NoError(t, err)

			assert.Equal(t, len(result.Levels), result.NumLevels)
			assert.GreaterOrEqual(t, result.NumLevels, 1)
			assert.Equal(t, tg.Graph.NumNodes(), result.Partition.Len())
			assert.GreaterOrEqual(t, result.NumCommunities, tg.ExpectedMin)
			assert.LessOrEqual(t, result.NumCommunities, tg.ExpectedMax)

			assert.False(t, math.IsNaN(result.Modularity) || math.IsInf(result.Modularity, 0))
			assert.GreaterOrEqual(t, result.Modularity, result.BaselineModularity-1e-12)
			assert.InDelta(t, Modularity(tg.Graph, result.Partition), result.Modularity, 1e-9)

			for _, id := range tg.Graph.NodeIDs() {
				_, ok := result.Partition.Of(id)
				assert.True(t, ok, "node %d not assigned", id)
			}
		})
	}
}

func TestTwoCliquesAreSeparated(t *testing.T) {
	g := twoCliquesWithBridge(t)
	result, err := Run(context.Background(), g, testConfig())
	require.NoError(t, err)

	members := result.Partition.Members()
	require.Len(t, members, 2)
	assert.Equal(t, []int{1, 2, 3, 4}, members[0])
	assert.Equal(t, []int{5, 6, 7, 8}, members[1])
}

func TestModularityMatchesGonum(t *testing.T) {
	for _, tg := range createTestGraphs(t) {
		if tg.Name == "DirectedCycle" || tg.Name == "WeightedSelfLoops" || tg.Name == "SingleEdge" {
			continue
		}
		t.Run(tg.Name, func(t *testing.T) {
			result, err := Run(context.Background(), tg.Graph, testConfig())
			require.NoError(t, err)

			want, err := GonumModularity(tg.Graph, result.Partition)
			require.NoError(t, err)
			assert.InDelta(t, want, result.Modularity, 1e-9)
		})
	}
}

func TestGonumModularityRejectsUnsupportedGraphs(t *testing.T) {
	selfLoop := buildGraph(t, 0, 2, [][3]float64{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}})
	_, err := GonumModularity(selfLoop, NewPartition(0, []int{0, 0}))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotSymmetric)

	directed := buildGraph(t, 0, 2, [][3]float64{{0, 1, 1}})
	_, err = GonumModularity(directed, NewPartition(0, []int{0, 1}))
	assert.ErrorIs(t, err, ErrNotSymmetric)

	uneven := buildGraph(t, 0, 2, [][3]float64{{0, 1, 1}, {1, 0, 2}})
	_, err = GonumModularity(uneven, NewPartition(0, []int{0, 1}))
	assert.ErrorIs(t, err, ErrNotSymmetric)
}

func TestEmptyGraph(t *testing.T) {
	t.Run("NodesWithoutEdges", func(t *testing.T) {
		g := buildGraph(t, 1, 5, nil)
		result, err := Run(context.Background(), g, testConfig())
		require.NoError(t, err)

		assert.ErrorIs(t, result.Warning, ErrEmptyGraph)
		assert.Equal(t, StopEmptyGraph, result.StopReason)
		assert.Equal(t, 5, result.NumCommunities)
		assert.Equal(t, 0.0, result.Modularity)
		assert.Empty(t, result.Levels)
		for _, size := range CommunitySizes(result.Partition) {
			assert.Equal(t, 1, size)
		}
	})

	t.Run("NoNodes", func(t *testing.T) {
		result, err := Run(context.Background(), graph.New(0, 10), testConfig())
		require.NoError(t, err)
		assert.ErrorIs(t, result.Warning, ErrEmptyGraph)
		assert.Equal(t, 0, result.Partition.Len())
	})

	t.Run("RunLouvain", func(t *testing.T) {
		p, err := RunLouvain(buildGraph(t, 0, 3, nil), 10, 1e-7)
		require.NoError(t, err)
		assert.Equal(t, 3, p.NumCommunities())
	})
}

func TestRunRejectsNilGraph(t *testing.T) {
	_, err := Run(context.Background(), nil, testConfig())
	assert.Error(t, err)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, twoCliquesWithBridge(t), testConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLevelCapReportsNotConverged(t *testing.T) {
	config := testConfig()
	config.Set("algorithm.max_levels", 1)
	g := buildGraph(t, 1, 4, both([3]float64{1, 2, 1}, [3]float64{3, 4, 1}))

	result, err := Run(context.Background(), g, config)
	require.NoError(t, err)
	assert.Equal(t, 1, result.NumLevels)
	assert.Equal(t, StopMaxLevels, result.StopReason)
	assert.False(t, result.Converged)
	assert.Equal(t, 2, result.NumCommunities)
}

func TestPassCapReportsNotConverged(t *testing.T) {
	config := testConfig()
	config.Set("algorithm.max_iterations", 1)
	g := buildGraph(t, 1, 4, both([3]float64{1, 2, 1}, [3]float64{3, 4, 1}))

	result, err := Run(context.Background(), g, config)
	require.NoError(t, err)
	assert.True(t, result.Levels[0].PassCapHit)
	assert.False(t, result.Converged)
	assert.Equal(t, 2, result.NumCommunities)
}

func TestToleranceStopsLevelLoop(t *testing.T) {
	config := testConfig()
	config.Set("algorithm.tolerance", 10.0)

	result, err := Run(context.Background(), twoCliquesWithBridge(t), config)
	require.NoError(t, err)
	assert.Equal(t, StopTolerance, result.StopReason)
	assert.Equal(t, 1, result.NumLevels)
	assert.True(t, result.Converged)
}

func TestDeterministicForSeed(t *testing.T) {
	ring := createTestGraphs(t)[4].Graph

	first, err := Run(context.Background(), ring, testConfig())
	require.NoError(t, err)
	second, err := Run(context.Background(), ring, testConfig())
	require.NoError(t, err)
	assert.Equal(t, first.Partition.Map(), second.Partition.Map())
	assert.Equal(t, first.Modularity, second.Modularity)
}

func TestParallelMatchesQuality(t *testing.T) {
	for _, tg := range createTestGraphs(t) {
		t.Run(tg.Name, func(t *testing.T) {
			config := testConfig()
			config.Set("performance.parallel", true)
			config.Set("performance.num_workers", 4)
			config.Set("performance.chunk_size", 3)

			result, err := Run(context.Background(), tg.Graph, config)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, result.Modularity, result.BaselineModularity-1e-12)
			assert.InDelta(t, Modularity(tg.Graph, result.Partition), result.Modularity, 1e-9)
			assert.Equal(t, tg.Graph.NumNodes(), result.Partition.Len())
		})
	}
}

func TestHierarchyPath(t *testing.T) {
	result, err := Run(context.Background(), twoCliquesWithBridge(t), testConfig())
	require.NoError(t, err)

	for _, id := range []int{1, 4, 8} {
		path := result.HierarchyPath(id)
		require.Len(t, path, result.NumLevels+1)
		assert.Equal(t, id, path[0])
		comm, _ := result.Partition.Of(id)
		assert.Equal(t, comm, path[len(path)-1])
	}
	assert.Nil(t, result.HierarchyPath(99))
}

func TestLevelStatistics(t *testing.T) {
	result, err := Run(context.Background(), twoCliquesWithBridge(t), testConfig())
	require.NoError(t, err)

	require.Len(t, result.Statistics.LevelStats, result.NumLevels)
	moves, passes := 0, 0
	for i, ls := range result.Statistics.LevelStats {
		assert.Equal(t, i, ls.Level)
		assert.GreaterOrEqual(t, ls.FinalModularity, ls.InitialModularity-1e-12)
		if i > 0 {
			prev := result.Statistics.LevelStats[i-1]
			assert.InDelta(t, prev.FinalModularity, ls.InitialModularity, 1e-9)
		}
		moves += ls.Moves
		passes += ls.Passes
	}
	assert.Equal(t, moves, result.Statistics.TotalMoves)
	assert.Equal(t, passes, result.Statistics.TotalPasses)
}

type recordingObserver struct {
	levels []int
	runs   int
}

func (r *recordingObserver) ObserveLevel(level, moves int, modularity float64) {
	r.levels = append(r.levels, level)
}

func (r *recordingObserver) ObserveRun(result *Result, elapsed time.Duration) { r.runs++ }

func TestObserverAndMoveTracking(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	tracker := NewMoveTrackerWriter(&buf, "louvain")

	result, err := Run(context.Background(), twoCliquesWithBridge(t), testConfig(),
		WithObserver(obs), WithMoveTracker(tracker), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, tracker.Close())

	assert.Len(t, obs.levels, result.NumLevels)
	assert.Equal(t, 1, obs.runs)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, result.Statistics.TotalMoves)
	var event MoveEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Equal(t, 1, event.MoveNumber)
	assert.Equal(t, "louvain", event.Algorithm)
	assert.NotEqual(t, event.FromComm, event.ToComm)
	assert.Greater(t, event.Gain, 0.0)
}

func TestMoveTrackerFile(t *testing.T) {
	path := t.TempDir() + "/moves.jsonl"
	config := testConfig()
	config.Set("analysis.track_moves", true)
	config.Set("analysis.output_file", path)

	result, err := Run(context.Background(), twoCliquesWithBridge(t), config)
	require.NoError(t, err)
	assert.Greater(t, result.Statistics.TotalMoves, 0)
	assert.FileExists(t, path)
}

func TestLargerRandomGraph(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	g := plantedPartition(t, rand.New(rand.NewSource(7)), 10, 30, 0.3, 0.005)
	result, err := Run(context.Background(), g, testConfig())
	require.NoError(t, err)
	assert.Greater(t, result.Modularity, 0.5)
	assert.InDelta(t, Modularity(g, result.Partition), result.Modularity, 1e-9)
}

// plantedPartition builds groups of size nodes, linking pairs inside a group
// with probability pIn and across groups with pOut, in both directions.
func plantedPartition(t testing.TB, rng *rand.Rand, groups, size int, pIn, pOut float64) *graph.Graph {
	n := groups * size
	g := graph.New(0, n)
	for id := 0; id < n; id++ {
		require.NoError(t, g.AddNode(id, nil))
	}
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			p := pOut
			if u/size == v/size {
				p = pIn
			}
			if rng.Float64() < p {
				g.AddEdge(u, v, 1)
				g.AddEdge(v, u, 1)
			}
		}
	}
	return g
}
