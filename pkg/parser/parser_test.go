package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

func TestParseAdjacency(t *testing.T) {
	tests := []struct {
		line string
		ids  []int
		bad  int
	}{
		{"2 3 4", []int{2, 3, 4}, 0},
		{"2,3, 4", []int{2, 3, 4}, 0},
		{"  ", []int{}, 0},
		{"5 x 6 -1 7.5", []int{5, 6}, 3},
		{"1,,2\t3", []int{1, 2, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			ids, bad := ParseAdjacency(tt.line)
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.bad, bad)
		})
	}
}

func TestLoadLocationsAndAdjacency(t *testing.T) {
	locations := "40.4,-3.7\n41.3,2.1\nnot a row\n39.4,-0.3\n"
	users := "2 3\n1,3,9\nfoo 1\n\n"

	opts := DefaultOptions()
	opts.Base = 1
	g := graph.New(opts.Base, opts.MaxNodes)
	rep := &LoadReport{}

	require.NoError(t, LoadLocations(context.Background(), strings.NewReader(locations), g, opts, rep))
	assert.Equal(t, 4, rep.LocationRows)
	assert.Equal(t, 1, rep.MalformedLocations)
	assert.Equal(t, 4, g.NumNodes())

	loc, ok := g.Location(2)
	require.True(t, ok)
	assert.Equal(t, graph.Location{Lat: 41.3, Long: 2.1}, loc)
	_, ok = g.Location(3)
	assert.False(t, ok, "malformed row keeps its node without a location")
	assert.True(t, g.HasNode(3))

	require.NoError(t, LoadAdjacency(context.Background(), strings.NewReader(users), g, opts, rep))
	assert.Equal(t, 4, rep.AdjacencyRows)
	assert.Equal(t, 1, rep.MalformedTokens)
	assert.Equal(t, 5, rep.EdgesAdded)
	assert.Equal(t, int64(1), g.Stats().RejectedEdges, "9 is not a node")
	assert.Equal(t, 1.0, g.EdgeWeight(1, 2))
	assert.Equal(t, 1.0, g.EdgeWeight(2, 3))
	assert.Equal(t, 1.0, g.EdgeWeight(3, 1))
	assert.Equal(t, 0, g.OutDegree(4))
}

func TestLoadRespectsMaxNodes(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNodes = 2
	g := graph.New(0, opts.MaxNodes)
	rep := &LoadReport{}

	require.NoError(t, LoadLocations(context.Background(), strings.NewReader("1,1\n2,2\n3,3\n"), g, opts, rep))
	assert.Equal(t, 2, rep.LocationRows)
	assert.Equal(t, 2, g.NumNodes())

	require.NoError(t, LoadAdjacency(context.Background(), strings.NewReader("1\n0 2\n0 1\n"), g, opts, rep))
	assert.Equal(t, 2, rep.AdjacencyRows)
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, int64(1), g.Stats().RejectedEdges)
}

func TestLoadMaxNeighbors(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxNeighbors = 2
	g := graph.NewWithNodes(5)
	rep := &LoadReport{}

	require.NoError(t, LoadAdjacency(context.Background(), strings.NewReader("1 2 3 4\n0\n"), g, opts, rep))
	assert.Equal(t, 2, g.OutDegree(0))
	assert.Equal(t, 1, rep.TruncatedRows)
	assert.Equal(t, 3, rep.EdgesAdded)
	assert.Equal(t, 3, g.NumNodes())
	assert.False(t, g.HasNode(4))
}

func TestLoadLocationsHeader(t *testing.T) {
	opts := DefaultOptions()
	opts.Header = true
	g := graph.New(0, opts.MaxNodes)
	rep := &LoadReport{}

	require.NoError(t, LoadLocations(context.Background(), strings.NewReader("lat,long\n1.5,2.5\n"), g, opts, rep))
	assert.Equal(t, 1, g.NumNodes())
	assert.Zero(t, rep.MalformedLocations)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := graph.New(0, 10)
	err := LoadLocations(ctx, strings.NewReader("1,1\n"), g, DefaultOptions(), &LoadReport{})
	assert.ErrorIs(t, err, context.Canceled)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	loc := writeFile(t, dir, "locations.txt", "1,1\n2,2\n3,3")
	users := writeFile(t, dir, "users.txt", "1 2\n0\n")

	g, rep, err := LoadFiles(context.Background(), loc, users, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges())
	assert.Equal(t, 3, rep.LocationRows)
	assert.Equal(t, 2, rep.AdjacencyRows)
	assert.Equal(t, g.Stats(), rep.Graph)

	_, _, err = LoadFiles(context.Background(), filepath.Join(dir, "missing"), users, DefaultOptions())
	assert.Error(t, err)
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()
	for content, want := range map[string]int{
		"":         0,
		"a":        1,
		"a\n":      1,
		"a\nb":     2,
		"a\nb\n\n": 3,
	} {
		n, err := countLines(writeFile(t, dir, "f", content))
		require.NoError(t, err)
		assert.Equal(t, want, n, "%q", content)
	}
}

func TestParseEdgeList(t *testing.T) {
	input := `# comment
0 1
1 2 2.5

1 2
2 0 x
3
4 5000
`
	opts := DefaultOptions()
	opts.MaxNodes = 100
	g, rep, err := ParseEdgeList(context.Background(), strings.NewReader(input), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, 3.5, g.EdgeWeight(1, 2))
	assert.Equal(t, 2, rep.MalformedLines)
	assert.Equal(t, 1, rep.InvalidIDs)
	assert.Equal(t, 3, rep.EdgesAdded)
}

func TestParseEdgeListInvalidLineAddsNoNode(t *testing.T) {
	input := "0 1\n4 5000\n-1 2\n6 7\n"
	opts := DefaultOptions()
	opts.MaxNodes = 100
	g, rep, err := ParseEdgeList(context.Background(), strings.NewReader(input), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.InvalidIDs)
	assert.Equal(t, 2, rep.EdgesAdded)
	assert.Equal(t, 4, g.NumNodes())
	assert.False(t, g.HasNode(4))
	assert.False(t, g.HasNode(2))
	assert.True(t, g.HasNode(6))
	assert.True(t, g.HasNode(7))
}

func TestBuildGraph(t *testing.T) {
	nodes := []NodeRecord{{ID: 1, Location: &graph.Location{Lat: 1, Long: 2}}, {ID: 2}, {ID: 3}}
	edges := []EdgeRecord{{From: 1, To: 2}, {From: 2, To: 3, Weight: 4}, {From: 3, To: 7}}

	opts := DefaultOptions()
	opts.Base = 1
	g, rep, err := BuildGraph(nodes, edges, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, rep.EdgesAdded)
	assert.Equal(t, int64(1), rep.Graph.RejectedEdges)
	assert.Equal(t, 4.0, g.EdgeWeight(2, 3))

	_, _, err = BuildGraph([]NodeRecord{{ID: 0}}, nil, opts)
	assert.ErrorIs(t, err, graph.ErrInvalidID)
}
