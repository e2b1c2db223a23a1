package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/graph-insight/pkg/config"
)

// twoTriangles is two directed triangles joined by one edge.
const twoTriangles = `# two triangles
0 1
1 2
2 0
3 4
4 5
5 3
2 3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeCommandEdgeList(t *testing.T) {
	dir := t.TempDir()
	edges := writeFile(t, dir, "graph.txt", twoTriangles)
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze", "--edges", edges, "--log-level", "disabled",
		"--output-dir", outDir, "--stability-seed", "3"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Nodes: 6")
	assert.Contains(t, text, "Edges: 7")
	assert.Contains(t, text, "=== Shortest paths")
	assert.Contains(t, text, "=== Louvain Results ===")
	assert.Contains(t, text, "Stability (NMI against seed 3)")

	for _, ext := range []string{"mapping", "assignment", "sizes", "json"} {
		assert.FileExists(t, filepath.Join(outDir, "communities."+ext))
	}
}

// twoMutualTriangles is twoTriangles with every edge stored both ways.
const twoMutualTriangles = `0 1
1 0
1 2
2 1
2 0
0 2
3 4
4 3
4 5
5 4
5 3
3 5
2 3
3 2
`

func TestAnalyzeCrossCheck(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze", "--edges", writeFile(t, dir, "mutual.txt", twoMutualTriangles),
		"--log-level", "disabled", "--skip-paths", "--cross-check"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Cross-check (gonum modularity): ")

	out.Reset()
	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze", "--edges", writeFile(t, dir, "directed.txt", twoTriangles),
		"--log-level", "disabled", "--skip-paths", "--cross-check"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Cross-check skipped: graph is not symmetric")
}

func TestAnalyzeCommandLocationsAndUsers(t *testing.T) {
	dir := t.TempDir()
	locations := writeFile(t, dir, "locations.csv", "1,1\n2,2\n3,3\n")
	users := writeFile(t, dir, "users.txt", "2,3\n1\n1 2 99\n")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze",
		"--locations", locations, "--users", users, "--base", "1",
		"--log-level", "disabled", "--skip-louvain"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Nodes: 3")
	assert.Contains(t, text, "Edges: 5")
	assert.Contains(t, text, "rejected edges: 1")
	assert.NotContains(t, text, "Louvain")
}

func TestAnalyzeCommandRequiresInput(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze", "--log-level", "disabled"})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), errNoInput)
}

func TestConfigFileIsRead(t *testing.T) {
	dir := t.TempDir()
	edges := writeFile(t, dir, "graph.txt", twoTriangles)
	cfgFile := writeFile(t, dir, "graphinsight.yaml", "ingest:\n  edge_list_file: "+edges+"\nlogging:\n  level: disabled\n")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"analyze", "--config", cfgFile, "--skip-paths", "--skip-louvain"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Nodes: 6")
}

func TestLoadGraphNoInput(t *testing.T) {
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	_, _, err = loadGraph(context.Background(), cfg)
	assert.ErrorIs(t, err, errNoInput)
}
