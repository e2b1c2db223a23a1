package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// NodeRecord is one node of an in-memory node set.
type NodeRecord struct {
	ID       int
	Location *graph.Location
}

// EdgeRecord is one edge of an in-memory edge set. A zero weight means
// graph.DefaultWeight.
type EdgeRecord struct {
	From   int
	To     int
	Weight float64
}

// BuildGraph creates a graph from in-memory node and edge sets. An invalid
// node id fails the build; edges with unknown endpoints are counted as
// rejected by the graph.
func BuildGraph(nodes []NodeRecord, edges []EdgeRecord, opts Options) (*graph.Graph, *LoadReport, error) {
	opts = opts.normalized()
	start := time.Now()

	g := graph.New(opts.Base, opts.MaxNodes)
	g.Reserve(len(nodes))
	for _, n := range nodes {
		if err := g.AddNode(n.ID, n.Location); err != nil {
			return nil, nil, err
		}
	}

	rep := &LoadReport{}
	for _, e := range edges {
		w := e.Weight
		if w == 0 {
			w = graph.DefaultWeight
		}
		if g.AddEdge(e.From, e.To, w) {
			rep.EdgesAdded++
		}
	}
	rep.Graph = g.Stats()
	rep.Duration = time.Since(start)
	return g, rep, nil
}

// ParseEdgeList reads "from to [weight]" lines; blank lines and lines
// starting with '#' are ignored and the weight defaults to 1. Both endpoints
// are added as nodes. Lines that do not parse, or whose ids fall outside the
// configured range, are counted and skipped.
func ParseEdgeList(ctx context.Context, r io.Reader, opts Options) (*graph.Graph, *LoadReport, error) {
	opts = opts.normalized()
	start := time.Now()
	g := graph.New(opts.Base, opts.MaxNodes)
	rep := &LoadReport{}

	scanner := newScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.Fields(text)
		if len(parts) < 2 {
			rep.MalformedLines++
			continue
		}
		from, err1 := strconv.Atoi(parts[0])
		to, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			rep.MalformedLines++
			continue
		}
		weight := graph.DefaultWeight
		if len(parts) >= 3 {
			w, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				rep.MalformedLines++
				continue
			}
			weight = w
		}

		// both ends are checked first so a rejected line adds no node
		if !g.ValidID(from) || !g.ValidID(to) {
			rep.InvalidIDs++
			continue
		}
		_ = g.AddNode(from, nil)
		_ = g.AddNode(to, nil)
		if g.AddEdge(from, to, weight) {
			rep.EdgesAdded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading edge list: %w", err)
	}

	rep.Graph = g.Stats()
	rep.Duration = time.Since(start)
	opts.Logger.Info().
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Int("malformed_lines", rep.MalformedLines).
		Int("invalid_ids", rep.InvalidIDs).
		Dur("duration", rep.Duration).
		Msg("Edge list loaded")
	return g, rep, nil
}

// LoadEdgeList opens path and parses it with ParseEdgeList.
func LoadEdgeList(ctx context.Context, path string, opts Options) (*graph.Graph, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ParseEdgeList(ctx, f, opts)
}
