// Package analysis answers questions about a built graph: hop distances and
// their sampled average, paths and shared neighbours between two nodes, and
// degree statistics.
//
// Traversals use dense buffers indexed by node slot instead of maps, and a
// buffer is reset by undoing only the entries it touched, so one walker can
// serve many seeds on a graph with millions of nodes.
package analysis

import (
	"errors"
	"sort"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// Sentinel errors for graph queries.
var (
	// ErrGraphNil is returned if a nil graph pointer is passed.
	ErrGraphNil = errors.New("analysis: graph is nil")

	// ErrUnknownNode is returned when a query names an id that is not a node.
	ErrUnknownNode = errors.New("analysis: unknown node")

	// ErrNoPath is returned when the target is not reachable within the depth
	// limit.
	ErrNoPath = errors.New("analysis: no path within depth limit")
)

// walker holds the BFS state for one goroutine.
type walker struct {
	g       *graph.Graph
	base    int
	dist    []int32 // -1 = unvisited
	parent  []int32 // slot of the predecessor, nil unless paths are wanted
	touched []int   // slots set in dist during the current run
}

func newWalker(g *graph.Graph, withParents bool) *walker {
	w := &walker{
		g:    g,
		base: g.Base(),
		dist: make([]int32, g.Span()),
	}
	for i := range w.dist {
		w.dist[i] = -1
	}
	if withParents {
		w.parent = make([]int32, g.Span())
	}
	return w
}

func (w *walker) reset() {
	for _, s := range w.touched {
		w.dist[s] = -1
	}
	w.touched = w.touched[:0]
}

// run does a BFS from seed over forward edges. The frontier is the touched
// list itself: nodes are appended in non-decreasing distance order. It stops
// expanding at maxDepth (negative for no limit) and as soon as target (a
// slot, or -1) is discovered.
func (w *walker) run(seed, maxDepth, target int) {
	w.reset()
	s := seed - w.base
	w.dist[s] = 0
	w.touched = append(w.touched, s)
	if s == target {
		return
	}

	for head := 0; head < len(w.touched); head++ {
		u := w.touched[head]
		d := w.dist[u]
		if maxDepth >= 0 && int(d) >= maxDepth {
			continue
		}
		for _, e := range w.g.Neighbors(w.base + u) {
			v := e.To - w.base
			if w.dist[v] >= 0 {
				continue
			}
			w.dist[v] = d + 1
			if w.parent != nil {
				w.parent[v] = int32(u)
			}
			w.touched = append(w.touched, v)
			if v == target {
				return
			}
		}
	}
}

// ShortestPathsFrom returns the hop distance from seed to every node
// reachable over forward edges, seed included at distance 0. Unreachable
// nodes are absent. It returns nil when seed is not a node.
func ShortestPathsFrom(g *graph.Graph, seed int) map[int]int {
	if g == nil || !g.HasNode(seed) {
		return nil
	}
	w := newWalker(g, false)
	w.run(seed, -1, -1)

	out := make(map[int]int, len(w.touched))
	for _, s := range w.touched {
		out[w.base+s] = int(w.dist[s])
	}
	return out
}

// FindPath returns one shortest hop path from one node to another,
// endpoints included, exploring at most maxDepth hops (negative for no
// limit). A node reaches itself with the one-element path.
func FindPath(g *graph.Graph, from, to, maxDepth int) ([]int, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, ErrUnknownNode
	}
	if from == to {
		return []int{from}, nil
	}

	w := newWalker(g, true)
	target := to - w.base
	w.run(from, maxDepth, target)
	if w.dist[target] < 0 {
		return nil, ErrNoPath
	}

	path := make([]int, w.dist[target]+1)
	s := target
	for i := len(path) - 1; i > 0; i-- {
		path[i] = w.base + s
		s = int(w.parent[s])
	}
	path[0] = from
	return path, nil
}

// CommonNeighbors returns, in ascending order, the nodes both a and b have
// an edge to.
func CommonNeighbors(g *graph.Graph, a, b int) ([]int, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	if !g.HasNode(a) || !g.HasNode(b) {
		return nil, ErrUnknownNode
	}

	na, nb := g.Neighbors(a), g.Neighbors(b)
	if len(na) > len(nb) {
		na, nb = nb, na
	}
	set := make(map[int]struct{}, len(na))
	for _, e := range na {
		set[e.To] = struct{}{}
	}
	common := make([]int, 0)
	for _, e := range nb {
		if _, ok := set[e.To]; ok {
			common = append(common, e.To)
		}
	}
	sort.Ints(common)
	return common, nil
}
