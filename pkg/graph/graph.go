// Package graph holds the in-memory directed graph that every analysis in
// graph-insight reads: dense integer node ids used directly as slice indices,
// one growable adjacency slice per node, and coalesced multi-edges.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// DefaultWeight is the weight of an edge in the base, unweighted graph.
const DefaultWeight = 1.0

// ErrInvalidID is returned when a node id is below the base index or above
// the configured bound.
var ErrInvalidID = errors.New("graph: invalid node id")

// Location is the optional geographic payload of a node.
type Location struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// Edge is one adjacency entry: the destination and the coalesced weight.
type Edge struct {
	To     int     `json:"to"`
	Weight float64 `json:"weight"`
}

// Stats aggregates data-quality counters collected while building a graph.
type Stats struct {
	RejectedEdges  int64 `json:"rejected_edges"`  // unknown endpoint
	InvalidWeights int64 `json:"invalid_weights"` // NaN, Inf or non-positive weight
	MergedEdges    int64 `json:"merged_edges"`    // duplicates coalesced into an existing edge
}

type slot struct {
	present     bool
	hasLocation bool
	location    Location
}

// Graph is a directed, weighted graph over dense integer ids in
// [base, base+maxNodes). It is not safe for concurrent mutation; concurrent
// readers are fine once building is done.
type Graph struct {
	base     int
	maxNodes int

	slots     []slot
	adjacency [][]Edge  // adjacency[id-base] = out-edges, no duplicate destination
	degrees   []float64 // weighted out-degree

	numNodes    int
	numEdges    int
	totalWeight float64
	stats       Stats
}

// New creates an empty graph whose valid ids are base..base+maxNodes-1.
func New(base, maxNodes int) *Graph {
	if maxNodes < 0 {
		maxNodes = 0
	}
	return &Graph{
		base:     base,
		maxNodes: maxNodes,
	}
}

// NewWithNodes creates a graph with ids 0..n-1 already present. Coarsened
// Louvain levels are built this way.
func NewWithNodes(n int) *Graph {
	g := New(0, n)
	g.grow(n)
	for i := 0; i < n; i++ {
		g.slots[i].present = true
	}
	g.numNodes = n
	return g
}

// Base returns the smallest valid node id.
func (g *Graph) Base() int { return g.base }

// MaxNodes returns the configured bound on the id range.
func (g *Graph) MaxNodes() int { return g.maxNodes }

// Span returns the length of the id range materialised so far; every present
// node satisfies id-Base() < Span().
func (g *Graph) Span() int { return len(g.slots) }

// NumNodes returns the number of present nodes.
func (g *Graph) NumNodes() int { return g.numNodes }

// NumEdges returns the number of stored (coalesced) edges.
func (g *Graph) NumEdges() int { return g.numEdges }

// TotalWeight returns the sum of all stored edge weights.
func (g *Graph) TotalWeight() float64 { return g.totalWeight }

// Stats returns a copy of the data-quality counters.
func (g *Graph) Stats() Stats { return g.stats }

// inRange reports whether id is a valid node id. Negative ids are never
// valid, whatever the base.
func (g *Graph) inRange(id int) bool {
	return id >= 0 && id >= g.base && id-g.base < g.maxNodes
}

func (g *Graph) grow(n int) {
	if n <= len(g.slots) {
		return
	}
	if n <= cap(g.slots) {
		g.slots = g.slots[:n]
		g.adjacency = g.adjacency[:n]
		g.degrees = g.degrees[:n]
		return
	}
	newCap := 2 * cap(g.slots)
	if newCap < n {
		newCap = n
	}
	if newCap > g.maxNodes {
		newCap = g.maxNodes
	}

	slots := make([]slot, n, newCap)
	copy(slots, g.slots)
	adjacency := make([][]Edge, n, newCap)
	copy(adjacency, g.adjacency)
	degrees := make([]float64, n, newCap)
	copy(degrees, g.degrees)

	g.slots, g.adjacency, g.degrees = slots, adjacency, degrees
}

// Reserve pre-sizes the id range for n nodes so ingestion of a known node
// count does not regrow the backing slices.
func (g *Graph) Reserve(n int) {
	if n > g.maxNodes {
		n = g.maxNodes
	}
	if n <= cap(g.slots) {
		return
	}
	slots := make([]slot, len(g.slots), n)
	copy(slots, g.slots)
	adjacency := make([][]Edge, len(g.adjacency), n)
	copy(adjacency, g.adjacency)
	degrees := make([]float64, len(g.degrees), n)
	copy(degrees, g.degrees)
	g.slots, g.adjacency, g.degrees = slots, adjacency, degrees
}

// ValidID reports whether AddNode would accept id.
func (g *Graph) ValidID(id int) bool { return g.inRange(id) }

// HasNode reports whether id has been added.
func (g *Graph) HasNode(id int) bool {
	i := id - g.base
	return id >= 0 && id >= g.base && i < len(g.slots) && g.slots[i].present
}

// AddNode adds id with an optional location. Re-adding an existing id is a
// no-op and keeps the original payload.
func (g *Graph) AddNode(id int, loc *Location) error {
	if !g.inRange(id) {
		return fmt.Errorf("%w: %d outside [%d, %d)", ErrInvalidID, id, g.base, g.base+g.maxNodes)
	}
	i := id - g.base
	g.grow(i + 1)
	s := &g.slots[i]
	if s.present {
		return nil
	}
	s.present = true
	if loc != nil {
		s.hasLocation = true
		s.location = *loc
	}
	g.numNodes++
	return nil
}

// Location returns the payload of id, if any.
func (g *Graph) Location(id int) (Location, bool) {
	if !g.HasNode(id) {
		return Location{}, false
	}
	s := g.slots[id-g.base]
	return s.location, s.hasLocation
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

// AddEdge stores u->v. It returns false, and counts a rejected edge, when
// either endpoint is unknown; unknown endpoints are never created. An existing
// u->v accumulates weight and still reports true.
func (g *Graph) AddEdge(u, v int, weight float64) bool {
	if !g.HasNode(u) || !g.HasNode(v) {
		g.stats.RejectedEdges++
		return false
	}
	if !validWeight(weight) {
		g.stats.InvalidWeights++
		return false
	}

	i := u - g.base
	adj := g.adjacency[i]
	for k := range adj {
		if adj[k].To == v {
			adj[k].Weight += weight
			g.degrees[i] += weight
			g.totalWeight += weight
			g.stats.MergedEdges++
			return true
		}
	}
	g.adjacency[i] = append(adj, Edge{To: v, Weight: weight})
	g.degrees[i] += weight
	g.totalWeight += weight
	g.numEdges++
	return true
}

// AddEdgesBatch adds u->v with DefaultWeight for every v in vs, de-duplicating
// in a single pass. It returns the number of new adjacency entries, excluding
// duplicates and invalid destinations. An unknown origin rejects every
// destination.
func (g *Graph) AddEdgesBatch(u int, vs []int) int {
	edges := make([]Edge, len(vs))
	for k, v := range vs {
		edges[k] = Edge{To: v, Weight: DefaultWeight}
	}
	return g.AddWeightedEdges(u, edges)
}

// AddWeightedEdges is the weighted form of AddEdgesBatch.
func (g *Graph) AddWeightedEdges(u int, edges []Edge) int {
	if !g.HasNode(u) {
		g.stats.RejectedEdges += int64(len(edges))
		return 0
	}
	i := u - g.base
	adj := g.adjacency[i]

	// position of each destination already in adj
	pos := make(map[int]int, len(adj)+len(edges))
	for k, e := range adj {
		pos[e.To] = k
	}

	added := 0
	for _, e := range edges {
		if !g.HasNode(e.To) {
			g.stats.RejectedEdges++
			continue
		}
		if !validWeight(e.Weight) {
			g.stats.InvalidWeights++
			continue
		}
		if k, ok := pos[e.To]; ok {
			adj[k].Weight += e.Weight
			g.stats.MergedEdges++
		} else {
			pos[e.To] = len(adj)
			adj = append(adj, e)
			added++
		}
		g.degrees[i] += e.Weight
		g.totalWeight += e.Weight
	}
	g.adjacency[i] = adj
	g.numEdges += added
	return added
}

// Neighbors returns the out-edges of u. The slice is owned by the graph and
// must not be modified.
func (g *Graph) Neighbors(u int) []Edge {
	if !g.HasNode(u) {
		return nil
	}
	return g.adjacency[u-g.base]
}

// OutDegree returns the number of distinct out-neighbours of u.
func (g *Graph) OutDegree(u int) int {
	if !g.HasNode(u) {
		return 0
	}
	return len(g.adjacency[u-g.base])
}

// Degree returns the weighted out-degree of u, the degree used by modularity.
func (g *Graph) Degree(u int) float64 {
	if !g.HasNode(u) {
		return 0
	}
	return g.degrees[u-g.base]
}

// InDegree counts stored edges whose destination is u. It scans the whole
// adjacency.
func (g *Graph) InDegree(u int) int {
	if !g.HasNode(u) {
		return 0
	}
	count := 0
	for _, adj := range g.adjacency {
		for _, e := range adj {
			if e.To == u {
				count++
			}
		}
	}
	return count
}

// EdgeWeight returns the weight of u->v, or 0 if there is no such edge.
func (g *Graph) EdgeWeight(u, v int) float64 {
	for _, e := range g.Neighbors(u) {
		if e.To == v {
			return e.Weight
		}
	}
	return 0
}

// NodeIDs returns every present id in ascending order.
func (g *Graph) NodeIDs() []int {
	ids := make([]int, 0, g.numNodes)
	for i, s := range g.slots {
		if s.present {
			ids = append(ids, g.base+i)
		}
	}
	return ids
}

// ForEachNode calls fn for every present id in ascending order.
func (g *Graph) ForEachNode(fn func(id int)) {
	for i, s := range g.slots {
		if s.present {
			fn(g.base + i)
		}
	}
}

// Validate checks the structural invariants: every neighbour is a present
// node, no duplicate destinations, positive weights, and cached degree and
// total weight agree with the adjacency.
func (g *Graph) Validate() error {
	total := 0.0
	edges := 0
	for i, adj := range g.adjacency {
		if len(adj) > 0 && !g.slots[i].present {
			return fmt.Errorf("absent node %d has out-edges", g.base+i)
		}
		seen := make(map[int]struct{}, len(adj))
		deg := 0.0
		for _, e := range adj {
			if !g.HasNode(e.To) {
				return fmt.Errorf("dangling edge %d->%d", g.base+i, e.To)
			}
			if _, dup := seen[e.To]; dup {
				return fmt.Errorf("duplicate edge %d->%d", g.base+i, e.To)
			}
			if !validWeight(e.Weight) {
				return fmt.Errorf("invalid weight %f on edge %d->%d", e.Weight, g.base+i, e.To)
			}
			seen[e.To] = struct{}{}
			deg += e.Weight
		}
		if math.Abs(deg-g.degrees[i]) > 1e-9*math.Max(1, deg) {
			return fmt.Errorf("degree cache mismatch for node %d: %f != %f", g.base+i, g.degrees[i], deg)
		}
		total += deg
		edges += len(adj)
	}
	if edges != g.numEdges {
		return fmt.Errorf("edge count mismatch: %d != %d", g.numEdges, edges)
	}
	if math.Abs(total-g.totalWeight) > 1e-9*math.Max(1, total) {
		return fmt.Errorf("total weight mismatch: %f != %f", g.totalWeight, total)
	}
	return nil
}
