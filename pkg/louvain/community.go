package louvain

import (
	"fmt"
	"math"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// levelGraph is the read-only view of one Louvain level. Nodes are addressed
// by slot (id - base). Modularity folds the directed graph into a single
// degree per node, the weighted out-degree, but edge weight between a node
// and a community counts both directions, so the reverse adjacency is built
// once per level.
type levelGraph struct {
	g     *graph.Graph
	base  int
	span  int
	in    [][]graph.Edge // in[slot] = edges into the node, To holds the origin id
	nodes []int          // present slots, ascending
	total float64        // sum of all edge weights (= sum of degrees)
}

func newLevelGraph(g *graph.Graph) *levelGraph {
	lg := &levelGraph{
		g:     g,
		base:  g.Base(),
		span:  g.Span(),
		in:    make([][]graph.Edge, g.Span()),
		nodes: make([]int, 0, g.NumNodes()),
		total: g.TotalWeight(),
	}

	indeg := make([]int, lg.span)
	g.ForEachNode(func(id int) {
		lg.nodes = append(lg.nodes, id-lg.base)
		for _, e := range g.Neighbors(id) {
			indeg[e.To-lg.base]++
		}
	})
	for s, n := range indeg {
		if n > 0 {
			lg.in[s] = make([]graph.Edge, 0, n)
		}
	}
	for _, s := range lg.nodes {
		u := lg.base + s
		for _, e := range g.Neighbors(u) {
			t := e.To - lg.base
			lg.in[t] = append(lg.in[t], graph.Edge{To: u, Weight: e.Weight})
		}
	}
	return lg
}

func (lg *levelGraph) out(s int) []graph.Edge { return lg.g.Neighbors(lg.base + s) }
func (lg *levelGraph) degree(s int) float64   { return lg.g.Degree(lg.base + s) }
func (lg *levelGraph) selfLoop(s int) float64 { return lg.g.EdgeWeight(lg.base+s, lg.base+s) }

// Community holds the partition of one level and its running sums. It is
// owned by a single Louvain pass; nothing else mutates it.
type Community struct {
	NodeToCommunity []int     // slot -> community, -1 for absent slots
	Degree          []float64 // community -> sum of member degrees (Σ_tot)
	Internal        []float64 // community -> weight of edges with both ends inside (Σ_in)
	Size            []int     // community -> member count
	NumCommunities  int       // non-empty communities
	total           float64
}

// NewCommunity initializes each node in its own community
func NewCommunity(lg *levelGraph) *Community {
	comm := &Community{
		NodeToCommunity: make([]int, lg.span),
		Degree:          make([]float64, lg.span),
		Internal:        make([]float64, lg.span),
		Size:            make([]int, lg.span),
		total:           lg.total,
	}
	for i := range comm.NodeToCommunity {
		comm.NodeToCommunity[i] = -1
	}
	for _, s := range lg.nodes {
		comm.NodeToCommunity[s] = s
		comm.Degree[s] = lg.degree(s)
		comm.Internal[s] = lg.selfLoop(s)
		comm.Size[s] = 1
	}
	comm.NumCommunities = len(lg.nodes)
	return comm
}

// Modularity computes Q = Σ_c [ Σ_in(c)/W − (Σ_tot(c)/W)² ] where W is the
// total edge weight. W plays the role of 2m: every stored edge contributes
// its weight once to the degree sum.
func (c *Community) Modularity() float64 {
	if c.total == 0 {
		return 0
	}
	q := 0.0
	for comm, size := range c.Size {
		if size == 0 {
			continue
		}
		tot := c.Degree[comm] / c.total
		q += c.Internal[comm]/c.total - tot*tot
	}
	return q
}

// gain is W·ΔQ for inserting a node of degree k, currently outside any
// community, into a community with total degree tot, given weight k_in
// between the node and the community's members in both directions.
func gain(kIn, k, tot, total float64) float64 {
	return kIn - 2*k*tot/total
}

// move commits node s from its community to target. kInOld and kInNew are the
// node's two-way edge weights to the other members of the old and new
// communities, self its self-loop weight.
func (c *Community) move(lg *levelGraph, s, target int, kInOld, kInNew, self float64) {
	old := c.NodeToCommunity[s]
	if old == target {
		return
	}
	k := lg.degree(s)

	c.Degree[old] -= k
	c.Internal[old] -= kInOld + self
	c.Size[old]--
	if c.Size[old] == 0 {
		c.NumCommunities--
		c.Degree[old] = 0
		c.Internal[old] = 0
	}

	if c.Size[target] == 0 {
		c.NumCommunities++
	}
	c.Degree[target] += k
	c.Internal[target] += kInNew + self
	c.Size[target]++
	c.NodeToCommunity[s] = target
}

// Validate recomputes the running sums from scratch and compares them with
// the incremental ones.
func (c *Community) Validate(lg *levelGraph) error {
	degree := make([]float64, len(c.Degree))
	internal := make([]float64, len(c.Internal))
	size := make([]int, len(c.Size))
	for _, s := range lg.nodes {
		comm := c.NodeToCommunity[s]
		if comm < 0 {
			return fmt.Errorf("node %d has no community", lg.base+s)
		}
		degree[comm] += lg.degree(s)
		size[comm]++
		for _, e := range lg.out(s) {
			if c.NodeToCommunity[e.To-lg.base] == comm {
				internal[comm] += e.Weight
			}
		}
	}
	for comm := range degree {
		if size[comm] != c.Size[comm] {
			return fmt.Errorf("community %d size %d, expected %d", comm, c.Size[comm], size[comm])
		}
		if !closeEnough(degree[comm], c.Degree[comm], c.total) {
			return fmt.Errorf("community %d degree %f, expected %f", comm, c.Degree[comm], degree[comm])
		}
		if !closeEnough(internal[comm], c.Internal[comm], c.total) {
			return fmt.Errorf("community %d internal weight %f, expected %f", comm, c.Internal[comm], internal[comm])
		}
	}
	return nil
}

func closeEnough(a, b, scale float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, scale)
}

// neighborhood accumulates, for one node, the two-way edge weight to every
// neighbouring community. Buffers are sized to the level and reused.
type neighborhood struct {
	weight []float64
	seen   []bool
	comms  []int
	self   float64
}

func newNeighborhood(span int) *neighborhood {
	return &neighborhood{
		weight: make([]float64, span),
		seen:   make([]bool, span),
	}
}

func (nb *neighborhood) reset() {
	for _, comm := range nb.comms {
		nb.weight[comm] = 0
		nb.seen[comm] = false
	}
	nb.comms = nb.comms[:0]
	nb.self = 0
}

func (nb *neighborhood) add(comm int, w float64) {
	if !nb.seen[comm] {
		nb.seen[comm] = true
		nb.comms = append(nb.comms, comm)
	}
	nb.weight[comm] += w
}

// collect fills nb for slot s. The node's own community is always the first
// entry so that staying is evaluated like any other candidate.
func (nb *neighborhood) collect(lg *levelGraph, c *Community, s int) {
	nb.reset()
	nb.add(c.NodeToCommunity[s], 0)
	for _, e := range lg.out(s) {
		t := e.To - lg.base
		if t == s {
			nb.self += e.Weight
			continue
		}
		nb.add(c.NodeToCommunity[t], e.Weight)
	}
	for _, e := range lg.in[s] {
		t := e.To - lg.base
		if t != s {
			nb.add(c.NodeToCommunity[t], e.Weight)
		}
	}
}

// Modularity computes the modularity of an arbitrary partition of g from
// scratch, with the same conventions as the incremental accounting.
func Modularity(g *graph.Graph, p Partition) float64 {
	total := g.TotalWeight()
	if total == 0 {
		return 0
	}
	degree := make([]float64, p.NumCommunities())
	internal := make([]float64, p.NumCommunities())
	g.ForEachNode(func(id int) {
		comm, ok := p.Of(id)
		if !ok {
			return
		}
		degree[comm] += g.Degree(id)
		for _, e := range g.Neighbors(id) {
			if other, ok := p.Of(e.To); ok && other == comm {
				internal[comm] += e.Weight
			}
		}
	})
	q := 0.0
	for comm, d := range degree {
		tot := d / total
		q += internal[comm]/total - tot*tot
	}
	return q
}
