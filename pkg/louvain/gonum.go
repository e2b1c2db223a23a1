package louvain

import (
	"errors"
	"fmt"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// ErrNotSymmetric is returned by GonumModularity for a graph where some
// edge has no reverse edge of equal weight. gonum scores undirected graphs
// only, so its Q would not be comparable with Modularity.
var ErrNotSymmetric = errors.New("louvain: graph is not symmetric")

// symmetric reports whether every u->v has a v->u of the same weight.
func symmetric(g *graph.Graph) bool {
	ok := true
	g.ForEachNode(func(u int) {
		if !ok {
			return
		}
		for _, e := range g.Neighbors(u) {
			if g.EdgeWeight(e.To, u) != e.Weight {
				ok = false
				return
			}
		}
	})
	return ok
}

// toGonum folds g into an undirected gonum graph with one edge per connected
// pair, weighted by the mean of the two directed weights. Self-loops are not
// representable and are reported as an error.
func toGonum(g *graph.Graph) (*simple.WeightedUndirectedGraph, error) {
	ug := simple.NewWeightedUndirectedGraph(0, 0)
	g.ForEachNode(func(id int) { ug.AddNode(simple.Node(id)) })

	var err error
	g.ForEachNode(func(u int) {
		for _, e := range g.Neighbors(u) {
			if e.To == u {
				if err == nil {
					err = fmt.Errorf("self-loop on node %d", u)
				}
				continue
			}
			back := g.EdgeWeight(e.To, u)
			if e.To < u && back > 0 {
				continue
			}
			ug.SetWeightedEdge(ug.NewWeightedEdge(simple.Node(u), simple.Node(e.To), (e.Weight+back)/2))
		}
	})
	if err != nil {
		return nil, err
	}
	return ug, nil
}

func gonumCommunities(p Partition) [][]gonum.Node {
	members := p.Members()
	out := make([][]gonum.Node, len(members))
	for c, ids := range members {
		out[c] = make([]gonum.Node, len(ids))
		for i, id := range ids {
			out[c][i] = simple.Node(id)
		}
	}
	return out
}

// GonumModularity scores p with gonum's modularity as an independent check
// of Modularity. g must be symmetric and free of self-loops.
func GonumModularity(g *graph.Graph, p Partition) (float64, error) {
	if !symmetric(g) {
		return 0, ErrNotSymmetric
	}
	ug, err := toGonum(g)
	if err != nil {
		return 0, err
	}
	if g.TotalWeight() == 0 {
		return 0, nil
	}
	return community.Q(ug, gonumCommunities(p), 1), nil
}
