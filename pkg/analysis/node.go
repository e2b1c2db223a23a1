package analysis

import "github.com/gilchrisn/graph-insight/pkg/graph"

// NodeInfo describes one node: its location, if any, and its connections.
type NodeInfo struct {
	ID        int             `json:"id"`
	Location  *graph.Location `json:"location,omitempty"`
	Neighbors []int           `json:"neighbors"`
	OutDegree int             `json:"out_degree"`
	InDegree  int             `json:"in_degree"`
}

// DescribeNode looks up id. Neighbours are listed in insertion order. The
// in-degree costs a scan of every adjacency list.
func DescribeNode(g *graph.Graph, id int) (NodeInfo, error) {
	if g == nil {
		return NodeInfo{}, ErrGraphNil
	}
	if !g.HasNode(id) {
		return NodeInfo{}, ErrUnknownNode
	}

	edges := g.Neighbors(id)
	info := NodeInfo{
		ID:        id,
		Neighbors: make([]int, len(edges)),
		OutDegree: g.OutDegree(id),
		InDegree:  g.InDegree(id),
	}
	for i, e := range edges {
		info.Neighbors[i] = e.To
	}
	if loc, ok := g.Location(id); ok {
		info.Location = &loc
	}
	return info, nil
}
