package analysis

import (
	"container/heap"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

// DegreeStats summarises out-degrees over a sample of nodes.
type DegreeStats struct {
	SampleSize int     `json:"sample_size"`
	Mean       float64 `json:"mean"`
	Max        int     `json:"max"`
	Min        int     `json:"min"`
	P90        int     `json:"p90"`
}

// DegreeDistributionSample computes out-degree statistics over sampleSize
// nodes drawn uniformly without replacement, or over every node when the
// sample is at least the node count. P90 is the element at index
// floor(0.9·n) of the sorted sample.
func DegreeDistributionSample(g *graph.Graph, sampleSize int, opts ...SampleOption) DegreeStats {
	if g == nil {
		return DegreeStats{}
	}
	o := buildOptions(opts)
	ids := SampleNodes(g, sampleSize, rand.New(rand.NewSource(o.RandomSeed)))
	if len(ids) == 0 {
		return DegreeStats{}
	}

	degrees := make([]float64, len(ids))
	for i, id := range ids {
		degrees[i] = float64(g.OutDegree(id))
	}
	sort.Float64s(degrees)

	return DegreeStats{
		SampleSize: len(degrees),
		Mean:       stat.Mean(degrees, nil),
		Max:        int(floats.Max(degrees)),
		Min:        int(floats.Min(degrees)),
		P90:        int(degrees[int(float64(len(degrees))*0.9)]),
	}
}

// NodeDegree pairs a node with its out-degree.
type NodeDegree struct {
	ID     int `json:"id"`
	Degree int `json:"degree"`
}

// ranksBelow orders by degree descending, then by smaller id.
func ranksBelow(a, b NodeDegree) bool {
	if a.Degree != b.Degree {
		return a.Degree < b.Degree
	}
	return a.ID > b.ID
}

// degreeHeap keeps the lowest-ranked entry on top.
type degreeHeap []NodeDegree

func (h degreeHeap) Len() int           { return len(h) }
func (h degreeHeap) Less(i, j int) bool { return ranksBelow(h[i], h[j]) }
func (h degreeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *degreeHeap) Push(x any)        { *h = append(*h, x.(NodeDegree)) }
func (h *degreeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopKByDegree returns the k nodes with the highest out-degree, highest
// first, ties broken by smaller id. It scans every node once and keeps a
// heap of size k.
func TopKByDegree(g *graph.Graph, k int) []NodeDegree {
	if g == nil || k <= 0 {
		return nil
	}
	h := make(degreeHeap, 0, min(k, g.NumNodes()))
	g.ForEachNode(func(id int) {
		nd := NodeDegree{ID: id, Degree: g.OutDegree(id)}
		if h.Len() < k {
			heap.Push(&h, nd)
			return
		}
		if ranksBelow(h[0], nd) {
			h[0] = nd
			heap.Fix(&h, 0)
		}
	})

	out := make([]NodeDegree, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(NodeDegree)
	}
	return out
}

// Summary holds whole-graph size and quality figures.
type Summary struct {
	Nodes          int     `json:"nodes"`
	Edges          int     `json:"edges"`
	TotalWeight    float64 `json:"total_weight"`
	Density        float64 `json:"density"`
	MeanOutDegree  float64 `json:"mean_out_degree"`
	RejectedEdges  int64   `json:"rejected_edges"`
	InvalidWeights int64   `json:"invalid_weights"`
	MergedEdges    int64   `json:"merged_edges"`
}

// Summarize reports the size of g. Density is edges over n·(n-1), the
// directed maximum without self-loops.
func Summarize(g *graph.Graph) Summary {
	if g == nil {
		return Summary{}
	}
	n, m := g.NumNodes(), g.NumEdges()
	stats := g.Stats()
	s := Summary{
		Nodes:          n,
		Edges:          m,
		TotalWeight:    g.TotalWeight(),
		RejectedEdges:  stats.RejectedEdges,
		InvalidWeights: stats.InvalidWeights,
		MergedEdges:    stats.MergedEdges,
	}
	if n > 0 {
		s.MeanOutDegree = float64(m) / float64(n)
	}
	if n > 1 {
		s.Density = float64(m) / (float64(n) * float64(n-1))
	}
	return s
}
