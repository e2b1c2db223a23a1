package graph

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGraphInvariants verifies the store invariants for arbitrary edge
// streams, including endpoints that were never added.
func TestGraphInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	const nodes = 20
	build := func(us, vs []int) *Graph {
		g := New(0, nodes)
		for id := 0; id < nodes; id += 2 {
			_ = g.AddNode(id, nil)
		}
		for i := range us {
			if i < len(vs) {
				g.AddEdge(us[i], vs[i], DefaultWeight)
			}
		}
		return g
	}
	endpoints := gen.SliceOf(gen.IntRange(-2, nodes+2))

	properties.Property("no dangling or duplicate edges", prop.ForAll(
		func(us, vs []int) bool {
			return build(us, vs).Validate() == nil
		},
		endpoints, endpoints,
	))

	properties.Property("every edge is either stored or counted", prop.ForAll(
		func(us, vs []int) bool {
			g := build(us, vs)
			attempts := min(len(us), len(vs))
			s := g.Stats()
			stored := int64(g.TotalWeight())
			return stored+s.RejectedEdges == int64(attempts) &&
				int64(g.NumEdges())+s.MergedEdges == stored
		},
		endpoints, endpoints,
	))

	properties.Property("edges never create nodes", prop.ForAll(
		func(us, vs []int) bool {
			return build(us, vs).NumNodes() == nodes/2
		},
		endpoints, endpoints,
	))

	properties.Property("batch insert equals repeated insert", prop.ForAll(
		func(u int, vs []int) bool {
			batch := New(0, nodes)
			single := New(0, nodes)
			for id := 0; id < nodes; id++ {
				_ = batch.AddNode(id, nil)
				_ = single.AddNode(id, nil)
			}
			batch.AddEdgesBatch(u, vs)
			for _, v := range vs {
				single.AddEdge(u, v, DefaultWeight)
			}
			if batch.Stats() != single.Stats() || batch.NumEdges() != single.NumEdges() {
				return false
			}
			for _, e := range single.Neighbors(u) {
				if batch.EdgeWeight(u, e.To) != e.Weight {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, nodes-1), endpoints,
	))

	properties.TestingRun(t)
}
