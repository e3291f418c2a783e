// Package plan orders a resolved graph into a deterministic construction
// sequence.
package plan

import (
	"github.com/0xsj/go-loom/internal/graph"
)

// Order produces a topological construction order by repeated removal of
// zero-in-degree nodes, tie-broken by manifest declaration order. Lazy
// singletons are included for validation but are not eagerly constructed by
// the container.
//
// Optional and collection edges count toward ordering. They may legally form
// cycles; when only such nodes remain, the one declared earliest is released
// first.
func Order(g *graph.Graph) []*graph.Node {
	indeg := make(map[*graph.Node]int, len(g.Nodes))
	dependents := make(map[*graph.Node][]*graph.Node, len(g.Nodes))

	for _, n := range g.Nodes {
		for _, b := range n.Bindings {
			for _, p := range b.Providers {
				indeg[n]++
				dependents[p] = append(dependents[p], n)
			}
		}
	}

	placed := make(map[*graph.Node]bool, len(g.Nodes))
	order := make([]*graph.Node, 0, len(g.Nodes))

	for len(order) < len(g.Nodes) {
		next := pick(g.Nodes, placed, indeg, true)
		if next == nil {
			// Remaining nodes sit on optional or collection cycles; the
			// required subgraph was already verified acyclic.
			next = pick(g.Nodes, placed, indeg, false)
		}

		placed[next] = true
		order = append(order, next)

		for _, d := range dependents[next] {
			indeg[d]--
		}
	}

	return order
}

// pick returns the unplaced node with the lowest declaration order, limited
// to zero-in-degree nodes when zeroOnly is set.
func pick(nodes []*graph.Node, placed map[*graph.Node]bool, indeg map[*graph.Node]int, zeroOnly bool) *graph.Node {
	for _, n := range nodes {
		if placed[n] {
			continue
		}
		if zeroOnly && indeg[n] > 0 {
			continue
		}
		return n
	}
	return nil
}
