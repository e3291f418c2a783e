// Package graph turns a filtered set of declarations into a resolved
// dependency graph and rejects cycles on the required subgraph.
package graph

import (
	"github.com/0xsj/go-loom/internal/manifest"
)

// Binding is a declaration edge resolved to its concrete providers. An
// absent optional edge has an empty provider list.
type Binding struct {
	Edge      manifest.Edge
	Providers []*Node
}

// Required reports whether the binding participates in cycle detection.
// Optional and collection edges are excluded there but still count for
// ordering.
func (b Binding) Required() bool {
	return !b.Edge.Optional && !b.Edge.Collection
}

// Node wraps a declaration with its resolved bindings and degree counts.
// Nodes exist only between graph build and planning.
type Node struct {
	Decl     *manifest.Declaration
	Bindings []Binding

	// InDegree counts this node's resolved providers; OutDegree counts the
	// nodes depending on it. Both include optional and collection edges.
	InDegree  int
	OutDegree int
}

func (n *Node) Key() manifest.Key {
	return n.Decl.Key
}

// Graph holds the resolved nodes in declaration order.
type Graph struct {
	Nodes []*Node
	byKey map[manifest.Key]*Node
}

// Lookup returns the node for an exact key.
func (g *Graph) Lookup(key manifest.Key) (*Node, bool) {
	n, ok := g.byKey[key]
	return n, ok
}

// Build resolves every edge of the given declarations and verifies the
// required subgraph is acyclic. Declarations excluded by conditions must be
// filtered out before this step; an edge pointing at an excluded component
// resolves like any other missing provider.
func Build(decls []*manifest.Declaration) (*Graph, error) {
	g := &Graph{
		Nodes: make([]*Node, 0, len(decls)),
		byKey: make(map[manifest.Key]*Node, len(decls)),
	}
	byType := make(map[string][]*Node)

	for _, d := range decls {
		n := &Node{Decl: d}
		g.Nodes = append(g.Nodes, n)
		g.byKey[d.Key] = n
		byType[d.Key.Type] = append(byType[d.Key.Type], n)
	}

	for _, n := range g.Nodes {
		for _, edge := range n.Decl.Dependencies {
			providers, err := resolveEdge(n, edge, g.byKey, byType)
			if err != nil {
				return nil, err
			}
			n.Bindings = append(n.Bindings, Binding{Edge: edge, Providers: providers})
			n.InDegree += len(providers)
			for _, p := range providers {
				p.OutDegree++
			}
		}
	}

	if err := g.checkCycles(); err != nil {
		return nil, err
	}

	return g, nil
}

func resolveEdge(dependent *Node, edge manifest.Edge, byKey map[manifest.Key]*Node, byType map[string][]*Node) ([]*Node, error) {
	if edge.Collection {
		candidates := byType[edge.Target.Type]
		if edge.Target.Name == "" {
			return candidates, nil
		}
		for _, c := range candidates {
			if c.Key().Name == edge.Target.Name {
				return []*Node{c}, nil
			}
		}
		return nil, nil
	}

	if edge.Target.Name != "" {
		if p, ok := byKey[edge.Target]; ok {
			return []*Node{p}, nil
		}
		if edge.Optional {
			return nil, nil
		}
		return nil, &UnresolvedError{Dependent: dependent.Key(), Target: edge.Target}
	}

	candidates := byType[edge.Target.Type]
	switch len(candidates) {
	case 0:
		if edge.Optional {
			return nil, nil
		}
		return nil, &UnresolvedError{Dependent: dependent.Key(), Target: edge.Target}
	case 1:
		return []*Node{candidates[0]}, nil
	default:
		keys := make([]manifest.Key, len(candidates))
		for i, c := range candidates {
			keys[i] = c.Key()
		}
		return nil, &AmbiguousError{Dependent: dependent.Key(), Target: edge.Target, Candidates: keys}
	}
}

// Three-color depth-first traversal over required bindings. A back-edge to
// an in-progress node is a cycle; the error carries the full chain.
type color int

const (
	unvisited color = iota
	inProgress
	done
)

func (g *Graph) checkCycles() error {
	colors := make(map[*Node]color, len(g.Nodes))
	var stack []*Node

	var visit func(n *Node) error
	visit = func(n *Node) error {
		colors[n] = inProgress
		stack = append(stack, n)

		for _, b := range n.Bindings {
			if !b.Required() {
				continue
			}
			for _, p := range b.Providers {
				switch colors[p] {
				case inProgress:
					return cycleFrom(stack, p)
				case unvisited:
					if err := visit(p); err != nil {
						return err
					}
				}
			}
		}

		colors[n] = done
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, n := range g.Nodes {
		if colors[n] == unvisited {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}

func cycleFrom(stack []*Node, target *Node) error {
	start := 0
	for i, n := range stack {
		if n == target {
			start = i
			break
		}
	}

	path := make([]manifest.Key, 0, len(stack)-start+1)
	for _, n := range stack[start:] {
		path = append(path, n.Key())
	}
	path = append(path, target.Key())

	return &CycleError{Path: path}
}
