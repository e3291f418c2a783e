package graph

// Description is a serializable snapshot of a resolved graph: every node
// with its scope and resolved edges. Built for diagnostic surfaces; it holds
// no references back into the live graph.
type Description struct {
	Nodes []NodeDescription `json:"nodes"`
}

// NodeDescription is one component in a Description.
type NodeDescription struct {
	Key   string            `json:"key"`
	Scope string            `json:"scope"`
	Edges []EdgeDescription `json:"edges,omitempty"`
}

// EdgeDescription is one resolved dependency edge. Providers lists the keys
// the edge resolved to; an absent optional edge has none.
type EdgeDescription struct {
	Target     string   `json:"target"`
	Optional   bool     `json:"optional,omitempty"`
	Collection bool     `json:"collection,omitempty"`
	Providers  []string `json:"providers"`
}

// Describe flattens the nodes into a Description, preserving their order.
func Describe(nodes []*Node) Description {
	desc := Description{Nodes: make([]NodeDescription, 0, len(nodes))}

	for _, n := range nodes {
		nd := NodeDescription{
			Key:   n.Key().String(),
			Scope: n.Decl.Scope.String(),
		}
		for _, b := range n.Bindings {
			providers := make([]string, 0, len(b.Providers))
			for _, p := range b.Providers {
				providers = append(providers, p.Key().String())
			}
			nd.Edges = append(nd.Edges, EdgeDescription{
				Target:     b.Edge.Target.String(),
				Optional:   b.Edge.Optional,
				Collection: b.Edge.Collection,
				Providers:  providers,
			})
		}
		desc.Nodes = append(desc.Nodes, nd)
	}

	return desc
}
