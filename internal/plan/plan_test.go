package plan

import (
	"context"
	"testing"

	"github.com/0xsj/go-loom/internal/graph"
	"github.com/0xsj/go-loom/internal/manifest"
)

func nopFactory(_ context.Context, _ manifest.Deps) (any, error) {
	return struct{}{}, nil
}

func node(typ string, scope manifest.Scope, edges ...manifest.Edge) *manifest.Declaration {
	return &manifest.Declaration{
		Key:          manifest.Key{Type: typ},
		Scope:        scope,
		Dependencies: edges,
		Factory:      nopFactory,
	}
}

func edge(typ string) manifest.Edge {
	return manifest.Edge{Target: manifest.Key{Type: typ}}
}

func buildGraph(t *testing.T, decls ...*manifest.Declaration) *graph.Graph {
	t.Helper()
	if _, err := manifest.New(decls...); err != nil {
		t.Fatalf("manifest.New failed: %v", err)
	}
	g, err := graph.Build(decls)
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}
	return g
}

func orderOf(nodes []*graph.Node) []string {
	types := make([]string, len(nodes))
	for i, n := range nodes {
		types[i] = n.Key().Type
	}
	return types
}

func position(t *testing.T, order []string, typ string) int {
	t.Helper()
	for i, o := range order {
		if o == typ {
			return i
		}
	}
	t.Fatalf("%s missing from plan %v", typ, order)
	return -1
}

func TestOrder_DependenciesComeFirst(t *testing.T) {
	g := buildGraph(t,
		node("service", manifest.ScopeSingleton, edge("repo"), edge("logger")),
		node("repo", manifest.ScopeSingleton, edge("logger")),
		node("logger", manifest.ScopeSingleton),
	)

	order := orderOf(Order(g))

	if position(t, order, "logger") > position(t, order, "repo") {
		t.Errorf("logger must precede repo: %v", order)
	}
	if position(t, order, "repo") > position(t, order, "service") {
		t.Errorf("repo must precede service: %v", order)
	}
}

func TestOrder_TieBreaksByDeclarationOrder(t *testing.T) {
	g := buildGraph(t,
		node("c", manifest.ScopeSingleton),
		node("a", manifest.ScopeSingleton),
		node("b", manifest.ScopeSingleton),
	)

	order := orderOf(Order(g))
	want := []string{"c", "a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected declaration order %v, got %v", want, order)
		}
	}
}

func TestOrder_IncludesLazySingletons(t *testing.T) {
	g := buildGraph(t,
		node("lazy", manifest.ScopeLazySingleton, edge("eager")),
		node("eager", manifest.ScopeSingleton),
	)

	order := orderOf(Order(g))
	if len(order) != 2 {
		t.Fatalf("Expected lazy singleton present in plan, got %v", order)
	}
	if position(t, order, "eager") > position(t, order, "lazy") {
		t.Errorf("eager must precede lazy: %v", order)
	}
}

func TestOrder_OptionalCycleReleasesEarliestDeclared(t *testing.T) {
	g := buildGraph(t,
		node("a", manifest.ScopeSingleton, manifest.Edge{Target: manifest.Key{Type: "b"}, Optional: true}),
		node("b", manifest.ScopeSingleton, edge("a")),
	)

	order := orderOf(Order(g))
	want := []string{"a", "b"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, order)
		}
	}
}

func TestOrder_EveryNodeAfterItsRequiredDependencies(t *testing.T) {
	g := buildGraph(t,
		node("e", manifest.ScopeSingleton, edge("d"), edge("a")),
		node("d", manifest.ScopeSingleton, edge("c"), edge("b")),
		node("c", manifest.ScopeSingleton, edge("a")),
		node("b", manifest.ScopeSingleton, edge("a")),
		node("a", manifest.ScopeSingleton),
	)

	ordered := Order(g)
	pos := make(map[string]int, len(ordered))
	for i, n := range ordered {
		pos[n.Key().Type] = i
	}

	for _, n := range ordered {
		for _, b := range n.Bindings {
			for _, p := range b.Providers {
				if pos[p.Key().Type] >= pos[n.Key().Type] {
					t.Errorf("%s must precede %s in %v", p.Key(), n.Key(), orderOf(ordered))
				}
			}
		}
	}
}
