package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/0xsj/go-loom/internal/manifest"
)

func nopFactory(_ context.Context, _ manifest.Deps) (any, error) {
	return struct{}{}, nil
}

func declare(t *testing.T, decls ...*manifest.Declaration) []*manifest.Declaration {
	t.Helper()
	if _, err := manifest.New(decls...); err != nil {
		t.Fatalf("manifest.New failed: %v", err)
	}
	return decls
}

func node(typ string, edges ...manifest.Edge) *manifest.Declaration {
	return &manifest.Declaration{
		Key:          manifest.Key{Type: typ},
		Scope:        manifest.ScopeSingleton,
		Dependencies: edges,
		Factory:      nopFactory,
	}
}

func edge(typ string) manifest.Edge {
	return manifest.Edge{Target: manifest.Key{Type: typ}}
}

func TestBuild_ResolvesEdges(t *testing.T) {
	decls := declare(t,
		node("logger"),
		node("repo", edge("logger")),
		node("service", edge("repo"), edge("logger")),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	service, ok := g.Lookup(manifest.Key{Type: "service"})
	if !ok {
		t.Fatal("Expected service node")
	}
	if service.InDegree != 2 {
		t.Errorf("Expected service in-degree 2, got %d", service.InDegree)
	}

	loggerNode, _ := g.Lookup(manifest.Key{Type: "logger"})
	if loggerNode.OutDegree != 2 {
		t.Errorf("Expected logger out-degree 2, got %d", loggerNode.OutDegree)
	}
}

func TestBuild_UnresolvedRequiredEdge(t *testing.T) {
	decls := declare(t, node("service", edge("missing")))

	_, err := Build(decls)

	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Expected UnresolvedError, got %v", err)
	}
	if unresolved.Dependent.Type != "service" || unresolved.Target.Type != "missing" {
		t.Errorf("Unexpected error detail: %+v", unresolved)
	}
}

func TestBuild_OptionalEdgeToleratesAbsence(t *testing.T) {
	decls := declare(t,
		node("service", manifest.Edge{Target: manifest.Key{Type: "missing"}, Optional: true}),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	service, _ := g.Lookup(manifest.Key{Type: "service"})
	if len(service.Bindings[0].Providers) != 0 {
		t.Error("Expected empty provider list for absent optional edge")
	}
}

func TestBuild_AmbiguousWithoutName(t *testing.T) {
	decls := declare(t,
		&manifest.Declaration{Key: manifest.Key{Type: "db", Name: "primary"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		&manifest.Declaration{Key: manifest.Key{Type: "db", Name: "replica"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		node("service", edge("db")),
	)

	_, err := Build(decls)

	var ambiguous *AmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("Expected AmbiguousError, got %v", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Errorf("Expected 2 candidates, got %v", ambiguous.Candidates)
	}
}

func TestBuild_NameDisambiguates(t *testing.T) {
	decls := declare(t,
		&manifest.Declaration{Key: manifest.Key{Type: "db", Name: "primary"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		&manifest.Declaration{Key: manifest.Key{Type: "db", Name: "replica"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		node("service", manifest.Edge{Target: manifest.Key{Type: "db", Name: "replica"}}),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	service, _ := g.Lookup(manifest.Key{Type: "service"})
	if got := service.Bindings[0].Providers[0].Key().Name; got != "replica" {
		t.Errorf("Expected replica provider, got %s", got)
	}
}

func TestBuild_CollectionEdgeGathersAllProviders(t *testing.T) {
	decls := declare(t,
		&manifest.Declaration{Key: manifest.Key{Type: "handler", Name: "a"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		&manifest.Declaration{Key: manifest.Key{Type: "handler", Name: "b"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		node("mux", manifest.Edge{Target: manifest.Key{Type: "handler"}, Collection: true}),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	mux, _ := g.Lookup(manifest.Key{Type: "mux"})
	if len(mux.Bindings[0].Providers) != 2 {
		t.Errorf("Expected 2 providers, got %d", len(mux.Bindings[0].Providers))
	}
}

func TestBuild_EmptyCollectionIsNotAnError(t *testing.T) {
	decls := declare(t,
		node("mux", manifest.Edge{Target: manifest.Key{Type: "handler"}, Collection: true}),
	)

	if _, err := Build(decls); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
}

func TestBuild_RequiredCycleReported(t *testing.T) {
	decls := declare(t,
		node("a", edge("b")),
		node("b", edge("a")),
	)

	_, err := Build(decls)

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected CycleError, got %v", err)
	}

	seen := map[string]bool{}
	for _, k := range cycle.Path {
		seen[k.Type] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Expected cycle path to identify both a and b, got %v", cycle.Path)
	}
	if cycle.Path[0] != cycle.Path[len(cycle.Path)-1] {
		t.Errorf("Expected closed cycle path, got %v", cycle.Path)
	}
}

func TestBuild_LongerCyclePath(t *testing.T) {
	decls := declare(t,
		node("a", edge("b")),
		node("b", edge("c")),
		node("c", edge("a")),
	)

	_, err := Build(decls)

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected CycleError, got %v", err)
	}
	if len(cycle.Path) != 4 {
		t.Errorf("Expected path of 4 entries, got %v", cycle.Path)
	}
}

func TestBuild_OptionalCycleAllowed(t *testing.T) {
	decls := declare(t,
		node("a", manifest.Edge{Target: manifest.Key{Type: "b"}, Optional: true}),
		node("b", edge("a")),
	)

	if _, err := Build(decls); err != nil {
		t.Fatalf("Expected optional back-edge to be excluded from cycle check, got %v", err)
	}
}

func TestBuild_CollectionCycleAllowed(t *testing.T) {
	decls := declare(t,
		node("a", manifest.Edge{Target: manifest.Key{Type: "b"}, Collection: true}),
		node("b", edge("a")),
	)

	if _, err := Build(decls); err != nil {
		t.Fatalf("Expected collection back-edge to be excluded from cycle check, got %v", err)
	}
}
