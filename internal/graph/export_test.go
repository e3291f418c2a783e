package graph

import (
	"testing"

	"github.com/0xsj/go-loom/internal/manifest"
)

func TestDescribe(t *testing.T) {
	decls := declare(t,
		node("logger"),
		node("service",
			edge("logger"),
			manifest.Edge{Target: manifest.Key{Type: "cache"}, Optional: true},
		),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	desc := Describe(g.Nodes)

	if len(desc.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(desc.Nodes))
	}

	loggerDesc := desc.Nodes[0]
	if loggerDesc.Key != "logger" || loggerDesc.Scope != "singleton" {
		t.Errorf("Unexpected logger description: %+v", loggerDesc)
	}
	if len(loggerDesc.Edges) != 0 {
		t.Errorf("Expected no edges on logger, got %v", loggerDesc.Edges)
	}

	serviceDesc := desc.Nodes[1]
	if len(serviceDesc.Edges) != 2 {
		t.Fatalf("Expected 2 edges on service, got %v", serviceDesc.Edges)
	}

	required := serviceDesc.Edges[0]
	if required.Target != "logger" || required.Optional {
		t.Errorf("Unexpected required edge: %+v", required)
	}
	if len(required.Providers) != 1 || required.Providers[0] != "logger" {
		t.Errorf("Expected logger provider, got %v", required.Providers)
	}

	optional := serviceDesc.Edges[1]
	if optional.Target != "cache" || !optional.Optional {
		t.Errorf("Unexpected optional edge: %+v", optional)
	}
	if len(optional.Providers) != 0 {
		t.Errorf("Expected no providers for absent optional edge, got %v", optional.Providers)
	}
}

func TestDescribe_NamedKeysAndCollections(t *testing.T) {
	decls := declare(t,
		&manifest.Declaration{Key: manifest.Key{Type: "handler", Name: "a"}, Scope: manifest.ScopePrototype, Factory: nopFactory},
		&manifest.Declaration{Key: manifest.Key{Type: "handler", Name: "b"}, Scope: manifest.ScopeSingleton, Factory: nopFactory},
		node("mux", manifest.Edge{Target: manifest.Key{Type: "handler"}, Collection: true}),
	)

	g, err := Build(decls)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	desc := Describe(g.Nodes)

	if desc.Nodes[0].Key != "handler[a]" || desc.Nodes[0].Scope != "prototype" {
		t.Errorf("Unexpected first node: %+v", desc.Nodes[0])
	}

	muxDesc := desc.Nodes[2]
	collection := muxDesc.Edges[0]
	if !collection.Collection {
		t.Errorf("Expected collection edge, got %+v", collection)
	}
	if len(collection.Providers) != 2 {
		t.Errorf("Expected 2 providers, got %v", collection.Providers)
	}
}
