package container

import (
	"context"
	"fmt"

	"github.com/0xsj/go-loom/internal/graph"
	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
	"github.com/0xsj/go-loom/internal/scope"
)

// resolution tracks the keys under construction on one resolve chain.
// Optional and collection edges may legally close a cycle; when such an edge
// points back at a key earlier on the chain, its provider resolves as absent
// instead of re-entering the entry that is still constructing.
type resolution struct {
	building map[manifest.Key]bool
}

func newResolution() *resolution {
	return &resolution{building: make(map[manifest.Key]bool)}
}

// resolveNode dispatches resolution to the node's scope. Recursive over the
// node's bindings; the graph is acyclic on required edges and optional
// back-edges short-circuit through res, so recursion terminates.
func (c *Container) resolveNode(ctx context.Context, n *graph.Node, res *resolution) (any, error) {
	d := n.Decl

	switch d.Scope {
	case manifest.ScopeSingleton, manifest.ScopeLazySingleton:
		return c.store.Singleton(d.Key, c.buildFunc(ctx, n, res), c.destroyFunc(d))

	case manifest.ScopeRequest, manifest.ScopeSession:
		tok, _ := scope.TokenFrom(ctx, d.Scope)
		return c.store.Bounded(tok, d.Key, d.Scope, c.buildFunc(ctx, n, res), c.destroyFunc(d))

	case manifest.ScopePrototype:
		// Never cached; ownership transfers to the caller, including the
		// pre-destroy obligation.
		return c.buildNode(ctx, n, res)

	default:
		return nil, fmt.Errorf("component %s has unsupported scope %s", d.Key, d.Scope)
	}
}

func (c *Container) buildFunc(ctx context.Context, n *graph.Node, res *resolution) scope.BuildFunc {
	return func() (any, error) {
		return c.buildNode(ctx, n, res)
	}
}

func (c *Container) destroyFunc(d *manifest.Declaration) scope.DestroyFunc {
	if d.PreDestroy == nil {
		return nil
	}
	return func(ctx context.Context, instance any) error {
		return d.PreDestroy(ctx, instance)
	}
}

// buildNode resolves the node's dependencies, invokes its factory, then
// runs post-construct. By this point every required dependency is ready, so
// the post-construct ordering invariant holds for eager and lazy paths
// alike.
func (c *Container) buildNode(ctx context.Context, n *graph.Node, res *resolution) (any, error) {
	d := n.Decl

	res.building[d.Key] = true
	defer delete(res.building, d.Key)

	deps, err := c.resolveBindings(ctx, n, res)
	if err != nil {
		return nil, fmt.Errorf("resolving dependencies of %s: %w", d.Key, err)
	}

	instance, err := d.Factory(ctx, deps)
	if err != nil {
		return nil, err
	}

	if d.PostConstruct != nil {
		if err := d.PostConstruct(ctx, instance); err != nil {
			return nil, fmt.Errorf("post-construct: %w", err)
		}
	}

	if d.Scope == manifest.ScopeSingleton || d.Scope == manifest.ScopeLazySingleton {
		c.recordConstructed(d, instance)
	}

	c.log.Debug("Component constructed",
		logger.String("component", d.Key.String()),
		logger.String("scope", d.Scope.String()),
	)
	return instance, nil
}

func (c *Container) resolveBindings(ctx context.Context, n *graph.Node, res *resolution) (manifest.Deps, error) {
	deps := &depsView{
		one: make(map[manifest.Key]any),
		all: make(map[manifest.Key][]any),
	}

	for _, b := range n.Bindings {
		instances := make([]any, 0, len(b.Providers))
		for _, p := range b.Providers {
			if res.building[p.Key()] || (!b.Required() && requiredReaches(p, res.building)) {
				// Back-edge into this chain, directly or through the
				// provider's own required closure. The required subgraph is
				// acyclic, so only edges that tolerate absence prune here;
				// the provider is reported absent.
				if b.Required() {
					return nil, fmt.Errorf("%s is still constructing while %s requires it", p.Key(), n.Key())
				}
				continue
			}
			instance, err := c.resolveNode(ctx, p, res)
			if err != nil {
				return nil, err
			}
			instances = append(instances, instance)
		}

		switch {
		case b.Edge.Collection:
			deps.all[b.Edge.Target] = instances
		case len(instances) == 1:
			deps.one[b.Edge.Target] = instances[0]
		default:
			// Absent optional edge: Maybe reports false.
		}
	}

	return deps, nil
}

// requiredReaches reports whether any key in building is reachable from n
// along required edges. Constructing such a provider would loop back into an
// entry this chain already holds, so its binding treats it as absent.
func requiredReaches(n *graph.Node, building map[manifest.Key]bool) bool {
	seen := make(map[*graph.Node]bool)

	var walk func(*graph.Node) bool
	walk = func(cur *graph.Node) bool {
		if building[cur.Key()] {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true

		for _, b := range cur.Bindings {
			if !b.Required() {
				continue
			}
			for _, p := range b.Providers {
				if walk(p) {
					return true
				}
			}
		}
		return false
	}

	return walk(n)
}

// depsView is the resolved-dependency view handed to factories.
type depsView struct {
	one map[manifest.Key]any
	all map[manifest.Key][]any
}

func (d *depsView) One(key manifest.Key) any {
	return d.one[key]
}

func (d *depsView) Maybe(key manifest.Key) (any, bool) {
	v, ok := d.one[key]
	return v, ok
}

func (d *depsView) All(key manifest.Key) []any {
	return d.all[key]
}
