// internal/container/container.go
package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xsj/go-loom/internal/event"
	"github.com/0xsj/go-loom/internal/graph"
	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
	"github.com/0xsj/go-loom/internal/scheduler"
	"github.com/0xsj/go-loom/internal/scope"
)

// Container drives a manifest through condition filtering, graph build,
// planning, instantiation, and the phased lifecycle. It owns the scope
// store and is the only entry point for obtaining component instances.
type Container struct {
	log             logger.Logger
	bus             *event.Bus
	store           *scope.Store
	manifest        *manifest.Manifest
	profiles        []string
	properties      map[string]string
	manageScheduler bool
	sched           *scheduler.Scheduler

	mu    sync.RWMutex
	phase Phase
	fatal error
	nodes map[manifest.Key]*graph.Node
	order []*graph.Node

	// constructed records singleton and lazy-singleton instances in
	// completion order; on-stop hooks are drawn from it.
	cmu         sync.Mutex
	constructed []constructedComponent
}

type constructedComponent struct {
	decl     *manifest.Declaration
	instance any
}

// New prepares a container for the given manifest. Nothing is evaluated or
// constructed until Start.
func New(m *manifest.Manifest, opts ...Option) *Container {
	c := &Container{
		log:        logger.Discard(),
		manifest:   m,
		properties: make(map[string]string),
		phase:      PhaseNew,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.bus = event.NewBus(c.log)
	c.store = scope.NewStore(c.log)
	return c
}

// Events returns the lifecycle event bus. Subscriptions made before Start
// observe every phase transition.
func (c *Container) Events() *event.Bus {
	return c.bus
}

// Phase returns the current lifecycle phase.
func (c *Container) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Healthy reports whether the container is running with no fatal error
// recorded. Exposed for framework bridges.
func (c *Container) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase == PhaseRunning && c.fatal == nil
}

// Keys enumerates the registered component keys in declaration order.
// Components excluded by conditions do not appear. Empty before Start.
func (c *Container) Keys() []manifest.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]manifest.Key, 0, len(c.order))
	for _, n := range c.order {
		keys = append(keys, n.Key())
	}
	return keys
}

// Graph returns a serializable description of the resolved dependency
// graph in construction-plan order. Empty before Start.
func (c *Container) Graph() graph.Description {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return graph.Describe(c.order)
}

// Get resolves a component instance under the rules of its declared scope.
// Request and session components read their boundary token from ctx (see
// OpenBoundary and scope.WithToken).
func (c *Container) Get(ctx context.Context, key manifest.Key) (any, error) {
	c.mu.RLock()
	phase := c.phase
	n, ok := c.nodes[key]
	c.mu.RUnlock()

	// Startup resolution bypasses Get, so anything short of Running is
	// either too early (nodes not yet published) or too late (the store is
	// being torn down).
	switch phase {
	case PhaseRunning:
	case PhaseClosed:
		return nil, fmt.Errorf("%w: cannot resolve %s", ErrClosed, key)
	case PhaseStop, PhasePreDestroy:
		return nil, fmt.Errorf("%w: cannot resolve %s", ErrNotRunning, key)
	default:
		return nil, fmt.Errorf("%w: cannot resolve %s", ErrNotStarted, key)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, key)
	}

	return c.resolveNode(ctx, n, newResolution())
}

// GetAs resolves a component and asserts its concrete type.
func GetAs[T any](ctx context.Context, c *Container, key manifest.Key) (T, error) {
	var zero T

	instance, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("component %s is %T, not the requested type", key, instance)
	}
	return typed, nil
}

// OpenBoundary starts a unit of work for a request or session scope. The
// returned token is attached to a context with scope.WithToken and ended
// with ClearBoundary.
func (c *Container) OpenBoundary(kind manifest.Scope) (scope.Token, error) {
	c.mu.RLock()
	phase := c.phase
	c.mu.RUnlock()

	if phase == PhaseClosed {
		return scope.Token{}, ErrClosed
	}
	return c.store.OpenBoundary(kind)
}

// ClearBoundary ends a unit of work, destroying exactly the entries created
// under the token.
func (c *Container) ClearBoundary(ctx context.Context, tok scope.Token) error {
	return c.store.ClearBoundary(ctx, tok)
}

func (c *Container) recordConstructed(d *manifest.Declaration, instance any) {
	c.cmu.Lock()
	c.constructed = append(c.constructed, constructedComponent{decl: d, instance: instance})
	c.cmu.Unlock()
}

func (c *Container) snapshotConstructed() []constructedComponent {
	c.cmu.Lock()
	defer c.cmu.Unlock()

	out := make([]constructedComponent, len(c.constructed))
	copy(out, c.constructed)
	return out
}
