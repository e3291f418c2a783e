// internal/container/lifecycle.go
package container

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/0xsj/go-loom/internal/condition"
	"github.com/0xsj/go-loom/internal/graph"
	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
	"github.com/0xsj/go-loom/internal/plan"
	"github.com/0xsj/go-loom/internal/scheduler"
)

// Start runs the full startup sequence: condition filtering, graph build,
// planning, eager singleton construction with interleaved post-construct,
// then on-start hooks in ascending order. Any failure triggers best-effort
// pre-destroy of already-constructed singletons and leaves the container
// closed with the original error surfaced.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseNew:
	case PhaseClosed:
		c.mu.Unlock()
		return ErrClosed
	default:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.phase = PhaseBuild
	c.mu.Unlock()
	c.bus.Publish(PhaseChanged{From: PhaseNew, To: PhaseBuild})

	if err := c.startup(ctx); err != nil {
		c.failStartup(ctx, err)
		return err
	}

	c.transition(PhaseRunning)
	c.bus.Publish(Started{Components: len(c.order)})
	c.log.Info("Container started",
		logger.Int("components", len(c.order)),
		logger.Int("constructed", len(c.snapshotConstructed())),
	)
	return nil
}

func (c *Container) startup(ctx context.Context) error {
	evaluator := condition.NewEvaluator(c.manifest, c.profiles, c.properties, c.log)
	included, err := evaluator.Evaluate()
	if err != nil {
		return &ConfigurationError{Err: err}
	}

	g, err := graph.Build(included)
	if err != nil {
		return &ConfigurationError{Err: err}
	}

	order := plan.Order(g)

	nodes := make(map[manifest.Key]*graph.Node, len(order))
	for _, n := range order {
		nodes[n.Key()] = n
	}

	c.mu.Lock()
	c.nodes = nodes
	c.order = order
	c.mu.Unlock()

	c.log.Debug("Construction plan resolved",
		logger.Int("declared", c.manifest.Len()),
		logger.Int("included", len(order)),
	)

	// BUILD: eager singletons in plan order. Lazy singletons hold their
	// position in the plan for validation only.
	for _, n := range order {
		if n.Decl.Scope != manifest.ScopeSingleton {
			continue
		}
		if _, err := c.resolveNode(ctx, n, newResolution()); err != nil {
			return fmt.Errorf("constructing %s: %w", n.Key(), err)
		}
	}

	c.transition(PhasePostConstruct)
	c.transition(PhaseStart)

	if c.manageScheduler {
		c.sched = scheduler.Get()
	}

	if err := c.runStartHooks(ctx); err != nil {
		return err
	}

	return nil
}

func (c *Container) failStartup(ctx context.Context, cause error) {
	c.log.Error("Container startup failed", logger.Err(cause))

	if err := c.store.Close(ctx); err != nil {
		c.log.Warn("Startup rollback reported errors", logger.Err(err))
	}

	if c.manageScheduler && c.sched != nil {
		c.sched.Shutdown()
	}

	c.mu.Lock()
	from := c.phase
	c.phase = PhaseClosed
	c.fatal = cause
	c.mu.Unlock()

	c.bus.Publish(PhaseChanged{From: from, To: PhaseClosed})
	c.bus.Publish(Closed{Err: cause})
}

// Stop runs on-stop hooks in descending order, then pre-destroy on every
// live singleton in reverse construction order. Hook and destroy errors are
// collected and reported together; none of them halts the remaining
// teardown.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseRunning:
	case PhaseClosed:
		c.mu.Unlock()
		return ErrClosed
	default:
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot stop from phase %s", ErrNotRunning, phase)
	}
	c.phase = PhaseStop
	c.mu.Unlock()
	c.bus.Publish(PhaseChanged{From: PhaseRunning, To: PhaseStop})

	var errs []error
	for _, err := range c.runStopHooks(ctx) {
		c.log.Error("on-stop hook failed", logger.Err(err))
		errs = append(errs, err)
	}
	c.bus.Publish(Stopped{})

	c.transition(PhasePreDestroy)
	if err := c.store.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	if c.manageScheduler && c.sched != nil {
		c.sched.Shutdown()
	}

	c.transition(PhaseClosed)
	c.bus.Publish(Closed{})
	c.log.Info("Container stopped", logger.Int("errors", len(errs)))

	return errors.Join(errs...)
}

func (c *Container) transition(to Phase) {
	c.mu.Lock()
	from := c.phase
	c.phase = to
	c.mu.Unlock()

	c.log.Debug("Phase transition",
		logger.String("from", from.String()),
		logger.String("to", to.String()),
	)
	c.bus.Publish(PhaseChanged{From: from, To: to})
}

type boundHook struct {
	decl     *manifest.Declaration
	instance any
	order    int
	index    int
	fn       manifest.HookFunc
}

func (c *Container) collectHooks(pick func(*manifest.Declaration) []manifest.OrderedHook) []boundHook {
	var hooks []boundHook
	for _, cc := range c.snapshotConstructed() {
		for i, h := range pick(cc.decl) {
			hooks = append(hooks, boundHook{
				decl:     cc.decl,
				instance: cc.instance,
				order:    h.Order,
				index:    i,
				fn:       h.Fn,
			})
		}
	}
	return hooks
}

// runStartHooks executes on-start hooks in ascending numeric order, ties
// broken by manifest declaration order. The first failure aborts startup.
func (c *Container) runStartHooks(ctx context.Context) error {
	hooks := c.collectHooks(func(d *manifest.Declaration) []manifest.OrderedHook { return d.Start })

	sort.SliceStable(hooks, func(i, j int) bool {
		if hooks[i].order != hooks[j].order {
			return hooks[i].order < hooks[j].order
		}
		if hooks[i].decl.Order() != hooks[j].decl.Order() {
			return hooks[i].decl.Order() < hooks[j].decl.Order()
		}
		return hooks[i].index < hooks[j].index
	})

	for _, h := range hooks {
		if err := h.fn(ctx, h.instance); err != nil {
			return fmt.Errorf("on-start hook of %s (order %d): %w", h.decl.Key, h.order, err)
		}
	}
	return nil
}

// runStopHooks executes on-stop hooks in descending numeric order, the
// exact mirror of start ordering. All hooks run; failures are collected.
func (c *Container) runStopHooks(ctx context.Context) []error {
	hooks := c.collectHooks(func(d *manifest.Declaration) []manifest.OrderedHook { return d.Stop })

	sort.SliceStable(hooks, func(i, j int) bool {
		if hooks[i].order != hooks[j].order {
			return hooks[i].order > hooks[j].order
		}
		if hooks[i].decl.Order() != hooks[j].decl.Order() {
			return hooks[i].decl.Order() > hooks[j].decl.Order()
		}
		return hooks[i].index > hooks[j].index
	})

	var errs []error
	for _, h := range hooks {
		if err := h.fn(ctx, h.instance); err != nil {
			errs = append(errs, fmt.Errorf("on-stop hook of %s (order %d): %w", h.decl.Key, h.order, err))
		}
	}
	return errs
}
