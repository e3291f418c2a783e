package manifest

import (
	"context"
	"fmt"
)

// Key identifies a component: a type name plus an optional qualifier for
// disambiguating multiple providers of the same type.
type Key struct {
	Type string
	Name string
}

func (k Key) String() string {
	if k.Name == "" {
		return k.Type
	}
	return fmt.Sprintf("%s[%s]", k.Type, k.Name)
}

// Scope controls instance lifetime and sharing.
type Scope int

const (
	ScopeSingleton Scope = iota
	ScopeLazySingleton
	ScopeRequest
	ScopeSession
	ScopePrototype
)

func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeLazySingleton:
		return "lazy-singleton"
	case ScopeRequest:
		return "request"
	case ScopeSession:
		return "session"
	case ScopePrototype:
		return "prototype"
	default:
		return "unknown"
	}
}

// Bounded reports whether the scope is delimited by an external boundary
// token rather than the container lifetime.
func (s Scope) Bounded() bool {
	return s == ScopeRequest || s == ScopeSession
}

// Edge is a directed dependency from the declaring component to Target.
type Edge struct {
	Target Key

	// Optional edges tolerate an absent provider.
	Optional bool

	// Collection edges resolve to every provider matching Target's type
	// instead of exactly one.
	Collection bool
}

// Deps is the resolved-dependency view handed to a Factory. Accessors are
// keyed by the Target of the declaration's edges.
type Deps interface {
	// One returns the single resolved instance for a required edge.
	One(key Key) any

	// Maybe returns the instance for an optional edge, or false when no
	// provider was registered.
	Maybe(key Key) (any, bool)

	// All returns every instance resolved for a collection edge.
	All(key Key) []any
}

// Factory constructs a component instance from its resolved dependencies.
type Factory func(ctx context.Context, deps Deps) (any, error)

// HookFunc is a lifecycle callback bound to a constructed instance.
type HookFunc func(ctx context.Context, instance any) error

// OrderedHook is an on-start or on-stop callback with an execution order.
// Lower orders start earlier; stop runs in the reverse direction.
type OrderedHook struct {
	Order int
	Fn    HookFunc
}

// Condition gates a declaration's registration. All conditions attached to a
// declaration must match for the component to be included.
type Condition interface {
	// Name describes the condition for diagnostics.
	Name() string

	// Matches reports whether the condition holds in the given context.
	Matches(ctx ConditionContext) (bool, error)
}

// ConditionContext is the read-only environment a Condition evaluates
// against: active profiles, property values, and the inclusion decisions
// made so far.
type ConditionContext interface {
	HasProfile(name string) bool
	Property(name string) (string, bool)

	// Included reports whether the component identified by key is part of
	// the filtered manifest, evaluating it on demand when undecided.
	Included(key Key) (bool, error)
}

// Declaration is the immutable description of a single component as emitted
// by the external collector.
type Declaration struct {
	Key          Key
	Scope        Scope
	Dependencies []Edge
	Conditions   []Condition
	Factory      Factory

	PostConstruct HookFunc
	PreDestroy    HookFunc
	Start         []OrderedHook
	Stop          []OrderedHook

	// order is the position in the manifest, assigned at load. It breaks
	// ties everywhere ordering matters.
	order int
}

// Order returns the declaration's position in the manifest.
func (d *Declaration) Order() int {
	return d.order
}
