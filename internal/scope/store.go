// Package scope owns per-scope instance caches and their lifetime rules.
// Singleton and lazy-singleton entries live for the container's lifetime;
// request and session entries live until their boundary token is cleared;
// prototype instances never pass through the store at all.
package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
)

// State is the construction state of a cached entry.
type State int

const (
	StateUninitialized State = iota
	StateConstructing
	StateReady
	StateFailed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConstructing:
		return "constructing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// BuildFunc constructs an instance. The store invokes it under the entry's
// per-key lock so exactly one caller builds while others block.
type BuildFunc func() (any, error)

// DestroyFunc is the pre-destroy hook bound to a constructed instance.
type DestroyFunc func(ctx context.Context, instance any) error

type entry struct {
	key manifest.Key

	mu       sync.Mutex
	state    State
	instance any
	err      error
	destroy  DestroyFunc
}

// get runs the per-key critical section: a ready entry returns its instance,
// a failed entry re-raises the cached error, otherwise the caller holding
// the lock constructs while concurrent callers block on it.
func (e *entry) get(build BuildFunc, destroy DestroyFunc) (any, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return e.instance, false, nil
	case StateFailed:
		return nil, false, e.err
	case StateDestroyed:
		return nil, false, fmt.Errorf("%w: %s", ErrDestroyed, e.key)
	}

	e.state = StateConstructing
	instance, err := build()
	if err != nil {
		e.state = StateFailed
		e.err = &ConstructionError{Key: e.key, Err: err}
		return nil, false, e.err
	}

	e.instance = instance
	e.destroy = destroy
	e.state = StateReady
	return instance, true, nil
}

// destroyNow invokes the pre-destroy hook once and marks the entry gone.
func (e *entry) destroyNow(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateReady {
		e.state = StateDestroyed
		return nil
	}

	e.state = StateDestroyed
	if e.destroy == nil {
		return nil
	}
	if err := e.destroy(ctx, e.instance); err != nil {
		return fmt.Errorf("pre-destroy of %s: %w", e.key, err)
	}
	return nil
}

type boundary struct {
	token   Token
	entries map[manifest.Key]*entry
	order   []*entry
}

// Store is the per-scope instance cache.
type Store struct {
	log logger.Logger

	mu         sync.Mutex
	singletons map[manifest.Key]*entry
	order      []*entry
	boundaries map[Token]*boundary
	closed     bool
}

func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		log:        log,
		singletons: make(map[manifest.Key]*entry),
		boundaries: make(map[Token]*boundary),
	}
}

// Singleton resolves a singleton or lazy-singleton entry, constructing it on
// first access. Construction happens at most once per key; a failure is
// cached and re-raised to all callers without re-invoking build.
func (s *Store) Singleton(key manifest.Key, build BuildFunc, destroy DestroyFunc) (any, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDestroyed, key)
	}
	e, ok := s.singletons[key]
	if !ok {
		e = &entry{key: key}
		s.singletons[key] = e
	}
	s.mu.Unlock()

	instance, built, err := e.get(build, destroy)
	if err != nil {
		return nil, err
	}
	if built {
		s.mu.Lock()
		s.order = append(s.order, e)
		s.mu.Unlock()
		s.log.Debug("Scope entry ready", logger.String("component", key.String()))
	}
	return instance, nil
}

// SingletonState reports the construction state of a singleton entry.
func (s *Store) SingletonState(key manifest.Key) State {
	s.mu.Lock()
	e, ok := s.singletons[key]
	s.mu.Unlock()
	if !ok {
		return StateUninitialized
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OpenBoundary starts a new unit of work for a request or session scope and
// returns its token.
func (s *Store) OpenBoundary(kind manifest.Scope) (Token, error) {
	if !kind.Bounded() {
		return Token{}, fmt.Errorf("%w: %s", ErrNotBounded, kind)
	}

	tok := newToken(kind)
	s.mu.Lock()
	s.boundaries[tok] = &boundary{
		token:   tok,
		entries: make(map[manifest.Key]*entry),
	}
	s.mu.Unlock()

	s.log.Debug("Scope boundary opened", logger.String("boundary", tok.String()))
	return tok, nil
}

// Bounded resolves an entry under an active boundary token.
func (s *Store) Bounded(tok Token, key manifest.Key, scopeKind manifest.Scope, build BuildFunc, destroy DestroyFunc) (any, error) {
	if tok.IsZero() {
		return nil, fmt.Errorf("%w: %s requires an open %s boundary", ErrNoBoundary, key, scopeKind)
	}
	if tok.Kind() != scopeKind {
		return nil, fmt.Errorf("%w: %s token used for %s component %s", ErrBoundaryScope, tok.Kind(), scopeKind, key)
	}

	s.mu.Lock()
	b, ok := s.boundaries[tok]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBoundary, tok)
	}
	e, ok := b.entries[key]
	if !ok {
		e = &entry{key: key}
		b.entries[key] = e
	}
	s.mu.Unlock()

	instance, built, err := e.get(build, destroy)
	if err != nil {
		return nil, err
	}
	if built {
		s.mu.Lock()
		// The boundary may have been cleared while we were constructing;
		// destroy the orphan rather than leak it.
		if cur, live := s.boundaries[tok]; live && cur == b {
			b.order = append(b.order, e)
			s.mu.Unlock()
		} else {
			s.mu.Unlock()
			if derr := e.destroyNow(context.Background()); derr != nil {
				s.log.Warn("Orphaned scope entry destroy failed",
					logger.String("component", key.String()),
					logger.Err(derr),
				)
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownBoundary, tok)
		}
	}
	return instance, nil
}

// ClearBoundary ends a unit of work, destroying its entries in reverse
// creation order. Destroy failures are collected; one failure does not stop
// the rest.
func (s *Store) ClearBoundary(ctx context.Context, tok Token) error {
	s.mu.Lock()
	b, ok := s.boundaries[tok]
	if ok {
		delete(s.boundaries, tok)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBoundary, tok)
	}

	var errs []error
	for i := len(b.order) - 1; i >= 0; i-- {
		if err := b.order[i].destroyNow(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.log.Debug("Scope boundary cleared",
		logger.String("boundary", tok.String()),
		logger.Int("entries", len(b.order)),
	)
	return errors.Join(errs...)
}

// Close destroys every live entry: open boundaries first, then singletons in
// reverse construction order. Errors are aggregated.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	boundaries := make([]*boundary, 0, len(s.boundaries))
	for _, b := range s.boundaries {
		boundaries = append(boundaries, b)
	}
	s.boundaries = make(map[Token]*boundary)

	singletons := make([]*entry, len(s.order))
	copy(singletons, s.order)
	s.mu.Unlock()

	var errs []error
	for _, b := range boundaries {
		for i := len(b.order) - 1; i >= 0; i-- {
			if err := b.order[i].destroyNow(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for i := len(singletons) - 1; i >= 0; i-- {
		if err := singletons[i].destroyNow(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
