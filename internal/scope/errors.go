package scope

import (
	"errors"
	"fmt"

	"github.com/0xsj/go-loom/internal/manifest"
)

var (
	// ErrNoBoundary is returned when a request/session component is resolved
	// without an active boundary token.
	ErrNoBoundary = errors.New("no active scope boundary")

	// ErrUnknownBoundary is returned for a token that was never opened or
	// was already cleared.
	ErrUnknownBoundary = errors.New("unknown or cleared scope boundary")

	// ErrBoundaryScope is returned when a token's scope does not match the
	// component's declared scope.
	ErrBoundaryScope = errors.New("boundary scope mismatch")

	// ErrNotBounded is returned when opening a boundary for a scope that is
	// not delimited by tokens.
	ErrNotBounded = errors.New("scope is not boundary-delimited")

	// ErrDestroyed is returned when resolving an entry that was already
	// destroyed.
	ErrDestroyed = errors.New("scope entry destroyed")
)

// ConstructionError wraps a factory failure. For lazy singletons it is
// cached and re-raised to every subsequent caller without re-invoking the
// factory.
type ConstructionError struct {
	Key manifest.Key
	Err error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction of %s failed: %v", e.Key, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
