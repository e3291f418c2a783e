package container

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Get and Start on a closed container.
	ErrClosed = errors.New("container is closed")

	// ErrAlreadyStarted is returned when Start is invoked twice.
	ErrAlreadyStarted = errors.New("container already started")

	// ErrNotStarted is returned by Get before Start.
	ErrNotStarted = errors.New("container not started")

	// ErrNotRunning is returned by Stop outside the running phase, and by
	// Get while teardown is underway.
	ErrNotRunning = errors.New("container not running")

	// ErrUnknownComponent is returned when no included declaration matches
	// the requested key. A component excluded by its conditions is unknown
	// to the running container.
	ErrUnknownComponent = errors.New("unknown component")
)

// ConfigurationError wraps any fatal manifest-level failure raised during
// Start: duplicate keys, unresolved or ambiguous dependencies, dependency
// cycles, condition cycles. Never retried.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
