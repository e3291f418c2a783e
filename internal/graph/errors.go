package graph

import (
	"fmt"
	"strings"

	"github.com/0xsj/go-loom/internal/manifest"
)

// UnresolvedError reports a required edge with no matching provider.
type UnresolvedError struct {
	Dependent manifest.Key
	Target    manifest.Key
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s requires %s, no provider registered", e.Dependent, e.Target)
}

// AmbiguousError reports a required edge that matches more than one provider
// without a disambiguating name.
type AmbiguousError struct {
	Dependent  manifest.Key
	Target     manifest.Key
	Candidates []manifest.Key
}

func (e *AmbiguousError) Error() string {
	parts := make([]string, len(e.Candidates))
	for i, k := range e.Candidates {
		parts[i] = k.String()
	}
	return fmt.Sprintf("ambiguous dependency: %s requires %s, candidates: %s",
		e.Dependent, e.Target, strings.Join(parts, ", "))
}

// CycleError reports a cycle on the required subgraph. Path holds the full
// chain, first and last entries being the same key.
type CycleError struct {
	Path []manifest.Key
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(parts, " -> "))
}
