package condition

import (
	"fmt"
	"strings"

	"github.com/0xsj/go-loom/internal/lib/logger"
	"github.com/0xsj/go-loom/internal/manifest"
)

// CycleError reports mutually dependent conditions, such as one component
// requiring another's absence while that component requires the first's
// presence. Detected during evaluation, before any graph is built.
type CycleError struct {
	Path []manifest.Key
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return fmt.Sprintf("condition cycle: %s", strings.Join(parts, " -> "))
}

// Decision records the outcome of evaluating one declaration's conditions.
type Decision struct {
	Key      manifest.Key
	Included bool
	Reason   string
}

// Evaluator filters a manifest down to the declarations whose conditions all
// match. Evaluation is pure over the profile set, the property map, and the
// decisions already made; declarations are decided lazily in manifest order.
type Evaluator struct {
	m          *manifest.Manifest
	profiles   map[string]struct{}
	properties map[string]string
	log        logger.Logger

	decisions map[manifest.Key]Decision
	visiting  map[manifest.Key]bool
	stack     []manifest.Key
}

func NewEvaluator(m *manifest.Manifest, profiles []string, properties map[string]string, log logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Discard()
	}

	profileSet := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		profileSet[p] = struct{}{}
	}

	return &Evaluator{
		m:          m,
		profiles:   profileSet,
		properties: properties,
		log:        log,
		decisions:  make(map[manifest.Key]Decision),
		visiting:   make(map[manifest.Key]bool),
	}
}

// Evaluate decides every declaration and returns the included ones in
// manifest order. A condition cycle yields a *CycleError.
func (e *Evaluator) Evaluate() ([]*manifest.Declaration, error) {
	included := make([]*manifest.Declaration, 0, e.m.Len())

	for _, d := range e.m.Declarations() {
		ok, err := e.decide(d)
		if err != nil {
			return nil, err
		}
		if ok {
			included = append(included, d)
		}
	}

	return included, nil
}

// Decisions returns the outcome for every declaration decided so far, in
// manifest order.
func (e *Evaluator) Decisions() []Decision {
	out := make([]Decision, 0, len(e.decisions))
	for _, d := range e.m.Declarations() {
		if dec, ok := e.decisions[d.Key]; ok {
			out = append(out, dec)
		}
	}
	return out
}

func (e *Evaluator) decide(d *manifest.Declaration) (bool, error) {
	if dec, ok := e.decisions[d.Key]; ok {
		return dec.Included, nil
	}

	if e.visiting[d.Key] {
		return false, &CycleError{Path: append(append([]manifest.Key{}, e.stack...), d.Key)}
	}

	e.visiting[d.Key] = true
	e.stack = append(e.stack, d.Key)
	defer func() {
		delete(e.visiting, d.Key)
		e.stack = e.stack[:len(e.stack)-1]
	}()

	ctx := &evalContext{e: e}

	for _, cond := range d.Conditions {
		ok, err := cond.Matches(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			reason := fmt.Sprintf("condition %s not satisfied", cond.Name())
			e.decisions[d.Key] = Decision{Key: d.Key, Included: false, Reason: reason}
			e.log.Debug("Component excluded",
				logger.String("component", d.Key.String()),
				logger.String("reason", reason),
			)
			return false, nil
		}
	}

	e.decisions[d.Key] = Decision{Key: d.Key, Included: true, Reason: "all conditions matched"}
	return true, nil
}

// evalContext is the read-only view conditions evaluate against.
type evalContext struct {
	e *Evaluator
}

func (c *evalContext) HasProfile(name string) bool {
	_, ok := c.e.profiles[name]
	return ok
}

func (c *evalContext) Property(name string) (string, bool) {
	v, ok := c.e.properties[name]
	return v, ok
}

func (c *evalContext) Included(key manifest.Key) (bool, error) {
	d, ok := c.e.m.Lookup(key)
	if !ok {
		// A component that was never declared is simply absent.
		return false, nil
	}
	return c.e.decide(d)
}
