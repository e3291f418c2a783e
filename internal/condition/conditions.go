package condition

import (
	"fmt"
	"strings"

	"github.com/0xsj/go-loom/internal/manifest"
)

// OnProfile matches when every named profile is active.
func OnProfile(profiles ...string) manifest.Condition {
	return &profileCondition{profiles: profiles}
}

type profileCondition struct {
	profiles []string
}

func (c *profileCondition) Name() string {
	return fmt.Sprintf("on-profile(%s)", strings.Join(c.profiles, ","))
}

func (c *profileCondition) Matches(ctx manifest.ConditionContext) (bool, error) {
	for _, p := range c.profiles {
		if !ctx.HasProfile(p) {
			return false, nil
		}
	}
	return true, nil
}

// OnProperty matches when the named property equals expected. An empty
// expected value accepts any present value. When matchIfMissing is set, an
// absent property also matches.
func OnProperty(name, expected string, matchIfMissing bool) manifest.Condition {
	return &propertyCondition{name: name, expected: expected, matchIfMissing: matchIfMissing}
}

type propertyCondition struct {
	name           string
	expected       string
	matchIfMissing bool
}

func (c *propertyCondition) Name() string {
	if c.expected == "" {
		return fmt.Sprintf("on-property(%s)", c.name)
	}
	return fmt.Sprintf("on-property(%s=%s)", c.name, c.expected)
}

func (c *propertyCondition) Matches(ctx manifest.ConditionContext) (bool, error) {
	value, ok := ctx.Property(c.name)
	if !ok {
		return c.matchIfMissing, nil
	}
	if c.expected == "" {
		return true, nil
	}
	return value == c.expected, nil
}

// OnComponent matches when the referenced component is itself included.
// Referencing an undecided component forces its evaluation first.
func OnComponent(key manifest.Key) manifest.Condition {
	return &componentCondition{key: key, wantPresent: true}
}

// OnMissingComponent matches when the referenced component is absent or
// excluded.
func OnMissingComponent(key manifest.Key) manifest.Condition {
	return &componentCondition{key: key, wantPresent: false}
}

type componentCondition struct {
	key         manifest.Key
	wantPresent bool
}

func (c *componentCondition) Name() string {
	if c.wantPresent {
		return fmt.Sprintf("on-component(%s)", c.key)
	}
	return fmt.Sprintf("on-missing-component(%s)", c.key)
}

func (c *componentCondition) Matches(ctx manifest.ConditionContext) (bool, error) {
	included, err := ctx.Included(c.key)
	if err != nil {
		return false, err
	}
	return included == c.wantPresent, nil
}
