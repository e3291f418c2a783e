package container

import (
	"github.com/0xsj/go-loom/internal/lib/logger"
)

// Option configures a Container at construction.
type Option func(*Container)

// WithLogger sets the logger used by the container and all engine
// subsystems it owns.
func WithLogger(log logger.Logger) Option {
	return func(c *Container) {
		c.log = log
	}
}

// WithProfiles sets the active profile set seen by condition evaluation.
func WithProfiles(profiles ...string) Option {
	return func(c *Container) {
		c.profiles = append(c.profiles, profiles...)
	}
}

// WithProperties merges property values into the condition environment.
func WithProperties(props map[string]string) Option {
	return func(c *Container) {
		for k, v := range props {
			c.properties[k] = v
		}
	}
}

// WithProperty sets a single property value.
func WithProperty(key, value string) Option {
	return func(c *Container) {
		c.properties[key] = value
	}
}

// WithScheduler ties the process-wide scheduler's lifecycle to this
// container: it is brought up during Start and shut down during Stop.
func WithScheduler() Option {
	return func(c *Container) {
		c.manageScheduler = true
	}
}
