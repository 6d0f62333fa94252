package execution

import (
	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/service/allocator"
)

// Option configures a Context
type Option func(c *Context)

// WithStrategy sets the memory strategy behind every lifecycle's allocator.
// The strategy outlives Init: Init resets the fault injection enabled
// through EnableFaultInjection, but a Faulty passed here keeps its budget.
func WithStrategy(strategy allocator.Strategy) Option {
	return func(c *Context) {
		c.strategy = strategy
	}
}

// WithAllocatorConfig sets the allocator configuration.
func WithAllocatorConfig(config allocator.Config) Option {
	return func(c *Context) {
		c.allocatorConfig = config
	}
}

// WithProgressListener registers a callback invoked on every counter change.
func WithProgressListener(fn func(progress.Progress)) Option {
	return func(c *Context) {
		c.progress.OnChange(fn)
	}
}
