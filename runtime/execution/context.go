package execution

import (
	"context"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/viant/sparsecore/internal/clock"
	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/service/allocator"
	"github.com/viant/sparsecore/service/pending"
	"github.com/viant/sparsecore/service/workspace"
)

// Context is the execution state of one logical worker: evaluation mode,
// pending queue, allocator, workspace and diagnostics.  A Context must be
// used by one goroutine at a time; give each worker its own.
type Context struct {
	strategy        allocator.Strategy
	allocatorConfig allocator.Config

	state       State
	mode        Mode
	allocator   *allocator.Service
	queue       *pending.Queue
	workspace   *workspace.Workspace
	diagnostics Diagnostics
	recorded    uint64
	progress    progress.Progress
}

// New creates an uninitialized context; call Init before use.
func New(options ...Option) *Context {
	c := &Context{
		state:           StateUninitialized,
		allocatorConfig: allocator.DefaultConfig(),
	}
	for _, option := range options {
		option(c)
	}
	if c.strategy == nil {
		c.strategy = &allocator.Heap{}
	}
	return c
}

// Init starts a fresh lifecycle in mode.  An unknown mode fails with
// ErrInvalidValue and leaves the context as it was.  Otherwise buffers of a
// previous lifecycle are released, its pending work is discarded without
// running, and counters, diagnostics and fault injection are reset.
func (c *Context) Init(mode Mode) error {
	if !mode.IsValid() {
		return c.fail("Init", fmt.Errorf("%w: unknown mode: %d; must be %d (%v) or %d (%v)",
			ErrInvalidValue, int(mode), int(NonBlocking), NonBlocking, int(Blocking), Blocking))
	}
	c.teardown()
	c.allocator = allocator.New(c.strategy, c.allocatorConfig)
	c.workspace = workspace.New(c.allocator)
	c.queue = pending.NewQueue()
	c.mode = mode
	c.state = StateInitialized
	c.diagnostics = Diagnostics{}
	c.progress.Reset(clock.Now())
	return nil
}

// Finalize releases the workspace and discards pending work without
// running it.  Outstanding allocations are logged and stay visible through
// Allocations.  Finalizing twice fails with ErrMisuse.
func (c *Context) Finalize() error {
	if err := c.ensureInitialized("Finalize"); err != nil {
		return err
	}
	c.teardown()
	if n := c.allocator.Count(); n != 0 {
		log.Printf("execution: finalized with %d outstanding allocation(s) holding %s",
			n, humanize.Bytes(c.allocator.InUse()))
	}
	c.state = StateFinalized
	return nil
}

// teardown releases what the current lifecycle owns.
func (c *Context) teardown() {
	if c.workspace != nil {
		if _, err := c.workspace.Release(); err != nil {
			log.Printf("execution: failed to release workspace: %v", err)
		}
		c.workspace = nil
	}
	if c.queue != nil {
		if discarded := len(c.queue.Discard()); discarded > 0 {
			c.progress.Update(progress.Delta{Discarded: discarded, Pending: -discarded})
		}
	}
}

// State returns the lifecycle state.
func (c *Context) State() State {
	return c.state
}

// Mode returns the mode set by the last successful Init.
func (c *Context) Mode() Mode {
	return c.mode
}

// Diagnostics returns the most recent failure, if any.
func (c *Context) Diagnostics() Diagnostics {
	return c.diagnostics
}

// Progress returns a snapshot of the deferred-work counters.
func (c *Context) Progress() progress.Progress {
	return c.progress.Snapshot()
}

// Allocate obtains items*itemSize bytes through the lifecycle allocator.
func (c *Context) Allocate(items, itemSize uint64) (*allocator.Block, error) {
	if err := c.ensureInitialized("Allocate"); err != nil {
		return nil, err
	}
	block, err := c.allocator.Allocate(items, itemSize)
	if err != nil {
		return nil, c.fail("Allocate", err)
	}
	return block, nil
}

// Free releases a block obtained from Allocate.  Releasing a block twice or
// through the wrong context fails with ErrMisuse and changes nothing.
func (c *Context) Free(block *allocator.Block) error {
	if err := c.ensureInitialized("Free"); err != nil {
		return err
	}
	if err := c.allocator.Release(block); err != nil {
		return c.fail("Free", fmt.Errorf("%w: %w", ErrMisuse, err))
	}
	return nil
}

// Allocations returns the outstanding allocation count of the current or
// last lifecycle.
func (c *Context) Allocations() int64 {
	if c.allocator == nil {
		return 0
	}
	return c.allocator.Count()
}

// EnableFaultInjection lets the next budget allocations succeed and fails
// all later ones.
func (c *Context) EnableFaultInjection(budget int64) error {
	if err := c.ensureInitialized("EnableFaultInjection"); err != nil {
		return err
	}
	c.allocator.EnableFaultInjection(budget)
	return nil
}

// DisableFaultInjection restores normal allocation.
func (c *Context) DisableFaultInjection() error {
	if err := c.ensureInitialized("DisableFaultInjection"); err != nil {
		return err
	}
	c.allocator.DisableFaultInjection()
	return nil
}

// FaultInjection reports whether fault injection is on and its remaining budget.
func (c *Context) FaultInjection() (enabled bool, remaining int64) {
	if c.allocator == nil {
		return false, 0
	}
	return c.allocator.FaultInjection()
}

// SetTrace toggles allocation tracing.
func (c *Context) SetTrace(enabled bool) error {
	if err := c.ensureInitialized("SetTrace"); err != nil {
		return err
	}
	c.allocatorConfig.Trace = enabled
	c.allocator.SetTrace(enabled)
	return nil
}

// Workspace returns the scratch buffers of the current lifecycle.
func (c *Context) Workspace() (*workspace.Workspace, error) {
	if err := c.ensureInitialized("Workspace"); err != nil {
		return nil, err
	}
	return c.workspace, nil
}

func (c *Context) ensureInitialized(where string) error {
	if c.state == StateInitialized {
		return nil
	}
	err := fmt.Errorf("%w: %s called while %s", ErrMisuse, where, c.state)
	// misuse is located at the caller's call site
	c.record(3, where, err)
	return err
}

type contextKey struct{}

// WithContext returns ctx carrying c.
func WithContext(ctx context.Context, c *Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext extracts the execution context carried by ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}
