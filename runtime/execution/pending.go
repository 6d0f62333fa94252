package execution

import (
	"context"
	"fmt"

	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/service/pending"
	"github.com/viant/sparsecore/tracing"
)

// Register queues work for matrix.  It is valid only in NonBlocking mode;
// in Blocking mode operations must complete synchronously (see Submit).
func (c *Context) Register(matrix any, work pending.Work) error {
	if err := c.ensureInitialized("Register"); err != nil {
		return err
	}
	if c.mode == Blocking {
		return c.fail("Register", fmt.Errorf("%w: register called in %v mode", ErrMisuse, c.mode))
	}
	if _, err := c.queue.Push(matrix, work); err != nil {
		return c.fail("Register", fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	c.progress.Update(progress.Delta{Registered: 1, Pending: 1})
	return nil
}

// Submit is how a matrix operation hands over its completion: registered
// in NonBlocking mode, run before returning in Blocking mode, exactly as if
// Wait followed the operation.
func (c *Context) Submit(ctx context.Context, matrix any, work pending.Work) error {
	if err := c.ensureInitialized("Submit"); err != nil {
		return err
	}
	queue := c.queue
	if c.mode == Blocking {
		queue = pending.NewQueue()
	}
	entry, err := queue.Push(matrix, work)
	if err != nil {
		return c.fail("Submit", fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	c.progress.Update(progress.Delta{Registered: 1, Pending: 1})
	if c.mode == NonBlocking {
		return nil
	}
	queue.Pop()
	recorded := c.recorded
	if err = c.complete(WithContext(ctx, c), entry); err != nil {
		return c.failDeferred("Submit", err, c.breadcrumb(recorded))
	}
	return nil
}

// Wait completes every pending entry head to tail, including entries
// registered while draining.  Each entry leaves the queue before it runs,
// so it runs exactly once whatever its outcome.  Draining never stops
// early: the first failure is returned, wrapped in ErrDeferredFailure,
// once the queue is empty.
func (c *Context) Wait(ctx context.Context) error {
	if err := c.ensureInitialized("Wait"); err != nil {
		return err
	}
	queue := c.queue
	if queue.Len() == 0 {
		return nil
	}
	ctx, span := tracing.StartSpan(WithContext(ctx, c), "execution.Wait")
	span.WithCount("pending", queue.Len())
	var first error
	var crumb *Diagnostics
	drained := 0
	for entry := queue.Pop(); entry != nil; entry = queue.Pop() {
		drained++
		recorded := c.recorded
		if err := c.complete(ctx, entry); err != nil && first == nil {
			first = err
			crumb = c.breadcrumb(recorded)
		}
	}
	span.WithCount("drained", drained)
	tracing.EndSpan(span, first)
	if first != nil {
		return c.failDeferred("Wait", first, crumb)
	}
	return nil
}

// Release drops pending work of a matrix being destroyed; the work never
// runs.  It reports whether anything was pending.
func (c *Context) Release(matrix any) (bool, error) {
	if err := c.ensureInitialized("Release"); err != nil {
		return false, err
	}
	if err := pending.CheckHandle(matrix); err != nil {
		return false, c.fail("Release", fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	removed := len(c.queue.Remove(matrix))
	if removed == 0 {
		return false, nil
	}
	c.progress.Update(progress.Delta{Discarded: removed, Pending: -removed})
	return true, nil
}

// Pending returns the number of queued entries.
func (c *Context) Pending() int {
	if c.queue == nil {
		return 0
	}
	return c.queue.Len()
}

// IsPending reports whether matrix has queued work.
func (c *Context) IsPending(matrix any) bool {
	return c.queue != nil && c.queue.Contains(matrix)
}

func (c *Context) complete(ctx context.Context, entry *pending.Entry) error {
	ctx, span := tracing.StartSpan(ctx, "execution.Finish")
	span.WithAttributes(map[string]string{"entry.id": entry.ID})
	err := entry.Run(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		c.progress.Update(progress.Delta{Failed: 1, Pending: -1})
		return fmt.Errorf("%w: entry %s: %w", ErrDeferredFailure, entry.ID, err)
	}
	c.progress.Update(progress.Delta{Completed: 1, Pending: -1})
	return nil
}
