package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the execution
// context.  Fields are signed; Pending usually moves opposite to the others.
type Delta struct {
	Registered int
	Completed  int
	Failed     int
	Discarded  int
	Pending    int
}

// Progress keeps counters for one lifecycle.  It is safe for concurrent use
// so that observers on other goroutines may read snapshots.
type Progress struct {
	StartedAt time.Time

	Registered int
	Completed  int
	Failed     int
	Discarded  int
	Pending    int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta.  The onChange callback, if any, is
// invoked with a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}

	p.Lock()

	p.Registered += d.Registered
	p.Completed += d.Completed
	p.Failed += d.Failed
	p.Discarded += d.Discarded
	p.Pending += d.Pending

	snapshot := p.copy()
	cb := p.onChange

	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Reset zeroes the counters and stamps a new start time; the callback is kept.
func (p *Progress) Reset(startedAt time.Time) {
	if p == nil {
		return
	}
	p.Lock()
	defer p.Unlock()
	p.StartedAt = startedAt
	p.Registered, p.Completed, p.Failed, p.Discarded, p.Pending = 0, 0, 0, 0, 0
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// OnChange registers a callback invoked after every Update.  Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

func (p *Progress) copy() Progress {
	return Progress{
		StartedAt:  p.StartedAt,
		Registered: p.Registered,
		Completed:  p.Completed,
		Failed:     p.Failed,
		Discarded:  p.Discarded,
		Pending:    p.Pending,
	}
}
