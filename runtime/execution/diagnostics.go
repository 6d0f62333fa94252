package execution

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/viant/sparsecore/internal/clock"
)

// Diagnostics describes the most recent failing call on a Context.  File
// and Line locate the call into the Context that failed, or the Report call
// a matrix operation made.  When deferred work fails during Wait or a
// blocking Submit after recording its own failure, Row, Col, File and Line
// keep what the work recorded while Info, Where and Details describe the
// returned error.
type Diagnostics struct {
	Info    Info
	Where   string
	Details string
	Row     uint64
	Col     uint64
	File    string
	Line    int
	At      time.Time
}

// Failed reports whether a failure was recorded.
func (d Diagnostics) Failed() bool {
	return d.Info != Success
}

func (d Diagnostics) String() string {
	if !d.Failed() {
		return "success"
	}
	return fmt.Sprintf("%v: %s [row %d, col %d] (%s:%d): %s",
		d.Info, d.Where, d.Row, d.Col, filepath.Base(d.File), d.Line, d.Details)
}

// Report lets a matrix operation record a failure with a row/column
// breadcrumb.  The returned error wraps the sentinel for info.
func (c *Context) Report(info Info, row, col uint64, where, format string, args ...interface{}) error {
	sentinel := info.Err()
	if sentinel == nil {
		return nil
	}
	err := fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...)
	c.record(2, where, err)
	c.diagnostics.Row, c.diagnostics.Col = row, col
	return err
}

// fail records err against the caller of the failing Context method and
// returns it.
func (c *Context) fail(where string, err error) error {
	c.record(3, where, err)
	return err
}

// failDeferred records a deferred failure.  A non-nil crumb carries the
// location the failing work recorded, which takes precedence over the call
// site.
func (c *Context) failDeferred(where string, err error, crumb *Diagnostics) error {
	c.record(3, where, err)
	if crumb != nil {
		c.diagnostics.Row, c.diagnostics.Col = crumb.Row, crumb.Col
		c.diagnostics.File, c.diagnostics.Line = crumb.File, crumb.Line
	}
	return err
}

// breadcrumb returns the diagnostics recorded since the record counter was
// at since, or nil when nothing was recorded.
func (c *Context) breadcrumb(since uint64) *Diagnostics {
	if c.recorded == since {
		return nil
	}
	crumb := c.diagnostics
	return &crumb
}

func (c *Context) record(skip int, where string, err error) {
	_, file, line, _ := runtime.Caller(skip)
	c.recorded++
	c.diagnostics = Diagnostics{
		Info:    InfoOf(err),
		Where:   where,
		Details: err.Error(),
		File:    file,
		Line:    line,
		At:      clock.Now(),
	}
}
