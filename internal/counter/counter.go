// Package counter provides the monotonically increasing counters shared by
// concurrent request handlers, with a milestone check used to throttle logging.
package counter

import "sync/atomic"

// DefaultEvery is the milestone interval used for throttled log lines.
const DefaultEvery = 10

// Throttled is a concurrency-safe counter that reports when an increment
// lands on an exact multiple of its milestone interval.
type Throttled struct {
	n     atomic.Int64
	every int64
}

// New creates a Throttled counter. A non-positive every falls back to DefaultEvery.
func New(every int64) *Throttled {
	if every <= 0 {
		every = DefaultEvery
	}
	return &Throttled{every: every}
}

// Inc increments the counter and returns the new value, and whether that
// value is a milestone. The check uses the value returned by the atomic add,
// so each milestone is reported to exactly one caller.
func (c *Throttled) Inc() (int64, bool) {
	v := c.n.Add(1)
	return v, v%c.every == 0
}

// Load returns the current value.
func (c *Throttled) Load() int64 {
	return c.n.Load()
}
