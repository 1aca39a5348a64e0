package clock

import (
	"sync"
	"time"
)

// Source returns the current wall time.
type Source func() time.Time

// Clock produces non-decreasing timestamps at nanosecond resolution.
type Clock struct {
	mu     sync.Mutex
	source Source
	last   int64
}

// New creates a Clock backed by time.Now.
func New() *Clock { return NewWithSource(time.Now) }

// NewWithSource creates a Clock backed by the provided source.
func NewWithSource(src Source) *Clock { return &Clock{source: src} }

// Now returns the current time, or the last returned time if the source went
// backwards since.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns := c.source().UnixNano()
	if ns < c.last {
		ns = c.last
	}
	c.last = ns

	return time.Unix(0, ns)
}

// Last returns the last timestamp handed out, or the zero time if none.
func (c *Clock) Last() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == 0 {
		return time.Time{}
	}
	return time.Unix(0, c.last)
}
