// Package quota enforces the daily submission cap.
package quota

import "sync"

// Counter hands out submission slots. Acquire reserves one slot and
// reports false once the cap is exhausted; Release returns a slot after a
// failed send so the quota only counts submissions that went out.
type Counter interface {
	Acquire() bool
	Release()
	Used() int
	Limit() int
}

// DailyCounter is a mutex-guarded Counter covering one day. It does not
// persist anything itself: callers seed it with the number of submissions
// already recorded today.
type DailyCounter struct {
	mu    sync.Mutex
	limit int
	used  int
}

var _ Counter = (*DailyCounter)(nil)

// NewDailyCounter returns a counter capped at limit with used slots
// already consumed. A limit of zero refuses every acquire.
func NewDailyCounter(limit, used int) *DailyCounter {
	if used < 0 {
		used = 0
	}
	return &DailyCounter{limit: limit, used: used}
}

// Acquire reserves a slot, reporting whether one was available. The check
// and the increment happen under one lock, so concurrent callers can never
// push the count past the limit.
func (c *DailyCounter) Acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used >= c.limit {
		return false
	}
	c.used++
	return true
}

// Release returns a previously acquired slot.
func (c *DailyCounter) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used > 0 {
		c.used--
	}
}

// Used returns the number of consumed slots.
func (c *DailyCounter) Used() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Limit returns the cap the counter was built with.
func (c *DailyCounter) Limit() int { return c.limit }
