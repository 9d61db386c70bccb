// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mockable

import (
	"sync"
	"time"
)

// Clock reads wall time unless it has been pinned with Set, in which case
// it stays at the pinned instant until moved with Set or Advance.
// It is safe for concurrent use.
type Clock struct {
	mu    sync.RWMutex
	faked bool
	time  time.Time
}

// Set pins the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faked = true
	c.time = t
}

// Advance moves a pinned clock forward by d. On an unpinned clock it pins
// the clock at now+d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.faked {
		c.time = time.Now()
		c.faked = true
	}
	c.time = c.time.Add(d)
}

// Sync this clock with global time
func (c *Clock) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faked = false
}

// Time returns the time on this clock
func (c *Clock) Time() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.faked {
		return c.time
	}
	return time.Now()
}

// Unix returns the unix timestamp on this clock, clamped at zero.
func (c *Clock) Unix() uint64 {
	return uint64(max(c.Time().Unix(), 0))
}
