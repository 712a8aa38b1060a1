package alert

import (
	"sync"
	"time"
)

// CooldownTracker suppresses duplicate alerts within a cooldown window.
type CooldownTracker struct {
	mu        sync.Mutex
	lastFired map[string]time.Time
	now       func() time.Time
}

// NewCooldownTracker creates a tracker. A nil clock means time.Now.
func NewCooldownTracker(now func() time.Time) *CooldownTracker {
	if now == nil {
		now = time.Now
	}
	return &CooldownTracker{lastFired: make(map[string]time.Time), now: now}
}

// Allow returns true if key has not fired within cooldown. If allowed,
// the current time is recorded as its last fire time.
func (c *CooldownTracker) Allow(key string, cooldown time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if last, ok := c.lastFired[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	c.lastFired[key] = now
	return true
}
