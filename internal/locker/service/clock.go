package service

import (
	"sync"
	"time"
)

// Millis is a monotonic millisecond reading that wraps at 2^32. Elapsed
// time is always computed with Since, which stays correct across a wrap.
type Millis uint32

func Since(now, then Millis) Millis { return now - then }

func ms(d time.Duration) Millis { return Millis(d / time.Millisecond) }

type Clock interface {
	Now() Millis
}

// SystemClock counts milliseconds from its creation.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() Millis {
	return Millis(uint32(time.Since(c.start).Milliseconds()))
}

// ManualClock only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now Millis
}

func NewManualClock(start Millis) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(t Millis) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d Millis) Millis {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
