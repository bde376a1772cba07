package clock

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests.
//
// Time only moves when Advance or Set is called. Waiters registered
// via After or NewTicker fire during Advance, in deadline order.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	period   time.Duration // 0 for one-shot After waiters
	ch       chan time.Time
	stopped  bool
}

// Fake returns a FakeClock starting at a fixed, arbitrary instant.
func Fake() *FakeClock {
	return &FakeClock{
		now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// FakeAt returns a FakeClock starting at the given instant.
func FakeAt(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set jumps the clock to the given instant, firing any waiters whose
// deadline has passed.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
	c.fireLocked()
}

// Advance moves the clock forward by d, firing due waiters.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.fireLocked()
}

// After returns a channel that receives once the fake clock has been
// advanced past the deadline.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &fakeWaiter{
		deadline: c.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		w.ch <- c.now
		return w.ch
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// NewTicker returns a ticker driven by Advance.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	w := &fakeWaiter{
		deadline: c.now.Add(d),
		period:   d,
		ch:       make(chan time.Time, 1),
	}
	c.waiters = append(c.waiters, w)

	return &Ticker{
		C: w.ch,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			w.stopped = true
		},
	}
}

// Sleep blocks until the clock is advanced past the deadline.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// fireLocked delivers ticks to all waiters whose deadline has passed.
// Caller holds c.mu.
func (c *FakeClock) fireLocked() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if w.stopped {
			continue
		}
		for !w.deadline.After(c.now) {
			select {
			case w.ch <- c.now:
			default:
				// Consumer fell behind; drop the tick like time.Ticker.
			}
			if w.period == 0 {
				break
			}
			w.deadline = w.deadline.Add(w.period)
		}
		if w.period > 0 || w.deadline.After(c.now) {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}
