package sched

import (
	"sync"
	"time"
)

// Ticker invokes fn every period until stopped. Each firing arms the next one
// so a slow callback delays, rather than overlaps, the following tick.
type Ticker struct {
	clock  Clock
	period time.Duration
	fn     func()

	mu      sync.Mutex
	timer   Timer
	stopped bool
}

// Every starts a ticker on clock. The first tick fires one period from now.
func Every(clock Clock, period time.Duration, fn func()) *Ticker {
	t := &Ticker{clock: clock, period: period, fn: fn}
	t.mu.Lock()
	t.timer = clock.AfterFunc(period, t.fire)
	t.mu.Unlock()
	return t
}

func (t *Ticker) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.timer = t.clock.AfterFunc(t.period, t.fire)
	t.mu.Unlock()
	t.fn()
}

// Period returns the tick interval.
func (t *Ticker) Period() time.Duration { return t.period }

// Stop cancels future ticks. Safe to call more than once and on a nil ticker.
func (t *Ticker) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
