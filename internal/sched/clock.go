// Package sched provides the timer primitives the simulation widgets run on.
// Widgets schedule callbacks; they never block or spawn work of their own.
package sched

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// Clock schedules callbacks after a delay.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Wall is a Clock backed by the runtime timer wheel.
type Wall struct{}

// Now returns the current UTC time.
func (Wall) Now() time.Time { return time.Now().UTC() }

// AfterFunc calls fn on its own goroutine after d.
func (Wall) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
