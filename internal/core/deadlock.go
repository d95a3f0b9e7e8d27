package core

import (
	"sync"
	"time"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

const deadlockStep = 1500 * time.Millisecond

// DeadlockVisualizer steps through the scripted two-lock scenario. The final
// step is terminal; only Reset leaves it.
type DeadlockVisualizer struct {
	clock  sched.Clock
	cfg    widgetConfig
	script Script[domain.DeadlockStep]

	mu      sync.Mutex
	step    int
	running bool
	ticker  *sched.Ticker
	gen     uint64
	closed  bool
}

// NewDeadlockVisualizer builds a stopped visualizer at step 0.
func NewDeadlockVisualizer(clock sched.Clock, c domain.Catalog, opts ...WidgetOption) *DeadlockVisualizer {
	return &DeadlockVisualizer{
		clock:  clock,
		cfg:    newWidgetConfig(opts),
		script: NewScript(c.DeadlockSteps...),
	}
}

// Play starts stepping. It is a no-op while running or at the terminal step.
// Reaching the terminal step stops the ticker, so snapshots report
// Running=false and Deadlocked=true from then on.
func (d *DeadlockVisualizer) Play() {
	d.mu.Lock()
	if !d.playLocked() {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.cfg.changed()
}

// Pause stops stepping without moving.
func (d *DeadlockVisualizer) Pause() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.mu.Unlock()
	d.cfg.changed()
}

// Toggle flips between playing and paused.
func (d *DeadlockVisualizer) Toggle() {
	d.mu.Lock()
	if d.running {
		d.stopLocked()
	} else if !d.playLocked() {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.cfg.changed()
}

// Reset returns to step 0 and stops.
func (d *DeadlockVisualizer) Reset() {
	d.mu.Lock()
	d.stopLocked()
	d.step = 0
	d.mu.Unlock()
	d.cfg.changed()
}

// Close cancels the ticker for good.
func (d *DeadlockVisualizer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopLocked()
}

// Step returns the current step index.
func (d *DeadlockVisualizer) Step() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.step
}

// Snapshot returns the rendered state.
func (d *DeadlockVisualizer) Snapshot() domain.DeadlockSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := domain.DeadlockSnapshot{
		Step:       d.step,
		TotalSteps: d.script.Len(),
		Running:    d.running,
		Deadlocked: d.script.Len() > 0 && d.step == d.script.Last(),
	}
	if d.script.Len() > 0 {
		snap.Current = d.script.At(d.step)
	}
	return snap
}

func (d *DeadlockVisualizer) playLocked() bool {
	if d.running || d.closed || d.step >= d.script.Last() {
		return false
	}
	d.running = true
	d.gen++
	gen := d.gen
	d.ticker = sched.Every(d.clock, deadlockStep, func() { d.tick(gen) })
	return true
}

func (d *DeadlockVisualizer) stopLocked() {
	d.running = false
	d.gen++
	d.ticker.Stop()
	d.ticker = nil
}

func (d *DeadlockVisualizer) tick(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.running {
		d.mu.Unlock()
		return
	}
	d.step = d.script.Next(d.step)
	if d.step == d.script.Last() {
		d.stopLocked()
	}
	d.mu.Unlock()
	d.cfg.ticked(WidgetDeadlock)
	d.cfg.changed()
}
