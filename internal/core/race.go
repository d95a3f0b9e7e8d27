package core

import (
	"fmt"
	"sync"
	"time"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

const (
	raceTick        = 500 * time.Millisecond
	raceJitterMax   = 100 * time.Millisecond
	raceLogCapacity = 5
)

// RaceSimulator illustrates a lost update: each tick both actors read the
// same counter value and later both claim to have written value+1, while the
// shared counter itself advances by exactly one.
type RaceSimulator struct {
	clock  sched.Clock
	cfg    widgetConfig
	actors [2]string

	mu       sync.Mutex
	counter  int
	observed [2]int
	log      []string
	running  bool
	ticker   *sched.Ticker
	pending  map[uint64]sched.Timer
	nextID   uint64
	run      uint64 // invalidates ticks on pause, reset, close
	epoch    uint64 // invalidates delayed writes on reset, close
	closed   bool
}

// NewRaceSimulator builds a stopped simulator with a zeroed counter.
func NewRaceSimulator(clock sched.Clock, c domain.Catalog, opts ...WidgetOption) *RaceSimulator {
	return &RaceSimulator{
		clock:   clock,
		cfg:     newWidgetConfig(opts),
		actors:  c.RaceActors,
		log:     make([]string, 0, raceLogCapacity),
		pending: make(map[uint64]sched.Timer),
	}
}

// Start begins ticking. It is a no-op while running.
func (r *RaceSimulator) Start() {
	r.mu.Lock()
	if r.running || r.closed {
		r.mu.Unlock()
		return
	}
	r.startLocked()
	r.mu.Unlock()
	r.cfg.changed()
}

// Pause stops ticking. Writes scheduled by earlier ticks still land.
func (r *RaceSimulator) Pause() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.stopLocked()
	r.mu.Unlock()
	r.cfg.changed()
}

// Toggle flips between running and paused.
func (r *RaceSimulator) Toggle() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.running {
		r.stopLocked()
	} else {
		r.startLocked()
	}
	r.mu.Unlock()
	r.cfg.changed()
}

// Reset stops ticking, cancels writes that have not landed yet, and zeroes
// the counter, both observed values and the log.
func (r *RaceSimulator) Reset() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
	r.cfg.changed()
}

// Close releases every timer owned by the simulator.
func (r *RaceSimulator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.resetLocked()
}

// Running reports whether the simulator is ticking.
func (r *RaceSimulator) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Snapshot returns the rendered state.
func (r *RaceSimulator) Snapshot() domain.RaceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RaceSnapshot{
		Counter:   r.counter,
		ObservedA: r.observed[0],
		ObservedB: r.observed[1],
		Actors:    r.actors,
		Log:       append([]string(nil), r.log...),
		Running:   r.running,
	}
}

func (r *RaceSimulator) startLocked() {
	r.running = true
	r.run++
	run := r.run
	r.ticker = sched.Every(r.clock, raceTick, func() { r.tick(run) })
}

func (r *RaceSimulator) stopLocked() {
	r.running = false
	r.run++
	r.ticker.Stop()
	r.ticker = nil
}

func (r *RaceSimulator) resetLocked() {
	r.stopLocked()
	r.epoch++
	for id, t := range r.pending {
		t.Stop()
		delete(r.pending, id)
	}
	r.counter = 0
	r.observed = [2]int{}
	r.log = r.log[:0]
}

func (r *RaceSimulator) tick(run uint64) {
	r.mu.Lock()
	if run != r.run || !r.running {
		r.mu.Unlock()
		return
	}
	read := r.counter
	epoch := r.epoch
	for actor := range r.observed {
		r.nextID++
		id := r.nextID
		r.pending[id] = r.clock.AfterFunc(r.cfg.jitter(), func() { r.write(epoch, id, actor, read) })
	}
	r.counter++
	r.mu.Unlock()
	r.cfg.ticked(WidgetRace)
	r.cfg.changed()
}

func (r *RaceSimulator) write(epoch, id uint64, actor, read int) {
	r.mu.Lock()
	delete(r.pending, id)
	if epoch != r.epoch {
		r.mu.Unlock()
		return
	}
	r.observed[actor] = read + 1
	r.appendLog(fmt.Sprintf("%s: Read %d, Write %d", r.actors[actor], read, read+1))
	r.mu.Unlock()
	r.cfg.changed()
}

func (r *RaceSimulator) appendLog(entry string) {
	if len(r.log) == raceLogCapacity {
		copy(r.log, r.log[1:])
		r.log = r.log[:raceLogCapacity-1]
	}
	r.log = append(r.log, entry)
}
