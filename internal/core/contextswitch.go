package core

import (
	"fmt"
	"sync"
	"time"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

// Speed bounds of the context switch demo.
const (
	MinSwitchSpeed     = 10
	MaxSwitchSpeed     = 100
	DefaultSwitchSpeed = 50
)

// SwitchInterval is the tick period for speed: 1000ms - speed*8ms.
func SwitchInterval(speed int) time.Duration {
	return time.Duration(1000-speed*8) * time.Millisecond
}

// ContextSwitcher rotates the active marker among named actors and counts
// switches.
type ContextSwitcher struct {
	clock  sched.Clock
	cfg    widgetConfig
	actors []string

	mu      sync.Mutex
	active  int
	count   int
	speed   int
	running bool
	ticker  *sched.Ticker
	gen     uint64
	closed  bool
}

// NewContextSwitcher builds a stopped demo at the default speed.
func NewContextSwitcher(clock sched.Clock, c domain.Catalog, opts ...WidgetOption) *ContextSwitcher {
	return &ContextSwitcher{
		clock:  clock,
		cfg:    newWidgetConfig(opts),
		actors: append([]string(nil), c.SwitchActors...),
		speed:  DefaultSwitchSpeed,
	}
}

// Start begins switching. It is a no-op while running.
func (s *ContextSwitcher) Start() {
	s.mu.Lock()
	if s.running || s.closed {
		s.mu.Unlock()
		return
	}
	s.startLocked()
	s.mu.Unlock()
	s.cfg.changed()
}

// Pause stops switching.
func (s *ContextSwitcher) Pause() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.stopLocked()
	s.mu.Unlock()
	s.cfg.changed()
}

// Toggle flips between running and paused.
func (s *ContextSwitcher) Toggle() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.stopLocked()
	} else {
		s.startLocked()
	}
	s.mu.Unlock()
	s.cfg.changed()
}

// Reset zeroes the switch count and stops. The active actor is kept.
func (s *ContextSwitcher) Reset() {
	s.mu.Lock()
	s.stopLocked()
	s.count = 0
	s.mu.Unlock()
	s.cfg.changed()
}

// SetSpeed changes the switching speed. A running ticker is re-armed with the
// new period.
func (s *ContextSwitcher) SetSpeed(speed int) error {
	if speed < MinSwitchSpeed || speed > MaxSwitchSpeed {
		return fmt.Errorf("%w: speed %d outside [%d,%d]", domain.ErrInvalidSetting, speed, MinSwitchSpeed, MaxSwitchSpeed)
	}
	s.mu.Lock()
	s.speed = speed
	if s.running {
		s.stopLocked()
		s.startLocked()
	}
	s.mu.Unlock()
	s.cfg.changed()
	return nil
}

// Close cancels the ticker for good.
func (s *ContextSwitcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopLocked()
}

// Snapshot returns the rendered state.
func (s *ContextSwitcher) Snapshot() domain.ContextSwitchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domain.ContextSwitchSnapshot{
		Actors:      append([]string(nil), s.actors...),
		ActiveIndex: s.active,
		SwitchCount: s.count,
		Speed:       s.speed,
		IntervalMS:  SwitchInterval(s.speed).Milliseconds(),
		OverheadMS:  s.count / 2,
		Running:     s.running,
	}
	if s.active < len(s.actors) {
		snap.ActiveActor = s.actors[s.active]
	}
	return snap
}

func (s *ContextSwitcher) startLocked() {
	s.running = true
	s.gen++
	gen := s.gen
	s.ticker = sched.Every(s.clock, SwitchInterval(s.speed), func() { s.tick(gen) })
}

func (s *ContextSwitcher) stopLocked() {
	s.running = false
	s.gen++
	s.ticker.Stop()
	s.ticker = nil
}

func (s *ContextSwitcher) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.running || len(s.actors) == 0 {
		s.mu.Unlock()
		return
	}
	s.active = (s.active + 1) % len(s.actors)
	s.count++
	s.mu.Unlock()
	s.cfg.ticked(WidgetContextSwitch)
	s.cfg.changed()
}
