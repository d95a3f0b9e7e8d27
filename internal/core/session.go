package core

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

// Session is one browser tab's set of mounted widgets. Widgets never share
// state with other sessions.
type Session struct {
	id      string
	created time.Time

	lifecycle *Lifecycle
	race      *RaceSimulator
	deadlock  *DeadlockVisualizer
	switcher  *ContextSwitcher
	compare   *Comparator
	cpu       *CPUModel

	mu       sync.Mutex
	lastSeen time.Time
	closed   atomic.Bool
	onChange func(*Session)
}

type sessionConfig struct {
	clock    sched.Clock
	catalog  domain.Catalog
	onChange func(*Session)
	onTick   func(Widget)
	jitter   func() time.Duration
}

func newSession(id string, cfg sessionConfig) *Session {
	now := cfg.clock.Now()
	s := &Session{id: id, created: now, lastSeen: now, onChange: cfg.onChange}
	opts := []WidgetOption{WithChangeHook(s.changed), WithTickHook(cfg.onTick)}
	if cfg.jitter != nil {
		opts = append(opts, WithJitter(cfg.jitter))
	}
	s.lifecycle = NewLifecycle(cfg.clock, cfg.catalog, opts...)
	s.race = NewRaceSimulator(cfg.clock, cfg.catalog, opts...)
	s.deadlock = NewDeadlockVisualizer(cfg.clock, cfg.catalog, opts...)
	s.switcher = NewContextSwitcher(cfg.clock, cfg.catalog, opts...)
	s.compare = NewComparator(cfg.catalog, opts...)
	s.cpu = NewCPUModel(opts...)
	return s
}

func (s *Session) ID() string                      { return s.id }
func (s *Session) Lifecycle() *Lifecycle           { return s.lifecycle }
func (s *Session) Race() *RaceSimulator            { return s.race }
func (s *Session) Deadlock() *DeadlockVisualizer   { return s.deadlock }
func (s *Session) ContextSwitch() *ContextSwitcher { return s.switcher }
func (s *Session) Comparator() *Comparator         { return s.compare }
func (s *Session) CPU() *CPUModel                  { return s.cpu }
func (s *Session) Closed() bool                    { return s.closed.Load() }

// LastSeen returns the time of the most recent client operation.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Snapshot aggregates every widget's rendered state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ID:            s.id,
		CreatedAt:     s.created,
		LastSeen:      s.LastSeen(),
		Lifecycle:     s.lifecycle.Snapshot(),
		Race:          s.race.Snapshot(),
		Deadlock:      s.deadlock.Snapshot(),
		ContextSwitch: s.switcher.Snapshot(),
		Comparator:    s.compare.Snapshot(),
		CPU:           s.cpu.Snapshot(),
	}
}

// Close tears down every widget timer. It reports false when the session was
// already closed.
func (s *Session) Close() bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}
	s.lifecycle.Close()
	s.race.Close()
	s.deadlock.Close()
	s.switcher.Close()
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

func (s *Session) changed() {
	if s.closed.Load() || s.onChange == nil {
		return
	}
	s.onChange(s)
}
