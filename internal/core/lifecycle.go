package core

import (
	"fmt"
	"sync"
	"time"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

const lifecycleStep = 1000 * time.Millisecond

// Lifecycle drives the thread lifecycle diagram: manual selection of any
// state plus a scripted auto-play walk.
type Lifecycle struct {
	clock       sched.Clock
	cfg         widgetConfig
	states      []domain.ThreadState
	transitions []domain.Transition
	path        Script[domain.ThreadStateID]

	mu      sync.Mutex
	active  domain.ThreadStateID
	playing bool
	cursor  int
	ticker  *sched.Ticker
	gen     uint64
	closed  bool
}

// NewLifecycle builds the widget from the catalogue; the first state is active.
func NewLifecycle(clock sched.Clock, c domain.Catalog, opts ...WidgetOption) *Lifecycle {
	l := &Lifecycle{
		clock:       clock,
		cfg:         newWidgetConfig(opts),
		states:      c.Clone().States,
		transitions: append([]domain.Transition(nil), c.Transitions...),
		path:        NewScript(c.LifecyclePath...),
	}
	if len(l.states) > 0 {
		l.active = l.states[0].ID
	}
	return l
}

// SelectState makes id the active state. It does not consult the transition
// edges and does not interrupt auto-play.
func (l *Lifecycle) SelectState(id domain.ThreadStateID) error {
	l.mu.Lock()
	if _, ok := l.lookup(id); !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownState, id)
	}
	l.active = id
	l.mu.Unlock()
	l.cfg.changed()
	return nil
}

// PlayLifecycle starts auto-play and reports whether it did. It is a no-op
// while a playback is already running.
func (l *Lifecycle) PlayLifecycle() bool {
	l.mu.Lock()
	if l.playing || l.closed || l.path.Len() == 0 {
		l.mu.Unlock()
		return false
	}
	l.playing = true
	l.cursor = 0
	l.gen++
	gen := l.gen
	l.ticker = sched.Every(l.clock, lifecycleStep, func() { l.tick(gen) })
	l.mu.Unlock()
	l.cfg.changed()
	return true
}

func (l *Lifecycle) tick(gen uint64) {
	l.mu.Lock()
	if gen != l.gen || !l.playing {
		l.mu.Unlock()
		return
	}
	l.active = l.path.At(l.cursor)
	l.cursor++
	if l.cursor >= l.path.Len() {
		l.playing = false
		l.ticker.Stop()
		l.ticker = nil
	}
	l.mu.Unlock()
	l.cfg.ticked(WidgetLifecycle)
	l.cfg.changed()
}

// Active returns the active state id.
func (l *Lifecycle) Active() domain.ThreadStateID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Playing reports whether auto-play is in progress.
func (l *Lifecycle) Playing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playing
}

// Snapshot returns the rendered state.
func (l *Lifecycle) Snapshot() domain.LifecycleSnapshot {
	l.mu.Lock()
	active, playing := l.active, l.playing
	l.mu.Unlock()

	state, _ := l.lookup(active)
	highlighted := make([]domain.Transition, 0, len(l.transitions))
	for _, t := range l.transitions {
		if t.Touches(active) {
			highlighted = append(highlighted, t)
		}
	}
	states := make([]domain.ThreadState, len(l.states))
	copy(states, l.states)
	return domain.LifecycleSnapshot{
		Active:      active,
		State:       state,
		Playing:     playing,
		States:      states,
		Highlighted: highlighted,
	}
}

// Close cancels auto-play. The widget ignores further playback requests.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.gen++
	l.playing = false
	l.ticker.Stop()
	l.ticker = nil
}

func (l *Lifecycle) lookup(id domain.ThreadStateID) (domain.ThreadState, bool) {
	for _, s := range l.states {
		if s.ID == id {
			return s, true
		}
	}
	return domain.ThreadState{}, false
}
