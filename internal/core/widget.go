package core

import (
	"math/rand/v2"
	"time"
)

// Widget names one simulation widget. It labels metrics and log lines.
type Widget string

// Widgets hosted by a session.
const (
	WidgetLifecycle     Widget = "lifecycle"
	WidgetRace          Widget = "race"
	WidgetDeadlock      Widget = "deadlock"
	WidgetContextSwitch Widget = "context_switch"
	WidgetComparator    Widget = "comparator"
	WidgetCPU           Widget = "cpu"
)

type widgetConfig struct {
	onChange func()
	onTick   func(Widget)
	jitter   func() time.Duration
}

// WidgetOption customises a widget at construction.
type WidgetOption func(*widgetConfig)

// WithChangeHook registers fn to run after every state change. It is called
// without any widget lock held.
func WithChangeHook(fn func()) WidgetOption {
	return func(c *widgetConfig) { c.onChange = fn }
}

// WithTickHook registers fn to run after every timer-driven advance.
func WithTickHook(fn func(Widget)) WidgetOption {
	return func(c *widgetConfig) { c.onTick = fn }
}

// WithJitter replaces the random delay source of the race simulator.
func WithJitter(fn func() time.Duration) WidgetOption {
	return func(c *widgetConfig) { c.jitter = fn }
}

func newWidgetConfig(opts []WidgetOption) widgetConfig {
	cfg := widgetConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.jitter == nil {
		cfg.jitter = randomJitter
	}
	return cfg
}

func (c widgetConfig) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c widgetConfig) ticked(w Widget) {
	if c.onTick != nil {
		c.onTick(w)
	}
}

// randomJitter returns a delay in [0, raceJitterMax).
func randomJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(raceJitterMax)))
}
