package core

import (
	"fmt"
	"sync"

	"threadlab/pkg/domain"
)

// Thread count bounds of the CPU core model.
const (
	MinThreads     = 1
	MaxThreads     = 8
	DefaultThreads = 4
)

// CPUModel is the settings model behind the CPU core scene. Every displayed
// figure is derived from thread count, running flag and view mode.
type CPUModel struct {
	cfg widgetConfig

	mu      sync.Mutex
	threads int
	running bool
	mode    domain.ViewMode
}

// NewCPUModel returns a running multi-core model with the default thread count.
func NewCPUModel(opts ...WidgetOption) *CPUModel {
	return &CPUModel{
		cfg:     newWidgetConfig(opts),
		threads: DefaultThreads,
		running: true,
		mode:    domain.ViewMulti,
	}
}

// SetThreadCount changes the number of simulated threads.
func (m *CPUModel) SetThreadCount(n int) error {
	if n < MinThreads || n > MaxThreads {
		return fmt.Errorf("%w: thread count %d outside [%d,%d]", domain.ErrInvalidSetting, n, MinThreads, MaxThreads)
	}
	m.set(func() { m.threads = n })
	return nil
}

// SetViewMode switches between the single and multi core scene.
func (m *CPUModel) SetViewMode(mode domain.ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: view mode %q", domain.ErrInvalidSetting, mode)
	}
	m.set(func() { m.mode = mode })
	return nil
}

func (m *CPUModel) Start()  { m.set(func() { m.running = true }) }
func (m *CPUModel) Pause()  { m.set(func() { m.running = false }) }
func (m *CPUModel) Toggle() { m.set(func() { m.running = !m.running }) }

// Snapshot returns the derived scene and stats.
func (m *CPUModel) Snapshot() domain.CPUSnapshot {
	m.mu.Lock()
	threads, running, mode := m.threads, m.running, m.mode
	m.mu.Unlock()
	return deriveCPU(threads, running, mode)
}

func (m *CPUModel) set(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
	m.cfg.changed()
}

func deriveCPU(threads int, running bool, mode domain.ViewMode) domain.CPUSnapshot {
	cores := mode.Cores()
	snap := domain.CPUSnapshot{
		ThreadCount: threads,
		Running:     running,
		ViewMode:    mode,
		Cores:       make([]domain.CoreView, cores),
		Particles:   []domain.Particle{},
	}
	for i := range snap.Cores {
		snap.Cores[i] = domain.CoreView{Index: i, Active: running && i < threads}
	}
	if !running {
		return snap
	}
	for j := range min(threads, cores*2) {
		snap.Particles = append(snap.Particles, domain.Particle{Index: j, Core: j % cores})
	}
	snap.Stats = domain.CPUStats{
		ActiveThreads:   threads,
		CPUUsage:        min(threads*25, 100),
		ContextSwitches: threads * 3 / 2,
		Throughput:      threads * 250,
	}
	return snap
}
