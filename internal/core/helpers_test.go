package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"threadlab/internal/catalog"
	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

const fixedJitter = 10 * time.Millisecond

func newManual() *sched.Manual { return sched.NewManual(epoch) }

func fixedDelay() time.Duration { return fixedJitter }

func newTestService(t *testing.T, opts ...Option) (*Service, *sched.Manual) {
	t.Helper()
	clock := newManual()
	opts = append([]Option{WithClock(clock), WithRaceJitter(fixedDelay)}, opts...)
	svc := NewService(catalog.Default(), opts...)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })
	return svc, clock
}

type changeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *changeCounter) hook() WidgetOption {
	return WithChangeHook(func() {
		c.mu.Lock()
		c.n++
		c.mu.Unlock()
	})
}

func (c *changeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
	c.mu.Unlock()
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	mu      sync.Mutex
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.mu.Lock()
	c.started = append(c.started, op)
	c.mu.Unlock()
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.mu.Lock()
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
	s.tracer.mu.Unlock()
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) record(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+":"+msg)
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.record("d", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.record("i", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.record("w", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.record("e", msg) }

func (l *captureLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e == entry {
			return true
		}
	}
	return false
}

type capturePublisher struct {
	mu        sync.Mutex
	published map[string]int
	closed    []string
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{published: make(map[string]int)}
}

func (p *capturePublisher) Publish(id string, _ domain.SessionSnapshot) {
	p.mu.Lock()
	p.published[id]++
	p.mu.Unlock()
}

func (p *capturePublisher) Close(id string) {
	p.mu.Lock()
	p.closed = append(p.closed, id)
	p.mu.Unlock()
}

func (p *capturePublisher) count(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[id]
}

func (p *capturePublisher) closedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.closed...)
}

func raceLogLine(actor string, read int) string {
	return fmt.Sprintf("%s: Read %d, Write %d", actor, read, read+1)
}
