package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"
)

var expvarSeq atomic.Uint64

const (
	resultSuccess = "success"
	resultError   = "error"
)

// ExpvarMetricsRecorder exports call counts, cumulative latency and widget
// ticks as one expvar map. It satisfies MetricsRecorder and TickRecorder.
//
// The published value has the shape
//
//	{"calls": {op: {"success": n, "error": n}}, "latency_ms": {op: ms}, "ticks": {widget: n}}
type ExpvarMetricsRecorder struct {
	name    string
	calls   *expvar.Map
	latency *expvar.Map
	ticks   *expvar.Map

	mu  sync.Mutex // guards creation of per-operation maps
	ops map[string]*expvar.Map
}

// ExpvarMetricsSnapshot mirrors the published expvar value.
type ExpvarMetricsSnapshot struct {
	Results     map[string]map[string]int64 `json:"calls"`
	DurationsMS map[string]float64          `json:"latency_ms"`
	Ticks       map[Widget]int64            `json:"ticks"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated threadlab_metrics_<n> name when name is empty. expvar panics on
// duplicate names.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("threadlab_metrics_%d", expvarSeq.Inc())
	}
	r := &ExpvarMetricsRecorder{
		name:    name,
		calls:   new(expvar.Map).Init(),
		latency: new(expvar.Map).Init(),
		ticks:   new(expvar.Map).Init(),
		ops:     make(map[string]*expvar.Map),
	}
	root := expvar.NewMap(name)
	root.Set("calls", r.calls)
	root.Set("latency_ms", r.latency)
	root.Set("ticks", r.ticks)
	return r
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Observe records a service operation outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := resultError
	if success {
		result = resultSuccess
	}
	r.opCalls(operation).Add(result, 1)
	r.latency.AddFloat(operation, float64(duration)/float64(time.Millisecond))
}

// Tick counts one timer-driven widget advance.
func (r *ExpvarMetricsRecorder) Tick(widget Widget) {
	r.ticks.Add(string(widget), 1)
}

// Snapshot decodes the current expvar value.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	snap := ExpvarMetricsSnapshot{
		Results:     make(map[string]map[string]int64),
		DurationsMS: make(map[string]float64),
		Ticks:       make(map[Widget]int64),
	}
	r.calls.Do(func(kv expvar.KeyValue) {
		counts := make(map[string]int64)
		kv.Value.(*expvar.Map).Do(func(c expvar.KeyValue) {
			counts[c.Key] = c.Value.(*expvar.Int).Value()
		})
		snap.Results[kv.Key] = counts
	})
	r.latency.Do(func(kv expvar.KeyValue) {
		snap.DurationsMS[kv.Key] = kv.Value.(*expvar.Float).Value()
	})
	r.ticks.Do(func(kv expvar.KeyValue) {
		snap.Ticks[Widget(kv.Key)] = kv.Value.(*expvar.Int).Value()
	})
	return snap
}

func (r *ExpvarMetricsRecorder) opCalls(operation string) *expvar.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.ops[operation]
	if !ok {
		m = new(expvar.Map).Init()
		r.ops[operation] = m
		r.calls.Set(operation, m)
	}
	return m
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps the most
// recent ones in a ring.
type JSONTraceTracer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	ring  []JSONTraceEntry
	next  int
	full  bool
	limit int
}

// NewJSONTracer writes to w, which may be nil. At most limit spans are kept;
// limit <= 0 keeps all of them.
func NewJSONTracer(w io.Writer, limit int) *JSONTraceTracer {
	t := &JSONTraceTracer{limit: limit}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	if limit > 0 {
		t.ring = make([]JSONTraceEntry, limit)
	}
	return t
}

// Entries returns the kept spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 {
		return append([]JSONTraceEntry(nil), t.ring...)
	}
	if !t.full {
		return append([]JSONTraceEntry(nil), t.ring[:t.next]...)
	}
	out := make([]JSONTraceEntry, 0, t.limit)
	out = append(out, t.ring[t.next:]...)
	return append(out, t.ring[:t.next]...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

func (t *JSONTraceTracer) record(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit <= 0 {
		t.ring = append(t.ring, entry)
	} else {
		t.ring[t.next] = entry
		t.next = (t.next + 1) % t.limit
		t.full = t.full || t.next == 0
	}
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
	ended     atomic.Bool
}

func (s *jsonTraceSpan) End(err error) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     resultSuccess,
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = resultError
		entry.Error = err.Error()
	}
	s.tracer.record(entry)
}
