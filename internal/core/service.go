package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"threadlab/internal/sched"
	"threadlab/pkg/domain"
)

// Publisher receives session snapshots after every widget change.
// Implementations must not block.
type Publisher interface {
	Publish(sessionID string, snap domain.SessionSnapshot)
	Close(sessionID string)
}

// Watcher is implemented by publishers that know whether anyone is still
// subscribed to a session. The reaper keeps watched sessions alive.
type Watcher interface {
	Watching(sessionID string) bool
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, domain.SessionSnapshot) {}
func (noopPublisher) Close(string)                          {}

// Option configures Service behaviour.
type Option func(*Service)

// WithClock sets the clock that drives every widget timer and timestamp.
func WithClock(clock sched.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the per-operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer used around service operations.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithTickRecorder sets the sink for timer-driven widget advances.
func WithTickRecorder(recorder TickRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.ticks = recorder
		}
	}
}

// WithPublisher sets the snapshot publisher, usually the websocket hub.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithRaceJitter replaces the random write delay of every race simulator.
func WithRaceJitter(fn func() time.Duration) Option {
	return func(s *Service) { s.jitter = fn }
}

// Service owns the live sessions and wraps every widget operation with
// tracing, metrics and logging.
type Service struct {
	catalog   domain.Catalog
	clock     sched.Clock
	logger    Logger
	metrics   MetricsRecorder
	tracer    Tracer
	ticks     TickRecorder
	publisher Publisher
	jitter    func() time.Duration

	seq      atomic.Uint64
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService builds a service over a validated catalogue.
func NewService(catalog domain.Catalog, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog.Clone(),
		clock:     sched.Wall{},
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		ticks:     noopTicks{},
		publisher: noopPublisher{},
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Catalog returns a copy of the lesson catalogue.
func (s *Service) Catalog() domain.Catalog {
	return s.catalog.Clone()
}

// OpenSession mounts a fresh set of widgets under a new id.
func (s *Service) OpenSession(ctx context.Context) (domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot
	err := s.run(ctx, "open_session", "", func(context.Context) error {
		id, err := s.newID()
		if err != nil {
			return err
		}
		sess := newSession(id, sessionConfig{
			clock:    s.clock,
			catalog:  s.catalog,
			onChange: s.publish,
			onTick:   s.ticks.Tick,
			jitter:   s.jitter,
		})
		s.mu.Lock()
		s.sessions[id] = sess
		s.mu.Unlock()
		snap = sess.Snapshot()
		return nil
	})
	return snap, err
}

// Session looks up a live session.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound{Kind: "session", ID: id}
	}
	return sess, nil
}

// Snapshot returns the session's current state and counts as activity.
func (s *Service) Snapshot(ctx context.Context, id string) (domain.SessionSnapshot, error) {
	return s.Do(ctx, "snapshot", id, nil)
}

// Do runs fn against a session, touches its last-seen time and returns the
// resulting snapshot. A nil fn only reads.
func (s *Service) Do(ctx context.Context, operation, id string, fn func(*Session) error) (domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot
	err := s.run(ctx, operation, id, func(context.Context) error {
		sess, err := s.Session(id)
		if err != nil {
			return err
		}
		sess.touch(s.clock.Now())
		if fn != nil {
			if err := fn(sess); err != nil {
				return err
			}
		}
		snap = sess.Snapshot()
		return nil
	})
	return snap, err
}

// CloseSession tears down a session and its subscribers.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	return s.run(ctx, "close_session", id, func(context.Context) error {
		s.mu.Lock()
		sess, ok := s.sessions[id]
		delete(s.sessions, id)
		s.mu.Unlock()
		if !ok {
			return domain.ErrNotFound{Kind: "session", ID: id}
		}
		s.teardown(sess)
		return nil
	})
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionIDs returns the live session ids in sorted order.
func (s *Service) SessionIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// ReapIdle closes every session whose last activity is older than ttl and
// returns the closed ids. Sessions a Watcher publisher still streams to are
// touched instead.
func (s *Service) ReapIdle(ttl time.Duration) []string {
	now := s.clock.Now()
	cutoff := now.Add(-ttl)
	watcher, _ := s.publisher.(Watcher)
	s.mu.Lock()
	var idle []*Session
	for id, sess := range s.sessions {
		if !sess.LastSeen().Before(cutoff) {
			continue
		}
		if watcher != nil && watcher.Watching(id) {
			sess.touch(now)
			continue
		}
		idle = append(idle, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(idle))
	for _, sess := range idle {
		s.teardown(sess)
		ids = append(ids, sess.ID())
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		s.logger.Info("reaped idle sessions", "count", len(ids), "ttl", ttl)
	}
	return ids
}

// Shutdown closes every session.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	for _, sess := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.teardown(sess)
	}
	s.logger.Info("service shut down", "sessions", len(all))
	return nil
}

func (s *Service) teardown(sess *Session) {
	if sess.Close() {
		s.publisher.Close(sess.ID())
	}
}

func (s *Service) publish(sess *Session) {
	s.publisher.Publish(sess.ID(), sess.Snapshot())
}

func (s *Service) run(ctx context.Context, operation, id string, fn func(context.Context) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, operation)
	started := time.Now()
	defer func() {
		elapsed := time.Since(started)
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, elapsed)
		if err != nil {
			s.logger.Error("operation failed", "operation", operation, "session", id, "error", err)
			return
		}
		s.logger.Debug("operation completed", "operation", operation, "session", id, "duration", elapsed)
	}()
	return fn(ctx)
}

func (s *Service) newID() (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return fmt.Sprintf("s%d-%s", s.seq.Inc(), hex.EncodeToString(b[:])), nil
}
