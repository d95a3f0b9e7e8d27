package core

import (
	"context"
	"sync"
	"time"

	"threadlab/internal/sched"
)

// Reaper periodically closes sessions that have been idle longer than a TTL so
// abandoned tabs do not keep widget timers alive.
type Reaper struct {
	svc      *Service
	clock    sched.Clock
	ttl      time.Duration
	interval time.Duration

	wake   chan struct{}
	ticker *sched.Ticker
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper builds a reaper that sweeps svc every interval on the service clock.
func NewReaper(svc *Service, ttl, interval time.Duration) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reaper{
		svc:      svc,
		clock:    svc.clock,
		ttl:      ttl,
		interval: interval,
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins sweeping.
func (r *Reaper) Start() {
	r.ticker = sched.Every(r.clock, r.interval, func() {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})
	r.wg.Add(1)
	go r.loop()
}

// Stop halts sweeping and waits for an in-flight sweep to finish.
func (r *Reaper) Stop(ctx context.Context) error {
	r.ticker.Stop()
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep closes idle sessions now and returns their ids.
func (r *Reaper) Sweep() []string {
	return r.svc.ReapIdle(r.ttl)
}

func (r *Reaper) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
			r.Sweep()
		}
	}
}
