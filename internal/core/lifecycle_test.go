package core

import (
	"errors"
	"testing"

	"threadlab/internal/catalog"
	"threadlab/pkg/domain"
)

func TestLifecycleStartsAtNew(t *testing.T) {
	l := NewLifecycle(newManual(), catalog.Default())
	snap := l.Snapshot()
	if snap.Active != domain.StateNew || snap.Playing {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if snap.State.Name != "New" || len(snap.States) != 5 {
		t.Fatalf("unexpected state detail %+v", snap.State)
	}
	if len(snap.Highlighted) != 1 || snap.Highlighted[0].To != domain.StateReady {
		t.Fatalf("expected only new->ready highlighted, got %+v", snap.Highlighted)
	}
}

func TestLifecycleSelectState(t *testing.T) {
	changes := &changeCounter{}
	l := NewLifecycle(newManual(), catalog.Default(), changes.hook())
	if err := l.SelectState(domain.StateTerminated); err != nil {
		t.Fatalf("select: %v", err)
	}
	if l.Active() != domain.StateTerminated {
		t.Fatalf("expected terminated, got %s", l.Active())
	}
	if err := l.SelectState("zombie"); !errors.Is(err, domain.ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
	if l.Active() != domain.StateTerminated {
		t.Fatalf("unknown id changed state to %s", l.Active())
	}
	if changes.count() != 1 {
		t.Fatalf("expected one change notification, got %d", changes.count())
	}
}

func TestLifecycleRunningHighlightsFourEdges(t *testing.T) {
	l := NewLifecycle(newManual(), catalog.Default())
	_ = l.SelectState(domain.StateRunning)
	if got := len(l.Snapshot().Highlighted); got != 4 {
		t.Fatalf("expected 4 edges touching running, got %d", got)
	}
}

func TestLifecyclePlaybackWalksPath(t *testing.T) {
	clock := newManual()
	l := NewLifecycle(clock, catalog.Default())
	if !l.PlayLifecycle() {
		t.Fatalf("expected playback to start")
	}
	if l.PlayLifecycle() {
		t.Fatalf("second play must be ignored while playing")
	}
	want := []domain.ThreadStateID{
		domain.StateNew, domain.StateReady, domain.StateRunning, domain.StateWaiting,
		domain.StateReady, domain.StateRunning, domain.StateTerminated,
	}
	for i, id := range want {
		clock.Advance(lifecycleStep)
		if got := l.Active(); got != id {
			t.Fatalf("tick %d: expected %s, got %s", i+1, id, got)
		}
	}
	if l.Playing() {
		t.Fatalf("playback should finish after the last step")
	}
	if clock.Pending() != 0 {
		t.Fatalf("expected no timers after playback, got %d", clock.Pending())
	}
	clock.Advance(10 * lifecycleStep)
	if l.Active() != domain.StateTerminated {
		t.Fatalf("state moved after playback ended: %s", l.Active())
	}
	if !l.PlayLifecycle() {
		t.Fatalf("expected replay after playback ended")
	}
}

func TestLifecycleSelectDuringPlaybackKeepsPlaying(t *testing.T) {
	clock := newManual()
	l := NewLifecycle(clock, catalog.Default())
	l.PlayLifecycle()
	clock.Advance(2 * lifecycleStep)
	_ = l.SelectState(domain.StateTerminated)
	if !l.Playing() {
		t.Fatalf("select must not cancel playback")
	}
	clock.Advance(lifecycleStep)
	if l.Active() != domain.StateRunning {
		t.Fatalf("playback should overwrite the selection, got %s", l.Active())
	}
}

func TestLifecycleCloseCancelsPlayback(t *testing.T) {
	clock := newManual()
	changes := &changeCounter{}
	l := NewLifecycle(clock, catalog.Default(), changes.hook())
	l.PlayLifecycle()
	clock.Advance(lifecycleStep)
	l.Close()
	before := changes.count()
	clock.Advance(10 * lifecycleStep)
	if changes.count() != before || l.Active() != domain.StateNew {
		t.Fatalf("callbacks ran after close")
	}
	if l.PlayLifecycle() {
		t.Fatalf("play after close must be refused")
	}
}
