package session

import (
	"context"
	"testing"
	"time"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

func TestGuardBackNavigationThrottle(t *testing.T) {
	clock := newFakeClock()
	g := NewIntegrityGuard(clock, &memMarkerStore{}, uuid.New())

	if got := g.OnBackNavigationAttempt(); got != DecisionConfirm {
		t.Fatalf("first attempt = %s, want confirm", got)
	}

	// A burst inside the throttle window only re-arms the guard.
	clock.Advance(200 * time.Millisecond)
	if got := g.OnBackNavigationAttempt(); got != DecisionReinstateGuard {
		t.Fatalf("burst attempt = %s, want reinstate_guard", got)
	}
	clock.Advance(700 * time.Millisecond)
	if got := g.OnBackNavigationAttempt(); got != DecisionReinstateGuard {
		t.Fatalf("attempt at 900ms = %s, want reinstate_guard", got)
	}

	// Past the window a new attempt prompts again.
	clock.Advance(2 * time.Second)
	if got := g.OnBackNavigationAttempt(); got != DecisionConfirm {
		t.Fatalf("attempt after window = %s, want confirm", got)
	}
}

func TestGuardUnloadWritesMarker(t *testing.T) {
	examID := uuid.New()
	store := &memMarkerStore{}
	g := NewIntegrityGuard(newFakeClock(), store, examID)

	if err := g.OnUnloadAttempt(context.Background()); err != nil {
		t.Fatalf("unload: %v", err)
	}

	m, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if m == nil || m.ExamID != examID || m.Reason != "reload" {
		t.Fatalf("marker = %+v, want exam %s reason reload", m, examID)
	}
}

func TestGuardReloadDetection(t *testing.T) {
	examID := uuid.New()

	tests := []struct {
		name      string
		marker    *model.ReloadMarker
		wantMatch bool
	}{
		{name: "no marker", marker: nil, wantMatch: false},
		{name: "matching marker", marker: &model.ReloadMarker{ExamID: examID, Reason: "reload"}, wantMatch: true},
		{name: "stale marker for another exam", marker: &model.ReloadMarker{ExamID: uuid.New(), Reason: "reload"}, wantMatch: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &memMarkerStore{}
			if tc.marker != nil {
				store.Put(context.Background(), *tc.marker)
			}
			g := NewIntegrityGuard(newFakeClock(), store, examID)

			match, err := g.OnReloadDetected(context.Background())
			if err != nil {
				t.Fatalf("reload detect: %v", err)
			}
			if match != tc.wantMatch {
				t.Fatalf("match = %t, want %t", match, tc.wantMatch)
			}

			// Any seen marker is consumed, matching or stale.
			if tc.marker != nil {
				left, _ := store.Get(context.Background())
				if left != nil {
					t.Fatal("marker not cleared after detection")
				}
			}
		})
	}
}

func TestGuardReloadConsumedOnce(t *testing.T) {
	examID := uuid.New()
	store := &memMarkerStore{}
	g := NewIntegrityGuard(newFakeClock(), store, examID)

	g.OnUnloadAttempt(context.Background())

	match, _ := g.OnReloadDetected(context.Background())
	if !match {
		t.Fatal("first detection should match")
	}
	match, _ = g.OnReloadDetected(context.Background())
	if match {
		t.Fatal("second detection should not match, marker was consumed")
	}
}
