package session

import (
	"context"
	"time"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// Decision is an IntegrityGuard verdict on an abandonment signal. The
// binding to actual browser events lives in the transport adapter; the
// guard only decides.
type Decision string

const (
	// DecisionAllow lets the action proceed with no intervention.
	DecisionAllow Decision = "allow"
	// DecisionConfirm blocks the action behind an irreversible-auto-submit
	// confirmation.
	DecisionConfirm Decision = "confirm"
	// DecisionReinstateGuard coalesces a repeated signal: re-arm the
	// protective history entry without prompting again.
	DecisionReinstateGuard Decision = "reinstate_guard"
	// DecisionForceSubmit routes straight to submission, no confirmation.
	DecisionForceSubmit Decision = "force_submit"
)

// backNavThrottle coalesces rapid or programmatic history events so a
// burst produces one prompt, not a dialog storm.
const backNavThrottle = time.Second

// MarkerStore persists the small reload marker that survives a page
// navigation. Writes must complete synchronously before the unload
// proceeds; asynchronous work is not guaranteed to run during unload.
type MarkerStore interface {
	Put(ctx context.Context, m model.ReloadMarker) error
	Get(ctx context.Context) (*model.ReloadMarker, error)
	Clear(ctx context.Context) error
}

// IntegrityGuard turns abandonment signals into decisions and owns the
// reload marker lifecycle. It never submits by itself; the session routes
// force-submit decisions into the coordinator.
type IntegrityGuard struct {
	clock   Clock
	markers MarkerStore
	examID  uuid.UUID

	lastBackNav time.Time
}

// NewIntegrityGuard creates a guard for one exam session.
func NewIntegrityGuard(clock Clock, markers MarkerStore, examID uuid.UUID) *IntegrityGuard {
	return &IntegrityGuard{clock: clock, markers: markers, examID: examID}
}

// OnBackNavigationAttempt decides how to handle a history back/forward
// signal. The first signal in a window gets a blocking confirmation;
// repeats inside the throttle window only re-arm the guard entry.
func (g *IntegrityGuard) OnBackNavigationAttempt() Decision {
	now := g.clock.Now()
	if !g.lastBackNav.IsZero() && now.Sub(g.lastBackNav) < backNavThrottle {
		return DecisionReinstateGuard
	}
	g.lastBackNav = now
	return DecisionConfirm
}

// OnUnloadAttempt persists the reload marker so the next load of this exam
// can resume into the submit-confirmation flow. The native browser warning
// is advisory only, so the marker is the durable compensation.
func (g *IntegrityGuard) OnUnloadAttempt(ctx context.Context) error {
	return g.markers.Put(ctx, model.ReloadMarker{ExamID: g.examID, Reason: "reload"})
}

// OnReloadDetected checks for a marker left by a previous unload. A marker
// for this exam id triggers the resume-and-confirm flow exactly once; a
// marker for any other exam is stale and is cleared without acting on it.
func (g *IntegrityGuard) OnReloadDetected(ctx context.Context) (bool, error) {
	m, err := g.markers.Get(ctx)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}
	if err := g.markers.Clear(ctx); err != nil {
		return false, err
	}
	return m.ExamID == g.examID, nil
}
