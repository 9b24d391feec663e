package session

import (
	"context"
	"errors"
	"testing"

	"github.com/examina/examina-backend/internal/model"
)

func TestCoordinatorSubmitsOnce(t *testing.T) {
	rec := &submitRecorder{}
	sc := NewSubmissionCoordinator(rec.fn)

	result, err := sc.Submit(context.Background(), &model.SubmitPayload{Score: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 3 {
		t.Fatalf("score = %d, want 3", result.Score)
	}
	if !sc.Attempted() {
		t.Fatal("guard not held after success")
	}

	// A racing second trigger is refused without reaching the provider.
	if _, err := sc.Submit(context.Background(), &model.SubmitPayload{}); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit err = %v, want ErrAlreadySubmitted", err)
	}
	if rec.callCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", rec.callCount())
	}
}

func TestCoordinatorReleasesGuardOnError(t *testing.T) {
	rec := &submitRecorder{err: errors.New("connection refused")}
	sc := NewSubmissionCoordinator(rec.fn)

	if _, err := sc.Submit(context.Background(), &model.SubmitPayload{}); err == nil {
		t.Fatal("expected submit error")
	}
	if sc.Attempted() {
		t.Fatal("guard held after failed submit, retry impossible")
	}

	// A later deliberate retry goes through.
	rec.err = nil
	if _, err := sc.Submit(context.Background(), &model.SubmitPayload{}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rec.callCount() != 2 {
		t.Fatalf("provider calls = %d, want 2", rec.callCount())
	}
}

func TestCoordinatorRejectsMissingSubmissionID(t *testing.T) {
	rec := &submitRecorder{reject: true}
	sc := NewSubmissionCoordinator(rec.fn)

	_, err := sc.Submit(context.Background(), &model.SubmitPayload{})
	if !errors.Is(err, ErrSubmitRejected) {
		t.Fatalf("err = %v, want ErrSubmitRejected", err)
	}
	if sc.Attempted() {
		t.Fatal("guard held after rejected submit")
	}
}
