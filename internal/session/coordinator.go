package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// Submission errors.
var (
	// ErrAlreadySubmitted means the one-shot guard was already taken; the
	// competing trigger becomes a silent no-op.
	ErrAlreadySubmitted = errors.New("submission already in flight or completed")
	// ErrSubmitRejected means the provider answered but refused the
	// submission (success=false or missing submission id).
	ErrSubmitRejected = errors.New("submission rejected by provider")
)

// SubmitFunc is the external submission operation. It is called at most
// meaningfully once per session; only a Failed transition re-arms it.
type SubmitFunc func(ctx context.Context, payload *model.SubmitPayload) (*model.SubmitResult, error)

// SubmissionCoordinator assembles the final payload and guarantees the
// external submit call happens at most once regardless of how many
// triggers race for it.
type SubmissionCoordinator struct {
	submitFn SubmitFunc

	// mu protects acquired. The coordinator synchronizes itself because the
	// session releases its own lock while the external call is in flight;
	// the guard is flipped before any slow work begins, so a timeout tick
	// and a user confirm racing in close succession cannot both pass the
	// precondition.
	mu       sync.Mutex
	acquired bool
}

// NewSubmissionCoordinator creates a coordinator around the external submit.
func NewSubmissionCoordinator(submitFn SubmitFunc) *SubmissionCoordinator {
	return &SubmissionCoordinator{submitFn: submitFn}
}

// Attempted reports whether the one-shot guard is currently held.
func (sc *SubmissionCoordinator) Attempted() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.acquired
}

// Submit runs the external call under the one-shot guard. On a failed call
// the guard is released so a human can retry; answers are never discarded.
// The external call itself runs outside the guard's lock.
func (sc *SubmissionCoordinator) Submit(ctx context.Context, payload *model.SubmitPayload) (*model.SubmitResult, error) {
	sc.mu.Lock()
	if sc.acquired {
		sc.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	sc.acquired = true
	sc.mu.Unlock()

	result, err := sc.submitFn(ctx, payload)
	if err != nil {
		sc.release()
		return nil, fmt.Errorf("submit exam: %w", err)
	}
	if result == nil || result.SubmissionID == uuid.Nil {
		sc.release()
		if result != nil && result.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrSubmitRejected, result.Message)
		}
		return nil, ErrSubmitRejected
	}

	return result, nil
}

func (sc *SubmissionCoordinator) release() {
	sc.mu.Lock()
	sc.acquired = false
	sc.mu.Unlock()
}
