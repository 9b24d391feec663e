package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerStatus enumerates per-question answer states.
type AnswerStatus string

const (
	StatusNotAnswered     AnswerStatus = "NOT_ANSWERED"
	StatusAnswered        AnswerStatus = "ANSWERED"
	StatusMarkedForReview AnswerStatus = "MARKED_FOR_REVIEW"
)

// SessionPhase enumerates exam session lifecycle states.
type SessionPhase string

const (
	PhaseNotStarted       SessionPhase = "NOT_STARTED"
	PhaseAwaitingPassword SessionPhase = "AWAITING_PASSWORD"
	PhaseRunning          SessionPhase = "RUNNING"
	PhaseOnBreak          SessionPhase = "ON_BREAK"
	PhaseAwaitingConfirm  SessionPhase = "AWAITING_SUBMIT_CONFIRMATION"
	PhaseSubmitting       SessionPhase = "SUBMITTING"
	PhaseSubmitted        SessionPhase = "SUBMITTED"
	PhaseFailed           SessionPhase = "FAILED"
)

// SubmitReason identifies which trigger path produced a submission.
type SubmitReason string

const (
	ReasonManual            SubmitReason = "manual"
	ReasonTimeUp            SubmitReason = "time_up"
	ReasonBrowserNavigation SubmitReason = "browser_navigation"
	ReasonReload            SubmitReason = "reload"
)

// AnswerEntry holds a student's state for one question.
// Invariant: Status == ANSWERED implies SelectedOption != nil.
type AnswerEntry struct {
	SelectedOption   *int         `json:"selected_option,omitempty"`
	Status           AnswerStatus `json:"status"`
	TimeSpentSeconds int          `json:"time_spent_seconds"`
}

// QuestionStatus is the per-question slice of the submission payload.
type QuestionStatus struct {
	Status    AnswerStatus `json:"status"`
	TimeSpent int          `json:"time_spent"`
}

// SubmitPayload is the full submission sent to the submission provider.
type SubmitPayload struct {
	ExamID           uuid.UUID                    `json:"exam_id"`
	StudentID        int                          `json:"student_id"`
	Answers          map[uuid.UUID]int            `json:"answers"`
	QuestionStatuses map[uuid.UUID]QuestionStatus `json:"question_statuses"`
	Score            int                          `json:"score"`
	TotalQuestions   int                          `json:"total_questions"`
	TimeSpentSeconds int                          `json:"time_spent"`
	Reason           SubmitReason                 `json:"reason"`
	IsSubmitted      bool                         `json:"is_submitted"`
}

// SubmitResult is the submission provider's acknowledgement.
// A zero SubmissionID is treated as a failed submit.
type SubmitResult struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Score        int       `json:"score"`
	Message      string    `json:"message,omitempty"`
}

// ReloadMarker is the durable marker written right before an unload so a
// fresh load of the same exam can resume into the submit-confirmation flow.
type ReloadMarker struct {
	ExamID uuid.UUID `json:"exam_id"`
	Reason string    `json:"reason"`
}

// SessionRecord is a student's exam attempt row.
type SessionRecord struct {
	ID         uuid.UUID     `json:"id"`
	ExamID     uuid.UUID     `json:"exam_id"`
	StudentID  int           `json:"student_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Status     SessionStatus `json:"status"`
	FinalScore *float64      `json:"final_score,omitempty"`
}

// SessionStatus enumerates persisted exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// Submission is a persisted submission row.
type Submission struct {
	ID               uuid.UUID    `json:"id"`
	ExamID           uuid.UUID    `json:"exam_id"`
	StudentID        int          `json:"student_id"`
	Score            int          `json:"score"`
	TotalQuestions   int          `json:"total_questions"`
	TimeSpentSeconds int          `json:"time_spent"`
	Reason           SubmitReason `json:"reason"`
	SubmittedAt      time.Time    `json:"submitted_at"`
}

// IntegrityEventKind enumerates abandonment signals recorded for audit.
type IntegrityEventKind string

const (
	IntegrityBackNavigation IntegrityEventKind = "back_navigation"
	IntegrityUnload         IntegrityEventKind = "unload"
	IntegrityReload         IntegrityEventKind = "reload"
	IntegrityTimeUp         IntegrityEventKind = "time_up"
)
