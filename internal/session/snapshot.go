package session

import (
	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// Snapshot is a read-only view of session state for the presentation
// layer. Correct options never appear in it; model.Question hides them
// from serialization.
type Snapshot struct {
	ExamID    uuid.UUID          `json:"exam_id"`
	Title     string             `json:"title"`
	Phase     model.SessionPhase `json:"phase"`

	TimeLeftSeconds int  `json:"time_left_seconds"`
	ExamStarted     bool `json:"exam_started"`

	SectionIndex  int  `json:"section_index"`
	QuestionIndex int  `json:"question_index"`
	IsFirst       bool `json:"is_first"`
	IsLast        bool `json:"is_last"`

	TotalQuestions   int `json:"total_questions"`
	AnsweredCount    int `json:"answered_count"`
	MarkedCount      int `json:"marked_count"`
	NotAnsweredCount int `json:"not_answered_count"`

	CurrentQuestion *model.Question                 `json:"current_question,omitempty"`
	Entries         map[uuid.UUID]model.AnswerEntry `json:"entries"`

	ReloadNotice   bool                `json:"reload_notice,omitempty"`
	Result         *model.SubmitResult `json:"result,omitempty"`
	FailureMessage string              `json:"failure_message,omitempty"`
}

// Snapshot captures the current state under the session lock. The timer
// value is recomputed so a snapshot between ticks is not a second stale.
func (s *ExamSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ExamID:           s.def.ID,
		Title:            s.def.Title,
		Phase:            s.phase,
		ExamStarted:      s.keeper.Started(),
		TotalQuestions:   s.cursor.TotalQuestions(),
		AnsweredCount:    s.ledger.CountByStatus(model.StatusAnswered),
		MarkedCount:      s.ledger.CountByStatus(model.StatusMarkedForReview),
		NotAnsweredCount: s.ledger.CountByStatus(model.StatusNotAnswered),
		ReloadNotice:     s.reloadNotice,
		Result:           s.lastResult,
		FailureMessage:   s.lastFailure,
	}

	switch s.phase {
	case model.PhaseRunning, model.PhaseOnBreak, model.PhaseAwaitingConfirm:
		snap.TimeLeftSeconds = s.keeper.Tick()
	default:
		snap.TimeLeftSeconds = s.keeper.TimeLeft()
	}

	snap.SectionIndex, snap.QuestionIndex = s.cursor.Current()
	snap.IsFirst = s.cursor.IsFirst()
	snap.IsLast = s.cursor.IsLast()

	if s.phase == model.PhaseRunning || s.phase == model.PhaseAwaitingConfirm {
		q := s.cursor.CurrentQuestion()
		snap.CurrentQuestion = &q
	}

	entries := make(map[uuid.UUID]model.AnswerEntry, s.ledger.Len())
	for _, q := range s.cursor.Questions() {
		if e, ok := s.ledger.Entry(q.ID); ok {
			entries[q.ID] = e
		}
	}
	snap.Entries = entries

	return snap
}
