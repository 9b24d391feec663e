package session

import (
	"errors"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

// ErrUnknownQuestion is returned when a question id is not part of the exam.
var ErrUnknownQuestion = errors.New("question is not part of this exam")

// AnswerLedger holds one AnswerEntry per question for the lifetime of a
// session. Entries are created NOT_ANSWERED at initialization and never
// removed.
type AnswerLedger struct {
	entries map[uuid.UUID]*model.AnswerEntry
}

// NewAnswerLedger creates a ledger with a NOT_ANSWERED entry per question id.
func NewAnswerLedger(questionIDs []uuid.UUID) *AnswerLedger {
	entries := make(map[uuid.UUID]*model.AnswerEntry, len(questionIDs))
	for _, id := range questionIDs {
		entries[id] = &model.AnswerEntry{Status: model.StatusNotAnswered}
	}
	return &AnswerLedger{entries: entries}
}

// SetAnswer records a selection and re-derives the status to ANSWERED.
// Selecting an answer on a review-marked question drops the mark; the
// status is always re-derived from the fact that an answer now exists.
func (l *AnswerLedger) SetAnswer(questionID uuid.UUID, optionIndex int) error {
	e, ok := l.entries[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	selected := optionIndex
	e.SelectedOption = &selected
	e.Status = model.StatusAnswered
	return nil
}

// ToggleMark flips a question between MARKED_FOR_REVIEW and its derived
// status (ANSWERED when a selection exists, NOT_ANSWERED otherwise).
func (l *AnswerLedger) ToggleMark(questionID uuid.UUID) error {
	e, ok := l.entries[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	if e.Status == model.StatusMarkedForReview {
		if e.SelectedOption != nil {
			e.Status = model.StatusAnswered
		} else {
			e.Status = model.StatusNotAnswered
		}
		return nil
	}
	e.Status = model.StatusMarkedForReview
	return nil
}

// AddTimeSpent accumulates dwell seconds into a question's entry.
func (l *AnswerLedger) AddTimeSpent(questionID uuid.UUID, seconds int) {
	if e, ok := l.entries[questionID]; ok && seconds > 0 {
		e.TimeSpentSeconds += seconds
	}
}

// Entry returns a copy of a question's entry.
func (l *AnswerLedger) Entry(questionID uuid.UUID) (model.AnswerEntry, bool) {
	e, ok := l.entries[questionID]
	if !ok {
		return model.AnswerEntry{}, false
	}
	return *e, true
}

// CountByStatus scans all entries and counts those with the given status.
func (l *AnswerLedger) CountByStatus(status model.AnswerStatus) int {
	n := 0
	for _, e := range l.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Score counts one point per question whose selection equals the correct
// option. Positive/negative marks on Question are deliberately not applied
// here: submission-time scoring is equal-weight correct count.
func (l *AnswerLedger) Score(questions []model.Question) int {
	score := 0
	for _, q := range questions {
		e, ok := l.entries[q.ID]
		if !ok || e.SelectedOption == nil {
			continue
		}
		if *e.SelectedOption == q.CorrectOption {
			score++
		}
	}
	return score
}

// Answers returns the question id to selected option map for submission.
// Unanswered questions are omitted.
func (l *AnswerLedger) Answers() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for id, e := range l.entries {
		if e.SelectedOption != nil {
			out[id] = *e.SelectedOption
		}
	}
	return out
}

// Statuses returns the full per-question status and dwell map for submission.
func (l *AnswerLedger) Statuses() map[uuid.UUID]model.QuestionStatus {
	out := make(map[uuid.UUID]model.QuestionStatus, len(l.entries))
	for id, e := range l.entries {
		out[id] = model.QuestionStatus{Status: e.Status, TimeSpent: e.TimeSpentSeconds}
	}
	return out
}

// Restore overwrites entries from a previously mirrored state. Used when a
// session is rebuilt after a page reload; ids not present in the ledger are
// ignored.
func (l *AnswerLedger) Restore(answers map[uuid.UUID]int, statuses map[uuid.UUID]model.QuestionStatus) {
	for id, opt := range answers {
		if e, ok := l.entries[id]; ok {
			selected := opt
			e.SelectedOption = &selected
			e.Status = model.StatusAnswered
		}
	}
	for id, st := range statuses {
		if e, ok := l.entries[id]; ok {
			if st.Status != "" {
				e.Status = st.Status
			}
			if st.TimeSpent > 0 {
				e.TimeSpentSeconds = st.TimeSpent
			}
		}
	}
}

// Len returns the number of tracked questions.
func (l *AnswerLedger) Len() int { return len(l.entries) }
