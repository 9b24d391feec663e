package session

import (
	"testing"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
)

func ledgerWithQuestions(n int) (*AnswerLedger, []uuid.UUID) {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return NewAnswerLedger(ids), ids
}

func TestLedgerStartsNotAnswered(t *testing.T) {
	l, ids := ledgerWithQuestions(3)

	if got := l.CountByStatus(model.StatusNotAnswered); got != 3 {
		t.Fatalf("not answered count = %d, want 3", got)
	}
	for _, id := range ids {
		e, ok := l.Entry(id)
		if !ok {
			t.Fatalf("missing entry for %s", id)
		}
		if e.Status != model.StatusNotAnswered || e.SelectedOption != nil {
			t.Fatalf("entry = %+v, want empty NOT_ANSWERED", e)
		}
	}
}

func TestLedgerSetAnswer(t *testing.T) {
	l, ids := ledgerWithQuestions(2)

	if err := l.SetAnswer(ids[0], 2); err != nil {
		t.Fatalf("set answer: %v", err)
	}
	e, _ := l.Entry(ids[0])
	if e.Status != model.StatusAnswered || e.SelectedOption == nil || *e.SelectedOption != 2 {
		t.Fatalf("entry = %+v, want ANSWERED option 2", e)
	}

	// Changing the selection keeps ANSWERED.
	if err := l.SetAnswer(ids[0], 0); err != nil {
		t.Fatalf("reset answer: %v", err)
	}
	e, _ = l.Entry(ids[0])
	if *e.SelectedOption != 0 {
		t.Fatalf("selected = %d, want 0", *e.SelectedOption)
	}

	if err := l.SetAnswer(uuid.New(), 1); err != ErrUnknownQuestion {
		t.Fatalf("unknown question err = %v, want ErrUnknownQuestion", err)
	}
}

func TestLedgerAnswerDropsReviewMark(t *testing.T) {
	l, ids := ledgerWithQuestions(1)

	if err := l.ToggleMark(ids[0]); err != nil {
		t.Fatalf("mark: %v", err)
	}
	e, _ := l.Entry(ids[0])
	if e.Status != model.StatusMarkedForReview {
		t.Fatalf("status = %s, want MARKED_FOR_REVIEW", e.Status)
	}

	// Answering a marked question re-derives the status to ANSWERED; the
	// mark does not survive.
	if err := l.SetAnswer(ids[0], 3); err != nil {
		t.Fatalf("answer marked question: %v", err)
	}
	e, _ = l.Entry(ids[0])
	if e.Status != model.StatusAnswered {
		t.Fatalf("status = %s, want ANSWERED", e.Status)
	}
}

func TestLedgerToggleMark(t *testing.T) {
	l, ids := ledgerWithQuestions(2)

	// Unanswered: NOT_ANSWERED -> MARKED -> NOT_ANSWERED.
	l.ToggleMark(ids[0])
	l.ToggleMark(ids[0])
	e, _ := l.Entry(ids[0])
	if e.Status != model.StatusNotAnswered {
		t.Fatalf("status = %s, want NOT_ANSWERED", e.Status)
	}

	// Answered: ANSWERED -> MARKED -> ANSWERED (selection retained).
	l.SetAnswer(ids[1], 1)
	l.ToggleMark(ids[1])
	l.ToggleMark(ids[1])
	e, _ = l.Entry(ids[1])
	if e.Status != model.StatusAnswered || e.SelectedOption == nil || *e.SelectedOption != 1 {
		t.Fatalf("entry = %+v, want ANSWERED option 1", e)
	}

	if err := l.ToggleMark(uuid.New()); err != ErrUnknownQuestion {
		t.Fatalf("unknown question err = %v, want ErrUnknownQuestion", err)
	}
}

func TestLedgerScoreEqualWeight(t *testing.T) {
	questions := []model.Question{
		testQuestion("q1", 0),
		testQuestion("q2", 1),
		testQuestion("q3", 2),
		testQuestion("q4", 3),
	}
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	tests := []struct {
		name    string
		answers map[int]int // question index -> selected option
		want    int
	}{
		{name: "all correct", answers: map[int]int{0: 0, 1: 1, 2: 2, 3: 3}, want: 4},
		{name: "all wrong", answers: map[int]int{0: 1, 1: 0, 2: 3, 3: 2}, want: 0},
		{name: "mixed", answers: map[int]int{0: 0, 1: 3, 2: 2}, want: 2},
		{name: "unanswered skipped", answers: map[int]int{}, want: 0},
		{name: "wrong answers never subtract", answers: map[int]int{0: 0, 1: 0, 2: 0, 3: 0}, want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := NewAnswerLedger(ids)
			for qi, opt := range tc.answers {
				if err := l.SetAnswer(ids[qi], opt); err != nil {
					t.Fatalf("set answer: %v", err)
				}
			}
			if got := l.Score(questions); got != tc.want {
				t.Fatalf("score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLedgerTimeSpentAccumulates(t *testing.T) {
	l, ids := ledgerWithQuestions(1)

	l.AddTimeSpent(ids[0], 10)
	l.AddTimeSpent(ids[0], 5)
	l.AddTimeSpent(ids[0], 0)
	l.AddTimeSpent(ids[0], -3)

	e, _ := l.Entry(ids[0])
	if e.TimeSpentSeconds != 15 {
		t.Fatalf("time spent = %d, want 15", e.TimeSpentSeconds)
	}
}

func TestLedgerRestore(t *testing.T) {
	l, ids := ledgerWithQuestions(3)

	l.Restore(
		map[uuid.UUID]int{ids[0]: 2, uuid.New(): 1},
		map[uuid.UUID]model.QuestionStatus{
			ids[0]: {Status: model.StatusAnswered, TimeSpent: 40},
			ids[1]: {Status: model.StatusMarkedForReview, TimeSpent: 12},
		},
	)

	e, _ := l.Entry(ids[0])
	if e.Status != model.StatusAnswered || *e.SelectedOption != 2 || e.TimeSpentSeconds != 40 {
		t.Fatalf("restored entry 0 = %+v", e)
	}
	e, _ = l.Entry(ids[1])
	if e.Status != model.StatusMarkedForReview || e.TimeSpentSeconds != 12 {
		t.Fatalf("restored entry 1 = %+v", e)
	}
	e, _ = l.Entry(ids[2])
	if e.Status != model.StatusNotAnswered {
		t.Fatalf("untouched entry 2 = %+v", e)
	}
}
