package session

import (
	"errors"

	"github.com/examina/examina-backend/internal/model"
)

// ErrOutOfBounds is returned by JumpTo for an invalid (section, question)
// pair. Out-of-range jumps are a caller bug, not a recoverable state.
var ErrOutOfBounds = errors.New("navigation target out of bounds")

// NavigationCursor tracks the active (section, question) position over the
// normalized section list. Flat exams get a single implicit section at
// index 0, so boundary math is identical for both shapes.
type NavigationCursor struct {
	sections    [][]model.Question
	sectionIdx  int
	questionIdx int
	total       int
}

// NewNavigationCursor normalizes the exam definition and positions the
// cursor at the first question.
func NewNavigationCursor(def *model.ExamDefinition) (*NavigationCursor, error) {
	var sections [][]model.Question
	if len(def.Sections) > 0 {
		sections = make([][]model.Question, 0, len(def.Sections))
		for _, s := range def.Sections {
			if len(s.Questions) == 0 {
				return nil, errors.New("exam section has no questions")
			}
			sections = append(sections, s.Questions)
		}
	} else {
		if len(def.Questions) == 0 {
			return nil, errors.New("exam has no questions")
		}
		sections = [][]model.Question{def.Questions}
	}

	total := 0
	for _, qs := range sections {
		total += len(qs)
	}

	return &NavigationCursor{sections: sections, total: total}, nil
}

// Current returns the active (sectionIndex, questionIndex).
func (c *NavigationCursor) Current() (int, int) {
	return c.sectionIdx, c.questionIdx
}

// CurrentQuestion resolves the active position to its question.
func (c *NavigationCursor) CurrentQuestion() model.Question {
	return c.sections[c.sectionIdx][c.questionIdx]
}

// Next advances to the following question, crossing into the next section
// when the current one is exhausted. No-op at the last question; callers
// check IsLast to decide whether to offer Submit instead of Next.
func (c *NavigationCursor) Next() {
	if c.questionIdx < len(c.sections[c.sectionIdx])-1 {
		c.questionIdx++
		return
	}
	if c.sectionIdx < len(c.sections)-1 {
		c.sectionIdx++
		c.questionIdx = 0
	}
}

// Prev moves to the preceding question, crossing into the previous
// section's last question when at a section start. No-op at the first
// question.
func (c *NavigationCursor) Prev() {
	if c.questionIdx > 0 {
		c.questionIdx--
		return
	}
	if c.sectionIdx > 0 {
		c.sectionIdx--
		c.questionIdx = len(c.sections[c.sectionIdx]) - 1
	}
}

// JumpTo sets the position directly, as used by the question-picker grid.
func (c *NavigationCursor) JumpTo(sectionIdx, questionIdx int) error {
	if sectionIdx < 0 || sectionIdx >= len(c.sections) {
		return ErrOutOfBounds
	}
	if questionIdx < 0 || questionIdx >= len(c.sections[sectionIdx]) {
		return ErrOutOfBounds
	}
	c.sectionIdx = sectionIdx
	c.questionIdx = questionIdx
	return nil
}

// IsFirst reports whether the cursor is at global linear index 0.
func (c *NavigationCursor) IsFirst() bool {
	return c.globalIndex() == 0
}

// IsLast reports whether the cursor is at the final global index.
func (c *NavigationCursor) IsLast() bool {
	return c.globalIndex() == c.total-1
}

// TotalQuestions returns the flattened question count.
func (c *NavigationCursor) TotalQuestions() int { return c.total }

// SectionCount returns the number of normalized sections.
func (c *NavigationCursor) SectionCount() int { return len(c.sections) }

// Questions returns all questions in section-then-order sequence.
func (c *NavigationCursor) Questions() []model.Question {
	out := make([]model.Question, 0, c.total)
	for _, qs := range c.sections {
		out = append(out, qs...)
	}
	return out
}

func (c *NavigationCursor) globalIndex() int {
	idx := 0
	for i := 0; i < c.sectionIdx; i++ {
		idx += len(c.sections[i])
	}
	return idx + c.questionIdx
}
