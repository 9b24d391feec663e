package model

import "github.com/google/uuid"

// OptionCount is the fixed number of options per question.
const OptionCount = 4

// Question represents a single exam question. Immutable during a session.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	SectionID     *uuid.UUID `json:"section_id,omitempty"`
	Text          string     `json:"text"`
	ImageURL      *string    `json:"image_url,omitempty"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"-"`
	// PositiveMarks and NegativeMarks are authored on the question but the
	// submission-time score is an equal-weight correct count. Kept for the
	// question-bank views that display them.
	PositiveMarks float64 `json:"positive_marks"`
	NegativeMarks float64 `json:"negative_marks"`
	OrderNum      int     `json:"order_num"`
}
