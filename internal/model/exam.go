package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity as stored.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	AuthorID        int        `json:"author_id"`
	DurationMinutes int        `json:"duration_minutes"`
	PasswordHash    *string    `json:"-"`
	Status          ExamStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Section is an ordered group of questions inside an exam.
type Section struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	OrderNum  int        `json:"order_num"`
	Questions []Question `json:"questions"`
}

// ExamDefinition is the read-only exam payload a session is built from.
// Exactly one of Sections or Questions is populated: sectioned exams carry
// Sections, flat exams carry Questions. The session normalizes both shapes
// to (sectionIndex, questionIndex) addressing.
type ExamDefinition struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	PasswordHash    *string    `json:"-"`
	Sections        []Section  `json:"sections,omitempty"`
	Questions       []Question `json:"questions,omitempty"`
}

// RequiresPassword reports whether the exam is password-gated.
func (d *ExamDefinition) RequiresPassword() bool {
	return d.PasswordHash != nil && *d.PasswordHash != ""
}
