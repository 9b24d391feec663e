package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository persists final exam submissions. This is the
// authoritative submit operation: a session is only Submitted once a row
// exists here and its id was returned to the coordinator.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Insert stores a submission and returns its generated id. The unique
// (exam_id, student_id) constraint backs the at-most-once guarantee at the
// storage layer; the in-memory one-shot guard backs it at the session layer.
func (r *SubmissionRepository) Insert(ctx context.Context, p *model.SubmitPayload) (uuid.UUID, error) {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode answers: %w", err)
	}
	statuses, err := json.Marshal(p.QuestionStatuses)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode question statuses: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions
		   (exam_id, student_id, answers, question_statuses, score,
		    total_questions, time_spent_seconds, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		p.ExamID, p.StudentID, answers, statuses, p.Score,
		p.TotalQuestions, p.TimeSpentSeconds, p.Reason,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

// GetByExamAndStudent fetches a student's submission for an exam.
func (r *SubmissionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, score, total_questions,
		        time_spent_seconds, reason, submitted_at
		 FROM submissions WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Score, &s.TotalQuestions,
		&s.TimeSpentSeconds, &s.Reason, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
