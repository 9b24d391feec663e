package repository

import (
	"context"

	"github.com/examina/examina-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles exam attempt rows.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts an attempt row for (exam, student). The unique constraint
// makes a concurrent begin idempotent: on conflict the existing row wins
// and is returned by a follow-up GetByExamAndStudent.
func (r *SessionRepository) Create(ctx context.Context, s *model.SessionRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		s.ExamID, s.StudentID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
}

// GetByExamAndStudent fetches a student's attempt for an exam.
func (r *SessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.SessionRecord, error) {
	s := &model.SessionRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, finished_at, status, final_score
		 FROM exam_sessions WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.FinishedAt, &s.Status, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}
