package service

import (
	"context"

	"github.com/examina/examina-backend/internal/model"
	"github.com/examina/examina-backend/internal/repository"
)

// StudentService handles student account lookups.
type StudentService struct {
	repo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(repo *repository.StudentRepository) *StudentService {
	return &StudentService{repo: repo}
}

// GetByEmail retrieves a student by email.
func (s *StudentService) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	return s.repo.GetByEmail(ctx, email)
}

// GetByID retrieves a student by id.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.repo.GetByID(ctx, id)
}
