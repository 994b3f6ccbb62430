package exam

import (
	"context"

	"github.com/google/uuid"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type Service struct {
	repo repository.ExamRepository
}

func NewService(repo repository.ExamRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListExams(ctx context.Context, patientID *uuid.UUID) ([]*model.Exam, error) {
	return s.repo.List(ctx, patientID)
}

// GetExamResult returns the denormalized result projection when one exists.
func (s *Service) GetExamResult(ctx context.Context, examID uuid.UUID) (*model.ExamResult, error) {
	if _, err := s.repo.Get(ctx, examID); err != nil {
		return nil, err
	}
	result, err := s.repo.GetResultByExam(ctx, examID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NotFound("exam result")
		}
		return nil, err
	}
	return result, nil
}
