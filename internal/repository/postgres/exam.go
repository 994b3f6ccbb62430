package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type examRepository struct {
	db *sqlx.DB
}

func NewExamRepository(db *sqlx.DB) repository.ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) Create(ctx context.Context, exam *model.Exam) error {
	query := `
		INSERT INTO exams (id, patient_id, status, audio_url, report_url, provider_message_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	exam.CreatedAt = time.Now()
	exam.UpdatedAt = exam.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		exam.ID,
		exam.PatientID,
		exam.Status,
		exam.AudioURL,
		exam.ReportURL,
		exam.ProviderMessageID,
		exam.CreatedAt,
		exam.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	return nil
}

func (r *examRepository) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `SELECT * FROM exams WHERE id = $1`
	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("exam")
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return &exam, nil
}

func (r *examRepository) GetByProviderMessageID(ctx context.Context, messageID string) (*model.Exam, error) {
	query := `SELECT * FROM exams WHERE provider_message_id = $1`
	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("exam")
		}
		return nil, fmt.Errorf("failed to get exam by message id: %w", err)
	}
	return &exam, nil
}

func (r *examRepository) Update(ctx context.Context, id uuid.UUID, upd model.ExamUpdate) (*model.Exam, error) {
	// Terminal states are written once; a later status write never reverts
	// done or failed.
	query := `
		UPDATE exams SET
			status = CASE WHEN status IN ('done', 'failed') THEN status ELSE COALESCE($2, status) END,
			audio_url = COALESCE($3, audio_url),
			report_url = COALESCE($4, report_url),
			updated_at = $5
		WHERE id = $1
		RETURNING *
	`
	var exam model.Exam
	err := r.db.GetContext(ctx, &exam, query, id, upd.Status, upd.AudioURL, upd.ReportURL, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("exam")
		}
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}
	return &exam, nil
}

func (r *examRepository) List(ctx context.Context, patientID *uuid.UUID) ([]*model.Exam, error) {
	var exams []*model.Exam
	var err error
	if patientID != nil {
		query := `SELECT * FROM exams WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`
		err = r.db.SelectContext(ctx, &exams, query, *patientID, repository.ExamPageSize)
	} else {
		query := `SELECT * FROM exams ORDER BY created_at DESC LIMIT $1`
		err = r.db.SelectContext(ctx, &exams, query, repository.ExamPageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (r *examRepository) CreateResult(ctx context.Context, result *model.ExamResult) error {
	query := `
		INSERT INTO exam_results (id, exam_id, summary, report_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	result.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.ExamID,
		result.Summary,
		result.ReportURL,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exam result: %w", err)
	}
	return nil
}

func (r *examRepository) GetResultByExam(ctx context.Context, examID uuid.UUID) (*model.ExamResult, error) {
	query := `SELECT * FROM exam_results WHERE exam_id = $1`
	var result model.ExamResult
	err := r.db.GetContext(ctx, &result, query, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("exam result")
		}
		return nil, fmt.Errorf("failed to get exam result: %w", err)
	}
	return &result, nil
}
