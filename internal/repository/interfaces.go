package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/uroflux/intake-api/internal/model"
)

// Listing caps; queries never return more rows than these regardless of how
// many exist.
const (
	PatientPageSize = 100
	ExamPageSize    = 200
)

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByWhatsApp(ctx context.Context, whatsapp string) (*model.Patient, error)
	// Search returns patients newest-first, filtered by a case-insensitive
	// substring match over name, national id and whatsapp when query is
	// non-empty, capped at PatientPageSize.
	Search(ctx context.Context, query string) ([]*model.Patient, error)
	// ExistsByIdentity reports whether any patient matches the national id OR
	// the whatsapp address.
	ExistsByIdentity(ctx context.Context, nationalID, whatsapp string) (bool, error)
}

type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	Get(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetByProviderMessageID(ctx context.Context, messageID string) (*model.Exam, error)
	// Update applies the non-nil fields of upd and refreshes updated_at.
	Update(ctx context.Context, id uuid.UUID, upd model.ExamUpdate) (*model.Exam, error)
	// List returns exams newest-first, optionally filtered by patient, capped
	// at ExamPageSize.
	List(ctx context.Context, patientID *uuid.UUID) ([]*model.Exam, error)
	CreateResult(ctx context.Context, result *model.ExamResult) error
	GetResultByExam(ctx context.Context, examID uuid.UUID) (*model.ExamResult, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
