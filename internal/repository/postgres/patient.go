package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, name, national_id, whatsapp, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	patient.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.NationalID,
		patient.WhatsApp,
		patient.CreatedAt,
	)
	if err != nil {
		// Unique constraint races with the pre-insert check; report both the
		// same way.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperror.Duplicate("national id or whatsapp already registered")
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("patient")
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByWhatsApp(ctx context.Context, whatsapp string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE whatsapp = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, whatsapp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("patient")
		}
		return nil, fmt.Errorf("failed to get patient by whatsapp: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Search(ctx context.Context, query string) ([]*model.Patient, error) {
	var patients []*model.Patient
	var err error
	if query == "" {
		q := `SELECT * FROM patients ORDER BY created_at DESC LIMIT $1`
		err = r.db.SelectContext(ctx, &patients, q, repository.PatientPageSize)
	} else {
		q := `
			SELECT * FROM patients
			WHERE name ILIKE $1 OR national_id ILIKE $1 OR whatsapp ILIKE $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		err = r.db.SelectContext(ctx, &patients, q, "%"+query+"%", repository.PatientPageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) ExistsByIdentity(ctx context.Context, nationalID, whatsapp string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM patients WHERE national_id = $1 OR whatsapp = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, nationalID, whatsapp); err != nil {
		return false, fmt.Errorf("failed to check patient identity: %w", err)
	}
	return exists, nil
}
