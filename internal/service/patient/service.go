package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/pkg/apperror"
)

type Service struct {
	repo   repository.PatientRepository
	logger zerolog.Logger
}

func NewService(repo repository.PatientRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "patient-service").Logger(),
	}
}

// CreatePatient registers a patient. Creation is blocked when either the
// national id or the whatsapp address matches an existing row.
func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	exists, err := s.repo.ExistsByIdentity(ctx, req.NationalID, req.WhatsApp)
	if err != nil {
		return nil, fmt.Errorf("failed to check patient identity: %w", err)
	}
	if exists {
		return nil, apperror.Duplicate("national id or whatsapp already registered")
	}

	patient := &model.Patient{
		ID:         uuid.New(),
		Name:       req.Name,
		NationalID: req.NationalID,
		WhatsApp:   req.WhatsApp,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.logger.Info().Str("patient_id", patient.ID.String()).Msg("patient registered")
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) SearchPatients(ctx context.Context, query string) ([]*model.Patient, error) {
	return s.repo.Search(ctx, query)
}
