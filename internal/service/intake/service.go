package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uroflux/intake-api/internal/email"
	"github.com/uroflux/intake-api/internal/messaging/whatsapp"
	"github.com/uroflux/intake-api/internal/model"
	"github.com/uroflux/intake-api/internal/repository"
	"github.com/uroflux/intake-api/internal/service/analysis"
	"github.com/uroflux/intake-api/internal/service/report"
	"github.com/uroflux/intake-api/internal/storage"
	"github.com/uroflux/intake-api/pkg/apperror"
	"github.com/uroflux/intake-api/pkg/metrics"
)

// Fixed patient-facing replies. Patients are never shown a raw error.
const (
	msgPromptAudio   = "Por favor, envie uma mensagem de *áudio* para realizar o exame."
	msgNotRegistered = "Não encontrei seu cadastro. Peça ao seu médico para cadastrá-lo."
	msgApology       = "Houve um problema ao processar seu exame. Tente novamente mais tarde."
	reportCaption    = "Seu resultado UroFlux"
	reportFilename   = "resultado_uroflux.pdf"

	instructionsTemplate = "uroflux_instrucoes_audio"
	instructionsLanguage = "pt_BR"
)

// Service orchestrates inbound-message intake end to end: resolve patient,
// create exam, fetch media, store audio, analyze, render, store report,
// notify. Each message is processed synchronously and independently; one
// message's failure never affects the rest of the delivery.
type Service struct {
	patients repository.PatientRepository
	exams    repository.ExamRepository
	outbox   repository.OutboxRepository
	blobs    storage.BlobStore
	msgr     whatsapp.Gateway
	analyzer analysis.Analyzer
	renderer report.Renderer
	alerts   email.AlertSender
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(
	patients repository.PatientRepository,
	exams repository.ExamRepository,
	outbox repository.OutboxRepository,
	blobs storage.BlobStore,
	msgr whatsapp.Gateway,
	analyzer analysis.Analyzer,
	renderer report.Renderer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		patients: patients,
		exams:    exams,
		outbox:   outbox,
		blobs:    blobs,
		msgr:     msgr,
		analyzer: analyzer,
		renderer: renderer,
		metrics:  m,
		logger:   logger.With().Str("component", "intake").Logger(),
	}
}

// WithAlertSender enables operator email alerts on exam failure.
func (s *Service) WithAlertSender(alerts email.AlertSender) *Service {
	s.alerts = alerts
	return s
}

// ProcessDelivery handles every message in a webhook delivery. Per-message
// failures are recorded on the exam and logged; they never propagate, so the
// caller can always acknowledge a well-formed delivery.
func (s *Service) ProcessDelivery(ctx context.Context, payload *model.WebhookPayload) {
	for _, msg := range payload.Messages() {
		s.handleMessage(ctx, msg)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg model.InboundMessage) {
	logger := s.logger.With().Str("from", msg.From).Str("message_id", msg.ID).Logger()

	if msg.Type != "audio" || msg.Audio == nil {
		s.countOutcome("non_audio")
		if err := s.msgr.SendText(ctx, msg.From, msgPromptAudio); err != nil {
			logger.Error().Err(err).Msg("failed to send audio prompt")
		}
		return
	}

	if msg.ID != "" && s.isDuplicate(ctx, msg.ID) {
		s.countOutcome("duplicate")
		logger.Info().Msg("duplicate delivery, skipping")
		return
	}

	patient, err := s.patients.GetByWhatsApp(ctx, msg.From)
	if err != nil {
		if apperror.IsNotFound(err) {
			s.countOutcome("unregistered")
			if sendErr := s.msgr.SendText(ctx, msg.From, msgNotRegistered); sendErr != nil {
				logger.Error().Err(sendErr).Msg("failed to send not-registered reply")
			}
			return
		}
		logger.Error().Err(err).Msg("failed to resolve patient")
		return
	}

	start := time.Now()
	if err := s.processAudioMessage(ctx, patient, msg); err != nil {
		s.countOutcome("failed")
		logger.Error().Err(err).Str("patient_id", patient.ID.String()).Msg("exam processing failed")
		return
	}
	s.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	s.countOutcome("processed")
}

// isDuplicate reports whether an exam was already created for this provider
// message id. A repeated delivery is acknowledged and skipped.
func (s *Service) isDuplicate(ctx context.Context, messageID string) bool {
	_, err := s.exams.GetByProviderMessageID(ctx, messageID)
	if err == nil {
		return true
	}
	if !apperror.IsNotFound(err) {
		s.logger.Warn().Err(err).Msg("duplicate check failed, continuing")
	}
	return false
}

// processAudioMessage runs the exam pipeline for one registered patient. The
// audio locator is persisted before analysis so custody of the recording
// survives any downstream failure. The exam reaches exactly one terminal
// state and is never reopened.
func (s *Service) processAudioMessage(ctx context.Context, patient *model.Patient, msg model.InboundMessage) error {
	exam := &model.Exam{
		ID:        uuid.New(),
		PatientID: patient.ID,
		Status:    model.ExamStatusProcessing,
	}
	if msg.ID != "" {
		exam.ProviderMessageID = &msg.ID
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}
	s.recordEvent(ctx, model.EventExamCreated, exam)

	mediaURL, err := s.msgr.ResolveMediaURL(ctx, msg.Audio.ID)
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to resolve media url: %w", err))
	}

	audio, err := s.msgr.DownloadMedia(ctx, mediaURL)
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to download media: %w", err))
	}

	audioURL, err := s.blobs.Put(ctx, storage.AudioKey(patient.ID, exam.ID), audio, "audio/ogg")
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to store audio: %w", err))
	}

	// Checkpoint: link the raw audio before anything downstream can fail.
	updated, err := s.exams.Update(ctx, exam.ID, model.ExamUpdate{AudioURL: &audioURL})
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to record audio locator: %w", err))
	}
	exam = updated

	metricsRec, err := s.analyzer.Analyze(audio)
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("analysis failed: %w", err))
	}

	pdf, err := s.renderer.Render(patient.Name, patient.NationalID, metricsRec)
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("report rendering failed: %w", err))
	}

	reportURL, err := s.blobs.Put(ctx, storage.ReportKey(patient.ID, exam.ID), pdf, "application/pdf")
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to store report: %w", err))
	}

	result := &model.ExamResult{
		ID:        uuid.New(),
		ExamID:    exam.ID,
		Summary:   metricsRec.Summary(),
		ReportURL: reportURL,
	}
	if err := s.exams.CreateResult(ctx, result); err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to record exam result: %w", err))
	}

	updated, err = s.exams.Update(ctx, exam.ID, model.ExamUpdate{ReportURL: &reportURL})
	if err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to record report locator: %w", err))
	}
	exam = updated

	// Notify before committing the terminal state so done is written exactly
	// once and never reverted by a delivery failure.
	if err := s.msgr.SendDocument(ctx, patient.WhatsApp, reportURL, reportFilename, reportCaption); err != nil {
		return s.failExam(ctx, exam, patient, fmt.Errorf("failed to deliver report: %w", err))
	}

	done := model.ExamStatusDone
	updated, err = s.exams.Update(ctx, exam.ID, model.ExamUpdate{Status: &done})
	if err != nil {
		// The report is already in the patient's hands, so the exam must not be
		// reopened or failed; surface the stuck row to operators instead.
		cause := fmt.Errorf("failed to mark exam done: %w", err)
		if s.alerts != nil {
			if alertErr := s.alerts.SendExamFailedAlert(exam, patient, cause); alertErr != nil {
				s.logger.Error().Err(alertErr).Str("exam_id", exam.ID.String()).Msg("failed to send stuck-exam alert")
			}
		}
		return cause
	}
	exam = updated

	s.metrics.ExamsCompleted.Inc()
	s.recordEvent(ctx, model.EventExamCompleted, exam)
	s.logger.Info().
		Str("exam_id", exam.ID.String()).
		Str("patient_id", patient.ID.String()).
		Msg("exam completed")
	return nil
}

// failExam writes the terminal failed state, notifies the patient with a
// fixed apology, and alerts the clinic. The original cause is returned so the
// caller can log it.
func (s *Service) failExam(ctx context.Context, exam *model.Exam, patient *model.Patient, cause error) error {
	if !exam.Status.Terminal() {
		failed := model.ExamStatusFailed
		updated, err := s.exams.Update(ctx, exam.ID, model.ExamUpdate{Status: &failed})
		if err != nil {
			s.logger.Error().Err(err).Str("exam_id", exam.ID.String()).Msg("failed to mark exam failed")
		} else {
			exam = updated
		}
	}

	s.metrics.ExamsFailed.Inc()
	s.recordEvent(ctx, model.EventExamFailed, exam)

	if err := s.msgr.SendText(ctx, patient.WhatsApp, msgApology); err != nil {
		s.logger.Error().Err(err).Str("exam_id", exam.ID.String()).Msg("failed to send apology")
	}

	if s.alerts != nil {
		if err := s.alerts.SendExamFailedAlert(exam, patient, cause); err != nil {
			s.logger.Error().Err(err).Str("exam_id", exam.ID.String()).Msg("failed to send failure alert")
		}
	}

	return cause
}

// SendInstructions delivers the pre-approved instruction template to a
// registered patient.
func (s *Service) SendInstructions(ctx context.Context, patientID uuid.UUID) error {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return err
	}
	if err := s.msgr.SendTemplate(ctx, patient.WhatsApp, instructionsTemplate, instructionsLanguage, nil); err != nil {
		return apperror.Upstream("failed to send instructions", err)
	}
	return nil
}

func (s *Service) recordEvent(ctx context.Context, eventType string, exam *model.Exam) {
	payload, err := json.Marshal(exam)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal exam for event")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to create outbox event")
	}
}

func (s *Service) countOutcome(outcome string) {
	s.metrics.IntakeMessagesReceived.WithLabelValues(outcome).Inc()
}
