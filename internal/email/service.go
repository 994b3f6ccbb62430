package email

import (
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/uroflux/intake-api/internal/config"
	"github.com/uroflux/intake-api/internal/model"
)

// AlertSender notifies the operating clinic when an exam fails.
type AlertSender interface {
	SendExamFailedAlert(exam *model.Exam, patient *model.Patient, cause error) error
}

type SMTPSender struct {
	dialer  *gomail.Dialer
	from    string
	alertTo string
	logger  zerolog.Logger
}

// NewSMTPSender returns nil when no SMTP host is configured; callers treat a
// nil sender as alerts disabled.
func NewSMTPSender(cfg config.SMTPConfig, logger zerolog.Logger) *SMTPSender {
	if cfg.Host == "" {
		return nil
	}
	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:    cfg.From,
		alertTo: cfg.AlertTo,
		logger:  logger.With().Str("component", "email").Logger(),
	}
}

func (s *SMTPSender) SendExamFailedAlert(exam *model.Exam, patient *model.Patient, cause error) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.alertTo)
	m.SetHeader("Subject", fmt.Sprintf("Exam %s failed", exam.ID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Exam %s for patient %s (%s) failed during processing.\n\nCause: %v\n",
		exam.ID, patient.Name, patient.WhatsApp, cause,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}

	s.logger.Info().Str("exam_id", exam.ID.String()).Msg("failure alert sent")
	return nil
}
