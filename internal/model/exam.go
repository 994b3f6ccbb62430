package model

import (
	"time"

	"github.com/google/uuid"
)

type ExamStatus string

const (
	ExamStatusReceived   ExamStatus = "received"
	ExamStatusProcessing ExamStatus = "processing"
	ExamStatusDone       ExamStatus = "done"
	ExamStatusFailed     ExamStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s ExamStatus) Terminal() bool {
	return s == ExamStatusDone || s == ExamStatusFailed
}

// Exam is one patient-submitted audio sample and its processing outcome.
// AudioURL is persisted as soon as the raw audio is uploaded so the recording
// survives a downstream analysis or rendering failure.
type Exam struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	PatientID         uuid.UUID  `json:"patient_id" db:"patient_id"`
	Status            ExamStatus `json:"status" db:"status"`
	AudioURL          *string    `json:"audio_url,omitempty" db:"audio_url"`
	ReportURL         *string    `json:"report_url,omitempty" db:"report_url"`
	ProviderMessageID *string    `json:"provider_message_id,omitempty" db:"provider_message_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// ExamUpdate is a partial update; nil fields are left untouched.
type ExamUpdate struct {
	Status    *ExamStatus
	AudioURL  *string
	ReportURL *string
}

// ExamResult is a denormalized projection of a completed exam, kept next to
// the Exam row for operator listings.
type ExamResult struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ExamID    uuid.UUID `json:"exam_id" db:"exam_id"`
	Summary   string    `json:"summary" db:"summary"`
	ReportURL string    `json:"report_url" db:"report_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
