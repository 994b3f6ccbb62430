package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// Object keys are deterministic per patient/exam pair so a retried upload
// overwrites its own artifact and never collides with another exam's.

func AudioKey(patientID, examID uuid.UUID) string {
	return fmt.Sprintf("audios/patient_%s_exam_%s.ogg", patientID, examID)
}

func ReportKey(patientID, examID uuid.UUID) string {
	return fmt.Sprintf("reports/patient_%s_exam_%s.pdf", patientID, examID)
}
