package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered exam recipient. NationalID and WhatsApp are both
// unique across patients; either one matching an existing row blocks creation.
type Patient struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	NationalID string    `json:"national_id" db:"national_id"`
	WhatsApp   string    `json:"whatsapp" db:"whatsapp"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type CreatePatientRequest struct {
	Name       string `json:"name" binding:"required"`
	NationalID string `json:"national_id" binding:"required"`
	WhatsApp   string `json:"whatsapp" binding:"required"`
}
