package model

import (
	"github.com/google/uuid"
)

type Dentist struct {
	Base
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	ClinicID  uuid.UUID `json:"clinic_id" db:"clinic_id"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

// PracticeProfile is what the dashboard shows for the signed in dentist.
type PracticeProfile struct {
	Clinic  *Clinic  `json:"clinic"`
	Dentist *Dentist `json:"dentist,omitempty"`
}
