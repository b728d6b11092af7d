package model

import (
	"github.com/google/uuid"
)

const (
	PatientSourceManual    = "manual"
	PatientSourceCSVImport = "csv_import"
)

type Patient struct {
	Base
	ClinicID           uuid.UUID `json:"clinic_id" db:"clinic_id"`
	Name               string    `json:"name" db:"name"`
	Phone              string    `json:"phone" db:"phone"`
	Email              *string   `json:"email,omitempty" db:"email"`
	Source             string    `json:"source" db:"source"`
	IsOptedInSMS       bool      `json:"is_opted_in_sms" db:"is_opted_in_sms"`
	IsOptedInWhatsApp  bool      `json:"is_opted_in_whatsapp" db:"is_opted_in_whatsapp"`
	IsDeletedByDentist bool      `json:"is_deleted_by_dentist" db:"is_deleted_by_dentist"`
}

type PatientFilters struct {
	ClinicID uuid.UUID `form:"-"`
	Search   string    `form:"search"`
	OptedIn  *bool     `form:"opted_in"`
	Pagination
}

// PatientImportResult summarises one CSV upload.
type PatientImportResult struct {
	Imported          int `json:"imported"`
	SkippedDuplicates int `json:"skipped_duplicates"`
	SkippedInvalid    int `json:"skipped_invalid"`
}
