package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
)

const LeadSourceAddPractice = "dashboard-add-practice"

type Lead struct {
	Base
	PatientName  string          `json:"patient_name" db:"patient_name"`
	PatientEmail string          `json:"patient_email" db:"patient_email"`
	PatientPhone string          `json:"patient_phone" db:"patient_phone"`
	ClinicID     uuid.UUID       `json:"clinic_id" db:"clinic_id"`
	Message      json.RawMessage `json:"message" db:"message"`
	Source       string          `json:"source" db:"source"`
	Status       LeadStatus      `json:"status" db:"status"`
}

// SelfListingMessage is the lead payload written when a dentist lists a practice.
type SelfListingMessage struct {
	Type        string   `json:"type"`
	ClinicName  string   `json:"clinicName"`
	State       string   `json:"state"`
	City        string   `json:"city"`
	Services    []string `json:"services"`
	Description string   `json:"description"`
}
