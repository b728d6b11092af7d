package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	Base
	ClinicID      uuid.UUID         `json:"clinic_id" db:"clinic_id"`
	PatientName   string            `json:"patient_name" db:"patient_name"`
	PatientPhone  string            `json:"patient_phone" db:"patient_phone"`
	TreatmentID   *uuid.UUID        `json:"treatment_id,omitempty" db:"treatment_id"`
	PreferredDate time.Time         `json:"preferred_date" db:"preferred_date"`
	PreferredTime *string           `json:"preferred_time,omitempty" db:"preferred_time"`
	Status        AppointmentStatus `json:"status" db:"status"`
}

// StatusCount is one row of a GROUP BY status query.
type StatusCount struct {
	Status AppointmentStatus `db:"status"`
	Count  int               `db:"count"`
}

type FunnelEventType string

const (
	FunnelEventThumbsUp   FunnelEventType = "thumbs_up"
	FunnelEventThumbsDown FunnelEventType = "thumbs_down"
)

// ReviewFunnelEvent is a patient's reaction captured by the review funnel.
type ReviewFunnelEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ClinicID  uuid.UUID       `json:"clinic_id" db:"clinic_id"`
	EventType FunnelEventType `json:"event_type" db:"event_type"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
