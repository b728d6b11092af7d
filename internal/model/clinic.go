package model

import (
	"time"

	"github.com/google/uuid"
)

type ClaimStatus string

const (
	ClaimStatusUnclaimed ClaimStatus = "unclaimed"
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusClaimed   ClaimStatus = "claimed"
)

type VerificationStatus string

const (
	VerificationStatusUnverified VerificationStatus = "unverified"
	VerificationStatusPending    VerificationStatus = "pending"
	VerificationStatusVerified   VerificationStatus = "verified"
	VerificationStatusExpired    VerificationStatus = "expired"
)

// ClinicSource records how a clinic entered the directory.
type ClinicSource string

const (
	ClinicSourceManual ClinicSource = "manual"
	ClinicSourceGMB    ClinicSource = "gmb"
	ClinicSourceImport ClinicSource = "import"
)

type Clinic struct {
	Base
	Name               string             `json:"name" db:"name"`
	Slug               string             `json:"slug" db:"slug"`
	Phone              string             `json:"phone" db:"phone"`
	Email              string             `json:"email" db:"email"`
	Website            *string            `json:"website,omitempty" db:"website"`
	Address            *string            `json:"address,omitempty" db:"address"`
	Description        *string            `json:"description,omitempty" db:"description"`
	CityID             uuid.UUID          `json:"city_id" db:"city_id"`
	ClaimedBy          *uuid.UUID         `json:"claimed_by,omitempty" db:"claimed_by"`
	ClaimStatus        ClaimStatus        `json:"claim_status" db:"claim_status"`
	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`
	LocationVerified   bool               `json:"location_verified" db:"location_verified"`
	IsActive           bool               `json:"is_active" db:"is_active"`
	Source             ClinicSource       `json:"source" db:"source"`
	CoverImageURL      *string            `json:"cover_image_url,omitempty" db:"cover_image_url"`
	GooglePlaceID      *string            `json:"google_place_id,omitempty" db:"google_place_id"`
}

// IsOwnedBy reports whether userID claimed the clinic.
func (c *Clinic) IsOwnedBy(userID uuid.UUID) bool {
	return c.ClaimedBy != nil && *c.ClaimedBy == userID
}

type ClinicTreatment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ClinicID    uuid.UUID `json:"clinic_id" db:"clinic_id"`
	TreatmentID uuid.UUID `json:"treatment_id" db:"treatment_id"`
	PriceFrom   *float64  `json:"price_from,omitempty" db:"price_from"`
	PriceTo     *float64  `json:"price_to,omitempty" db:"price_to"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ClinicExtras counts the related rows the profile score looks at.
type ClinicExtras struct {
	Hours  int `db:"hours"`
	Images int `db:"images"`
}
