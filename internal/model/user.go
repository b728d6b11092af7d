package model

import (
	"time"

	"github.com/google/uuid"
)

// CurrentUser is the authenticated caller, taken from the access token.
type CurrentUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
}

type Role string

const (
	RoleDentist Role = "dentist"
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

type UserRole struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
