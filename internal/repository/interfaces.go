package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrSlugTaken is returned when an insert hits the unique slug index.
	ErrSlugTaken = errors.New("slug already taken")
)

// All repository interfaces in one file
type (
	// TxRunner runs fn inside one database transaction. Repositories called
	// with the ctx passed to fn join that transaction.
	TxRunner interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// SlugLister returns every slug in a table that starts with prefix,
	// ordered descending.
	SlugLister interface {
		ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	}

	ClinicRepository interface {
		SlugLister
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		GetByOwner(ctx context.Context, userID uuid.UUID) (*model.Clinic, error)
		GetExtras(ctx context.Context, clinicID uuid.UUID) (*model.ClinicExtras, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	DentistRepository interface {
		SlugLister
		Create(ctx context.Context, dentist *model.Dentist) error
		GetPrimaryByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Dentist, error)
	}

	ClinicTreatmentRepository interface {
		CreateBatch(ctx context.Context, treatments []*model.ClinicTreatment) error
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicTreatment, error)
	}

	UserRoleRepository interface {
		HasRole(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error)
		Create(ctx context.Context, role *model.UserRole) error
	}

	LeadRepository interface {
		Create(ctx context.Context, lead *model.Lead) error
	}

	LocationRepository interface {
		ListStates(ctx context.Context) ([]*model.State, error)
		ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error)
		GetState(ctx context.Context, id uuid.UUID) (*model.State, error)
		GetCity(ctx context.Context, id uuid.UUID) (*model.City, error)
	}

	TreatmentRepository interface {
		List(ctx context.Context) ([]*model.Treatment, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Treatment, error)
	}

	PatientRepository interface {
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, int, error)
		CreateBatch(ctx context.Context, patients []*model.Patient) error
		ListPhones(ctx context.Context, clinicID uuid.UUID) ([]string, error)
		CountActive(ctx context.Context, clinicID uuid.UUID) (int, error)
		CountCreatedSince(ctx context.Context, clinicID uuid.UUID, since time.Time) (int, error)
	}

	AppointmentRepository interface {
		CountByStatusOn(ctx context.Context, clinicID uuid.UUID, day time.Time) ([]model.StatusCount, error)
	}

	FunnelEventRepository interface {
		ListRecent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*model.ReviewFunnelEvent, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
