package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const clinicColumns = `
	id, name, slug, phone, email, website, address, description, city_id,
	claimed_by, claim_status, verification_status, location_verified, is_active,
	source, cover_image_url, google_place_id, created_at, updated_at`

type clinicRepository struct {
	BaseRepository
}

func NewClinicRepository(base BaseRepository) repository.ClinicRepository {
	return &clinicRepository{base}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (
			id, name, slug, phone, email, website, address, description, city_id,
			claimed_by, claim_status, verification_status, location_verified, is_active,
			source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`
	clinic.ID = uuid.New()
	clinic.CreatedAt = time.Now()
	clinic.UpdatedAt = clinic.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Slug,
		clinic.Phone,
		clinic.Email,
		clinic.Website,
		clinic.Address,
		clinic.Description,
		clinic.CityID,
		clinic.ClaimedBy,
		clinic.ClaimStatus,
		clinic.VerificationStatus,
		clinic.LocationVerified,
		clinic.IsActive,
		clinic.Source,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "slug") {
			return fmt.Errorf("failed to create clinic: %w", repository.ErrSlugTaken)
		}
		return fmt.Errorf("failed to create clinic: %w", err)
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `SELECT` + clinicColumns + ` FROM clinics WHERE id = $1`

	var clinic model.Clinic
	if err := r.conn(ctx).GetContext(ctx, &clinic, query, id); err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", notFound(err))
	}
	return &clinic, nil
}

func (r *clinicRepository) GetByOwner(ctx context.Context, userID uuid.UUID) (*model.Clinic, error) {
	query := `SELECT` + clinicColumns + `
		FROM clinics
		WHERE claimed_by = $1
		ORDER BY created_at ASC
		LIMIT 1`

	var clinic model.Clinic
	if err := r.conn(ctx).GetContext(ctx, &clinic, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get clinic for owner: %w", notFound(err))
	}
	return &clinic, nil
}

func (r *clinicRepository) GetExtras(ctx context.Context, clinicID uuid.UUID) (*model.ClinicExtras, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM clinic_hours WHERE clinic_id = $1) AS hours,
			(SELECT COUNT(*) FROM clinic_images WHERE clinic_id = $1) AS images
	`
	var extras model.ClinicExtras
	if err := r.conn(ctx).GetContext(ctx, &extras, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to count clinic extras: %w", err)
	}
	return &extras, nil
}

func (r *clinicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM clinics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinic: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to delete clinic: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *clinicRepository) ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return r.listSlugsWithPrefix(ctx, "clinics", prefix)
}
