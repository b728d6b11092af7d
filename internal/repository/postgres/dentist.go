package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type dentistRepository struct {
	BaseRepository
}

func NewDentistRepository(base BaseRepository) repository.DentistRepository {
	return &dentistRepository{base}
}

func (r *dentistRepository) Create(ctx context.Context, dentist *model.Dentist) error {
	query := `
		INSERT INTO dentists (
			id, name, slug, email, phone, clinic_id, is_primary, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`
	dentist.ID = uuid.New()
	dentist.CreatedAt = time.Now()
	dentist.UpdatedAt = dentist.CreatedAt

	_, err := r.conn(ctx).ExecContext(ctx, query,
		dentist.ID,
		dentist.Name,
		dentist.Slug,
		dentist.Email,
		dentist.Phone,
		dentist.ClinicID,
		dentist.IsPrimary,
		dentist.IsActive,
		dentist.CreatedAt,
		dentist.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "slug") {
			return fmt.Errorf("failed to create dentist: %w", repository.ErrSlugTaken)
		}
		return fmt.Errorf("failed to create dentist: %w", err)
	}
	return nil
}

func (r *dentistRepository) GetPrimaryByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Dentist, error) {
	query := `
		SELECT id, name, slug, email, phone, clinic_id, is_primary, is_active, created_at, updated_at
		FROM dentists
		WHERE clinic_id = $1 AND is_primary = true
		ORDER BY created_at ASC
		LIMIT 1
	`
	var dentist model.Dentist
	if err := r.conn(ctx).GetContext(ctx, &dentist, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to get primary dentist: %w", notFound(err))
	}
	return &dentist, nil
}

func (r *dentistRepository) ListSlugsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	return r.listSlugsWithPrefix(ctx, "dentists", prefix)
}
