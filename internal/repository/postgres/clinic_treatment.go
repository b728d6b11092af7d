package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type clinicTreatmentRepository struct {
	BaseRepository
}

func NewClinicTreatmentRepository(base BaseRepository) repository.ClinicTreatmentRepository {
	return &clinicTreatmentRepository{base}
}

func (r *clinicTreatmentRepository) CreateBatch(ctx context.Context, treatments []*model.ClinicTreatment) error {
	if len(treatments) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]interface{}, 0, len(treatments))
	for _, t := range treatments {
		t.ID = uuid.New()
		t.CreatedAt = now
		rows = append(rows, goqu.Record{
			"id":           t.ID,
			"clinic_id":    t.ClinicID,
			"treatment_id": t.TreatmentID,
			"price_from":   deref(t.PriceFrom),
			"price_to":     deref(t.PriceTo),
			"created_at":   t.CreatedAt,
		})
	}

	query, args, err := r.dialect.Insert("clinic_treatments").Rows(rows...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build clinic treatments insert: %w", err)
	}

	if _, err := r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create clinic treatments: %w", err)
	}
	return nil
}

func (r *clinicTreatmentRepository) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicTreatment, error) {
	query := `
		SELECT id, clinic_id, treatment_id, price_from, price_to, created_at
		FROM clinic_treatments
		WHERE clinic_id = $1
		ORDER BY created_at ASC
	`
	var treatments []*model.ClinicTreatment
	if err := r.conn(ctx).SelectContext(ctx, &treatments, query, clinicID); err != nil {
		return nil, fmt.Errorf("failed to list clinic treatments: %w", err)
	}
	return treatments, nil
}
