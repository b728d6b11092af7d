package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) CountByStatusOn(ctx context.Context, clinicID uuid.UUID, day time.Time) ([]model.StatusCount, error) {
	query := `
		SELECT COALESCE(status, 'pending') AS status, COUNT(*) AS count
		FROM appointments
		WHERE clinic_id = $1 AND preferred_date = $2::date
		GROUP BY 1
	`
	var counts []model.StatusCount
	if err := r.conn(ctx).SelectContext(ctx, &counts, query, clinicID, day.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	return counts, nil
}

type funnelEventRepository struct {
	BaseRepository
}

func NewFunnelEventRepository(base BaseRepository) repository.FunnelEventRepository {
	return &funnelEventRepository{base}
}

func (r *funnelEventRepository) ListRecent(ctx context.Context, clinicID uuid.UUID, limit int) ([]*model.ReviewFunnelEvent, error) {
	query := `
		SELECT id, clinic_id, event_type, created_at
		FROM review_funnel_events
		WHERE clinic_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var events []*model.ReviewFunnelEvent
	if err := r.conn(ctx).SelectContext(ctx, &events, query, clinicID, limit); err != nil {
		return nil, fmt.Errorf("failed to list funnel events: %w", err)
	}
	return events, nil
}
