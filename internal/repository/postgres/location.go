package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

type locationRepository struct {
	BaseRepository
}

func NewLocationRepository(base BaseRepository) repository.LocationRepository {
	return &locationRepository{base}
}

func (r *locationRepository) ListStates(ctx context.Context) ([]*model.State, error) {
	var states []*model.State
	if err := r.conn(ctx).SelectContext(ctx, &states, `SELECT id, name, slug FROM states ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return states, nil
}

func (r *locationRepository) ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error) {
	query := `SELECT id, state_id, name, slug FROM cities WHERE state_id = $1 ORDER BY name`

	var cities []*model.City
	if err := r.conn(ctx).SelectContext(ctx, &cities, query, stateID); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}

func (r *locationRepository) GetState(ctx context.Context, id uuid.UUID) (*model.State, error) {
	var state model.State
	if err := r.conn(ctx).GetContext(ctx, &state, `SELECT id, name, slug FROM states WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get state: %w", notFound(err))
	}
	return &state, nil
}

func (r *locationRepository) GetCity(ctx context.Context, id uuid.UUID) (*model.City, error) {
	var city model.City
	if err := r.conn(ctx).GetContext(ctx, &city, `SELECT id, state_id, name, slug FROM cities WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get city: %w", notFound(err))
	}
	return &city, nil
}

type treatmentRepository struct {
	BaseRepository
}

func NewTreatmentRepository(base BaseRepository) repository.TreatmentRepository {
	return &treatmentRepository{base}
}

func (r *treatmentRepository) List(ctx context.Context) ([]*model.Treatment, error) {
	var treatments []*model.Treatment
	if err := r.conn(ctx).SelectContext(ctx, &treatments, `SELECT id, name, slug, category FROM treatments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list treatments: %w", err)
	}
	return treatments, nil
}

func (r *treatmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Treatment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, name, slug, category FROM treatments WHERE id = ANY($1::uuid[]) ORDER BY name`
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	var treatments []*model.Treatment
	if err := r.conn(ctx).SelectContext(ctx, &treatments, query, pq.Array(raw)); err != nil {
		return nil, fmt.Errorf("failed to get treatments: %w", err)
	}
	return treatments, nil
}
