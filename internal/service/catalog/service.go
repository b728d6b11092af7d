// Package catalog serves the lookup lists the practice wizard needs.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
)

const (
	statesKey     = "states"
	treatmentsKey = "treatments"
)

// Service caches lookup tables locally. They change only through
// migrations, so entries simply expire.
type Service struct {
	locations  repository.LocationRepository
	treatments repository.TreatmentRepository
	cache      *gocache.Cache
}

func NewService(locations repository.LocationRepository, treatments repository.TreatmentRepository, ttl time.Duration) *Service {
	return &Service{
		locations:  locations,
		treatments: treatments,
		cache:      gocache.New(ttl, 2*ttl),
	}
}

func (s *Service) ListStates(ctx context.Context) ([]*model.State, error) {
	if v, ok := s.cache.Get(statesKey); ok {
		return v.([]*model.State), nil
	}
	states, err := s.locations.ListStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	s.cache.SetDefault(statesKey, states)
	return states, nil
}

// ListCities returns the areas of one state; an unknown state yields none.
func (s *Service) ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error) {
	key := "cities:" + stateID.String()
	if v, ok := s.cache.Get(key); ok {
		return v.([]*model.City), nil
	}
	cities, err := s.locations.ListCities(ctx, stateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	s.cache.SetDefault(key, cities)
	return cities, nil
}

func (s *Service) ListTreatments(ctx context.Context) ([]*model.Treatment, error) {
	if v, ok := s.cache.Get(treatmentsKey); ok {
		return v.([]*model.Treatment), nil
	}
	treatments, err := s.treatments.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list treatments: %w", err)
	}
	s.cache.SetDefault(treatmentsKey, treatments)
	return treatments, nil
}
