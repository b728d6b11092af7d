package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
)

type countingLocations struct {
	states []*model.State
	cities map[uuid.UUID][]*model.City
	calls  int
}

func (c *countingLocations) ListStates(ctx context.Context) ([]*model.State, error) {
	c.calls++
	return c.states, nil
}

func (c *countingLocations) ListCities(ctx context.Context, stateID uuid.UUID) ([]*model.City, error) {
	c.calls++
	return c.cities[stateID], nil
}

func (c *countingLocations) GetState(ctx context.Context, id uuid.UUID) (*model.State, error) {
	return nil, nil
}

func (c *countingLocations) GetCity(ctx context.Context, id uuid.UUID) (*model.City, error) {
	return nil, nil
}

type countingTreatments struct {
	items []*model.Treatment
	calls int
}

func (c *countingTreatments) List(ctx context.Context) ([]*model.Treatment, error) {
	c.calls++
	return c.items, nil
}

func (c *countingTreatments) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Treatment, error) {
	return nil, nil
}

func TestService_CachesLookups(t *testing.T) {
	dubai := &model.State{ID: uuid.New(), Name: "Dubai"}
	locations := &countingLocations{
		states: []*model.State{dubai},
		cities: map[uuid.UUID][]*model.City{dubai.ID: {{ID: uuid.New(), StateID: dubai.ID, Name: "Jumeirah"}}},
	}
	treatments := &countingTreatments{items: []*model.Treatment{{ID: uuid.New(), Name: "Cleaning"}}}
	svc := NewService(locations, treatments, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		states, err := svc.ListStates(ctx)
		require.NoError(t, err)
		assert.Len(t, states, 1)

		cities, err := svc.ListCities(ctx, dubai.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jumeirah", cities[0].Name)

		items, err := svc.ListTreatments(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, 2, locations.calls)
	assert.Equal(t, 1, treatments.calls)

	cities, err := svc.ListCities(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, cities)
}
