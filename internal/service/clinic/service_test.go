package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profilecache "github.com/jwalitptl/practice-api/internal/cache"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type mockClinicRepo struct {
	repository.ClinicRepository
	clinics map[uuid.UUID]*model.Clinic
	calls   int
}

func (m *mockClinicRepo) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	m.calls++
	c, ok := m.clinics[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (m *mockClinicRepo) GetByOwner(ctx context.Context, userID uuid.UUID) (*model.Clinic, error) {
	m.calls++
	for _, c := range m.clinics {
		if c.IsOwnedBy(userID) {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

type mockDentistRepo struct {
	repository.DentistRepository
	primary map[uuid.UUID]*model.Dentist
	err     error
}

func (m *mockDentistRepo) GetPrimaryByClinic(ctx context.Context, clinicID uuid.UUID) (*model.Dentist, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.primary[clinicID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

type mapCache map[uuid.UUID]*model.PracticeProfile

func (c mapCache) Get(ctx context.Context, userID uuid.UUID) (*model.PracticeProfile, bool) {
	p, ok := c[userID]
	return p, ok
}

func (c mapCache) Set(ctx context.Context, userID uuid.UUID, p *model.PracticeProfile) error {
	c[userID] = p
	return nil
}

func setup() (*Service, *mockClinicRepo, *mockDentistRepo, mapCache, model.CurrentUser, *model.Clinic) {
	user := model.CurrentUser{ID: uuid.New(), Email: "sara@brightsmiles.ae"}
	clinic := &model.Clinic{Base: model.Base{ID: uuid.New()}, Name: "Bright Smiles Dental", ClaimedBy: &user.ID}
	clinics := &mockClinicRepo{clinics: map[uuid.UUID]*model.Clinic{clinic.ID: clinic}}
	dentists := &mockDentistRepo{primary: map[uuid.UUID]*model.Dentist{
		clinic.ID: {Name: "Dr. Sara Ahmed", ClinicID: clinic.ID, IsPrimary: true},
	}}
	cache := mapCache{}
	return NewService(clinics, dentists, cache), clinics, dentists, cache, user, clinic
}

func TestGetMyPractice_LoadsAndCaches(t *testing.T) {
	svc, clinics, _, cache, user, clinic := setup()

	profile, err := svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, clinic.ID, profile.Clinic.ID)
	require.NotNil(t, profile.Dentist)
	assert.Equal(t, "Dr. Sara Ahmed", profile.Dentist.Name)
	assert.Contains(t, cache, user.ID)

	_, err = svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, clinics.calls, "second call is served from cache")
}

func TestGetMyPractice_CachedProfileIsNotShared(t *testing.T) {
	svc, clinics, dentists, _, user, _ := setup()
	svc = NewService(clinics, dentists, profilecache.NewProfileCache(nil, time.Minute, time.Minute, nil, nil))

	first, err := svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	first.Dentist.Name = "changed by caller"

	second, err := svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 1, clinics.calls)
	assert.Equal(t, "Dr. Sara Ahmed", second.Dentist.Name)

	second.Clinic.Name = "changed again"
	third, err := svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "Bright Smiles Dental", third.Clinic.Name)
}

func TestGetMyPractice_NoClinic(t *testing.T) {
	svc, _, _, _, _, _ := setup()

	_, err := svc.GetMyPractice(context.Background(), model.CurrentUser{ID: uuid.New()})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestGetMyPractice_MissingDentistIsFine(t *testing.T) {
	svc, _, dentists, _, user, _ := setup()
	dentists.primary = nil

	profile, err := svc.GetMyPractice(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, profile.Dentist)
}

func TestGetMyPractice_DentistLookupError(t *testing.T) {
	svc, _, dentists, _, user, _ := setup()
	dentists.err = errors.New("db down")

	_, err := svc.GetMyPractice(context.Background(), user)
	assert.Error(t, err)
}

func TestGetOwnedClinic(t *testing.T) {
	svc, _, _, _, user, clinic := setup()

	got, err := svc.GetOwnedClinic(context.Background(), user, clinic.ID)
	require.NoError(t, err)
	assert.Equal(t, clinic.ID, got.ID)

	_, err = svc.GetOwnedClinic(context.Background(), model.CurrentUser{ID: uuid.New()}, clinic.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	_, err = svc.GetOwnedClinic(context.Background(), user, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
