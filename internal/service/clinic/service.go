package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type ClinicServicer interface {
	GetMyPractice(ctx context.Context, user model.CurrentUser) (*model.PracticeProfile, error)
	GetOwnedClinic(ctx context.Context, user model.CurrentUser, clinicID uuid.UUID) (*model.Clinic, error)
}

// ProfileCache stores practice profiles per user. Get returns a copy the
// caller may modify.
type ProfileCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.PracticeProfile, bool)
	Set(ctx context.Context, userID uuid.UUID, profile *model.PracticeProfile) error
}

type Service struct {
	clinics  repository.ClinicRepository
	dentists repository.DentistRepository
	cache    ProfileCache
}

func NewService(clinics repository.ClinicRepository, dentists repository.DentistRepository, cache ProfileCache) *Service {
	return &Service{
		clinics:  clinics,
		dentists: dentists,
		cache:    cache,
	}
}

// GetMyPractice returns the clinic the user claimed and its primary dentist.
func (s *Service) GetMyPractice(ctx context.Context, user model.CurrentUser) (*model.PracticeProfile, error) {
	if s.cache != nil {
		if profile, ok := s.cache.Get(ctx, user.ID); ok {
			return profile, nil
		}
	}

	clinic, err := s.clinics.GetByOwner(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("practice", err)
		}
		return nil, fmt.Errorf("failed to get practice: %w", err)
	}

	profile := &model.PracticeProfile{Clinic: clinic}
	dentist, err := s.dentists.GetPrimaryByClinic(ctx, clinic.ID)
	switch {
	case err == nil:
		profile.Dentist = dentist
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get primary dentist: %w", err)
	}

	if s.cache != nil {
		// a stale or missing cache entry only costs a query
		_ = s.cache.Set(ctx, user.ID, profile)
	}
	return profile, nil
}

// GetOwnedClinic loads a clinic and checks the user claimed it.
func (s *Service) GetOwnedClinic(ctx context.Context, user model.CurrentUser, clinicID uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.clinics.Get(ctx, clinicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("clinic", err)
		}
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	if !clinic.IsOwnedBy(user.ID) {
		return nil, apperrors.Forbidden("you do not manage this clinic")
	}
	return clinic, nil
}
