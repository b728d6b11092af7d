package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/wizard"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

// Draft is a wizard held on the server between requests.
type Draft struct {
	ID        uuid.UUID    `json:"id"`
	OwnerID   uuid.UUID    `json:"owner_id"`
	State     wizard.State `json:"state"`
	ClinicID  *uuid.UUID   `json:"clinic_id,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DraftStore keeps drafts in process memory until they expire.
type DraftStore struct {
	c   *gocache.Cache
	ttl time.Duration
}

func NewDraftStore(ttl, cleanupInterval time.Duration) *DraftStore {
	return &DraftStore{c: gocache.New(ttl, cleanupInterval), ttl: ttl}
}

func (s *DraftStore) get(id uuid.UUID) (Draft, bool) {
	v, ok := s.c.Get(id.String())
	if !ok {
		return Draft{}, false
	}
	return v.(Draft), true
}

func (s *DraftStore) put(d Draft) {
	s.c.Set(d.ID.String(), d, s.ttl)
}

func (s *DraftStore) delete(id uuid.UUID) {
	s.c.Delete(id.String())
}

// Edit is one field change; Value is a string for text fields and a bool
// for agreeTerms.
type Edit struct {
	Field wizard.Field
	Value interface{}
}

// editOrder applies stateId before cityId so both can change in one request.
var editOrder = []wizard.Field{
	wizard.FieldClinicName,
	wizard.FieldDentistName,
	wizard.FieldEmail,
	wizard.FieldPhone,
	wizard.FieldStateID,
	wizard.FieldCityID,
	wizard.FieldStreetAddress,
	wizard.FieldWebsite,
	wizard.FieldDescription,
	wizard.FieldAgreeTerms,
}

type Submitter interface {
	Submit(ctx context.Context, user model.CurrentUser, req Request) (*Result, error)
}

type DraftService struct {
	store    *DraftStore
	workflow Submitter
	logger   *logger.Logger
	now      func() time.Time

	// mu serialises read-modify-write on drafts. It is not held while the
	// workflow runs; the Submitting flag blocks a second submit instead.
	mu sync.Mutex
}

func NewDraftService(store *DraftStore, workflow Submitter, log *logger.Logger) *DraftService {
	if log == nil {
		log = logger.Nop()
	}
	return &DraftService{
		store:    store,
		workflow: workflow,
		logger:   log,
		now:      time.Now,
	}
}

func (s *DraftService) Create(ctx context.Context, user model.CurrentUser) (*Draft, error) {
	d := Draft{
		ID:        uuid.New(),
		OwnerID:   user.ID,
		State:     wizard.New(user),
		UpdatedAt: s.now(),
	}
	s.store.put(d)
	return &d, nil
}

func (s *DraftService) Get(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*Draft, error) {
	d, err := s.load(user, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DraftService) Delete(ctx context.Context, user model.CurrentUser, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(user, id)
	if err != nil {
		return err
	}
	if d.State.Submitting {
		return apperrors.NewConflict(wizard.ErrSubmitInFlight.Error(), wizard.ErrSubmitInFlight)
	}
	s.store.delete(id)
	logger.FromContext(ctx, s.logger).Debug("registration draft discarded", "draft_id", id.String())
	return nil
}

func (s *DraftService) Edit(ctx context.Context, user model.CurrentUser, id uuid.UUID, edits []Edit) (*Draft, error) {
	byField := make(map[wizard.Field]interface{}, len(edits))
	for _, e := range edits {
		byField[e.Field] = e.Value
	}

	return s.update(user, id, func(st wizard.State) (wizard.State, error) {
		if !st.Open {
			return st, wizard.ErrClosed
		}
		if st.Submitting {
			return st, wizard.ErrSubmitInFlight
		}
		for f := range byField {
			if !knownField(f) {
				return st, apperrors.NewBadRequest(fmt.Sprintf("unknown field %q", f), wizard.ErrUnknownField)
			}
		}
		for _, f := range editOrder {
			v, ok := byField[f]
			if !ok {
				continue
			}
			if f == wizard.FieldAgreeTerms {
				agree, ok := v.(bool)
				if !ok {
					return st, apperrors.NewBadRequest("agreeTerms must be a boolean", nil)
				}
				st = st.SetAgreeTerms(agree)
				continue
			}
			text, ok := v.(string)
			if !ok {
				return st, apperrors.NewBadRequest(fmt.Sprintf("%s must be a string", f), nil)
			}
			next, err := st.Edit(f, text)
			if err != nil {
				return st, err
			}
			st = next
		}
		return st, nil
	})
}

func (s *DraftService) ToggleService(ctx context.Context, user model.CurrentUser, id uuid.UUID, treatmentID uuid.UUID) (*Draft, error) {
	return s.update(user, id, func(st wizard.State) (wizard.State, error) {
		if !st.Open {
			return st, wizard.ErrClosed
		}
		if st.Submitting {
			return st, wizard.ErrSubmitInFlight
		}
		return st.ToggleService(treatmentID.String()), nil
	})
}

func (s *DraftService) Next(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*Draft, error) {
	return s.update(user, id, func(st wizard.State) (wizard.State, error) {
		if !st.Open {
			return st, wizard.ErrClosed
		}
		return st.Next(), nil
	})
}

func (s *DraftService) Back(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*Draft, error) {
	return s.update(user, id, func(st wizard.State) (wizard.State, error) {
		if !st.Open {
			return st, wizard.ErrClosed
		}
		return st.Back(), nil
	})
}

// Submit runs the registration for a draft on the review step. On success
// the draft is closed and reset; on failure it stays on the review step
// with the error attached and the form intact.
func (s *DraftService) Submit(ctx context.Context, user model.CurrentUser, id uuid.UUID) (*Draft, *Result, error) {
	s.mu.Lock()
	d, err := s.load(user, id)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	st, err := d.State.BeginSubmit()
	if err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			d.State = st
			d.UpdatedAt = s.now()
			s.store.put(d)
		}
		s.mu.Unlock()
		return &d, nil, mapWizardError(err)
	}
	d.State = st
	d.UpdatedAt = s.now()
	s.store.put(d)
	s.mu.Unlock()

	result, submitErr := s.workflow.Submit(ctx, user, Request{Form: st.Form, Services: st.Services})

	s.mu.Lock()
	defer s.mu.Unlock()

	// A draft that expired while the workflow ran is not stored again.
	cur, live := s.store.get(id)
	if live {
		d = cur
	}
	if submitErr != nil {
		d.State = d.State.Failed(userMessage(submitErr))
		if appErr, ok := apperrors.As(submitErr); ok && appErr.Code == apperrors.ErrValidation {
			for f, msg := range appErr.Fields {
				d.State.Errors[wizard.Field(f)] = msg
			}
		}
	} else {
		d.State = d.State.Succeeded(user)
		d.ClinicID = &result.Clinic.ID
	}
	d.UpdatedAt = s.now()
	if live {
		s.store.put(d)
	}

	if submitErr != nil {
		return &d, nil, submitErr
	}
	return &d, result, nil
}

func (s *DraftService) update(user model.CurrentUser, id uuid.UUID, fn func(wizard.State) (wizard.State, error)) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(user, id)
	if err != nil {
		return nil, err
	}
	st, err := fn(d.State)
	if err != nil {
		return nil, mapWizardError(err)
	}
	d.State = st
	d.UpdatedAt = s.now()
	s.store.put(d)
	return &d, nil
}

// load hides other users' drafts behind the same not found error.
func (s *DraftService) load(user model.CurrentUser, id uuid.UUID) (Draft, error) {
	d, ok := s.store.get(id)
	if !ok || d.OwnerID != user.ID {
		return Draft{}, apperrors.NewNotFound("registration", nil)
	}
	return d, nil
}

func knownField(f wizard.Field) bool {
	for _, known := range editOrder {
		if known == f {
			return true
		}
	}
	return false
}

func mapWizardError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make(map[string]string, len(verr.Fields))
		for f, msg := range verr.Fields {
			fields[string(f)] = msg
		}
		return apperrors.NewValidation(verr.Error(), fields)
	case errors.Is(err, wizard.ErrSubmitInFlight), errors.Is(err, wizard.ErrClosed):
		return apperrors.NewConflict(err.Error(), err)
	case errors.Is(err, wizard.ErrNotReviewStep), errors.Is(err, wizard.ErrUnknownField):
		return apperrors.NewBadRequest(err.Error(), err)
	default:
		return apperrors.NewInternal(err)
	}
}

func userMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return "Failed to create practice"
}
