// Package registration creates a practice listing from a completed wizard:
// clinic, services, primary dentist, dentist role, admin lead and the
// listing confirmation event.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/slug"
	"github.com/jwalitptl/practice-api/internal/wizard"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const (
	SlugConflictMessage = "A practice with this name was just registered, please try again"
	selfListingType     = "self_listing"
)

// ProfileInvalidator drops the cached practice profile of a user.
type ProfileInvalidator interface {
	InvalidateProfile(ctx context.Context, userID uuid.UUID) error
}

type Config struct {
	// Transactional runs the whole submission in one transaction.
	Transactional       bool
	SlugConflictRetries int
	RetryInterval       time.Duration
}

// Stage names a write in the submission sequence.
type Stage string

const (
	StageClinic     Stage = "clinic"
	StageTreatments Stage = "treatments"
	StageDentist    Stage = "dentist"
	StageRole       Stage = "role"
	StageLead       Stage = "lead"
	StageEvent      Stage = "event"
)

// SubmissionError reports a failure after earlier writes were already
// committed. It only occurs with Transactional off.
type SubmissionError struct {
	Stage    Stage
	ClinicID uuid.UUID
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("practice registration failed at %s (clinic %s kept): %v", e.Stage, e.ClinicID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

type Request struct {
	Form     wizard.Form
	Services []string
}

type Result struct {
	Clinic      *model.Clinic            `json:"clinic"`
	Dentist     *model.Dentist           `json:"dentist"`
	Treatments  []*model.ClinicTreatment `json:"treatments"`
	RoleGranted bool                     `json:"role_granted"`
	Lead        *model.Lead              `json:"lead"`
}

type Dependencies struct {
	Tx               repository.TxRunner
	Clinics          repository.ClinicRepository
	Dentists         repository.DentistRepository
	ClinicTreatments repository.ClinicTreatmentRepository
	Roles            repository.UserRoleRepository
	Leads            repository.LeadRepository
	Locations        repository.LocationRepository
	Treatments       repository.TreatmentRepository
	Outbox           repository.OutboxRepository
	Profiles         ProfileInvalidator
	Logger           *logger.Logger
	Metrics          *metrics.Metrics
}

type Workflow struct {
	deps  Dependencies
	slugs *slug.Resolver
	cfg   Config
}

func NewWorkflow(deps Dependencies, cfg Config) *Workflow {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if cfg.SlugConflictRetries < 0 {
		cfg.SlugConflictRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	return &Workflow{
		deps:  deps,
		slugs: slug.NewResolver(deps.Clinics, deps.Dentists),
		cfg:   cfg,
	}
}

// plan holds everything resolved before the first write.
type plan struct {
	form         wizard.Form
	state        *model.State
	city         *model.City
	treatmentIDs []uuid.UUID
	serviceNames []string
}

// Submit validates the request and writes the practice. Errors are
// *apperrors.AppError values.
func (w *Workflow) Submit(ctx context.Context, user model.CurrentUser, req Request) (*Result, error) {
	timer := prometheus.NewTimer(w.deps.Metrics.RegistrationLatency)
	defer timer.ObserveDuration()

	log := logger.FromContext(ctx, w.deps.Logger)

	p, err := w.prepare(ctx, req)
	if err != nil {
		w.deps.Metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var result *Result
	if w.cfg.Transactional {
		result, err = w.submitTx(ctx, user, p)
	} else {
		result, err = w.submitSequential(ctx, user, p)
	}
	if err != nil {
		outcome := "failed"
		if errors.Is(err, repository.ErrSlugTaken) {
			outcome = "conflict"
		}
		w.deps.Metrics.Registrations.WithLabelValues(outcome).Inc()
		log.Error(err, "practice registration failed", "user_id", user.ID.String(), "clinic_name", p.form.ClinicName)
		return nil, toAppError(err)
	}

	w.deps.Metrics.Registrations.WithLabelValues("success").Inc()
	log.Info("practice registered",
		"user_id", user.ID.String(),
		"clinic_id", result.Clinic.ID.String(),
		"clinic_slug", result.Clinic.Slug,
		"services", len(result.Treatments),
	)

	if w.deps.Profiles != nil {
		if err := w.deps.Profiles.InvalidateProfile(ctx, user.ID); err != nil {
			log.Warn("failed to invalidate profile cache", "user_id", user.ID.String(), "error", err.Error())
		}
	}
	return result, nil
}

func (w *Workflow) prepare(ctx context.Context, req Request) (*plan, error) {
	form := req.Form
	form.ClinicName = strings.TrimSpace(form.ClinicName)
	form.DentistName = strings.TrimSpace(form.DentistName)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.StreetAddress = strings.TrimSpace(form.StreetAddress)
	form.Website = strings.TrimSpace(form.Website)
	form.Description = strings.TrimSpace(form.Description)

	if !form.AgreeTerms {
		return nil, apperrors.NewValidation(wizard.TermsMessage, map[string]string{
			string(wizard.FieldAgreeTerms): wizard.TermsMessage,
		})
	}
	if errs := wizard.ValidateAll(form); len(errs) > 0 {
		return nil, validationError(errs)
	}

	p := &plan{form: form}

	stateID, err := uuid.Parse(form.StateID)
	if err != nil {
		return nil, validationError(wizard.FieldErrors{wizard.FieldStateID: "Emirate is required"})
	}
	cityID, err := uuid.Parse(form.CityID)
	if err != nil {
		return nil, validationError(wizard.FieldErrors{wizard.FieldCityID: "Area is required"})
	}

	if p.state, err = w.deps.Locations.GetState(ctx, stateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError(wizard.FieldErrors{wizard.FieldStateID: "Emirate is required"})
		}
		return nil, apperrors.NewInternal(err)
	}
	if p.city, err = w.deps.Locations.GetCity(ctx, cityID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError(wizard.FieldErrors{wizard.FieldCityID: "Area is required"})
		}
		return nil, apperrors.NewInternal(err)
	}
	if p.city.StateID != p.state.ID {
		return nil, validationError(wizard.FieldErrors{wizard.FieldCityID: "Area is not in the selected emirate"})
	}

	seen := make(map[uuid.UUID]bool, len(req.Services))
	for _, raw := range req.Services {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid service id %q", raw), err)
		}
		if !seen[id] {
			seen[id] = true
			p.treatmentIDs = append(p.treatmentIDs, id)
		}
	}

	if len(p.treatmentIDs) > 0 {
		catalog, err := w.deps.Treatments.GetByIDs(ctx, p.treatmentIDs)
		if err != nil {
			return nil, apperrors.NewInternal(err)
		}
		names := make(map[uuid.UUID]string, len(catalog))
		for _, t := range catalog {
			names[t.ID] = t.Name
		}
		for _, id := range p.treatmentIDs {
			name, ok := names[id]
			if !ok {
				return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown service %s", id), nil)
			}
			p.serviceNames = append(p.serviceNames, name)
		}
	}
	return p, nil
}

// submitTx retries the whole transaction on a slug conflict; a failed
// statement leaves a postgres transaction unusable.
func (w *Workflow) submitTx(ctx context.Context, user model.CurrentUser, p *plan) (*Result, error) {
	var result *Result
	err := w.retrySlug(ctx, "transaction", func() error {
		return w.deps.Tx.WithinTx(ctx, func(txCtx context.Context) error {
			r, err := w.write(txCtx, user, p, false)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	return result, err
}

func (w *Workflow) submitSequential(ctx context.Context, user model.CurrentUser, p *plan) (*Result, error) {
	return w.write(ctx, user, p, true)
}

// write performs the inserts in order. With perInsertRetry each slug insert
// retries on its own and later failures come back as *SubmissionError.
func (w *Workflow) write(ctx context.Context, user model.CurrentUser, p *plan, perInsertRetry bool) (*Result, error) {
	result := &Result{}
	form := p.form

	clinic := &model.Clinic{
		Name:               form.ClinicName,
		Phone:              form.Phone,
		Email:              form.Email,
		Website:            optional(form.Website),
		Address:            optional(form.StreetAddress),
		Description:        optional(form.Description),
		CityID:             p.city.ID,
		ClaimedBy:          &user.ID,
		ClaimStatus:        model.ClaimStatusClaimed,
		VerificationStatus: model.VerificationStatusPending,
		LocationVerified:   true,
		IsActive:           true,
		Source:             model.ClinicSourceManual,
	}
	if err := w.insertWithSlug(ctx, slug.Clinics, form.ClinicName, perInsertRetry, func(s string) error {
		clinic.Slug = s
		return w.deps.Clinics.Create(ctx, clinic)
	}); err != nil {
		return nil, err
	}
	result.Clinic = clinic

	partial := func(stage Stage, err error) error {
		if !perInsertRetry {
			return err
		}
		return &SubmissionError{Stage: stage, ClinicID: clinic.ID, Err: err}
	}

	if len(p.treatmentIDs) > 0 {
		rows := make([]*model.ClinicTreatment, 0, len(p.treatmentIDs))
		for _, id := range p.treatmentIDs {
			rows = append(rows, &model.ClinicTreatment{ClinicID: clinic.ID, TreatmentID: id})
		}
		if err := w.deps.ClinicTreatments.CreateBatch(ctx, rows); err != nil {
			return nil, partial(StageTreatments, err)
		}
		result.Treatments = rows
	}

	dentist := &model.Dentist{
		Name:      form.DentistName,
		Email:     form.Email,
		Phone:     form.Phone,
		ClinicID:  clinic.ID,
		IsPrimary: true,
		IsActive:  true,
	}
	if err := w.insertWithSlug(ctx, slug.Dentists, form.DentistName, perInsertRetry, func(s string) error {
		dentist.Slug = s
		return w.deps.Dentists.Create(ctx, dentist)
	}); err != nil {
		return nil, partial(StageDentist, err)
	}
	result.Dentist = dentist

	hasRole, err := w.deps.Roles.HasRole(ctx, user.ID, model.RoleDentist)
	if err != nil {
		return nil, partial(StageRole, err)
	}
	if !hasRole {
		if err := w.deps.Roles.Create(ctx, &model.UserRole{UserID: user.ID, Role: model.RoleDentist}); err != nil {
			return nil, partial(StageRole, err)
		}
		result.RoleGranted = true
	}

	message, err := json.Marshal(model.SelfListingMessage{
		Type:        selfListingType,
		ClinicName:  form.ClinicName,
		State:       p.state.Name,
		City:        p.city.Name,
		Services:    nonNil(p.serviceNames),
		Description: form.Description,
	})
	if err != nil {
		return nil, partial(StageLead, err)
	}
	lead := &model.Lead{
		PatientName:  form.DentistName,
		PatientEmail: form.Email,
		PatientPhone: form.Phone,
		ClinicID:     clinic.ID,
		Message:      message,
		Source:       model.LeadSourceAddPractice,
		Status:       model.LeadStatusConverted,
	}
	if err := w.deps.Leads.Create(ctx, lead); err != nil {
		return nil, partial(StageLead, err)
	}
	result.Lead = lead

	if w.deps.Outbox != nil {
		payload, err := json.Marshal(model.PracticeRegisteredPayload{
			ClinicID:    clinic.ID,
			ClinicName:  clinic.Name,
			ClinicSlug:  clinic.Slug,
			DentistName: dentist.Name,
			Email:       form.Email,
			UserID:      user.ID,
		})
		if err == nil {
			err = w.deps.Outbox.Create(ctx, &model.OutboxEvent{
				EventType: model.EventPracticeRegistered,
				Payload:   payload,
			})
		}
		if err != nil {
			return nil, partial(StageEvent, err)
		}
	}

	return result, nil
}

func (w *Workflow) insertWithSlug(ctx context.Context, ns slug.Namespace, name string, retry bool, insert func(slug string) error) error {
	attempt := func() error {
		s, err := w.slugs.Unique(ctx, ns, name)
		if err != nil {
			return err
		}
		return insert(s)
	}
	if !retry {
		return attempt()
	}
	return w.retrySlug(ctx, string(ns), attempt)
}

// retrySlug repeats op while it fails with repository.ErrSlugTaken.
func (w *Workflow) retrySlug(ctx context.Context, scope string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.RetryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(w.cfg.SlugConflictRetries)), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || errors.Is(err, repository.ErrSlugTaken) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		w.deps.Metrics.SlugConflictRetries.WithLabelValues(scope).Inc()
		w.deps.Logger.Warn("slug taken, retrying", "scope", scope, "wait", wait.String())
	})
}

func toAppError(err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return &apperrors.AppError{
			Code:    apperrors.ErrInternal,
			Message: fmt.Sprintf("Failed to create practice while saving the %s", subErr.Stage),
			Err:     subErr,
		}
	}
	if errors.Is(err, repository.ErrSlugTaken) {
		return apperrors.NewConflict(SlugConflictMessage, err)
	}
	return &apperrors.AppError{
		Code:    apperrors.ErrInternal,
		Message: "Failed to create practice",
		Err:     err,
	}
}

func validationError(errs wizard.FieldErrors) *apperrors.AppError {
	fields := make(map[string]string, len(errs))
	for f, msg := range errs {
		fields[string(f)] = msg
	}
	return apperrors.NewValidation("please correct the highlighted fields", fields)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
