// Package wizard models the four step "add your practice" flow as an
// immutable value. Every method returns a new State and leaves the
// receiver untouched.
package wizard

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jwalitptl/practice-api/internal/model"
)

type Step int

const (
	StepPracticeDetails Step = iota + 1
	StepContactInfo
	StepServices
	StepReviewSubmit
)

func (s Step) String() string {
	switch s {
	case StepPracticeDetails:
		return "practice_details"
	case StepContactInfo:
		return "contact_info"
	case StepServices:
		return "services"
	case StepReviewSubmit:
		return "review_submit"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrClosed         = errors.New("registration is closed")
	ErrNotReviewStep  = errors.New("submit is only allowed from the review step")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrUnknownField   = errors.New("unknown field")
)

// ValidationError is returned when a transition is blocked by field errors.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if msg, ok := e.Fields[FieldAgreeTerms]; ok && len(e.Fields) == 1 {
		return msg
	}
	return "please correct the highlighted fields"
}

type State struct {
	Step       Step        `json:"step"`
	Form       Form        `json:"form"`
	Services   []string    `json:"services"`
	Errors     FieldErrors `json:"errors"`
	Open       bool        `json:"open"`
	Submitting bool        `json:"submitting"`
	LastError  string      `json:"lastError,omitempty"`
}

// New opens the wizard with name and email taken from the signed in user.
func New(user model.CurrentUser) State {
	return State{
		Step: StepPracticeDetails,
		Form: Form{
			DentistName: user.FullName,
			Email:       user.Email,
		},
		Services: []string{},
		Errors:   FieldErrors{},
		Open:     true,
	}
}

func (s State) clone() State {
	out := s
	out.Services = slices.Clone(s.Services)
	if out.Services == nil {
		out.Services = []string{}
	}
	out.Errors = make(FieldErrors, len(s.Errors))
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}

// Next validates the active step and advances when it is clean. The
// returned Errors replace the previous ones.
func (s State) Next() State {
	out := s.clone()
	if !out.Open || out.Submitting {
		return out
	}
	out.Errors = Validate(out.Step, out.Form)
	if len(out.Errors) == 0 && out.Step < StepReviewSubmit {
		out.Step++
	}
	return out
}

// Back moves one step back. On the first step it closes the wizard.
func (s State) Back() State {
	out := s.clone()
	if out.Submitting {
		return out
	}
	if out.Step <= StepPracticeDetails {
		out.Step = StepPracticeDetails
		out.Open = false
		return out
	}
	out.Step--
	return out
}

// Edit sets one text field and clears that field's error only.
func (s State) Edit(field Field, value string) (State, error) {
	if !s.Open {
		return s, ErrClosed
	}
	if s.Submitting {
		return s, ErrSubmitInFlight
	}

	out := s.clone()
	switch field {
	case FieldClinicName:
		out.Form.ClinicName = value
	case FieldDentistName:
		out.Form.DentistName = value
	case FieldEmail:
		out.Form.Email = value
	case FieldPhone:
		out.Form.Phone = FormatUAEPhone(value)
	case FieldStateID:
		if value != out.Form.StateID {
			out.Form.CityID = ""
		}
		out.Form.StateID = value
	case FieldCityID:
		out.Form.CityID = value
	case FieldStreetAddress:
		out.Form.StreetAddress = value
	case FieldWebsite:
		out.Form.Website = value
	case FieldDescription:
		out.Form.Description = value
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	delete(out.Errors, field)
	return out, nil
}

func (s State) SetAgreeTerms(agree bool) State {
	out := s.clone()
	out.Form.AgreeTerms = agree
	delete(out.Errors, FieldAgreeTerms)
	return out
}

// ToggleService selects treatmentID, or deselects it when already chosen.
func (s State) ToggleService(treatmentID string) State {
	out := s.clone()
	if i := slices.Index(out.Services, treatmentID); i >= 0 {
		out.Services = slices.Delete(out.Services, i, i+1)
	} else {
		out.Services = append(out.Services, treatmentID)
	}
	return out
}

// BeginSubmit marks the wizard as submitting. It requires the review step,
// accepted terms and a form that still passes every step's checks.
func (s State) BeginSubmit() (State, error) {
	switch {
	case !s.Open:
		return s, ErrClosed
	case s.Submitting:
		return s, ErrSubmitInFlight
	case s.Step != StepReviewSubmit:
		return s, ErrNotReviewStep
	}

	out := s.clone()
	if !out.Form.AgreeTerms {
		out.Errors[FieldAgreeTerms] = TermsMessage
		return out, &ValidationError{Fields: FieldErrors{FieldAgreeTerms: TermsMessage}}
	}
	if errs := ValidateAll(out.Form); len(errs) > 0 {
		for f, msg := range errs {
			out.Errors[f] = msg
		}
		return out, &ValidationError{Fields: errs}
	}

	out.Submitting = true
	out.LastError = ""
	return out, nil
}

// Succeeded closes the wizard and resets it for the next practice.
func (s State) Succeeded(user model.CurrentUser) State {
	out := New(user)
	out.Open = false
	return out
}

// Failed keeps everything the user typed and stays on the review step.
func (s State) Failed(message string) State {
	out := s.clone()
	out.Submitting = false
	out.Step = StepReviewSubmit
	out.LastError = message
	return out
}
