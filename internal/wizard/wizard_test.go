package wizard

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/practice-api/internal/model"
)

var testUser = model.CurrentUser{ID: uuid.New(), Email: "dr.lee@example.com", FullName: "Dr. Lee"}

func validForm() Form {
	return Form{
		ClinicName:  "Bright Smiles",
		DentistName: "Dr. Lee",
		Email:       "dr.lee@example.com",
		Phone:       "+971 50 123 4567",
		StateID:     uuid.NewString(),
		CityID:      uuid.NewString(),
		AgreeTerms:  true,
	}
}

func TestValidate_StepOne(t *testing.T) {
	errs := Validate(StepPracticeDetails, Form{ClinicName: " A ", DentistName: strings.Repeat("x", 101)})

	assert.Equal(t, FieldErrors{
		FieldClinicName:  "Clinic name is required",
		FieldDentistName: "Your name must be at most 100 characters",
		FieldStateID:     "Emirate is required",
		FieldCityID:      "Area is required",
	}, errs)
}

func TestValidate_StepTwo(t *testing.T) {
	errs := Validate(StepContactInfo, Form{Email: "not-an-email", Phone: "12345"})
	assert.Equal(t, "Valid email is required", errs[FieldEmail])
	assert.Equal(t, "Valid phone number is required", errs[FieldPhone])

	errs = Validate(StepContactInfo, Form{Email: "  dr.lee@example.com ", Phone: "+971 50 123 4567"})
	assert.Empty(t, errs)

	errs = Validate(StepContactInfo, Form{Email: "dr.lee@example.com", Phone: strings.Repeat("1", 21)})
	assert.Equal(t, "Phone number must be at most 20 characters", errs[FieldPhone])
}

func TestValidate_StepsThreeAndFourHaveNoRequiredFields(t *testing.T) {
	assert.Empty(t, Validate(StepServices, Form{}))
	assert.Empty(t, Validate(StepReviewSubmit, Form{}))
}

func TestValidateAll_OptionalFields(t *testing.T) {
	form := validForm()
	assert.Empty(t, ValidateAll(form))

	form.Website = "clinic dot com"
	form.Description = strings.Repeat("d", 2001)
	errs := ValidateAll(form)
	assert.Equal(t, "Website must be a valid URL", errs[FieldWebsite])
	assert.Equal(t, "Description must be at most 2000 characters", errs[FieldDescription])

	form = validForm()
	form.Website = "https://brightsmiles.ae"
	assert.Empty(t, ValidateAll(form))
}

func TestNew_PrefillsFromUser(t *testing.T) {
	s := New(testUser)
	assert.Equal(t, StepPracticeDetails, s.Step)
	assert.Equal(t, "Dr. Lee", s.Form.DentistName)
	assert.Equal(t, "dr.lee@example.com", s.Form.Email)
	assert.True(t, s.Open)
	assert.Empty(t, s.Services)
}

func TestNext_GatesOnValidation(t *testing.T) {
	s := New(testUser)

	next := s.Next()
	assert.Equal(t, StepPracticeDetails, next.Step)
	assert.NotEmpty(t, next.Errors[FieldClinicName])

	form := validForm()
	s.Form = form
	next = s.Next()
	assert.Equal(t, StepContactInfo, next.Step)
	assert.Empty(t, next.Errors)
}

func TestNext_CapsAtReview(t *testing.T) {
	s := New(testUser)
	s.Form = validForm()
	for i := 0; i < 6; i++ {
		s = s.Next()
	}
	assert.Equal(t, StepReviewSubmit, s.Step)
}

func TestBack(t *testing.T) {
	s := New(testUser)
	s.Form = validForm()
	s = s.Next().Next()
	require.Equal(t, StepServices, s.Step)

	s = s.Back()
	assert.Equal(t, StepContactInfo, s.Step)
	assert.True(t, s.Open)

	s = s.Back().Back()
	assert.Equal(t, StepPracticeDetails, s.Step)
	assert.False(t, s.Open)
}

func TestEdit_ClearsOnlyThatField(t *testing.T) {
	s := New(testUser)
	s.Step = StepContactInfo
	s.Form.Email = "bad"
	s.Form.Phone = "1"
	s = s.Next()
	require.Contains(t, s.Errors, FieldEmail)
	require.Contains(t, s.Errors, FieldPhone)

	edited, err := s.Edit(FieldEmail, "still bad")
	require.NoError(t, err)
	assert.NotContains(t, edited.Errors, FieldEmail)
	assert.Equal(t, "Valid phone number is required", edited.Errors[FieldPhone])

	// receiver untouched
	assert.Contains(t, s.Errors, FieldEmail)
	assert.Equal(t, "bad", s.Form.Email)
}

func TestEdit_StateClearsCity(t *testing.T) {
	s := New(testUser)
	s, _ = s.Edit(FieldStateID, "dubai")
	s, _ = s.Edit(FieldCityID, "jumeirah")

	same, err := s.Edit(FieldStateID, "dubai")
	require.NoError(t, err)
	assert.Equal(t, "jumeirah", same.Form.CityID)

	changed, err := s.Edit(FieldStateID, "sharjah")
	require.NoError(t, err)
	assert.Empty(t, changed.Form.CityID)
}

func TestEdit_FormatsPhone(t *testing.T) {
	s, err := New(testUser).Edit(FieldPhone, "0501234567")
	require.NoError(t, err)
	assert.Equal(t, "+971 50 123 4567", s.Form.Phone)
}

func TestEdit_UnknownField(t *testing.T) {
	_, err := New(testUser).Edit(Field("password"), "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestToggleService(t *testing.T) {
	s := New(testUser).ToggleService("a").ToggleService("b")
	assert.Equal(t, []string{"a", "b"}, s.Services)

	without := s.ToggleService("a")
	assert.Equal(t, []string{"b"}, without.Services)
	assert.Equal(t, []string{"a", "b"}, s.Services)
}

func TestBeginSubmit(t *testing.T) {
	s := New(testUser)
	s.Form = validForm()
	s.Form.AgreeTerms = false

	_, err := s.BeginSubmit()
	assert.ErrorIs(t, err, ErrNotReviewStep)

	s = s.Next().Next().Next()
	require.Equal(t, StepReviewSubmit, s.Step)

	blocked, err := s.BeginSubmit()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TermsMessage, verr.Error())
	assert.Equal(t, StepReviewSubmit, blocked.Step)
	assert.Equal(t, TermsMessage, blocked.Errors[FieldAgreeTerms])

	s = s.SetAgreeTerms(true)
	submitting, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.True(t, submitting.Submitting)

	_, err = submitting.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)
}

func TestSucceededAndFailed(t *testing.T) {
	s := New(testUser)
	s.Form = validForm()
	s.Step = StepReviewSubmit
	s = s.ToggleService("a")
	s, err := s.BeginSubmit()
	require.NoError(t, err)

	failed := s.Failed("boom")
	assert.False(t, failed.Submitting)
	assert.Equal(t, StepReviewSubmit, failed.Step)
	assert.Equal(t, "Bright Smiles", failed.Form.ClinicName)
	assert.Equal(t, []string{"a"}, failed.Services)
	assert.Equal(t, "boom", failed.LastError)

	done := s.Succeeded(testUser)
	assert.False(t, done.Open)
	assert.Equal(t, StepPracticeDetails, done.Step)
	assert.Empty(t, done.Form.ClinicName)
	assert.Equal(t, "Dr. Lee", done.Form.DentistName)
	assert.Empty(t, done.Services)
	assert.False(t, done.Form.AgreeTerms)
}

func TestFormatUAEPhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0501234567", "+971 50 123 4567"},
		{"971501234567", "+971 50 123 4567"},
		{"+971 50 123 4567", "+971 50 123 4567"},
		{"05", "+971 5"},
		{"0501", "+971 50 1"},
		{"+1 202 555 0100", "+1 202 555 0100"},
		{"05012345678", "05012345678"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUAEPhone(tt.in), tt.in)
	}
}
