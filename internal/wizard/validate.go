package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names match the JSON keys clients send.
type Field string

const (
	FieldClinicName    Field = "clinicName"
	FieldDentistName   Field = "dentistName"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldStateID       Field = "stateId"
	FieldCityID        Field = "cityId"
	FieldStreetAddress Field = "streetAddress"
	FieldWebsite       Field = "website"
	FieldDescription   Field = "description"
	FieldAgreeTerms    Field = "agreeTerms"
)

const TermsMessage = "Please agree to the terms and conditions"

// FieldErrors maps a field to the message shown next to it.
type FieldErrors map[Field]string

// Form is everything the practice wizard collects except selected services.
type Form struct {
	ClinicName    string `json:"clinicName"`
	DentistName   string `json:"dentistName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	StateID       string `json:"stateId"`
	CityID        string `json:"cityId"`
	StreetAddress string `json:"streetAddress"`
	Website       string `json:"website"`
	Description   string `json:"description"`
	AgreeTerms    bool   `json:"agreeTerms"`
}

type practiceDetails struct {
	ClinicName  string `json:"clinicName" validate:"min=2,max=100"`
	DentistName string `json:"dentistName" validate:"min=2,max=100"`
	StateID     string `json:"stateId" validate:"required"`
	CityID      string `json:"cityId" validate:"required"`
}

type contactInfo struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"min=10,max=20"`
}

type listingExtras struct {
	StreetAddress string `json:"streetAddress" validate:"max=500"`
	Website       string `json:"website" validate:"omitempty,url,max=255"`
	Description   string `json:"description" validate:"max=2000"`
}

var messages = map[Field]string{
	FieldClinicName:  "Clinic name is required",
	FieldDentistName: "Your name is required",
	FieldStateID:     "Emirate is required",
	FieldCityID:      "Area is required",
	FieldEmail:       "Valid email is required",
	FieldPhone:       "Valid phone number is required",
	FieldWebsite:     "Website must be a valid URL",
}

var labels = map[Field]string{
	FieldClinicName:    "Clinic name",
	FieldDentistName:   "Your name",
	FieldEmail:         "Email",
	FieldPhone:         "Phone number",
	FieldStreetAddress: "Street address",
	FieldWebsite:       "Website",
	FieldDescription:   "Description",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks only the fields that belong to step. Steps 3 and 4 have
// no required fields.
func Validate(step Step, form Form) FieldErrors {
	switch step {
	case StepPracticeDetails:
		return check(practiceDetails{
			ClinicName:  strings.TrimSpace(form.ClinicName),
			DentistName: strings.TrimSpace(form.DentistName),
			StateID:     form.StateID,
			CityID:      form.CityID,
		})
	case StepContactInfo:
		return check(contactInfo{
			Email: strings.TrimSpace(form.Email),
			Phone: strings.TrimSpace(form.Phone),
		})
	default:
		return FieldErrors{}
	}
}

// ValidateAll checks every step plus the optional listing fields.
func ValidateAll(form Form) FieldErrors {
	errs := FieldErrors{}
	for _, step := range []Step{StepPracticeDetails, StepContactInfo} {
		for f, msg := range Validate(step, form) {
			errs[f] = msg
		}
	}
	for f, msg := range check(listingExtras{
		StreetAddress: strings.TrimSpace(form.StreetAddress),
		Website:       strings.TrimSpace(form.Website),
		Description:   strings.TrimSpace(form.Description),
	}) {
		errs[f] = msg
	}
	return errs
}

func check(s interface{}) FieldErrors {
	errs := FieldErrors{}

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only reachable with a programming error in the structs above.
		panic(err)
	}
	for _, fe := range verrs {
		f := Field(fe.Field())
		if _, seen := errs[f]; seen {
			continue
		}
		errs[f] = message(f, fe)
	}
	return errs
}

func message(f Field, fe validator.FieldError) string {
	if fe.Tag() == "max" {
		return fmt.Sprintf("%s must be at most %s characters", labels[f], fe.Param())
	}
	if msg, ok := messages[f]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid", labels[f])
}
