package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	appointmentStatuses = map[string]bool{
		"PENDING":   true,
		"CONFIRMED": true,
		"COMPLETED": true,
		"CANCELED":  true,
	}
)

// Custom tags registered by Register.
const (
	TagAppointmentStatus = "appointment_status"
	TagRoleName          = "role_name"
	TagClock             = "clock"
	TagISODate           = "isodate"
)

// Register installs the custom validations and the json tag name func on v.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	validations := map[string]validator.Func{
		TagAppointmentStatus: func(fl validator.FieldLevel) bool {
			return appointmentStatuses[fl.Field().String()]
		},
		TagRoleName: func(fl validator.FieldLevel) bool {
			return strings.HasPrefix(fl.Field().String(), "ROLE_")
		},
		TagClock: func(fl validator.FieldLevel) bool {
			return clockPattern.MatchString(fl.Field().String())
		},
		TagISODate: func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// Messages maps validation tags to user facing messages.
var Messages = map[string]string{
	"required":           "Field is required",
	"email":              "Invalid email format",
	"min":                "Value is too short",
	"max":                "Value is too long",
	"eqfield":            "Values do not match",
	TagAppointmentStatus: "Invalid appointment status",
	TagRoleName:          "Invalid role name",
	TagClock:             "Time must use HH:MM",
	TagISODate:           "Date must use YYYY-MM-DD",
}

// FieldError is a single field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors converts validator errors into field/message pairs.
func FieldErrors(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		msg := Messages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}
