package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Status string `json:"status" validate:"omitempty,appointment_status"`
	Role   string `json:"roleName" validate:"omitempty,role_name"`
	Time   string `json:"time" validate:"omitempty,clock"`
	Date   string `json:"date" validate:"omitempty,isodate"`
}

func newValidate(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestCustomValidations(t *testing.T) {
	v := newValidate(t)

	tests := []struct {
		name  string
		input sample
		field string
	}{
		{"valid", sample{Status: "CONFIRMED", Role: "ROLE_RRHH", Time: "09:30", Date: "2025-03-10"}, ""},
		{"bad status", sample{Status: "DONE"}, "status"},
		{"bad role", sample{Role: "admin"}, "roleName"},
		{"bad time", sample{Time: "9:30"}, "time"},
		{"hour out of range", sample{Time: "24:00"}, "time"},
		{"bad date", sample{Date: "10/03/2025"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			fields := FieldErrors(verrs)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
			assert.NotEmpty(t, fields[0].Message)
		})
	}
}
