package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAppointmentSetScheduleKeepsEndConsistent(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	var a Appointment
	a.SetSchedule(start, 45)
	assert.Equal(t, start.Add(45*time.Minute), a.EndAt)
	assert.Equal(t, 45, a.DurationMinutes)

	a.SetSchedule(start, 0)
	assert.Equal(t, DefaultAppointmentDuration, a.DurationMinutes)
	assert.Equal(t, start.Add(time.Hour), a.EndAt)
}

func TestAppointmentStatusLabels(t *testing.T) {
	assert.Equal(t, "Pendiente", AppointmentStatusPending.Label())
	assert.Equal(t, "Confirmada", AppointmentStatusConfirmed.Label())
	assert.Equal(t, "Finalizada", AppointmentStatusCompleted.Label())
	assert.Equal(t, "Cancelada", AppointmentStatusCanceled.Label())
	assert.False(t, AppointmentStatus("DONE").Valid())
}

func TestNewPageComputesTotals(t *testing.T) {
	p := NewPage([]int{1, 2}, 21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.Number)

	empty := NewPage[int](nil, 0, 0, 10)
	assert.NotNil(t, empty.Content)
	assert.Zero(t, empty.TotalPages)
}

func TestStoredSessionExpiry(t *testing.T) {
	storedAt := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s := NewStoredSession(LoginResponse{AccessToken: "t", ExpiresIn: 3600, TokenType: TokenTypeBearer}, storedAt)

	assert.False(t, s.Expired(storedAt.Add(59*time.Minute)))
	assert.False(t, s.Expired(storedAt.Add(time.Hour)))
	assert.True(t, s.Expired(storedAt.Add(time.Hour+time.Second)))
}

func TestAppointmentScopeAllows(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, AppointmentScope{}.Allows(a))

	scoped := AppointmentScope{Restricted: true, AllowedSpecialistIDs: []uuid.UUID{a}}
	assert.True(t, scoped.Allows(a))
	assert.False(t, scoped.Allows(b))
}

func TestAvailabilityErrorKeys(t *testing.T) {
	assert.Equal(t, "usernameTaken", AvailabilityUsername.AvailabilityError())
	assert.Equal(t, "emailTaken", AvailabilityEmail.AvailabilityError())
}
