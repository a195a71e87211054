package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCanceled  AppointmentStatus = "CANCELED"
)

// AppointmentStatuses lists every status in display order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusCanceled,
}

// Label returns the Spanish label shown in the dashboard.
func (s AppointmentStatus) Label() string {
	switch s {
	case AppointmentStatusPending:
		return "Pendiente"
	case AppointmentStatusConfirmed:
		return "Confirmada"
	case AppointmentStatusCompleted:
		return "Finalizada"
	case AppointmentStatusCanceled:
		return "Cancelada"
	default:
		return string(s)
	}
}

func (s AppointmentStatus) Valid() bool {
	for _, st := range AppointmentStatuses {
		if s == st {
			return true
		}
	}
	return false
}

const DefaultAppointmentDuration = 60

type Appointment struct {
	Base
	Audit
	SpecialistID    uuid.UUID         `json:"specialistId" db:"specialist_id"`
	SpecialistName  string            `json:"specialistName" db:"specialist_name"`
	Specialty       string            `json:"specialty,omitempty" db:"specialty"`
	PatientID       uuid.UUID         `json:"patientId" db:"patient_id"`
	PatientName     string            `json:"patientName" db:"patient_name"`
	PatientEmail    string            `json:"-" db:"patient_email"`
	StartAt         time.Time         `json:"startAt" db:"start_at"`
	EndAt           time.Time         `json:"endAt" db:"end_at"`
	DurationMinutes int               `json:"durationMinutes" db:"duration_minutes"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Notes           string            `json:"notes" db:"notes"`
}

// SetSchedule sets start and duration and keeps EndAt consistent.
func (a *Appointment) SetSchedule(start time.Time, durationMinutes int) {
	if durationMinutes <= 0 {
		durationMinutes = DefaultAppointmentDuration
	}
	a.StartAt = start
	a.DurationMinutes = durationMinutes
	a.EndAt = start.Add(time.Duration(durationMinutes) * time.Minute)
}

type CreateAppointmentRequest struct {
	SpecialistID    uuid.UUID         `json:"specialistId" binding:"required"`
	PatientID       uuid.UUID         `json:"patientId" binding:"required"`
	StartAt         time.Time         `json:"startAt" binding:"required"`
	DurationMinutes int               `json:"durationMinutes" binding:"omitempty,min=5,max=480"`
	Notes           string            `json:"notes" binding:"max=2000"`
	Status          AppointmentStatus `json:"status" binding:"omitempty,appointment_status"`
	ConfirmConflict bool              `json:"confirmConflict"`
}

type UpdateAppointmentRequest struct {
	StartAt         *time.Time         `json:"startAt"`
	DurationMinutes *int               `json:"durationMinutes" binding:"omitempty,min=5,max=480"`
	Notes           *string            `json:"notes" binding:"omitempty,max=2000"`
	Status          *AppointmentStatus `json:"status" binding:"omitempty,appointment_status"`
	SpecialistID    *uuid.UUID         `json:"specialistId"`
	ConfirmConflict bool               `json:"confirmConflict"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
	NoShow bool   `json:"noShow"`
}

// MoveAppointmentRequest reschedules an appointment dropped on a calendar cell.
type MoveAppointmentRequest struct {
	Date            string `json:"date" binding:"required,isodate"`
	Minutes         int    `json:"minutes" binding:"min=0,max=1439"`
	ConfirmConflict bool   `json:"confirmConflict"`
}

type BulkUpdateAppointmentsRequest struct {
	IDs             []uuid.UUID       `json:"ids" binding:"required,min=1"`
	Date            string            `json:"date" binding:"omitempty,isodate"`
	Time            string            `json:"time" binding:"omitempty,clock"`
	Status          AppointmentStatus `json:"status" binding:"omitempty,appointment_status"`
	ConfirmConflict bool              `json:"confirmConflict"`
}

type AppointmentFilter struct {
	SpecialistIDs []uuid.UUID
	PatientID     *uuid.UUID
	From          *time.Time
	To            *time.Time
	Statuses      []AppointmentStatus
	Search        string
	Specialty     string
}

// AppointmentList is a page of appointments plus the ids that overlap within it.
type AppointmentList struct {
	Page[*Appointment]
	ConflictIDs []uuid.UUID `json:"conflictIds"`
}

// MaxNotesLength caps appointment notes, in characters.
const MaxNotesLength = 2000

// SlotConflict answers a single slot check.
type SlotConflict struct {
	Conflict bool        `json:"conflict"`
	IDs      []uuid.UUID `json:"ids"`
}
