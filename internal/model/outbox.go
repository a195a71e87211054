package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Appointment event types published on the appointments channel.
const (
	EventAppointmentCreated     = "appointment.created"
	EventAppointmentUpdated     = "appointment.updated"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCanceled    = "appointment.canceled"
	EventAppointmentRestored    = "appointment.restored"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"eventType"`
	Channel      string          `db:"channel" json:"channel"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retryCount"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processedAt,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// AppointmentEvent is the payload of appointment events.
type AppointmentEvent struct {
	AppointmentID  uuid.UUID         `json:"appointmentId"`
	SpecialistID   uuid.UUID         `json:"specialistId"`
	SpecialistName string            `json:"specialistName"`
	PatientID      uuid.UUID         `json:"patientId"`
	PatientName    string            `json:"patientName"`
	PatientEmail   string            `json:"patientEmail,omitempty"`
	StartAt        time.Time         `json:"startAt"`
	EndAt          time.Time         `json:"endAt"`
	Status         AppointmentStatus `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	ActorID        *uuid.UUID        `json:"actorId,omitempty"`
}

// NewAppointmentEvent captures the appointment fields consumers need.
func NewAppointmentEvent(a *Appointment, actor *uuid.UUID) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID:  a.ID,
		SpecialistID:   a.SpecialistID,
		SpecialistName: a.SpecialistName,
		PatientID:      a.PatientID,
		PatientName:    a.PatientName,
		PatientEmail:   a.PatientEmail,
		StartAt:        a.StartAt,
		EndAt:          a.EndAt,
		Status:         a.Status,
		ActorID:        actor,
	}
}
