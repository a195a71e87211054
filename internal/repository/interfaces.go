package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filter model.AppointmentFilter, paging model.Paging) ([]*model.Appointment, int, error)
	}

	SpecialistRepository interface {
		Create(ctx context.Context, specialist *model.Specialist) error
		Get(ctx context.Context, id uuid.UUID) (*model.Specialist, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Specialist, error)
		List(ctx context.Context) ([]*model.Specialist, error)
		ListByAssistant(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error)
		SetAssistants(ctx context.Context, specialistID uuid.UUID, assistantIDs []uuid.UUID) error
	}

	AssistantRepository interface {
		CreateWithUser(ctx context.Context, user *model.User, assistant *model.Assistant) error
		Get(ctx context.Context, id uuid.UUID) (*model.Assistant, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Assistant, error)
		List(ctx context.Context) ([]*model.Assistant, error)
		ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]*model.Assistant, error)
		SetSpecialists(ctx context.Context, assistantID uuid.UUID, specialistIDs []uuid.UUID) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		List(ctx context.Context, filter model.PatientFilter, paging model.Paging) ([]*model.Patient, int, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByLogin(ctx context.Context, login string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
		Restore(ctx context.Context, id, restoredBy uuid.UUID) error
		List(ctx context.Context, filter model.UserFilter, paging model.Paging) ([]*model.User, int, error)
		Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error)
		Exists(ctx context.Context, field model.AvailabilityField, value string, excludeID *uuid.UUID) (bool, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, final bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
