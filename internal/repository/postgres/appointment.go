package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

var appointmentSorts = sortColumns{
	"startAt":        "a.start_at",
	"endAt":          "a.end_at",
	"status":         "a.status",
	"patientName":    "p.full_name",
	"specialistName": "su.name",
	"createdAt":      "a.created_at",
}

// appointmentsDataset selects appointments joined with specialist and patient names.
func appointmentsDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("appointments").As("a")).
		Join(goqu.T("specialists").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("a.specialist_id")))).
		Join(goqu.T("users").As("su"), goqu.On(goqu.I("su.id").Eq(goqu.I("s.user_id")))).
		Join(goqu.T("patients").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("a.patient_id")))).
		Select(
			goqu.I("a.id"),
			goqu.I("a.created_at"),
			goqu.I("a.updated_at"),
			goqu.I("a.created_by"),
			goqu.I("a.updated_by"),
			goqu.I("a.specialist_id"),
			goqu.I("su.name").As("specialist_name"),
			goqu.I("s.specialty"),
			goqu.I("a.patient_id"),
			goqu.I("p.full_name").As("patient_name"),
			goqu.COALESCE(goqu.I("p.email"), goqu.L("''")).As("patient_email"),
			goqu.I("a.start_at"),
			goqu.I("a.end_at"),
			goqu.I("a.duration_minutes"),
			goqu.I("a.status"),
			goqu.I("a.notes"),
		)
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, specialist_id, patient_id, start_at, end_at,
			duration_minutes, status, notes,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now()
	appointment.ID = uuid.New()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now
	appointment.UpdatedBy = appointment.CreatedBy

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.SpecialistID,
		appointment.PatientID,
		appointment.StartAt,
		appointment.EndAt,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
		appointment.CreatedBy,
		appointment.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query, args, err := appointmentsDataset().
		Where(goqu.I("a.id").Eq(id.String())).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build appointment query: %w", err)
	}

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, args...); err != nil {
		return nil, notFound("appointment", "get appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET specialist_id = $1, start_at = $2, end_at = $3, duration_minutes = $4,
			status = $5, notes = $6, updated_at = $7, updated_by = $8
		WHERE id = $9
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		appointment.SpecialistID,
		appointment.StartAt,
		appointment.EndAt,
		appointment.DurationMinutes,
		appointment.Status,
		appointment.Notes,
		appointment.UpdatedAt,
		appointment.UpdatedBy,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return expectOne(result, "appointment")
}

func (r *appointmentRepository) List(ctx context.Context, filter model.AppointmentFilter, paging model.Paging) ([]*model.Appointment, int, error) {
	ds := appointmentsDataset()

	if len(filter.SpecialistIDs) > 0 {
		ds = ds.Where(goqu.I("a.specialist_id").In(uuidStrings(filter.SpecialistIDs)))
	}
	if filter.PatientID != nil {
		ds = ds.Where(goqu.I("a.patient_id").Eq(filter.PatientID.String()))
	}
	if filter.From != nil {
		ds = ds.Where(goqu.I("a.start_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.I("a.start_at").Lt(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		ds = ds.Where(goqu.I("a.status").In(statuses))
	}
	if filter.Specialty != "" {
		ds = ds.Where(goqu.I("s.specialty").Eq(filter.Specialty))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		ds = ds.Where(goqu.Or(
			goqu.I("p.full_name").ILike(pattern),
			goqu.I("su.name").ILike(pattern),
			goqu.I("a.notes").ILike(pattern),
		))
	}

	order := appointmentSorts.order(paging.Sort, goqu.I("a.start_at").Asc(), goqu.I("a.id").Asc())

	var appointments []*model.Appointment
	total, err := selectPage(ctx, r.db, &appointments, ds, paging, order)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}
