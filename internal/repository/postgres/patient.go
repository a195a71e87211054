package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

var patientSorts = sortColumns{
	"fullName":  "p.full_name",
	"createdAt": "p.created_at",
	"birthDate": "p.birth_date",
}

func patientsDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("patients").As("p")).Select(
		goqu.I("p.id"),
		goqu.I("p.created_at"),
		goqu.I("p.updated_at"),
		goqu.I("p.created_by"),
		goqu.I("p.updated_by"),
		goqu.I("p.full_name"),
		goqu.L(`to_char("p"."birth_date", 'YYYY-MM-DD')`).As("birth_date"),
		goqu.I("p.phone"),
		goqu.I("p.email"),
		goqu.I("p.notes"),
	)
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, full_name, birth_date, phone, email, notes,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	patient.ID = uuid.New()
	patient.CreatedAt = now
	patient.UpdatedAt = now
	patient.UpdatedBy = patient.CreatedBy

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FullName,
		patient.BirthDate,
		patient.Phone,
		patient.Email,
		patient.Notes,
		patient.CreatedAt,
		patient.UpdatedAt,
		patient.CreatedBy,
		patient.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query, args, err := patientsDataset().Where(goqu.I("p.id").Eq(id.String())).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build patient query: %w", err)
	}

	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, args...); err != nil {
		return nil, notFound("patient", "get patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, filter model.PatientFilter, paging model.Paging) ([]*model.Patient, int, error) {
	ds := patientsDataset()

	if len(filter.IDs) > 0 {
		ds = ds.Where(goqu.I("p.id").In(uuidStrings(filter.IDs)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		ds = ds.Where(goqu.Or(
			goqu.I("p.full_name").ILike(pattern),
			goqu.I("p.email").ILike(pattern),
			goqu.I("p.phone").ILike(pattern),
		))
	}

	order := patientSorts.order(paging.Sort, goqu.I("p.full_name").Asc(), goqu.I("p.id").Asc())

	var patients []*model.Patient
	total, err := selectPage(ctx, r.db, &patients, ds, paging, order)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}
