package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Ping reports whether the database answers.
func (r *BaseRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// notFound turns sql.ErrNoRows into a NotFound AppError and wraps anything else.
func notFound(resource string, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// expectOne maps a zero-row update to NotFound.
func expectOne(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound(resource, sql.ErrNoRows)
	}
	return nil
}

// Repositories bundles every postgres repository over one connection pool.
type Repositories struct {
	Base         BaseRepository
	Appointments repository.AppointmentRepository
	Specialists  repository.SpecialistRepository
	Assistants   repository.AssistantRepository
	Patients     repository.PatientRepository
	Users        repository.UserRepository
	Outbox       repository.OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Base:         base,
		Appointments: NewAppointmentRepository(base),
		Specialists:  NewSpecialistRepository(base),
		Assistants:   NewAssistantRepository(base),
		Patients:     NewPatientRepository(base),
		Users:        NewUserRepository(base),
		Outbox:       NewOutboxRepository(base),
	}
}
