package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type specialistRepository struct {
	BaseRepository
}

func NewSpecialistRepository(base BaseRepository) repository.SpecialistRepository {
	return &specialistRepository{base}
}

const specialistSelect = `
	SELECT s.id, s.user_id, u.name AS user_name, s.specialty, s.created_at, s.updated_at
	FROM specialists s
	JOIN users u ON u.id = s.user_id
`

func (r *specialistRepository) Create(ctx context.Context, specialist *model.Specialist) error {
	query := `
		INSERT INTO specialists (id, user_id, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	now := time.Now()
	specialist.ID = uuid.New()
	specialist.CreatedAt = now
	specialist.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		specialist.ID,
		specialist.UserID,
		specialist.Specialty,
		specialist.CreatedAt,
		specialist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create specialist: %w", err)
	}
	return nil
}

func (r *specialistRepository) Get(ctx context.Context, id uuid.UUID) (*model.Specialist, error) {
	var specialist model.Specialist
	if err := r.db.GetContext(ctx, &specialist, specialistSelect+` WHERE s.id = $1`, id); err != nil {
		return nil, notFound("specialist", "get specialist", err)
	}
	return &specialist, nil
}

func (r *specialistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Specialist, error) {
	var specialist model.Specialist
	if err := r.db.GetContext(ctx, &specialist, specialistSelect+` WHERE s.user_id = $1`, userID); err != nil {
		return nil, notFound("specialist", "get specialist by user", err)
	}
	return &specialist, nil
}

func (r *specialistRepository) List(ctx context.Context) ([]*model.Specialist, error) {
	query := specialistSelect + ` WHERE u.deleted_at IS NULL ORDER BY u.name ASC`

	var specialists []*model.Specialist
	if err := r.db.SelectContext(ctx, &specialists, query); err != nil {
		return nil, fmt.Errorf("failed to list specialists: %w", err)
	}
	return specialists, nil
}

func (r *specialistRepository) ListByAssistant(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error) {
	query := specialistSelect + `
		JOIN assistant_specialists x ON x.specialist_id = s.id
		WHERE x.assistant_id = $1
		ORDER BY u.name ASC
	`

	var specialists []*model.Specialist
	if err := r.db.SelectContext(ctx, &specialists, query, assistantID); err != nil {
		return nil, fmt.Errorf("failed to list specialists for assistant: %w", err)
	}
	return specialists, nil
}

func (r *specialistRepository) SetAssistants(ctx context.Context, specialistID uuid.UUID, assistantIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assistant_specialists WHERE specialist_id = $1`, specialistID); err != nil {
			return fmt.Errorf("failed to clear specialist assistants: %w", err)
		}
		for _, assistantID := range assistantIDs {
			if err := linkAssistant(ctx, tx, assistantID, specialistID); err != nil {
				return err
			}
		}
		return nil
	})
}

func linkAssistant(ctx context.Context, tx *sqlx.Tx, assistantID, specialistID uuid.UUID) error {
	query := `
		INSERT INTO assistant_specialists (assistant_id, specialist_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, assistantID, specialistID); err != nil {
		return fmt.Errorf("failed to link assistant to specialist: %w", err)
	}
	return nil
}
