package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type assistantRepository struct {
	BaseRepository
}

func NewAssistantRepository(base BaseRepository) repository.AssistantRepository {
	return &assistantRepository{base}
}

const assistantSelect = `
	SELECT a.id, a.user_id, u.name AS user_name, a.created_at, a.updated_at
	FROM assistants a
	JOIN users u ON u.id = a.user_id
`

type assistantLink struct {
	AssistantID    uuid.UUID `db:"assistant_id"`
	SpecialistID   uuid.UUID `db:"specialist_id"`
	SpecialistName string    `db:"specialist_name"`
}

// CreateWithUser creates the login account, its assistant role, the assistant
// row and its specialist links in one transaction.
func (r *assistantRepository) CreateWithUser(ctx context.Context, user *model.User, assistant *model.Assistant) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		now := time.Now()
		assistant.ID = uuid.New()
		assistant.UserID = user.ID
		assistant.UserName = user.Name
		assistant.CreatedAt = now
		assistant.UpdatedAt = now

		query := `
			INSERT INTO assistants (id, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, assistant.ID, assistant.UserID, assistant.CreatedAt, assistant.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create assistant: %w", err)
		}

		for _, specialistID := range assistant.SpecialistIDs {
			if err := linkAssistant(ctx, tx, assistant.ID, specialistID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *assistantRepository) Get(ctx context.Context, id uuid.UUID) (*model.Assistant, error) {
	var assistant model.Assistant
	if err := r.db.GetContext(ctx, &assistant, assistantSelect+` WHERE a.id = $1`, id); err != nil {
		return nil, notFound("assistant", "get assistant", err)
	}
	if err := r.loadLinks(ctx, []*model.Assistant{&assistant}); err != nil {
		return nil, err
	}
	return &assistant, nil
}

func (r *assistantRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Assistant, error) {
	var assistant model.Assistant
	if err := r.db.GetContext(ctx, &assistant, assistantSelect+` WHERE a.user_id = $1`, userID); err != nil {
		return nil, notFound("assistant", "get assistant by user", err)
	}
	if err := r.loadLinks(ctx, []*model.Assistant{&assistant}); err != nil {
		return nil, err
	}
	return &assistant, nil
}

func (r *assistantRepository) List(ctx context.Context) ([]*model.Assistant, error) {
	var assistants []*model.Assistant
	if err := r.db.SelectContext(ctx, &assistants, assistantSelect+` WHERE u.deleted_at IS NULL ORDER BY u.name ASC`); err != nil {
		return nil, fmt.Errorf("failed to list assistants: %w", err)
	}
	if err := r.loadLinks(ctx, assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

func (r *assistantRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]*model.Assistant, error) {
	query := assistantSelect + `
		JOIN assistant_specialists x ON x.assistant_id = a.id
		WHERE x.specialist_id = $1
		ORDER BY u.name ASC
	`
	var assistants []*model.Assistant
	if err := r.db.SelectContext(ctx, &assistants, query, specialistID); err != nil {
		return nil, fmt.Errorf("failed to list assistants for specialist: %w", err)
	}
	if err := r.loadLinks(ctx, assistants); err != nil {
		return nil, err
	}
	return assistants, nil
}

func (r *assistantRepository) SetSpecialists(ctx context.Context, assistantID uuid.UUID, specialistIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM assistant_specialists WHERE assistant_id = $1`, assistantID); err != nil {
			return fmt.Errorf("failed to clear assistant specialists: %w", err)
		}
		for _, specialistID := range specialistIDs {
			if err := linkAssistant(ctx, tx, assistantID, specialistID); err != nil {
				return err
			}
		}
		return nil
	})
}

// loadLinks fills SpecialistIDs and SpecialistNames with one query.
func (r *assistantRepository) loadLinks(ctx context.Context, assistants []*model.Assistant) error {
	if len(assistants) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.Assistant, len(assistants))
	ids := make([]uuid.UUID, 0, len(assistants))
	for _, a := range assistants {
		a.SpecialistIDs = []uuid.UUID{}
		a.SpecialistNames = []string{}
		byID[a.ID] = a
		ids = append(ids, a.ID)
	}

	query := `
		SELECT x.assistant_id, x.specialist_id, u.name AS specialist_name
		FROM assistant_specialists x
		JOIN specialists s ON s.id = x.specialist_id
		JOIN users u ON u.id = s.user_id
		WHERE x.assistant_id = ANY($1::uuid[])
		ORDER BY u.name ASC
	`
	var links []assistantLink
	if err := r.db.SelectContext(ctx, &links, query, pq.Array(uuidStrings(ids))); err != nil {
		return fmt.Errorf("failed to load assistant specialists: %w", err)
	}
	for _, link := range links {
		if a, ok := byID[link.AssistantID]; ok {
			a.SpecialistIDs = append(a.SpecialistIDs, link.SpecialistID)
			a.SpecialistNames = append(a.SpecialistNames, link.SpecialistName)
		}
	}
	return nil
}
