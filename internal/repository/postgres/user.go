package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

// userRow scans the aggregated role names next to the user columns.
type userRow struct {
	model.User
	RoleNames pq.StringArray `db:"roles"`
}

func (row *userRow) toModel() *model.User {
	u := row.User
	u.Roles = []string(row.RoleNames)
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return &u
}

func toUsers(rows []*userRow) []*model.User {
	users := make([]*model.User, len(rows))
	for i, row := range rows {
		users[i] = row.toModel()
	}
	return users
}

var userSorts = sortColumns{
	"name":        "u.name",
	"email":       "u.email",
	"username":    "u.username",
	"enabled":     "u.enabled",
	"createdAt":   "u.created_at",
	"updatedAt":   "u.updated_at",
	"lastLoginAt": "u.last_login_at",
	"deletedAt":   "u.deleted_at",
}

func usersDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("users").As("u")).Select(
		goqu.I("u.id"),
		goqu.I("u.created_at"),
		goqu.I("u.updated_at"),
		goqu.I("u.created_by"),
		goqu.I("u.updated_by"),
		goqu.I("u.name"),
		goqu.I("u.email"),
		goqu.I("u.username"),
		goqu.I("u.password_hash"),
		goqu.I("u.enabled"),
		goqu.I("u.last_login_at"),
		goqu.I("u.deleted_at"),
		goqu.I("u.deleted_by"),
		goqu.L("ARRAY(SELECT ur.role_name FROM user_roles ur WHERE ur.user_id = u.id ORDER BY ur.role_name)").As("roles"),
	)
}

func (r *userRepository) getOne(ctx context.Context, ds *goqu.SelectDataset, op string) (*model.User, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound("user", op, err)
	}
	return row.toModel(), nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertUser(ctx, tx, user)
	})
}

// insertUser writes the user row and its roles inside tx.
func insertUser(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	query := `
		INSERT INTO users (
			id, name, email, username, password_hash, enabled,
			created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.UpdatedBy = user.CreatedBy

	_, err := tx.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Enabled,
		user.CreatedAt,
		user.UpdatedAt,
		user.CreatedBy,
		user.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return replaceRoles(ctx, tx, user.ID, user.Roles)
}

func replaceRoles(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, roles []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role_name) VALUES ($1, $2)`, userID, role); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", role, err)
		}
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, usersDataset().Where(goqu.I("u.id").Eq(id.String())), "get user")
}

// GetByLogin finds an active user by username or email, ignoring case.
func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	value := strings.ToLower(strings.TrimSpace(login))
	ds := usersDataset().Where(
		goqu.Or(
			goqu.Func("lower", goqu.I("u.username")).Eq(value),
			goqu.Func("lower", goqu.I("u.email")).Eq(value),
		),
		goqu.I("u.deleted_at").IsNull(),
	)
	return r.getOne(ctx, ds, "get user by login")
}

// Update saves profile fields and replaces roles. An empty PasswordHash keeps
// the stored one.
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			name = $1,
			email = $2,
			username = $3,
			password_hash = COALESCE(NULLIF($4, ''), password_hash),
			enabled = $5,
			updated_at = $6,
			updated_by = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	user.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			user.Name,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.Enabled,
			user.UpdatedAt,
			user.UpdatedBy,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if err := expectOne(result, "user"); err != nil {
			return err
		}
		if user.Roles == nil {
			return nil
		}
		return replaceRoles(ctx, tx, user.ID, user.Roles)
	})
}

func (r *userRepository) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = $1, deleted_by = $2, enabled = FALSE, updated_at = $1, updated_by = $2
		WHERE id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), deletedBy, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(result, "user")
}

func (r *userRepository) Restore(ctx context.Context, id, restoredBy uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = NULL, deleted_by = NULL, enabled = TRUE, updated_at = $1, updated_by = $2
		WHERE id = $3 AND deleted_at IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), restoredBy, id)
	if err != nil {
		return fmt.Errorf("failed to restore user: %w", err)
	}
	return expectOne(result, "user")
}

func (r *userRepository) List(ctx context.Context, filter model.UserFilter, paging model.Paging) ([]*model.User, int, error) {
	ds := usersDataset()

	switch filter.Status {
	case model.UserStatusDeleted:
		ds = ds.Where(goqu.I("u.deleted_at").IsNotNull())
	case model.UserStatusAll:
	default:
		ds = ds.Where(goqu.I("u.deleted_at").IsNull())
	}
	if filter.Enabled != nil {
		ds = ds.Where(goqu.I("u.enabled").Eq(*filter.Enabled))
	}
	if filter.RoleName != "" {
		ds = ds.Where(goqu.L("EXISTS (SELECT 1 FROM user_roles fr WHERE fr.user_id = u.id AND fr.role_name = ?)", filter.RoleName))
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		pattern := likePattern(text)
		ds = ds.Where(goqu.Or(
			goqu.I("u.name").ILike(pattern),
			goqu.I("u.email").ILike(pattern),
			goqu.I("u.username").ILike(pattern),
		))
	}

	order := userSorts.order(paging.Sort, goqu.I("u.name").Asc(), goqu.I("u.id").Asc())

	var rows []*userRow
	total, err := selectPage(ctx, r.db, &rows, ds, paging, order)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return toUsers(rows), total, nil
}

func (r *userRepository) Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error) {
	refs := []model.ResolvedUserRef{}
	if len(ids) == 0 {
		return refs, nil
	}
	query := `SELECT id, name, username FROM users WHERE id = ANY($1::uuid[]) ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}
	return refs, nil
}

// Exists reports whether another user already holds value for field,
// compared case-insensitively. Soft-deleted users still hold their values.
func (r *userRepository) Exists(ctx context.Context, field model.AvailabilityField, value string, excludeID *uuid.UUID) (bool, error) {
	var column string
	switch field {
	case model.AvailabilityUsername:
		column = "username"
	case model.AvailabilityEmail:
		column = "email"
	default:
		return false, fmt.Errorf("unknown availability field %q", field)
	}

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM users WHERE lower(%s) = lower($1)`, column)
	args := []interface{}{strings.TrimSpace(value)}
	if excludeID != nil {
		query += " AND id <> $2"
		args = append(args, *excludeID)
	}
	query += ")"

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check %s availability: %w", column, err)
	}
	return exists, nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
