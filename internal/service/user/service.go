package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

const MsgDeleteSelf = "No puedes eliminar tu propio usuario."

// SessionRevoker voids the tokens already issued to a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

type Service struct {
	repo     repository.UserRepository
	hasher   security.PasswordHasher
	access   *access.Cache
	sessions SessionRevoker
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, accessCache *access.Cache,
	sessions SessionRevoker) *Service {
	return &Service{
		repo:     repo,
		hasher:   hasher,
		access:   accessCache,
		sessions: sessions,
	}
}

func (s *Service) List(ctx context.Context, filter model.UserFilter, paging model.Paging) (model.Page[*model.User], error) {
	switch filter.Status {
	case "":
		filter.Status = model.UserStatusActive
	case model.UserStatusActive, model.UserStatusDeleted, model.UserStatusAll:
	default:
		return model.Page[*model.User]{}, apperrors.BadRequest(fmt.Sprintf("invalid status %q", filter.Status), nil)
	}
	filter.Text = strings.TrimSpace(filter.Text)

	items, total, err := s.repo.List(ctx, filter, paging)
	if err != nil {
		return model.Page[*model.User]{}, err
	}
	return model.NewPage(items, total, paging.Page, paging.Size), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req *model.CreateUserRequest, actor *uuid.UUID) (*model.User, error) {
	u := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Enabled:  true,
		Roles:    dedupeRoles(req.Roles),
	}
	if req.Enabled != nil {
		u.Enabled = *req.Enabled
	}
	if err := s.ensureAvailable(ctx, u.Username, u.Email, nil); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	u.PasswordHash = hash
	u.CreatedBy = actor

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, u.ID)
}

// Update applies the set fields. Cached access of the user is dropped so
// role changes apply on the next request; disabling a user also revokes
// their sessions.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest, actor *uuid.UUID) (*model.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email := "", ""
	if req.Username != nil && !strings.EqualFold(strings.TrimSpace(*req.Username), u.Username) {
		username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), u.Email) {
		email = strings.TrimSpace(*req.Email)
	}
	if err := s.ensureAvailable(ctx, username, email, &id); err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Enabled != nil {
		u.Enabled = *req.Enabled
	}
	u.PasswordHash = ""
	if req.Password != nil && *req.Password != "" {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		u.PasswordHash = hash
	}
	u.Roles = nil
	if req.Roles != nil {
		u.Roles = dedupeRoles(req.Roles)
	}
	u.UpdatedBy = actor

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.forgetAccess(ctx, id)
	if req.Enabled != nil && !*req.Enabled {
		if err := s.sessions.RevokeUser(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete soft deletes a user and revokes their sessions. Callers cannot
// delete themselves.
func (s *Service) Delete(ctx context.Context, id, actor uuid.UUID) error {
	if id == actor {
		return apperrors.BadRequest(MsgDeleteSelf, nil)
	}
	if err := s.repo.SoftDelete(ctx, id, actor); err != nil {
		return err
	}
	s.forgetAccess(ctx, id)
	return s.sessions.RevokeUser(ctx, id)
}

func (s *Service) Restore(ctx context.Context, id, actor uuid.UUID) (*model.User, error) {
	if err := s.repo.Restore(ctx, id, actor); err != nil {
		return nil, err
	}
	s.forgetAccess(ctx, id)
	return s.repo.Get(ctx, id)
}

// Resolve maps user ids to display references, in the order found.
func (s *Service) Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []model.ResolvedUserRef{}, nil
	}
	return s.repo.Resolve(ctx, unique)
}

// AvailabilityQuery checks one username or email. Current is the value the
// form was loaded with; an unchanged value is always available.
type AvailabilityQuery struct {
	Field     model.AvailabilityField
	Value     string
	Current   string
	ExcludeID *uuid.UUID
}

// Availability never fails: a lookup error reports the value as available
// and leaves the final word to the unique constraint.
func (s *Service) Availability(ctx context.Context, q AvailabilityQuery) model.Availability {
	value := strings.TrimSpace(q.Value)
	// Case-insensitive like the login lookup, so a case-only edit is not a clash.
	if value == "" || strings.EqualFold(value, strings.TrimSpace(q.Current)) {
		return model.Availability{Available: true}
	}
	taken, err := s.repo.Exists(ctx, q.Field, value, q.ExcludeID)
	if err != nil {
		log.Warn().Err(err).Str("field", string(q.Field)).Msg("availability check failed")
		return model.Availability{Available: true}
	}
	return model.Availability{Available: !taken}
}

// ensureAvailable rejects a username or email already in use. Empty values
// are skipped.
func (s *Service) ensureAvailable(ctx context.Context, username, email string, excludeID *uuid.UUID) error {
	for _, check := range []struct {
		field model.AvailabilityField
		value string
	}{
		{model.AvailabilityUsername, username},
		{model.AvailabilityEmail, email},
	} {
		if check.value == "" {
			continue
		}
		taken, err := s.repo.Exists(ctx, check.field, check.value, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict(fmt.Sprintf("%s already in use", check.field), nil).
				WithDetails(map[string]any{string(check.field): check.field.AvailabilityError()})
		}
	}
	return nil
}

func (s *Service) forgetAccess(ctx context.Context, id uuid.UUID) {
	if s.access == nil {
		return
	}
	if err := s.access.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Str("user_id", id.String()).Msg("access cache invalidation failed")
	}
}

func dedupeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if _, ok := seen[r]; ok || r == "" {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
