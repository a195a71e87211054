package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

type Service struct {
	specialists repository.SpecialistRepository
	assistants  repository.AssistantRepository
	users       repository.UserRepository
	hasher      security.PasswordHasher
	lookups     cache.Store
	ttl         time.Duration
	access      *access.Cache
}

func NewService(
	specialists repository.SpecialistRepository,
	assistants repository.AssistantRepository,
	users repository.UserRepository,
	hasher security.PasswordHasher,
	lookups cache.Store,
	ttl time.Duration,
	accessCache *access.Cache,
) *Service {
	return &Service{
		specialists: specialists,
		assistants:  assistants,
		users:       users,
		hasher:      hasher,
		lookups:     lookups,
		ttl:         ttl,
		access:      accessCache,
	}
}

func specialistKey(userID uuid.UUID) string { return "specialist:user:" + userID.String() }
func assistantKey(userID uuid.UUID) string  { return "assistant:user:" + userID.String() }
func linksKey(assistantID uuid.UUID) string { return "assistant:links:" + assistantID.String() }

// cached returns the cached value for key or loads and caches it.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var v T
	if err := s.lookups.Get(ctx, key, &v); err == nil {
		return v, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("key", key).Msg("staff cache read failed")
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := s.lookups.Set(ctx, key, v, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("staff cache write failed")
	}
	return v, nil
}

func (s *Service) ListSpecialists(ctx context.Context) ([]*model.Specialist, error) {
	return s.specialists.List(ctx)
}

func (s *Service) GetSpecialist(ctx context.Context, id uuid.UUID) (*model.Specialist, error) {
	return s.specialists.Get(ctx, id)
}

func (s *Service) GetSpecialistByUser(ctx context.Context, userID uuid.UUID) (*model.Specialist, error) {
	return cached(ctx, s, specialistKey(userID), func() (*model.Specialist, error) {
		return s.specialists.GetByUserID(ctx, userID)
	})
}

// CreateSpecialist registers an existing ROLE_ESPECIALISTA user as a specialist.
func (s *Service) CreateSpecialist(ctx context.Context, req *model.CreateSpecialistRequest) (*model.Specialist, error) {
	user, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(model.RoleEspecialista) {
		return nil, apperrors.BadRequest("El usuario no tiene el rol de especialista.", nil)
	}

	specialist := &model.Specialist{
		UserID:    user.ID,
		UserName:  user.Name,
		Specialty: strings.ToUpper(strings.TrimSpace(req.Specialty)),
	}
	if err := s.specialists.Create(ctx, specialist); err != nil {
		return nil, fmt.Errorf("failed to create specialist: %w", err)
	}

	s.forget(ctx, []string{specialistKey(user.ID)}, user.ID)
	return specialist, nil
}

func (s *Service) ListAssistants(ctx context.Context) ([]*model.Assistant, error) {
	return s.assistants.List(ctx)
}

func (s *Service) GetAssistantByUser(ctx context.Context, userID uuid.UUID) (*model.Assistant, error) {
	return cached(ctx, s, assistantKey(userID), func() (*model.Assistant, error) {
		return s.assistants.GetByUserID(ctx, userID)
	})
}

func (s *Service) ListAssistantSpecialists(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error) {
	return cached(ctx, s, linksKey(assistantID), func() ([]*model.Specialist, error) {
		return s.specialists.ListByAssistant(ctx, assistantID)
	})
}

func (s *Service) ListSpecialistAssistants(ctx context.Context, specialistID uuid.UUID) ([]*model.Assistant, error) {
	if _, err := s.specialists.Get(ctx, specialistID); err != nil {
		return nil, err
	}
	return s.assistants.ListBySpecialist(ctx, specialistID)
}

// CreateAssistant creates the assistant's login account with the assistant
// role and links it to the given specialists.
func (s *Service) CreateAssistant(ctx context.Context, req *model.CreateAssistantRequest, actor *uuid.UUID) (*model.Assistant, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperrors.BadRequest("Las contrasenas no coinciden.", nil)
	}
	for _, check := range []struct {
		field model.AvailabilityField
		value string
	}{
		{model.AvailabilityUsername, req.Username},
		{model.AvailabilityEmail, req.Email},
	} {
		field := check.field
		taken, err := s.users.Exists(ctx, field, check.value, nil)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Conflict(fmt.Sprintf("%s already in use", field), nil).
				WithDetails(map[string]any{string(field): field.AvailabilityError()})
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Enabled:      enabled,
		Roles:        []string{model.RoleAsistenteEspecialista},
	}
	user.CreatedBy = actor

	assistant := &model.Assistant{SpecialistIDs: dedupe(req.SpecialistIDs)}
	if err := s.assistants.CreateWithUser(ctx, user, assistant); err != nil {
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}

	return s.assistants.Get(ctx, assistant.ID)
}

// SetAssistantSpecialists replaces the specialists an assistant works for.
func (s *Service) SetAssistantSpecialists(ctx context.Context, assistantID uuid.UUID, specialistIDs []uuid.UUID) (*model.Assistant, error) {
	assistant, err := s.assistants.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	if err := s.assistants.SetSpecialists(ctx, assistantID, dedupe(specialistIDs)); err != nil {
		return nil, fmt.Errorf("failed to update assistant specialists: %w", err)
	}

	s.forget(ctx, []string{linksKey(assistantID), assistantKey(assistant.UserID)}, assistant.UserID)
	return s.assistants.Get(ctx, assistantID)
}

// SetSpecialistAssistants replaces the assistants of a specialist. Access of
// both the previous and the new assistants is recomputed.
func (s *Service) SetSpecialistAssistants(ctx context.Context, specialistID uuid.UUID, assistantIDs []uuid.UUID) ([]*model.Assistant, error) {
	if _, err := s.specialists.Get(ctx, specialistID); err != nil {
		return nil, err
	}
	before, err := s.assistants.ListBySpecialist(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	if err := s.specialists.SetAssistants(ctx, specialistID, dedupe(assistantIDs)); err != nil {
		return nil, fmt.Errorf("failed to update specialist assistants: %w", err)
	}
	after, err := s.assistants.ListBySpecialist(ctx, specialistID)
	if err != nil {
		return nil, err
	}

	var keys []string
	var users []uuid.UUID
	for _, a := range append(before, after...) {
		keys = append(keys, linksKey(a.ID), assistantKey(a.UserID))
		users = append(users, a.UserID)
	}
	s.forget(ctx, keys, users...)
	return after, nil
}

// forget drops staff lookups and cached access after a change.
func (s *Service) forget(ctx context.Context, keys []string, userIDs ...uuid.UUID) {
	if err := s.lookups.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("staff cache invalidation failed")
	}
	if s.access == nil || len(userIDs) == 0 {
		return
	}
	if err := s.access.Invalidate(ctx, userIDs...); err != nil {
		log.Warn().Err(err).Msg("access cache invalidation failed")
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
