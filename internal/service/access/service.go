package access

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

// StaffLookup is the staff data route refinement and scoping need.
type StaffLookup interface {
	GetSpecialistByUser(ctx context.Context, userID uuid.UUID) (*model.Specialist, error)
	GetAssistantByUser(ctx context.Context, userID uuid.UUID) (*model.Assistant, error)
	ListAssistantSpecialists(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error)
}

// Cache stores resolved access per user.
type Cache struct {
	store cache.Store
	ttl   time.Duration
}

func NewCache(store cache.Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

func cacheKey(userID uuid.UUID) string {
	return "access:" + userID.String()
}

// Invalidate drops cached access for the given users.
func (c *Cache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = cacheKey(id)
	}
	return c.store.Delete(ctx, keys...)
}

type Service struct {
	staff StaffLookup
	cache *Cache
}

func NewService(staff StaffLookup, cache *Cache) *Service {
	return &Service{staff: staff, cache: cache}
}

// Resolve returns the cached access of user, computing it on a miss.
func (s *Service) Resolve(ctx context.Context, user model.AuthUser) (*model.Access, error) {
	var cached model.Access
	err := s.cache.store.Get(ctx, cacheKey(user.ID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("access cache read failed")
	}
	return s.Refresh(ctx, user)
}

// Refresh computes access and replaces the cached copy. Access reduced by a
// failed staff lookup is returned but not cached.
func (s *Service) Refresh(ctx context.Context, user model.AuthUser) (*model.Access, error) {
	a, degraded := s.compute(ctx, user.ID, user.Roles)
	if degraded {
		return a, nil
	}
	if err := s.cache.store.Set(ctx, cacheKey(user.ID), a, s.cache.ttl); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("access cache write failed")
	}
	return a, nil
}

func (s *Service) Invalidate(ctx context.Context, userIDs ...uuid.UUID) error {
	return s.cache.Invalidate(ctx, userIDs...)
}

// Compute maps roles to routes. Specialist and assistant roles are refined
// with concurrent staff lookups; a failed lookup adds nothing.
func (s *Service) Compute(ctx context.Context, userID uuid.UUID, roles []string) *model.Access {
	a, _ := s.compute(ctx, userID, roles)
	return a
}

// compute also reports whether a lookup failed for a reason other than a
// missing staff record.
func (s *Service) compute(ctx context.Context, userID uuid.UUID, roles []string) (*model.Access, bool) {
	a := &model.Access{UserID: userID, Roles: roles}
	if a.Roles == nil {
		a.Roles = []string{}
	}

	if HasAllRoutes(roles) {
		a.AllRoutes = true
		all := StaticRoutes(nil)
		for _, item := range NavOrder {
			all[item.URL] = struct{}{}
		}
		a.AllowedRoutes = sortedRoutes(all)
		a.NavItems = NavItems(a)
		return a, false
	}

	routes := StaticRoutes(roles)
	var mu sync.Mutex
	degraded := false
	fail := func(err error, msg string) {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg(msg)
		if apperrors.IsNotFound(err) {
			return
		}
		mu.Lock()
		degraded = true
		mu.Unlock()
	}
	add := func(extra []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, r := range extra {
			routes[r] = struct{}{}
		}
	}

	var g errgroup.Group
	if hasRole(roles, model.RoleEspecialista) {
		g.Go(func() error {
			extra, err := s.specialistRoutes(ctx, userID)
			if err != nil {
				fail(err, "specialist route lookup failed")
				return nil
			}
			add(extra)
			return nil
		})
	}
	if hasRole(roles, model.RoleAsistenteEspecialista) {
		g.Go(func() error {
			extra, err := s.assistantRoutes(ctx, userID)
			if err != nil {
				fail(err, "assistant route lookup failed")
				return nil
			}
			add(extra)
			return nil
		})
	}
	_ = g.Wait()

	a.AllowedRoutes = sortedRoutes(routes)
	a.NavItems = NavItems(a)
	return a, degraded
}

func (s *Service) specialistRoutes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	specialist, err := s.staff.GetSpecialistByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []string{routeForSpecialist(specialist)}, nil
}

func (s *Service) assistantRoutes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	assistant, err := s.staff.GetAssistantByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	specialists, err := s.staff.ListAssistantSpecialists(ctx, assistant.ID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 2)
	for _, sp := range specialists {
		out = append(out, routeForSpecialist(sp))
	}
	return out, nil
}

func routeForSpecialist(sp *model.Specialist) string {
	if sp.IsPhysiotherapy() {
		return RouteSesiones
	}
	return RouteCitas
}

// AppointmentScope limits a caller to their own specialist record, or to the
// specialists they assist. General roles and every other role are not limited.
func (s *Service) AppointmentScope(ctx context.Context, userID uuid.UUID, roles []string) (*model.AppointmentScope, error) {
	scope := &model.AppointmentScope{AllowedSpecialistIDs: []uuid.UUID{}}
	if HasAllRoutes(roles) {
		return scope, nil
	}

	switch {
	case hasRole(roles, model.RoleEspecialista):
		scope.Restricted = true
		specialist, err := s.staff.GetSpecialistByUser(ctx, userID)
		if apperrors.IsNotFound(err) {
			return scope, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve specialist scope: %w", err)
		}
		id := specialist.ID
		scope.LockedSpecialistID = &id
		scope.SelectedSpecialistID = &id
		scope.AllowedSpecialistIDs = []uuid.UUID{id}

	case hasRole(roles, model.RoleAsistenteEspecialista):
		scope.Restricted = true
		assistant, err := s.staff.GetAssistantByUser(ctx, userID)
		if apperrors.IsNotFound(err) {
			return scope, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assistant scope: %w", err)
		}
		specialists, err := s.staff.ListAssistantSpecialists(ctx, assistant.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assistant scope: %w", err)
		}
		for _, sp := range specialists {
			scope.AllowedSpecialistIDs = append(scope.AllowedSpecialistIDs, sp.ID)
		}
		if len(scope.AllowedSpecialistIDs) == 1 {
			id := scope.AllowedSpecialistIDs[0]
			scope.SelectedSpecialistID = &id
		}
	}
	return scope, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
