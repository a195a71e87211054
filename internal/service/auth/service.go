package auth

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
	"github.com/jwalitptl/clinic-dashboard-api/pkg/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

const (
	MsgInvalidCredentials = "Usuario o contrasena incorrectos."
	MsgUserDisabled       = "El usuario esta deshabilitado."
)

var ErrTokenRevoked = errors.New("token revoked")

// AccessResolver computes and caches route access.
type AccessResolver interface {
	Resolve(ctx context.Context, user model.AuthUser) (*model.Access, error)
	Refresh(ctx context.Context, user model.AuthUser) (*model.Access, error)
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

type Service struct {
	users    repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	denylist cache.Store
	access   AccessResolver
	now      func() time.Time
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	denylist cache.Store, access AccessResolver) *Service {
	return &Service{
		users:    users,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		denylist: denylist,
		access:   access,
		now:      time.Now,
	}
}

func denylistKey(tokenID string) string {
	return "denylist:" + tokenID
}

func revokedKey(userID uuid.UUID) string {
	return "revoked:" + userID.String()
}

// Login checks the credentials and issues an access token. Access is
// recomputed so the new session sees current staff links.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	login := strings.TrimSpace(req.Username)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}

	user, err := s.users.GetByLogin(ctx, login)
	if apperrors.IsNotFound(err) {
		return nil, invalidCredentials()
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, invalidCredentials()
	}
	if !user.Enabled {
		return nil, apperrors.Forbidden(MsgUserDisabled)
	}

	token, _, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record last login")
	}
	authUser := user.ToAuthUser()
	if _, err := s.access.Refresh(ctx, authUser); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to refresh access")
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user logged in")
	return &model.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.Expiry().Seconds()),
		TokenType:   model.TokenTypeBearer,
		User:        authUser,
	}, nil
}

// Authenticate validates a bearer token and rejects revoked ones, including
// every token of a user revoked by RevokeUser after it was issued.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.denylist.Exists(ctx, denylistKey(claims.TokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to check token denylist: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	var revokedAt int64
	err = s.denylist.Get(ctx, revokedKey(claims.UserID), &revokedAt)
	switch {
	case errors.Is(err, cache.ErrMiss):
	case err != nil:
		return nil, fmt.Errorf("failed to check user revocation: %w", err)
	case !claims.IssuedAt.After(time.Unix(revokedAt, 0)):
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// RevokeUser voids every token issued to the user so far. The mark lives as
// long as a token can, so later logins are unaffected.
func (s *Service) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.denylist.Set(ctx, revokedKey(userID), s.now().Unix(), s.jwtSvc.Expiry()); err != nil {
		return fmt.Errorf("failed to revoke sessions of user %s: %w", userID, err)
	}
	log.Info().Str("user_id", userID.String()).Msg("user sessions revoked")
	return nil
}

// Logout revokes the token until it would have expired and drops the
// user's cached access.
func (s *Service) Logout(ctx context.Context, claims *model.TokenClaims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl > 0 {
		if err := s.denylist.Set(ctx, denylistKey(claims.TokenID), true, ttl); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}
	if err := s.access.Invalidate(ctx, claims.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID.String()).Msg("access cache invalidation failed")
	}
	return nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.AuthUser, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	authUser := user.ToAuthUser()
	return &authUser, nil
}

func (s *Service) Access(ctx context.Context, user model.AuthUser) (*model.Access, error) {
	return s.access.Resolve(ctx, user)
}

func invalidCredentials() error {
	return &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: MsgInvalidCredentials}
}
