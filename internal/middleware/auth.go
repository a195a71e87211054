package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	authsvc "github.com/jwalitptl/clinic-dashboard-api/internal/service/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

const MsgRouteDenied = "No tienes acceso a esta seccion."

var (
	errMissingToken = errors.New("missing authorization header")
	errTokenFormat  = errors.New("invalid authorization format")
)

type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.TokenClaims, error)
}

type AccessResolver interface {
	Resolve(ctx context.Context, user model.AuthUser) (*model.Access, error)
}

type AuthMiddleware struct {
	tokens TokenAuthenticator
	access AccessResolver
}

func NewAuthMiddleware(tokens TokenAuthenticator, access AccessResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, access: access}
}

// Authenticate verifies the bearer token and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errMissingToken))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, model.TokenTypeBearer) || strings.TrimSpace(token) == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errTokenFormat))
			return
		}

		claims, err := m.tokens.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if isTokenError(err) {
				err = apperrors.Unauthorized(err)
			}
			httputil.RespondWithError(c, err)
			return
		}

		handler.SetAuth(c, claims, model.AuthUser{
			ID:       claims.UserID,
			Username: claims.Username,
			Enabled:  true,
			Roles:    claims.Roles,
		})
		c.Next()
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, authsvc.ErrTokenRevoked)
}

// RequireRoute lets the request through when the caller may open any of
// routes. Denials carry the page the dashboard should redirect to.
func (m *AuthMiddleware) RequireRoute(routes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := handler.Caller(c)
		if !ok {
			return
		}

		a, err := m.access.Resolve(c.Request.Context(), user)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		for _, route := range routes {
			if access.CanAccess(a, route) {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden(MsgRouteDenied).WithDetails(map[string]any{
			"redirect": access.RedirectTarget(a),
		}))
	}
}
