package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

// Context keys set by the auth middleware.
const (
	ContextAuthUser = "auth_user"
	ContextClaims   = "token_claims"
)

var errNoCaller = errors.New("no authenticated user in context")

// SetAuth stores the validated token and its user on the request.
func SetAuth(c *gin.Context, claims *model.TokenClaims, user model.AuthUser) {
	c.Set(ContextClaims, claims)
	c.Set(ContextAuthUser, user)
}

func CurrentUser(c *gin.Context) (model.AuthUser, bool) {
	v, ok := c.Get(ContextAuthUser)
	if !ok {
		return model.AuthUser{}, false
	}
	user, ok := v.(model.AuthUser)
	return user, ok
}

func CurrentClaims(c *gin.Context) (*model.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*model.TokenClaims)
	return claims, ok
}

// Caller returns the authenticated user, answering 401 when there is none.
func Caller(c *gin.Context) (model.AuthUser, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(errNoCaller))
		return model.AuthUser{}, false
	}
	return user, true
}

// ActorID is the id recorded in createdBy/updatedBy, nil for anonymous calls.
func ActorID(c *gin.Context) *uuid.UUID {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	id := user.ID
	return &id
}
