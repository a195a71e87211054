package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

const MsgLoggedOut = "Sesion cerrada."

var errNoClaims = errors.New("no token claims in context")

type Service interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	Logout(ctx context.Context, claims *model.TokenClaims) error
	Me(ctx context.Context, userID uuid.UUID) (*model.AuthUser, error)
	Access(ctx context.Context, user model.AuthUser) (*model.Access, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login publicly and the session routes behind
// authenticate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.GET("/me", authenticate, h.Me)
		auth.GET("/me/access", authenticate, h.MyAccess)
	}
	r.POST("/users/logout", authenticate, h.Logout)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Me(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	user, err := h.svc.Me(c.Request.Context(), caller.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

func (h *Handler) MyAccess(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	access, err := h.svc.Access(c.Request.Context(), caller)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, access)
}

func (h *Handler) Logout(c *gin.Context) {
	claims, ok := handler.CurrentClaims(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(errNoClaims))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: MsgLoggedOut})
}
