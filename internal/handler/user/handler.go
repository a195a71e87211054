package user

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	usersvc "github.com/jwalitptl/clinic-dashboard-api/internal/service/user"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

const defaultPageSize = 20

type Service interface {
	List(ctx context.Context, filter model.UserFilter, paging model.Paging) (model.Page[*model.User], error)
	Create(ctx context.Context, req *model.CreateUserRequest, actor *uuid.UUID) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest, actor *uuid.UUID) (*model.User, error)
	Delete(ctx context.Context, id, actor uuid.UUID) error
	Restore(ctx context.Context, id, actor uuid.UUID) (*model.User, error)
	Resolve(ctx context.Context, ids []uuid.UUID) ([]model.ResolvedUserRef, error)
	Availability(ctx context.Context, q usersvc.AvailabilityQuery) model.Availability
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.POST("/resolve", h.ResolveUsers)
		users.GET("/availability", h.CheckAvailability)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)
		users.PATCH("/:id/restore", h.RestoreUser)
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	filter := model.UserFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Text:     strings.TrimSpace(c.Query("text")),
		RoleName: strings.TrimSpace(c.Query("roleName")),
	}
	if raw := strings.TrimSpace(c.Query("enabled")); raw != "" && raw != "null" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid enabled", err))
			return
		}
		filter.Enabled = &enabled
	}

	page, err := h.service.List(c.Request.Context(), filter, handler.Paging(c, defaultPageSize))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !handler.Bind(c, &req) {
		return
	}
	user, err := h.service.Create(c.Request.Context(), &req, handler.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !handler.Bind(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), id, &req, handler.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

// DeleteUser soft deletes; the row stays restorable.
func (h *Handler) DeleteUser(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, caller.ID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func (h *Handler) RestoreUser(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	user, err := h.service.Restore(c.Request.Context(), id, caller.ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}

func (h *Handler) ResolveUsers(c *gin.Context) {
	var req model.ResolveUsersRequest
	if !handler.Bind(c, &req) {
		return
	}
	refs, err := h.service.Resolve(c.Request.Context(), req.UserIDs)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, refs)
}

// CheckAvailability answers the async username/email validators of the
// user form. Exactly one of username or email is expected.
func (h *Handler) CheckAvailability(c *gin.Context) {
	q := usersvc.AvailabilityQuery{Current: c.Query("current")}
	switch {
	case c.Query("username") != "":
		q.Field, q.Value = model.AvailabilityUsername, c.Query("username")
	case c.Query("email") != "":
		q.Field, q.Value = model.AvailabilityEmail, c.Query("email")
	default:
		httputil.RespondWithError(c, apperrors.BadRequest(
			fmt.Sprintf("%s or %s is required", model.AvailabilityUsername, model.AvailabilityEmail), nil))
		return
	}

	excludeID, err := handler.QueryUUID(c, "excludeId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	q.ExcludeID = excludeID

	httputil.RespondWithSuccess(c, h.service.Availability(c.Request.Context(), q))
}
