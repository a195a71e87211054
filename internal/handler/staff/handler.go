package staff

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

type Service interface {
	ListSpecialists(ctx context.Context) ([]*model.Specialist, error)
	GetSpecialistByUser(ctx context.Context, userID uuid.UUID) (*model.Specialist, error)
	CreateSpecialist(ctx context.Context, req *model.CreateSpecialistRequest) (*model.Specialist, error)
	ListSpecialistAssistants(ctx context.Context, specialistID uuid.UUID) ([]*model.Assistant, error)
	SetSpecialistAssistants(ctx context.Context, specialistID uuid.UUID, assistantIDs []uuid.UUID) ([]*model.Assistant, error)
	ListAssistants(ctx context.Context) ([]*model.Assistant, error)
	GetAssistantByUser(ctx context.Context, userID uuid.UUID) (*model.Assistant, error)
	CreateAssistant(ctx context.Context, req *model.CreateAssistantRequest, actor *uuid.UUID) (*model.Assistant, error)
	ListAssistantSpecialists(ctx context.Context, assistantID uuid.UUID) ([]*model.Specialist, error)
	SetAssistantSpecialists(ctx context.Context, assistantID uuid.UUID, specialistIDs []uuid.UUID) (*model.Assistant, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	staff := r.Group("/staff")
	{
		specialists := staff.Group("/specialists")
		specialists.GET("", h.ListSpecialists)
		specialists.POST("", h.CreateSpecialist)
		specialists.GET("/by-user/:userId", h.GetSpecialistByUser)
		specialists.GET("/:id/assistants", h.ListSpecialistAssistants)
		specialists.PUT("/:id/assistants", h.SetSpecialistAssistants)

		assistants := staff.Group("/assistants")
		assistants.GET("", h.ListAssistants)
		assistants.POST("", h.CreateAssistant)
		assistants.GET("/by-user/:userId", h.GetAssistantByUser)
		assistants.GET("/:id/specialists", h.ListAssistantSpecialists)
		assistants.PUT("/:id/specialists", h.SetAssistantSpecialists)
	}
}

func (h *Handler) ListSpecialists(c *gin.Context) {
	items, err := h.service.ListSpecialists(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) GetSpecialistByUser(c *gin.Context) {
	userID, ok := handler.ParamUUID(c, "userId")
	if !ok {
		return
	}
	specialist, err := h.service.GetSpecialistByUser(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, specialist)
}

func (h *Handler) CreateSpecialist(c *gin.Context) {
	var req model.CreateSpecialistRequest
	if !handler.Bind(c, &req) {
		return
	}
	specialist, err := h.service.CreateSpecialist(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, specialist)
}

func (h *Handler) ListSpecialistAssistants(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.service.ListSpecialistAssistants(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) SetSpecialistAssistants(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateSpecialistAssistantsRequest
	if !handler.Bind(c, &req) {
		return
	}
	items, err := h.service.SetSpecialistAssistants(c.Request.Context(), id, req.AssistantIDs)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) ListAssistants(c *gin.Context) {
	items, err := h.service.ListAssistants(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) GetAssistantByUser(c *gin.Context) {
	userID, ok := handler.ParamUUID(c, "userId")
	if !ok {
		return
	}
	assistant, err := h.service.GetAssistantByUser(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assistant)
}

func (h *Handler) CreateAssistant(c *gin.Context) {
	var req model.CreateAssistantRequest
	if !handler.Bind(c, &req) {
		return
	}
	assistant, err := h.service.CreateAssistant(c.Request.Context(), &req, handler.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, assistant)
}

func (h *Handler) ListAssistantSpecialists(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	items, err := h.service.ListAssistantSpecialists(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) SetAssistantSpecialists(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAssistantSpecialistsRequest
	if !handler.Bind(c, &req) {
		return
	}
	assistant, err := h.service.SetAssistantSpecialists(c.Request.Context(), id, req.SpecialistIDs)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, assistant)
}
