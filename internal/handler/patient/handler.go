package patient

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

const defaultPageSize = 10

type Service interface {
	Search(ctx context.Context, text string, paging model.Paging) (model.Page[*model.Patient], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Create(ctx context.Context, req *model.CreatePatientRequest, actor *uuid.UUID) (*model.Patient, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.SearchPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/:id", h.GetPatient)
	}
}

// SearchPatients backs the patient autocomplete of the appointment form.
func (h *Handler) SearchPatients(c *gin.Context) {
	page, err := h.service.Search(c.Request.Context(), strings.TrimSpace(c.Query("search")), handler.Paging(c, defaultPageSize))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	patient, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if !handler.Bind(c, &req) {
		return
	}
	patient, err := h.service.Create(c.Request.Context(), &req, handler.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, patient)
}
