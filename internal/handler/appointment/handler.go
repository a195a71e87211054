package appointment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/handler"
	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/schedule"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/httputil"
)

const defaultPageSize = 20

type Service interface {
	Scope(ctx context.Context, caller model.AuthUser) (*model.AppointmentScope, error)
	List(ctx context.Context, caller model.AuthUser, q appointment.ListQuery) (*model.AppointmentList, error)
	Get(ctx context.Context, caller model.AuthUser, id uuid.UUID) (*model.Appointment, error)
	Create(ctx context.Context, caller model.AuthUser, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	Update(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error)
	Cancel(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error)
	Restore(ctx context.Context, caller model.AuthUser, id uuid.UUID) (*model.Appointment, error)
	Move(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.MoveAppointmentRequest) (*model.Appointment, error)
	BulkUpdate(ctx context.Context, caller model.AuthUser, req *model.BulkUpdateAppointmentsRequest) ([]*model.Appointment, error)
	SlotConflict(ctx context.Context, caller model.AuthUser, q schedule.SlotQuery) (*model.SlotConflict, error)
	Calendar(ctx context.Context, caller model.AuthUser, q appointment.CalendarQuery) (*appointment.CalendarView, error)
	Agenda(ctx context.Context, caller model.AuthUser, q appointment.AgendaQuery) (*appointment.AgendaView, error)
	Sessions(ctx context.Context, caller model.AuthUser, q appointment.SessionsQuery) (*appointment.SessionsView, error)
}

type Handler struct {
	service Service
	loc     *time.Location
	now     func() time.Time
}

func NewHandler(service Service, loc *time.Location) *Handler {
	return &Handler{service: service, loc: loc, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/scope", h.GetScope)
		appointments.GET("/slot-conflict", h.GetSlotConflict)
		appointments.GET("/calendar", h.GetCalendar)
		appointments.GET("/agenda", h.GetAgenda)
		appointments.GET("/sessions", h.GetSessions)
		appointments.PATCH("/bulk", h.BulkUpdateAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/restore", h.RestoreAppointment)
		appointments.POST("/:id/move", h.MoveAppointment)
	}
}

func (h *Handler) GetScope(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	scope, err := h.service.Scope(c.Request.Context(), caller)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, scope)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}

	q := appointment.ListQuery{
		Search:    strings.TrimSpace(c.Query("search")),
		Specialty: strings.TrimSpace(c.Query("specialty")),
		Paging:    handler.Paging(c, defaultPageSize),
	}
	var err error
	if q.SpecialistID, err = handler.QueryUUID(c, "specialistId"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.PatientID, err = handler.QueryUUID(c, "patientId"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.From, err = handler.QueryTime(c, "from", h.loc); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.To, err = h.queryEnd(c, "to"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Statuses, err = handler.QueryStatuses(c); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), caller, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	var req model.CreateAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}
	a, err := h.service.Create(c.Request.Context(), caller, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, a)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}
	a, err := h.service.Update(c.Request.Context(), caller, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.CancelAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}
	a, err := h.service.Cancel(c.Request.Context(), caller, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) RestoreAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Restore(c.Request.Context(), caller, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) MoveAppointment(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.MoveAppointmentRequest
	if !handler.Bind(c, &req) {
		return
	}
	a, err := h.service.Move(c.Request.Context(), caller, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) BulkUpdateAppointments(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}
	var req model.BulkUpdateAppointmentsRequest
	if !handler.Bind(c, &req) {
		return
	}
	items, err := h.service.BulkUpdate(c.Request.Context(), caller, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) GetSlotConflict(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}

	q := schedule.SlotQuery{
		Date: strings.TrimSpace(c.Query("date")),
		Time: strings.TrimSpace(c.Query("time")),
	}
	if q.Date != "" {
		if _, err := time.Parse(time.DateOnly, q.Date); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid date", err))
			return
		}
	}
	if q.Time != "" {
		if _, err := schedule.ParseClock(q.Time); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid time", err))
			return
		}
	}
	specialistID, err := handler.QueryUUID(c, "specialistId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if specialistID != nil {
		q.SpecialistID = *specialistID
	}
	excludeID, err := handler.QueryUUID(c, "excludeId")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if excludeID != nil {
		q.ExcludeID = *excludeID
	}
	if raw := c.Query("duration"); raw != "" {
		if q.Duration, err = strconv.Atoi(raw); err != nil || q.Duration < 0 {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid duration", err))
			return
		}
	}

	result, err := h.service.SlotConflict(c.Request.Context(), caller, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) GetCalendar(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}

	q := appointment.CalendarQuery{View: c.Query("view")}
	var err error
	if q.Date, err = h.queryDate(c, "date", "from"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.SpecialistID, err = handler.QueryUUID(c, "specialistId"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Weekdays, err = queryWeekdays(c); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Statuses, err = handler.QueryStatuses(c); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.service.Calendar(c.Request.Context(), caller, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, view)
}

func (h *Handler) GetAgenda(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}

	q := appointment.AgendaQuery{Mode: c.Query("mode")}
	var err error
	if q.Date, err = h.queryDate(c, "date"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.SpecialistID, err = handler.QueryUUID(c, "specialistId"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Statuses, err = handler.QueryStatuses(c); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.service.Agenda(c.Request.Context(), caller, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, view)
}

func (h *Handler) GetSessions(c *gin.Context) {
	caller, ok := handler.Caller(c)
	if !ok {
		return
	}

	q := appointment.SessionsQuery{
		SortField: c.DefaultQuery("sortField", "startAt"),
		SortDesc:  strings.EqualFold(c.Query("sortDir"), "desc"),
	}
	var err error
	if q.SpecialistID, err = handler.QueryUUID(c, "specialistId"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.From, err = handler.QueryTime(c, "from", h.loc); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.To, err = h.queryEnd(c, "to"); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Statuses, err = handler.QueryStatuses(c); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	view, err := h.service.Sessions(c.Request.Context(), caller, q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, view)
}

// queryEnd reads an upper bound. A bare date includes that whole day.
func (h *Handler) queryEnd(c *gin.Context, name string) (*time.Time, error) {
	t, err := handler.QueryTime(c, name, h.loc)
	if err != nil || t == nil {
		return t, err
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(c.Query(name))); err == nil {
		end := t.AddDate(0, 0, 1)
		return &end, nil
	}
	return t, nil
}

// queryDate reads the first present parameter of names, defaulting to today.
func (h *Handler) queryDate(c *gin.Context, names ...string) (time.Time, error) {
	for _, name := range names {
		t, err := handler.QueryTime(c, name, h.loc)
		if err != nil {
			return time.Time{}, err
		}
		if t != nil {
			return *t, nil
		}
	}
	return h.now().In(h.loc), nil
}

// queryWeekdays reads "days" as comma separated weekday numbers, Sunday=0.
func queryWeekdays(c *gin.Context) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, raw := range c.QueryArray("days") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 || n > 6 {
				return nil, apperrors.BadRequest("invalid days", err)
			}
			out = append(out, time.Weekday(n))
		}
	}
	return out, nil
}
