package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository"
	"github.com/jwalitptl/clinic-dashboard-api/internal/schedule"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

// User facing messages.
const (
	MsgPastStart          = "Selecciona una hora posterior a la actual."
	MsgBulkNothing        = "Selecciona un horario, un estado o ambos."
	MsgBulkSchedule       = "Selecciona fecha y hora para reprogramar."
	MsgCancelReason       = "Indica el motivo de la cancelacion."
	MsgConflict           = "El horario se empalma con otra cita del especialista."
	MsgForbiddenAgenda    = "No tienes acceso a la agenda de este especialista."
	MsgNotPhysiotherapist = "El especialista no pertenece a fisioterapia."
)

// occupying lists the statuses that block a time slot.
var occupying = []model.AppointmentStatus{
	model.AppointmentStatusPending,
	model.AppointmentStatusConfirmed,
	model.AppointmentStatusCompleted,
}

// ScopeResolver decides which specialists' appointments a caller may see.
type ScopeResolver interface {
	AppointmentScope(ctx context.Context, userID uuid.UUID, roles []string) (*model.AppointmentScope, error)
}

type Service struct {
	repo         repository.AppointmentRepository
	specialists  repository.SpecialistRepository
	scopes       ScopeResolver
	events       event.Emitter
	loc          *time.Location
	minuteHeight float64
	now          func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	specialists repository.SpecialistRepository,
	scopes ScopeResolver,
	events event.Emitter,
	loc *time.Location,
	minuteHeight float64,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:         repo,
		specialists:  specialists,
		scopes:       scopes,
		events:       events,
		loc:          loc,
		minuteHeight: minuteHeight,
		now:          time.Now,
	}
}

// ListQuery is the appointment table filter.
type ListQuery struct {
	SpecialistID *uuid.UUID
	PatientID    *uuid.UUID
	From         *time.Time
	To           *time.Time
	Statuses     []model.AppointmentStatus
	Search       string
	Specialty    string
	Paging       model.Paging
}

// Scope returns the caller's appointment scope.
func (s *Service) Scope(ctx context.Context, caller model.AuthUser) (*model.AppointmentScope, error) {
	return s.scopes.AppointmentScope(ctx, caller.ID, caller.Roles)
}

// specialistFilter narrows a query to the caller's scope. ok is false when
// the caller may not see any specialist.
func (s *Service) specialistFilter(ctx context.Context, caller model.AuthUser, requested *uuid.UUID) ([]uuid.UUID, bool, error) {
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, false, err
	}
	if requested != nil {
		if !scope.Allows(*requested) {
			return nil, false, apperrors.Forbidden(MsgForbiddenAgenda)
		}
		return []uuid.UUID{*requested}, true, nil
	}
	if !scope.Restricted {
		return nil, true, nil
	}
	if len(scope.AllowedSpecialistIDs) == 0 {
		return nil, false, nil
	}
	return scope.AllowedSpecialistIDs, true, nil
}

func allow(scope *model.AppointmentScope, specialistIDs ...uuid.UUID) error {
	for _, id := range specialistIDs {
		if !scope.Allows(id) {
			return apperrors.Forbidden(MsgForbiddenAgenda)
		}
	}
	return nil
}

// List returns a page of appointments and the ids that overlap within it.
func (s *Service) List(ctx context.Context, caller model.AuthUser, q ListQuery) (*model.AppointmentList, error) {
	ids, ok, err := s.specialistFilter(ctx, caller, q.SpecialistID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &model.AppointmentList{
			Page:        model.NewPage[*model.Appointment](nil, 0, q.Paging.Page, q.Paging.Size),
			ConflictIDs: []uuid.UUID{},
		}, nil
	}

	filter := model.AppointmentFilter{
		SpecialistIDs: ids,
		PatientID:     q.PatientID,
		From:          q.From,
		To:            q.To,
		Statuses:      q.Statuses,
		Search:        strings.TrimSpace(q.Search),
		Specialty:     strings.ToUpper(strings.TrimSpace(q.Specialty)),
	}
	items, total, err := s.repo.List(ctx, filter, q.Paging)
	if err != nil {
		return nil, err
	}
	return &model.AppointmentList{
		Page:        model.NewPage(items, total, q.Paging.Page, q.Paging.Size),
		ConflictIDs: s.conflictIDs(items),
	}, nil
}

// conflictIDs runs the overlap sweep over the non canceled items.
func (s *Service) conflictIDs(items []*model.Appointment) []uuid.UUID {
	active := make([]*model.Appointment, 0, len(items))
	for _, a := range items {
		if a.Status != model.AppointmentStatusCanceled {
			active = append(active, a)
		}
	}
	return schedule.DetectConflicts(schedule.FromAppointments(active, s.loc)).IDs()
}

func (s *Service) Get(ctx context.Context, caller model.AuthUser, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := allow(scope, a.SpecialistID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Create(ctx context.Context, caller model.AuthUser, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := allow(scope, req.SpecialistID); err != nil {
		return nil, err
	}
	if schedule.InPast(req.StartAt, s.now()) {
		return nil, apperrors.BadRequest(MsgPastStart, nil)
	}

	status := req.Status
	if status == "" {
		status = model.AppointmentStatusPending
	}
	a := &model.Appointment{
		SpecialistID: req.SpecialistID,
		PatientID:    req.PatientID,
		Status:       status,
		Notes:        truncateNotes(strings.TrimSpace(req.Notes)),
	}
	a.SetSchedule(req.StartAt, req.DurationMinutes)
	actor := caller.ID
	a.CreatedBy = &actor

	if err := s.ensureFree(ctx, a, req.ConfirmConflict); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventAppointmentCreated, created, &actor, "")
	return created, nil
}

// Update applies the set fields. Moving the appointment in time, to another
// specialist, or out of CANCELED rechecks the slot.
func (s *Service) Update(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := allow(scope, a.SpecialistID); err != nil {
		return nil, err
	}

	recheck := false
	eventType := model.EventAppointmentUpdated
	if req.SpecialistID != nil && *req.SpecialistID != a.SpecialistID {
		if err := allow(scope, *req.SpecialistID); err != nil {
			return nil, err
		}
		a.SpecialistID = *req.SpecialistID
		recheck = true
	}

	start, duration := a.StartAt, a.DurationMinutes
	if req.StartAt != nil && !req.StartAt.Equal(a.StartAt) {
		if schedule.InPast(*req.StartAt, s.now()) {
			return nil, apperrors.BadRequest(MsgPastStart, nil)
		}
		start = *req.StartAt
		recheck = true
		eventType = model.EventAppointmentRescheduled
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != a.DurationMinutes {
		duration = *req.DurationMinutes
		recheck = true
	}
	a.SetSchedule(start, duration)

	if req.Notes != nil {
		a.Notes = truncateNotes(strings.TrimSpace(*req.Notes))
	}
	if req.Status != nil && *req.Status != a.Status {
		if a.Status == model.AppointmentStatusCanceled {
			recheck = true
		}
		a.Status = *req.Status
	}

	if recheck {
		if err := s.ensureFree(ctx, a, req.ConfirmConflict); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, caller, a, eventType, "")
}

// Cancel marks the appointment CANCELED and records the reason in its notes.
func (s *Service) Cancel(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	reason := strings.Join(strings.Fields(req.Reason), " ")
	if reason == "" {
		return nil, apperrors.BadRequest(MsgCancelReason, nil)
	}

	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatusCanceled
	a.Notes = CancellationNote(a.Notes, reason, req.NoShow)
	return s.save(ctx, caller, a, model.EventAppointmentCanceled, reason)
}

// Restore puts a canceled appointment back to PENDING and drops the
// cancellation lines from its notes.
func (s *Service) Restore(ctx context.Context, caller model.AuthUser, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	a.Status = model.AppointmentStatusPending
	a.Notes = StripCancellationNotes(a.Notes)
	return s.save(ctx, caller, a, model.EventAppointmentRestored, "")
}

// Move reschedules an appointment dropped on a calendar column. The drop
// position snaps to the slot grid and stays inside the day's window; the
// duration is kept.
func (s *Service) Move(ctx context.Context, caller model.AuthUser, id uuid.UUID, req *model.MoveAppointmentRequest) (*model.Appointment, error) {
	a, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation(time.DateOnly, req.Date, s.loc)
	if err != nil {
		return nil, apperrors.BadRequest(MsgBulkSchedule, err)
	}

	slots, err := s.daySlots(ctx, a.SpecialistID, day)
	if err != nil {
		return nil, err
	}
	window := schedule.WindowFor(slots, s.minuteHeight)
	minutes := schedule.SnapDropMinutes(float64(req.Minutes), a.DurationMinutes, window)
	start, err := schedule.At(req.Date, minutes, s.loc)
	if err != nil {
		return nil, apperrors.BadRequest(MsgBulkSchedule, err)
	}
	if schedule.InPast(start, s.now()) {
		return nil, apperrors.BadRequest(MsgPastStart, nil)
	}
	a.SetSchedule(start, a.DurationMinutes)

	if !req.ConfirmConflict && a.Status != model.AppointmentStatusCanceled {
		ids := schedule.ConflictsForSlot(slots, schedule.SlotQuery{
			SpecialistID: a.SpecialistID,
			Date:         req.Date,
			Time:         schedule.FormatClock(minutes),
			Duration:     a.DurationMinutes,
			ExcludeID:    a.ID,
		})
		if len(ids) > 0 {
			return nil, conflictError(ids)
		}
	}
	return s.save(ctx, caller, a, model.EventAppointmentRescheduled, "")
}

// BulkUpdate sets a new status, a new start, or both on every selected
// appointment. Updates run concurrently and any failure fails the call.
func (s *Service) BulkUpdate(ctx context.Context, caller model.AuthUser, req *model.BulkUpdateAppointmentsRequest) ([]*model.Appointment, error) {
	reschedule := req.Date != "" || req.Time != ""
	if !reschedule && req.Status == "" {
		return nil, apperrors.BadRequest(MsgBulkNothing, nil)
	}

	var start time.Time
	if reschedule {
		if req.Date == "" || req.Time == "" {
			return nil, apperrors.BadRequest(MsgBulkSchedule, nil)
		}
		minutes, err := schedule.ParseClock(req.Time)
		if err != nil {
			return nil, apperrors.BadRequest(MsgBulkSchedule, err)
		}
		if start, err = schedule.At(req.Date, minutes, s.loc); err != nil {
			return nil, apperrors.BadRequest(MsgBulkSchedule, err)
		}
		if schedule.InPast(start, s.now()) {
			return nil, apperrors.BadRequest(MsgPastStart, nil)
		}
	}

	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}

	ids := dedupe(req.IDs)
	targets := make([]*model.Appointment, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			a, err := s.repo.Get(gctx, id)
			if err != nil {
				return err
			}
			if err := allow(scope, a.SpecialistID); err != nil {
				return err
			}
			targets[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, a := range targets {
		if reschedule {
			a.SetSchedule(start, a.DurationMinutes)
		}
		if req.Status != "" {
			a.Status = req.Status
		}
	}
	if reschedule && !req.ConfirmConflict {
		conflicts, err := s.batchConflicts(ctx, targets)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, conflictError(conflicts)
		}
	}

	eventType := model.EventAppointmentUpdated
	if reschedule {
		eventType = model.EventAppointmentRescheduled
	}
	updated := make([]*model.Appointment, len(targets))
	g, gctx = errgroup.WithContext(ctx)
	for i, a := range targets {
		g.Go(func() error {
			saved, err := s.save(gctx, caller, a, eventType, "")
			if err != nil {
				return err
			}
			updated[i] = saved
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return updated, nil
}

// batchConflicts checks the rescheduled targets against the stored day and
// against each other.
func (s *Service) batchConflicts(ctx context.Context, targets []*model.Appointment) ([]uuid.UUID, error) {
	moving := make(map[uuid.UUID]bool, len(targets))
	for _, a := range targets {
		moving[a.ID] = true
	}

	var slots []schedule.Slot
	var active []*model.Appointment
	loaded := make(map[uuid.UUID]bool)
	for _, a := range targets {
		if a.Status == model.AppointmentStatusCanceled {
			continue
		}
		active = append(active, a)
		slots = append(slots, schedule.FromAppointment(a, s.loc))
		if loaded[a.SpecialistID] {
			continue
		}
		loaded[a.SpecialistID] = true
		day, err := s.daySlots(ctx, a.SpecialistID, a.StartAt)
		if err != nil {
			return nil, err
		}
		for _, slot := range day {
			if !moving[slot.ID] {
				slots = append(slots, slot)
			}
		}
	}

	conflicts := schedule.ConflictSet{}
	for _, a := range active {
		slot := schedule.FromAppointment(a, s.loc)
		ids := schedule.ConflictsForSlot(slots, schedule.SlotQuery{
			SpecialistID: a.SpecialistID,
			Date:         slot.Date,
			Time:         schedule.FormatClock(slot.Start),
			Duration:     slot.End - slot.Start,
			ExcludeID:    a.ID,
		})
		for _, id := range ids {
			conflicts[id] = struct{}{}
			conflicts[a.ID] = struct{}{}
		}
	}
	return conflicts.IDs(), nil
}

// SlotConflict reports the stored appointments a prospective booking would
// overlap. Incomplete queries never conflict.
func (s *Service) SlotConflict(ctx context.Context, caller model.AuthUser, q schedule.SlotQuery) (*model.SlotConflict, error) {
	result := &model.SlotConflict{IDs: []uuid.UUID{}}
	if q.SpecialistID == uuid.Nil || q.Date == "" || q.Time == "" {
		return result, nil
	}
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := allow(scope, q.SpecialistID); err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation(time.DateOnly, q.Date, s.loc)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date", err)
	}

	slots, err := s.daySlots(ctx, q.SpecialistID, day)
	if err != nil {
		return nil, err
	}
	if ids := schedule.ConflictsForSlot(slots, q); len(ids) > 0 {
		result.Conflict = true
		result.IDs = ids
	}
	return result, nil
}

// ensureFree fails with a conflict when a overlaps a stored appointment of
// the same specialist, unless the caller confirmed the double booking.
func (s *Service) ensureFree(ctx context.Context, a *model.Appointment, confirmed bool) error {
	if confirmed || a.Status == model.AppointmentStatusCanceled {
		return nil
	}
	slots, err := s.daySlots(ctx, a.SpecialistID, a.StartAt)
	if err != nil {
		return err
	}
	slot := schedule.FromAppointment(a, s.loc)
	ids := schedule.ConflictsForSlot(slots, schedule.SlotQuery{
		SpecialistID: a.SpecialistID,
		Date:         slot.Date,
		Time:         schedule.FormatClock(slot.Start),
		Duration:     slot.End - slot.Start,
		ExcludeID:    a.ID,
	})
	if len(ids) > 0 {
		return conflictError(ids)
	}
	return nil
}

// daySlots loads the slot occupying appointments of a specialist on the
// local day containing t.
func (s *Service) daySlots(ctx context.Context, specialistID uuid.UUID, t time.Time) ([]schedule.Slot, error) {
	from, _ := schedule.AgendaRange(schedule.AgendaDay, t.In(s.loc))
	to := from.AddDate(0, 0, 1)
	items, _, err := s.repo.List(ctx, model.AppointmentFilter{
		SpecialistIDs: []uuid.UUID{specialistID},
		From:          &from,
		To:            &to,
		Statuses:      occupying,
	}, model.Paging{})
	if err != nil {
		return nil, err
	}
	return schedule.FromAppointments(items, s.loc), nil
}

func (s *Service) save(ctx context.Context, caller model.AuthUser, a *model.Appointment, eventType, reason string) (*model.Appointment, error) {
	actor := caller.ID
	a.UpdatedBy = &actor
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	saved, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, eventType, saved, &actor, reason)
	return saved, nil
}

// emit records the event; the appointment change stands even if it fails.
func (s *Service) emit(ctx context.Context, eventType string, a *model.Appointment, actor *uuid.UUID, reason string) {
	if s.events == nil {
		return
	}
	payload := model.NewAppointmentEvent(a, actor)
	payload.Reason = reason
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Error().
			Err(err).
			Str("event_type", eventType).
			Str("appointment_id", a.ID.String()).
			Msg("failed to record appointment event")
	}
}

func conflictError(ids []uuid.UUID) error {
	return apperrors.Conflict(MsgConflict, nil).WithDetails(map[string]any{"conflictIds": ids})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
