package appointment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
	"github.com/jwalitptl/clinic-dashboard-api/internal/schedule"
	apperrors "github.com/jwalitptl/clinic-dashboard-api/pkg/errors"
)

// sessionsPageSize bounds each specialist's branch of the sessions merge.
const sessionsPageSize = 200

// Calendar views.
const (
	CalendarDayView  = "day"
	CalendarWeekView = "week"
)

type CalendarQuery struct {
	View         string
	Date         time.Time
	SpecialistID *uuid.UUID
	Weekdays     []time.Weekday
	Statuses     []model.AppointmentStatus
}

// CalendarItem is an appointment positioned in its day column.
type CalendarItem struct {
	schedule.Placement
	Appointment *model.Appointment `json:"appointment"`
	Conflict    bool               `json:"conflict"`
}

type CalendarDay struct {
	Date  string         `json:"date"`
	Items []CalendarItem `json:"items"`
}

type CalendarView struct {
	View        string          `json:"view"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Window      schedule.Window `json:"window"`
	HourMarks   []int           `json:"hourMarks"`
	Height      float64         `json:"height"`
	Days        []CalendarDay   `json:"days"`
	ConflictIDs []uuid.UUID     `json:"conflictIds"`
}

// Calendar lays out a day or a Monday based week. Overlapping appointments
// of a day share the column width.
func (s *Service) Calendar(ctx context.Context, caller model.AuthUser, q CalendarQuery) (*CalendarView, error) {
	base := q.Date.In(s.loc)
	var from time.Time
	var dates []string
	days := 1

	switch q.View {
	case CalendarDayView:
		from, _ = schedule.AgendaRange(schedule.AgendaDay, base)
		dates = []string{from.Format(time.DateOnly)}
	case "", CalendarWeekView:
		from = schedule.StartOfWeek(base)
		dates = schedule.WeekDates(from, q.Weekdays)
		days = 7
	default:
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid calendar view %q", q.View), nil)
	}
	to := from.AddDate(0, 0, days)

	items, err := s.loadRange(ctx, caller, q.SpecialistID, from, to, q.Statuses)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*model.Appointment, len(items))
	slotsByDate := make(map[string][]schedule.Slot)
	var slots, active []schedule.Slot
	for _, a := range items {
		slot := schedule.FromAppointment(a, s.loc)
		byID[a.ID] = a
		slots = append(slots, slot)
		slotsByDate[slot.Date] = append(slotsByDate[slot.Date], slot)
		if a.Status != model.AppointmentStatusCanceled {
			active = append(active, slot)
		}
	}
	conflicts := schedule.DetectConflicts(active)
	window := schedule.WindowFor(slots, s.minuteHeight)

	view := &CalendarView{
		View:        q.View,
		From:        from.Format(time.DateOnly),
		To:          to.AddDate(0, 0, -1).Format(time.DateOnly),
		Window:      window,
		HourMarks:   window.HourMarks(),
		Height:      window.Height(),
		Days:        make([]CalendarDay, 0, len(dates)),
		ConflictIDs: conflicts.IDs(),
	}
	if view.View == "" {
		view.View = CalendarWeekView
	}
	for _, date := range dates {
		placements := schedule.Layout(slotsByDate[date], window)
		day := CalendarDay{Date: date, Items: make([]CalendarItem, 0, len(placements))}
		for _, p := range placements {
			day.Items = append(day.Items, CalendarItem{
				Placement:   p,
				Appointment: byID[p.Slot.ID],
				Conflict:    conflicts.Has(p.Slot.ID),
			})
		}
		view.Days = append(view.Days, day)
	}
	return view, nil
}

type AgendaQuery struct {
	Mode         string
	Date         time.Time
	SpecialistID *uuid.UUID
	Statuses     []model.AppointmentStatus
}

type AgendaView struct {
	Mode   schedule.AgendaMode    `json:"mode"`
	From   string                 `json:"from"`
	To     string                 `json:"to"`
	Groups []schedule.AgendaGroup `json:"groups,omitempty"`
	Month  []schedule.MonthDay    `json:"month,omitempty"`
}

// Agenda groups appointments by day, or counts them per cell of a month grid.
func (s *Service) Agenda(ctx context.Context, caller model.AuthUser, q AgendaQuery) (*AgendaView, error) {
	mode, err := schedule.ParseAgendaMode(q.Mode)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}
	base := q.Date.In(s.loc)
	from, to := schedule.AgendaRange(mode, base)

	loadFrom, loadTo := from, to.AddDate(0, 0, 1)
	if mode == schedule.AgendaMonth {
		loadFrom = schedule.StartOfWeek(from)
		loadTo = schedule.StartOfWeek(to).AddDate(0, 0, 7)
	}
	items, err := s.loadRange(ctx, caller, q.SpecialistID, loadFrom, loadTo, q.Statuses)
	if err != nil {
		return nil, err
	}

	view := &AgendaView{
		Mode: mode,
		From: from.Format(time.DateOnly),
		To:   to.Format(time.DateOnly),
	}
	switch mode {
	case schedule.AgendaMonth:
		view.Month = schedule.MonthGrid(items, base, s.loc)
	case schedule.AgendaDay:
		view.Groups = schedule.GroupByDay(items, from, 1, s.loc)
	default:
		view.Groups = schedule.GroupByDay(items, from, 7, s.loc)
	}
	return view, nil
}

// loadRange lists every appointment starting in [from, to) within the
// caller's scope.
func (s *Service) loadRange(ctx context.Context, caller model.AuthUser, specialistID *uuid.UUID, from, to time.Time, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	ids, ok, err := s.specialistFilter(ctx, caller, specialistID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*model.Appointment{}, nil
	}
	items, _, err := s.repo.List(ctx, model.AppointmentFilter{
		SpecialistIDs: ids,
		From:          &from,
		To:            &to,
		Statuses:      statuses,
	}, model.Paging{})
	if err != nil {
		return nil, err
	}
	return items, nil
}

type SessionsQuery struct {
	SpecialistID *uuid.UUID
	From         *time.Time
	To           *time.Time
	Statuses     []model.AppointmentStatus
	SortField    string
	SortDesc     bool
}

type SessionsView struct {
	Specialists          []*model.Specialist  `json:"specialists"`
	SelectedSpecialistID *uuid.UUID           `json:"selectedSpecialistId,omitempty"`
	Items                []*model.Appointment `json:"items"`
	ConflictIDs          []uuid.UUID          `json:"conflictIds"`
}

// Sessions lists physiotherapy appointments. With no specialist selected and
// more than one visible, every specialist's list is fetched concurrently and
// merged.
func (s *Service) Sessions(ctx context.Context, caller model.AuthUser, q SessionsQuery) (*SessionsView, error) {
	scope, err := s.Scope(ctx, caller)
	if err != nil {
		return nil, err
	}
	all, err := s.specialists.List(ctx)
	if err != nil {
		return nil, err
	}

	view := &SessionsView{
		Specialists: []*model.Specialist{},
		Items:       []*model.Appointment{},
		ConflictIDs: []uuid.UUID{},
	}
	for _, sp := range all {
		if sp.IsPhysiotherapy() && scope.Allows(sp.ID) {
			view.Specialists = append(view.Specialists, sp)
		}
	}

	selected := q.SpecialistID
	if selected == nil && len(view.Specialists) == 1 {
		id := view.Specialists[0].ID
		selected = &id
	}

	var targets []uuid.UUID
	if selected != nil {
		if err := allow(scope, *selected); err != nil {
			return nil, err
		}
		if !containsSpecialist(view.Specialists, *selected) {
			return nil, apperrors.BadRequest(MsgNotPhysiotherapist, nil)
		}
		targets = []uuid.UUID{*selected}
		view.SelectedSpecialistID = selected
	} else {
		for _, sp := range view.Specialists {
			targets = append(targets, sp.ID)
		}
	}
	if len(targets) == 0 {
		return view, nil
	}

	items, err := s.merge(ctx, targets, model.AppointmentFilter{
		From:     q.From,
		To:       q.To,
		Statuses: q.Statuses,
	})
	if err != nil {
		return nil, err
	}
	sortSessions(items, q.SortField, q.SortDesc)
	view.Items = items
	view.ConflictIDs = s.conflictIDs(items)
	return view, nil
}

// merge runs one list query per specialist and joins the results, dropping
// duplicates. An error in any branch fails the merge.
func (s *Service) merge(ctx context.Context, specialistIDs []uuid.UUID, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	results := make([][]*model.Appointment, len(specialistIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range specialistIDs {
		g.Go(func() error {
			f := filter
			f.SpecialistIDs = []uuid.UUID{id}
			items, _, err := s.repo.List(gctx, f, model.Paging{Page: 0, Size: sessionsPageSize})
			if err != nil {
				return fmt.Errorf("failed to load sessions of specialist %s: %w", id, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	merged := make([]*model.Appointment, 0)
	for _, batch := range results {
		for _, a := range batch {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}
	return merged, nil
}

func sortSessions(items []*model.Appointment, field string, desc bool) {
	less := func(a, b *model.Appointment) bool {
		if field == "status" && a.Status != b.Status {
			return a.Status < b.Status
		}
		return a.StartAt.Before(b.StartAt)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func containsSpecialist(items []*model.Specialist, id uuid.UUID) bool {
	for _, sp := range items {
		if sp.ID == id {
			return true
		}
	}
	return false
}
