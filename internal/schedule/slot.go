// Package schedule holds the appointment interval arithmetic used by the
// dashboard views: overlap detection, calendar column layout, drop snapping
// and agenda grouping. Nothing here does I/O.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

const (
	// DefaultDuration applies when an appointment carries no duration.
	DefaultDuration = model.DefaultAppointmentDuration
	// SlotStep is the granularity of suggested and snapped start times.
	SlotStep = 30

	minutesPerDay = 24 * 60
)

// Slot is one appointment reduced to a specialist, a day and a
// half-open [Start, End) range in minutes from midnight.
type Slot struct {
	ID           uuid.UUID
	SpecialistID uuid.UUID
	Date         string
	Start        int
	End          int
	Status       model.AppointmentStatus
}

// NewSlot builds a slot. A nil end means start + duration, and a
// non-positive duration means DefaultDuration.
func NewSlot(id, specialistID uuid.UUID, date string, start, duration int, end *int) Slot {
	if duration <= 0 {
		duration = DefaultDuration
	}
	s := Slot{
		ID:           id,
		SpecialistID: specialistID,
		Date:         date,
		Start:        start,
		End:          start + duration,
	}
	if end != nil {
		s.End = *end
	}
	return s
}

// FromAppointment projects an appointment onto the wall clock of loc.
func FromAppointment(a *model.Appointment, loc *time.Location) Slot {
	start := a.StartAt.In(loc)
	startMinutes := start.Hour()*60 + start.Minute()

	var end *int
	if !a.EndAt.IsZero() {
		e := a.EndAt.In(loc)
		endMinutes := e.Hour()*60 + e.Minute()
		if e.Format(time.DateOnly) != start.Format(time.DateOnly) {
			endMinutes += minutesPerDay
		}
		end = &endMinutes
	}

	s := NewSlot(a.ID, a.SpecialistID, start.Format(time.DateOnly), startMinutes, a.DurationMinutes, end)
	s.Status = a.Status
	return s
}

// FromAppointments projects every appointment.
func FromAppointments(items []*model.Appointment, loc *time.Location) []Slot {
	slots := make([]Slot, 0, len(items))
	for _, a := range items {
		slots = append(slots, FromAppointment(a, loc))
	}
	return slots
}

// ParseClock converts "HH:MM" to minutes from midnight.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hours*60 + minutes, nil
}

// FormatClock converts minutes from midnight to "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// At combines a "YYYY-MM-DD" date and minutes from midnight in loc.
func At(date string, minutes int, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// InPast reports whether start lies before now.
func InPast(start, now time.Time) bool {
	return start.Before(now)
}
