package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

type AgendaMode string

const (
	AgendaDay   AgendaMode = "day"
	AgendaWeek  AgendaMode = "week"
	AgendaMonth AgendaMode = "month"
)

func ParseAgendaMode(value string) (AgendaMode, error) {
	switch AgendaMode(value) {
	case "", AgendaWeek:
		return AgendaWeek, nil
	case AgendaDay, AgendaMonth:
		return AgendaMode(value), nil
	default:
		return "", fmt.Errorf("invalid agenda mode %q", value)
	}
}

// StartOfWeek returns the Monday on or before day, at midnight.
func StartOfWeek(day time.Time) time.Time {
	d := midnight(day)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// AgendaRange returns the first and last day covered by mode around base.
func AgendaRange(mode AgendaMode, base time.Time) (time.Time, time.Time) {
	switch mode {
	case AgendaDay:
		d := midnight(base)
		return d, d
	case AgendaMonth:
		first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location())
		return first, first.AddDate(0, 1, -1)
	default:
		start := StartOfWeek(base)
		return start, start.AddDate(0, 0, 6)
	}
}

// WeekDates lists the seven dates of the week starting at start, keeping only
// the given weekdays (Sunday = 0). An empty filter keeps every day.
func WeekDates(start time.Time, weekdays []time.Weekday) []string {
	keep := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		keep[wd] = true
	}
	dates := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		if len(keep) > 0 && !keep[day.Weekday()] {
			continue
		}
		dates = append(dates, day.Format(time.DateOnly))
	}
	return dates
}

// AgendaGroup is one day of the agenda list.
type AgendaGroup struct {
	Date  string               `json:"date"`
	Items []*model.Appointment `json:"items"`
}

// GroupByDay returns one group per day from 'from' for n days, each sorted by
// start time in loc.
func GroupByDay(items []*model.Appointment, from time.Time, days int, loc *time.Location) []AgendaGroup {
	byDate := indexByDate(items, loc)
	groups := make([]AgendaGroup, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(time.DateOnly)
		dayItems := append([]*model.Appointment(nil), byDate[date]...)
		sort.SliceStable(dayItems, func(a, b int) bool {
			return dayItems[a].StartAt.Before(dayItems[b].StartAt)
		})
		if dayItems == nil {
			dayItems = []*model.Appointment{}
		}
		groups = append(groups, AgendaGroup{Date: date, Items: dayItems})
	}
	return groups
}

// MonthDay is one cell of the month grid.
type MonthDay struct {
	Date           string                          `json:"date"`
	Day            int                             `json:"day"`
	IsCurrentMonth bool                            `json:"isCurrentMonth"`
	Total          int                             `json:"total"`
	StatusCounts   map[model.AppointmentStatus]int `json:"statusCounts"`
}

// MonthGrid covers base's month with whole Monday-first weeks and counts
// appointments per day and status.
func MonthGrid(items []*model.Appointment, base time.Time, loc *time.Location) []MonthDay {
	first := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location())
	last := first.AddDate(0, 1, -1)
	gridStart := StartOfWeek(first)
	gridEnd := StartOfWeek(last).AddDate(0, 0, 6)

	byDate := indexByDate(items, loc)
	var days []MonthDay
	for current := gridStart; !current.After(gridEnd); current = current.AddDate(0, 0, 1) {
		date := current.Format(time.DateOnly)
		counts := make(map[model.AppointmentStatus]int, len(model.AppointmentStatuses))
		for _, st := range model.AppointmentStatuses {
			counts[st] = 0
		}
		for _, a := range byDate[date] {
			if a.Status != "" {
				counts[a.Status]++
			}
		}
		days = append(days, MonthDay{
			Date:           date,
			Day:            current.Day(),
			IsCurrentMonth: current.Month() == base.Month(),
			Total:          len(byDate[date]),
			StatusCounts:   counts,
		})
	}
	return days
}

func indexByDate(items []*model.Appointment, loc *time.Location) map[string][]*model.Appointment {
	byDate := make(map[string][]*model.Appointment)
	for _, a := range items {
		date := a.StartAt.In(loc).Format(time.DateOnly)
		byDate[date] = append(byDate[date], a)
	}
	return byDate
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
