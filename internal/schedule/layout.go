package schedule

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultWindowStart = 7 * 60
	DefaultWindowEnd   = 20 * 60
	minEventHeight     = 24
)

// Window is the visible time range of a calendar day column.
type Window struct {
	StartMinutes int     `json:"startMinutes"`
	EndMinutes   int     `json:"endMinutes"`
	MinuteHeight float64 `json:"minuteHeight"`
}

func DefaultWindow() Window {
	return Window{
		StartMinutes: DefaultWindowStart,
		EndMinutes:   DefaultWindowEnd,
		MinuteHeight: 1,
	}
}

// WindowFor widens the default window to whole hours covering every slot,
// never earlier than 00:00 or later than 23:00.
func WindowFor(slots []Slot, minuteHeight float64) Window {
	minMinutes, maxMinutes := DefaultWindowStart, DefaultWindowEnd
	for _, s := range slots {
		minMinutes = min(minMinutes, s.Start)
		maxMinutes = max(maxMinutes, s.End)
	}
	minHour := max(0, int(math.Floor(float64(minMinutes)/60)))
	maxHour := min(23, int(math.Ceil(float64(maxMinutes)/60)))
	if minuteHeight <= 0 {
		minuteHeight = 1
	}
	return Window{
		StartMinutes: minHour * 60,
		EndMinutes:   maxHour * 60,
		MinuteHeight: minuteHeight,
	}
}

// HourMarks lists the window's full hours in minutes.
func (w Window) HourMarks() []int {
	var marks []int
	for m := w.StartMinutes; m <= w.EndMinutes; m += 60 {
		marks = append(marks, m)
	}
	return marks
}

// Height is the pixel height of the whole column, at least one hour.
func (w Window) Height() float64 {
	return float64(max(60, w.EndMinutes-w.StartMinutes)) * w.MinuteHeight
}

// Placement positions one slot inside a day column. Width and Left are
// percentages of the column width.
type Placement struct {
	Slot    Slot    `json:"-"`
	Top     float64 `json:"top"`
	Height  float64 `json:"height"`
	Column  int     `json:"column"`
	Columns int     `json:"columns"`
	Width   float64 `json:"width"`
	Left    float64 `json:"left"`
}

type activeColumn struct {
	end    int
	column int
}

// Layout places a day's slots so that overlapping slots sit side by side.
// Each slot takes the lowest column not used by a slot still running when it
// starts; every run of transitively overlapping slots shares the widest
// column count reached within it.
func Layout(slots []Slot, w Window) []Placement {
	if len(slots) == 0 {
		return []Placement{}
	}
	if w.MinuteHeight <= 0 {
		w.MinuteHeight = 1
	}

	items := make([]Placement, len(slots))
	for i, s := range slots {
		items[i] = Placement{
			Slot:    s,
			Top:     float64(s.Start-w.StartMinutes) * w.MinuteHeight,
			Height:  math.Max(minEventHeight, float64(s.End-s.Start)*w.MinuteHeight),
			Columns: 1,
			Width:   100,
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Slot.Start != items[j].Slot.Start {
			return items[i].Slot.Start < items[j].Slot.Start
		}
		return items[i].Slot.End < items[j].Slot.End
	})

	var active []activeColumn
	var group []int
	groupMax := 1

	finalize := func() {
		if len(group) == 0 {
			return
		}
		width := 100 / float64(groupMax)
		for _, idx := range group {
			items[idx].Columns = groupMax
			items[idx].Width = width
			items[idx].Left = float64(items[idx].Column) * width
		}
		group = group[:0]
		groupMax = 1
	}

	for i := range items {
		start := items[i].Slot.Start

		kept := active[:0]
		for _, a := range active {
			if a.end > start {
				kept = append(kept, a)
			}
		}
		active = kept

		if len(active) == 0 {
			finalize()
		}

		used := make(map[int]bool, len(active))
		for _, a := range active {
			used[a.column] = true
		}
		column := 0
		for used[column] {
			column++
		}

		items[i].Column = column
		group = append(group, i)
		active = append(active, activeColumn{end: items[i].Slot.End, column: column})
		groupMax = max(groupMax, len(active), column+1)
	}
	finalize()

	sort.SliceStable(items, func(i, j int) bool { return items[i].Top < items[j].Top })
	return items
}

// SnapDropMinutes rounds a dropped start to the nearest SlotStep and keeps the
// whole appointment inside the window.
func SnapDropMinutes(minutes float64, duration int, w Window) int {
	if duration <= 0 {
		duration = DefaultDuration
	}
	snapped := int(math.Round(minutes/SlotStep)) * SlotStep
	maxStart := max(w.StartMinutes, w.EndMinutes-duration)
	return min(max(snapped, w.StartMinutes), maxStart)
}

// NextSlot rounds now up to the next SlotStep boundary. Seconds are ignored,
// so a time already on a boundary is returned unchanged.
func NextSlot(now time.Time) time.Time {
	base := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	rounded := int(math.Ceil(float64(now.Minute())/SlotStep)) * SlotStep
	return base.Add(time.Duration(rounded) * time.Minute)
}
