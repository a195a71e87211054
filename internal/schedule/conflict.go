package schedule

import (
	"sort"

	"github.com/google/uuid"
)

// Overlaps is the half-open interval test: touching endpoints do not overlap.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// HasConflict reports whether a and b book the same specialist on the same
// day with overlapping ranges.
func HasConflict(a, b Slot) bool {
	if a.SpecialistID != b.SpecialistID || a.Date != b.Date {
		return false
	}
	return Overlaps(a.Start, a.End, b.Start, b.End)
}

// ConflictSet holds the ids of slots that overlap at least one other slot.
type ConflictSet map[uuid.UUID]struct{}

func (c ConflictSet) Has(id uuid.UUID) bool {
	_, ok := c[id]
	return ok
}

// IDs returns the members in a stable order.
func (c ConflictSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

type groupKey struct {
	specialistID uuid.UUID
	date         string
}

// DetectConflicts sweeps each specialist/day group in start order and marks
// every slot that starts while another is still running, together with the
// running ones. Slots without an id, specialist or date are ignored.
func DetectConflicts(slots []Slot) ConflictSet {
	conflicts := ConflictSet{}
	groups := make(map[groupKey][]Slot)

	for _, s := range slots {
		if s.ID == uuid.Nil || s.SpecialistID == uuid.Nil || s.Date == "" {
			continue
		}
		key := groupKey{specialistID: s.SpecialistID, date: s.Date}
		groups[key] = append(groups[key], s)
	}

	for _, items := range groups {
		sortByStartEnd(items)

		active := make([]Slot, 0, len(items))
		for _, item := range items {
			kept := active[:0]
			for _, a := range active {
				if a.End > item.Start {
					kept = append(kept, a)
				}
			}
			active = kept

			if len(active) > 0 {
				conflicts[item.ID] = struct{}{}
				for _, a := range active {
					conflicts[a.ID] = struct{}{}
				}
			}
			active = append(active, item)
		}
	}

	return conflicts
}

// SlotQuery describes a prospective booking.
type SlotQuery struct {
	SpecialistID uuid.UUID
	Date         string
	Time         string
	Duration     int
	ExcludeID    uuid.UUID
}

// ConflictsForSlot returns the ids of slots the prospective booking would
// overlap. An incomplete query (no specialist, date or time) never conflicts.
func ConflictsForSlot(slots []Slot, q SlotQuery) []uuid.UUID {
	if q.SpecialistID == uuid.Nil || q.Date == "" || q.Time == "" {
		return nil
	}
	start, err := ParseClock(q.Time)
	if err != nil {
		return nil
	}
	duration := q.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	end := start + duration

	var ids []uuid.UUID
	for _, s := range slots {
		if s.ID == uuid.Nil || s.ID == q.ExcludeID {
			continue
		}
		if s.SpecialistID != q.SpecialistID || s.Date != q.Date {
			continue
		}
		if Overlaps(start, end, s.Start, s.End) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// HasConflictForSlot reports whether the prospective booking overlaps any slot.
func HasConflictForSlot(slots []Slot, q SlotQuery) bool {
	return len(ConflictsForSlot(slots, q)) > 0
}

func sortByStartEnd(items []Slot) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start < items[j].Start
		}
		return items[i].End < items[j].End
	})
}
