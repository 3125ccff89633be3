package services

import (
	"fmt"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// slotRange is a schedule range with both ends parsed.
type slotRange struct {
	from calendar.TimeOfDay
	to   calendar.TimeOfDay
}

// count is the number of whole slots of duration minutes that fit in the range.
func (r slotRange) count(duration int) int {
	if r.to <= r.from {
		return 0
	}
	return (r.to.Minutes() - r.from.Minutes()) / duration
}

// passed is the number of slots in the range that start strictly before now.
func (r slotRange) passed(duration int, now calendar.TimeOfDay) int {
	total := r.count(duration)
	switch {
	case r.to <= now:
		return total
	case r.from < now:
		elapsed := now.Minutes() - r.from.Minutes()
		n := (elapsed + duration - 1) / duration
		if n > total {
			n = total
		}
		return n
	default:
		return 0
	}
}

// dayRanges parses the ranges scheduled for day. An inactive timing has none.
func dayRanges(timing *entities.WeeklyTiming, day time.Weekday) ([]slotRange, error) {
	if timing == nil || !timing.IsActive {
		return nil, nil
	}
	raw := timing.Schedule.Ranges(day)
	if len(raw) == 0 {
		return nil, nil
	}
	if timing.SlotDurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot duration must be positive, got %d",
			entities.ErrMalformedTimeRange, timing.SlotDurationMinutes)
	}

	ranges := make([]slotRange, 0, len(raw))
	for _, tr := range raw {
		from, err := calendar.ParseTimeOfDay(tr.From)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q-%q: %v", entities.ErrMalformedTimeRange, day, tr.From, tr.To, err)
		}
		to, err := calendar.ParseTimeOfDay(tr.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q-%q: %v", entities.ErrMalformedTimeRange, day, tr.From, tr.To, err)
		}
		ranges = append(ranges, slotRange{from: from, to: to})
	}
	return ranges, nil
}

// GenerateSlots expands the timing into the start labels of every slot on date.
// Ranges contribute independently and in schedule order, so overlapping ranges
// yield repeated labels. A trailing remainder shorter than the slot duration is
// dropped.
func GenerateSlots(timing *entities.WeeklyTiming, date calendar.Date) ([]string, error) {
	ranges, err := dayRanges(timing, date.Weekday())
	if err != nil {
		return nil, err
	}

	slots := []string{}
	for _, r := range ranges {
		n := r.count(timing.SlotDurationMinutes)
		for i := 0; i < n; i++ {
			slots = append(slots, r.from.Add(i*timing.SlotDurationMinutes).String())
		}
	}
	return slots, nil
}

// daySlotCounts returns the nominal slot count on date and, when now is given,
// how many of those slots have already started.
func daySlotCounts(timing *entities.WeeklyTiming, date calendar.Date, now *calendar.TimeOfDay) (nominal, passed int, err error) {
	ranges, err := dayRanges(timing, date.Weekday())
	if err != nil {
		return 0, 0, err
	}
	for _, r := range ranges {
		nominal += r.count(timing.SlotDurationMinutes)
		if now != nil {
			passed += r.passed(timing.SlotDurationMinutes, *now)
		}
	}
	return nominal, passed, nil
}
