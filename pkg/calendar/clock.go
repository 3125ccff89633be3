package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultUTCOffset is the civil offset clinics operate in unless configured otherwise.
const DefaultUTCOffset = 5*time.Hour + 30*time.Minute

// Clock maps instants onto the clinic's civil calendar. All "today" and
// "current time" decisions go through a Clock so the offset is configuration.
type Clock struct {
	loc *time.Location
}

// NewClock creates a clock for the given location.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{loc: loc}
}

// FixedOffsetClock creates a clock with a fixed offset east of UTC.
func FixedOffsetClock(offset time.Duration) Clock {
	return NewClock(time.FixedZone(FormatUTCOffset(offset), int(offset/time.Second)))
}

// DefaultClock returns a clock fixed at DefaultUTCOffset.
func DefaultClock() Clock {
	return FixedOffsetClock(DefaultUTCOffset)
}

// Location returns the clock's civil location.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today returns the civil date of now.
func (c Clock) Today(now time.Time) Date {
	return DateOf(now.In(c.Location()))
}

// TimeOfDay returns the civil wall-clock time of now, truncated to the minute.
func (c Clock) TimeOfDay(now time.Time) TimeOfDay {
	local := now.In(c.Location())
	return TimeOfDay(local.Hour()*60 + local.Minute())
}

// ParseUTCOffset parses offsets such as "+05:30", "-0400", "+5" or "Z".
func ParseUTCOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "z") || strings.EqualFold(s, "utc") {
		return 0, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}

	var hours, minutes string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hours, minutes = parts[0], parts[1]
	case len(s) == 4:
		hours, minutes = s[:2], s[2:]
	default:
		hours, minutes = s, "0"
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m >= 60 || h < 0 || h > 14 {
		return 0, fmt.Errorf("invalid utc offset %q", s)
	}

	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

// FormatUTCOffset renders an offset as "+hh:mm".
func FormatUTCOffset(offset time.Duration) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	total := int(offset / time.Minute)
	return fmt.Sprintf("%s%02d:%02d", sign, total/60, total%60)
}
