package calendar

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a civil wall-clock time expressed as minutes after midnight.
type TimeOfDay int

var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"03:04PM",
}

// ParseTimeOfDay parses 24-hour ("14:30") and 12-hour ("2:30 PM") clock strings.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	value := strings.ToUpper(strings.TrimSpace(s))
	if value == "" {
		return 0, fmt.Errorf("empty time of day")
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOfDay(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Minutes returns the number of minutes after midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Add returns t shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// String renders the time as "15:04".
func (t TimeOfDay) String() string {
	m := int(t)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
