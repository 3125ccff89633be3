package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayPart is the time-of-day bucket a schedule range is tagged with.
type DayPart string

const (
	DayPartMorning   DayPart = "morning"
	DayPartAfternoon DayPart = "afternoon"
	DayPartEvening   DayPart = "evening"
)

// ParseDayPart accepts the bucket name in any case.
func ParseDayPart(s string) (DayPart, error) {
	switch DayPart(strings.ToLower(strings.TrimSpace(s))) {
	case DayPartMorning:
		return DayPartMorning, nil
	case DayPartAfternoon:
		return DayPartAfternoon, nil
	case DayPartEvening:
		return DayPartEvening, nil
	}
	return "", fmt.Errorf("unknown day part %q", s)
}

// TimeRange is one open interval of a day's schedule. From and To are civil
// clock strings as entered by the provider ("09:00", "2:30 PM").
type TimeRange struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	DayPart DayPart `json:"day_part,omitempty"`
}

// WeeklySchedule maps each weekday to its list of open ranges. Ranges within a
// day are not required to be sorted or disjoint.
type WeeklySchedule map[time.Weekday][]TimeRange

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Ranges returns the ranges scheduled on day.
func (s WeeklySchedule) Ranges(day time.Weekday) []TimeRange {
	if s == nil {
		return nil
	}
	return s[day]
}

// HasDayPart reports whether any range in the week is tagged with one of parts.
func (s WeeklySchedule) HasDayPart(parts []DayPart) bool {
	for _, ranges := range s {
		for _, r := range ranges {
			for _, p := range parts {
				if r.DayPart == p {
					return true
				}
			}
		}
	}
	return false
}

// MarshalJSON encodes the schedule keyed by lower-case weekday names.
func (s WeeklySchedule) MarshalJSON() ([]byte, error) {
	out := make(map[string][]TimeRange, len(s))
	for day, ranges := range s {
		out[strings.ToLower(day.String())] = ranges
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a schedule keyed by full or abbreviated weekday names.
func (s *WeeklySchedule) UnmarshalJSON(data []byte) error {
	var raw map[string][]TimeRange
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	schedule := make(WeeklySchedule, len(raw))
	for name, ranges := range raw {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown weekday %q in schedule", name)
		}
		schedule[day] = append(schedule[day], ranges...)
	}
	*s = schedule
	return nil
}

// Value stores the schedule in a jsonb column.
func (s WeeklySchedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan reads the schedule from a jsonb column.
func (s *WeeklySchedule) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = WeeklySchedule{}
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into WeeklySchedule", src)
	}
}

// WeeklyTiming is the recurring schedule of a doctor at one establishment.
type WeeklyTiming struct {
	ID                   string         `json:"id" db:"id"`
	DoctorID             string         `json:"doctor_id" db:"doctor_id"`
	EstablishmentID      string         `json:"establishment_id" db:"establishment_id"`
	SlotDurationMinutes  int            `json:"slot_duration_minutes" db:"slot_duration_minutes"`
	Schedule             WeeklySchedule `json:"schedule" db:"schedule"`
	ConsultationFee      float64        `json:"consultation_fee" db:"consultation_fee"`
	VideoConsultationFee float64        `json:"video_consultation_fee" db:"video_consultation_fee"`
	IsActive             bool           `json:"is_active" db:"is_active"`
	IsVerified           bool           `json:"is_verified" db:"is_verified"`
	IsDeleted            bool           `json:"is_deleted" db:"is_deleted"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at" db:"updated_at"`
}

// Key identifies the timing's (doctor, establishment) pair.
func (t *WeeklyTiming) Key() TimingKey {
	return TimingKey{DoctorID: t.DoctorID, EstablishmentID: t.EstablishmentID}
}

// TimingKey identifies a weekly timing by its (doctor, establishment) pair.
type TimingKey struct {
	DoctorID        string
	EstablishmentID string
}

// String renders the key as "doctor/establishment".
func (k TimingKey) String() string {
	return k.DoctorID + "/" + k.EstablishmentID
}
