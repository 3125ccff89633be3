package entities

import (
	"time"

	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// AvailabilityDay is the computed capacity of one doctor on one civil date.
type AvailabilityDay struct {
	Date           calendar.Date `json:"date"`
	DoctorID       string        `json:"doctor_id"`
	TotalSlots     int           `json:"total_slots"`
	PassedSlots    int           `json:"passed_slots"`
	BookedCount    int           `json:"booked_count"`
	RemainingSlots int           `json:"remaining_slots"`
}

// DoctorAvailability is the availability window of one doctor at one establishment.
type DoctorAvailability struct {
	DoctorID        string            `json:"doctor_id"`
	EstablishmentID string            `json:"establishment_id"`
	Days            []AvailabilityDay `json:"days"`
}

// AvailableDoctor is a doctor with capacity left at an establishment on a date.
type AvailableDoctor struct {
	DoctorID        string        `json:"doctor_id"`
	EstablishmentID string        `json:"establishment_id"`
	Date            calendar.Date `json:"date"`
	RemainingSlots  int           `json:"remaining_slots"`
}

// DaySlots lists the bookable slot labels of a doctor on a date.
type DaySlots struct {
	DoctorID        string        `json:"doctor_id"`
	EstablishmentID string        `json:"establishment_id"`
	Date            calendar.Date `json:"date"`
	Slots           []string      `json:"slots"`
	RemainingSlots  int           `json:"remaining_slots"`
}

// SlotHold is a short-lived claim on one slot, taken before a booking is written.
type SlotHold struct {
	Token           string        `json:"token"`
	DoctorID        string        `json:"doctor_id"`
	EstablishmentID string        `json:"establishment_id"`
	Date            calendar.Date `json:"date"`
	Slot            string        `json:"slot"`
	ExpiresAt       time.Time     `json:"expires_at"`
}

// BookingKey identifies the booking count of one doctor on one date. Counts are
// per doctor across all establishments.
type BookingKey struct {
	DoctorID string
	Date     calendar.Date
}
