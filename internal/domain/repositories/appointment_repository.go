package repositories

import (
	"context"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// AppointmentRepository is the read side of the booking store.
type AppointmentRepository interface {
	// CountActiveAppointments counts the doctor's appointments on date that are
	// neither deleted, cancelled nor rescheduled.
	CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error)

	// CountActiveAppointmentsBatch answers CountActiveAppointments for many
	// keys in one round trip. Keys without appointments map to zero.
	CountActiveAppointmentsBatch(ctx context.Context, keys []entities.BookingKey) (map[entities.BookingKey]int, error)

	// ListBookedSlotTimes returns the slot labels of the doctor's active
	// appointments at an establishment on date.
	ListBookedSlotTimes(ctx context.Context, doctorID, establishmentID string, date calendar.Date) ([]string, error)
}
