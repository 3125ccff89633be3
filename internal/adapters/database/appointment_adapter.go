package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
	apperrors "github.com/zatekoja/carefinder/backend/pkg/errors"
)

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// activeAppointments matches appointments that occupy a slot.
func activeAppointments() goqu.Ex {
	inactive := make([]string, len(entities.InactiveAppointmentStatuses))
	for i, s := range entities.InactiveAppointmentStatuses {
		inactive[i] = string(s)
	}
	return goqu.Ex{
		"is_deleted": false,
		"status":     goqu.Op{"notIn": inactive},
	}
}

// CountActiveAppointments counts a doctor's active appointments on a date
func (a *AppointmentAdapter) CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error) {
	query, args, err := a.db.From("appointments").
		Select(goqu.COUNT("*")).
		Where(
			goqu.Ex{"doctor_id": doctorID, "appointment_date": date.String()},
			activeAppointments(),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DBX().GetContext(ctx, &count, query, args...); err != nil {
		return 0, apperrors.NewInternalError("failed to count appointments", err)
	}
	return count, nil
}

type bookingCountRecord struct {
	DoctorID string        `db:"doctor_id"`
	Date     calendar.Date `db:"appointment_date"`
	Count    int           `db:"booked"`
}

// CountActiveAppointmentsBatch counts active appointments for many (doctor, date) keys at once
func (a *AppointmentAdapter) CountActiveAppointmentsBatch(ctx context.Context, keys []entities.BookingKey) (map[entities.BookingKey]int, error) {
	result := make(map[entities.BookingKey]int, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	doctorSet := map[string]bool{}
	dateSet := map[string]bool{}
	var doctors, dates []string
	for _, k := range keys {
		result[k] = 0
		if !doctorSet[k.DoctorID] {
			doctorSet[k.DoctorID] = true
			doctors = append(doctors, k.DoctorID)
		}
		if d := k.Date.String(); !dateSet[d] {
			dateSet[d] = true
			dates = append(dates, d)
		}
	}

	query, args, err := a.db.From("appointments").
		Select(
			goqu.C("doctor_id"),
			goqu.C("appointment_date"),
			goqu.COUNT("*").As("booked"),
		).
		Where(
			goqu.Ex{"doctor_id": doctors, "appointment_date": dates},
			activeAppointments(),
		).
		GroupBy("doctor_id", "appointment_date").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build count query", err)
	}

	var records []bookingCountRecord
	if err := a.client.DBX().SelectContext(ctx, &records, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to count appointments", err)
	}

	// The IN x IN query can return pairs nobody asked for.
	for _, r := range records {
		key := entities.BookingKey{DoctorID: r.DoctorID, Date: r.Date}
		if _, ok := result[key]; ok {
			result[key] = r.Count
		}
	}
	return result, nil
}

// ListBookedSlotTimes lists the slot labels of a doctor's active appointments at an establishment
func (a *AppointmentAdapter) ListBookedSlotTimes(ctx context.Context, doctorID, establishmentID string, date calendar.Date) ([]string, error) {
	query, args, err := a.db.From("appointments").
		Select("slot_time").
		Where(
			goqu.Ex{
				"doctor_id":        doctorID,
				"establishment_id": establishmentID,
				"appointment_date": date.String(),
			},
			activeAppointments(),
		).
		Order(goqu.I("slot_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	slots := []string{}
	if err := a.client.DBX().SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list booked slots", err)
	}
	return slots, nil
}
