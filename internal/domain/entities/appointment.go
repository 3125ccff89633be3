package entities

import (
	"time"

	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// InactiveAppointmentStatuses never consume slot capacity.
var InactiveAppointmentStatuses = []AppointmentStatus{
	AppointmentStatusCancelled,
	AppointmentStatusRescheduled,
}

// Appointment is a booking of one slot with a doctor.
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	DoctorID        string            `json:"doctor_id" db:"doctor_id"`
	EstablishmentID string            `json:"establishment_id" db:"establishment_id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	Date            calendar.Date     `json:"date" db:"appointment_date"`
	SlotTime        string            `json:"slot_time" db:"slot_time"`
	Status          AppointmentStatus `json:"status" db:"status"`
	IsDeleted       bool              `json:"is_deleted" db:"is_deleted"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// CountsAgainstCapacity reports whether the appointment occupies a slot.
func (a *Appointment) CountsAgainstCapacity() bool {
	if a.IsDeleted {
		return false
	}
	for _, s := range InactiveAppointmentStatuses {
		if a.Status == s {
			return false
		}
	}
	return true
}
