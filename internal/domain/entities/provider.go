package entities

import (
	"time"

	"github.com/zatekoja/carefinder/backend/pkg/geo"
)

// Address represents a physical address
type Address struct {
	Street   string `json:"street" db:"street"`
	Locality string `json:"locality" db:"locality"`
	City     string `json:"city" db:"city"`
	State    string `json:"state" db:"state"`
	Country  string `json:"country" db:"country"`
}

// ProviderSearchRow is one (provider, establishment) pairing of the
// denormalized provider view. A provider practising at several establishments
// yields one row per establishment.
type ProviderSearchRow struct {
	ProviderID           string         `json:"provider_id"`
	ProviderName         string         `json:"provider_name"`
	EstablishmentID      string         `json:"establishment_id"`
	EstablishmentName    string         `json:"establishment_name"`
	EstablishmentType    string         `json:"establishment_type"`
	SpecializationIDs    []string       `json:"specialization_ids"`
	SpecializationNames  []string       `json:"specialization_names"`
	ServiceNames         []string       `json:"service_names"`
	ConsultationFee      float64        `json:"consultation_fee"`
	VideoConsultationFee float64        `json:"video_consultation_fee"`
	SlotDurationMinutes  int            `json:"slot_duration_minutes"`
	IsActive             bool           `json:"is_active"`
	Schedule             WeeklySchedule `json:"schedule"`
	Address              Address        `json:"address"`
	Location             *geo.Point     `json:"location,omitempty"`
	Rating               float64        `json:"rating"`
	Recommended          int            `json:"recommended"`
	ExperienceYears      int            `json:"experience_years"`
	IsVerified           bool           `json:"is_verified"`
	CreatedAt            time.Time      `json:"created_at"`
}

// TimingKey returns the (doctor, establishment) key of the row's weekly timing.
func (r *ProviderSearchRow) TimingKey() TimingKey {
	return TimingKey{DoctorID: r.ProviderID, EstablishmentID: r.EstablishmentID}
}

// Timing rebuilds the weekly timing carried by the row.
func (r *ProviderSearchRow) Timing() *WeeklyTiming {
	return &WeeklyTiming{
		DoctorID:             r.ProviderID,
		EstablishmentID:      r.EstablishmentID,
		SlotDurationMinutes:  r.SlotDurationMinutes,
		Schedule:             r.Schedule,
		ConsultationFee:      r.ConsultationFee,
		VideoConsultationFee: r.VideoConsultationFee,
		IsActive:             r.IsActive,
		IsVerified:           r.IsVerified,
	}
}
