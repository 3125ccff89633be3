package entities

import (
	"time"

	"github.com/google/uuid"
)

// ProviderEventType represents what changed in the provider view
type ProviderEventType string

const (
	ProviderEventReindexed     ProviderEventType = "reindexed"
	ProviderEventTimingChanged ProviderEventType = "timing_changed"
)

// ProviderEvent announces a change to denormalized provider rows. DoctorID and
// EstablishmentID are empty for bulk changes.
type ProviderEvent struct {
	ID              string            `json:"id"`
	Type            ProviderEventType `json:"type"`
	DoctorID        string            `json:"doctor_id,omitempty"`
	EstablishmentID string            `json:"establishment_id,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// NewProviderEvent creates a new provider event
func NewProviderEvent(eventType ProviderEventType, doctorID, establishmentID string) *ProviderEvent {
	return &ProviderEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		DoctorID:        doctorID,
		EstablishmentID: establishmentID,
		Timestamp:       time.Now(),
	}
}
