package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// DefaultSlotHoldTTL is how long a reservation keeps a slot before the booking must be written.
const DefaultSlotHoldTTL = 10 * time.Minute

// ReservationService places short-lived holds on slots the availability
// calculator reports as open, so a booking flow can consume them without
// racing other callers.
type ReservationService struct {
	availability *AvailabilityService
	holds        repositories.SlotHoldRepository
	ttl          time.Duration
	metrics      *observability.Metrics
	newToken     func() string
}

// NewReservationService creates a new reservation service
func NewReservationService(
	availability *AvailabilityService,
	holds repositories.SlotHoldRepository,
	ttl time.Duration,
	metrics *observability.Metrics,
) *ReservationService {
	if ttl <= 0 {
		ttl = DefaultSlotHoldTTL
	}
	return &ReservationService{
		availability: availability,
		holds:        holds,
		ttl:          ttl,
		metrics:      metrics,
		newToken:     uuid.NewString,
	}
}

// ReserveSlot holds slot on date for the doctor at the establishment. The slot
// must be one the timing generates, must not have started yet and must still
// be open, and the doctor must have capacity left once live holds are counted. A live hold by another caller yields entities.ErrSlotAlreadyHeld.
func (s *ReservationService) ReserveSlot(
	ctx context.Context,
	doctorID, establishmentID string,
	date calendar.Date,
	slot string,
	now time.Time,
) (*entities.SlotHold, error) {
	ctx, span := observability.StartSpan(ctx, "reservation.reserve_slot",
		attribute.String("doctor.id", doctorID),
		attribute.String("establishment.id", establishmentID),
		attribute.String("date", date.String()),
	)
	defer span.End()

	tod, err := calendar.ParseTimeOfDay(slot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrSlotUnavailable, err)
	}
	label := tod.String()

	open, capacity, err := s.availability.slotCapacity(ctx, doctorID, establishmentID, date, now)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if capacity <= 0 || !containsLabel(open.Slots, label) {
		return nil, fmt.Errorf("%w: %s %s", entities.ErrSlotUnavailable, date, label)
	}

	hold := &entities.SlotHold{
		Token:           s.newToken(),
		DoctorID:        doctorID,
		EstablishmentID: establishmentID,
		Date:            date,
		Slot:            label,
		ExpiresAt:       now.Add(s.ttl),
	}
	if err := s.holds.Hold(ctx, hold, s.ttl); err != nil {
		if errors.Is(err, entities.ErrSlotAlreadyHeld) {
			observability.RecordSlotHoldConflict(ctx, s.metrics)
		}
		observability.RecordError(span, err)
		return nil, err
	}

	// Holds on different labels race each other; recount with ours in place
	// and back out if the doctor is now overcommitted.
	if _, capacity, err := s.availability.slotCapacity(ctx, doctorID, establishmentID, date, now); err != nil || capacity < 0 {
		if releaseErr := s.holds.Release(ctx, hold); releaseErr != nil {
			observability.LoggerFromContext(ctx).Warn().Err(releaseErr).Str("slot", label).Msg("failed to release overcommitted hold")
		}
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s", entities.ErrSlotUnavailable, date, label)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("doctor_id", doctorID).
		Str("establishment_id", establishmentID).
		Str("date", date.String()).
		Str("slot", label).
		Msg("slot held")
	return hold, nil
}

// ReleaseSlot drops a hold the caller owns.
func (s *ReservationService) ReleaseSlot(ctx context.Context, hold *entities.SlotHold) error {
	tod, err := calendar.ParseTimeOfDay(hold.Slot)
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrSlotUnavailable, err)
	}
	normalized := *hold
	normalized.Slot = tod.String()
	return s.holds.Release(ctx, &normalized)
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
