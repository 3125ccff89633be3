package entities

import "errors"

var (
	// ErrMalformedTimeRange is returned when a schedule range cannot be parsed as civil times.
	ErrMalformedTimeRange = errors.New("malformed time range")

	// ErrAvailabilityQueryFailed is returned when booking counts could not be read.
	ErrAvailabilityQueryFailed = errors.New("availability query failed")

	// ErrInvalidFilter is returned when a search filter value fails validation.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrSlotUnavailable is returned when a slot is not bookable on the requested date.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotAlreadyHeld is returned when another caller holds the slot.
	ErrSlotAlreadyHeld = errors.New("slot already held")

	// ErrTimingNotFound is returned when no active timing exists for a doctor and establishment.
	ErrTimingNotFound = errors.New("timing not found")
)
