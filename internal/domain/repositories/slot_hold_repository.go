package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// SlotHoldRepository stores short-lived slot claims.
type SlotHoldRepository interface {
	// Hold claims the slot for ttl. It returns entities.ErrSlotAlreadyHeld when
	// another claim is live.
	Hold(ctx context.Context, hold *entities.SlotHold, ttl time.Duration) error

	// Release drops the claim if it is still owned by hold.Token.
	Release(ctx context.Context, hold *entities.SlotHold) error

	// HeldSlots returns which of labels currently carry a live claim.
	HeldSlots(ctx context.Context, doctorID, establishmentID string, date calendar.Date, labels []string) (map[string]bool, error)
}
