package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	redisclient "github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

const slotHoldPrefix = "slothold"

// releaseScript deletes a hold only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotHoldAdapter implements the SlotHoldRepository interface using Redis
type SlotHoldAdapter struct {
	client *redisclient.Client
	now    func() time.Time
}

// NewSlotHoldAdapter creates a new Redis slot hold adapter
func NewSlotHoldAdapter(client *redisclient.Client) repositories.SlotHoldRepository {
	return &SlotHoldAdapter{
		client: client,
		now:    time.Now,
	}
}

func holdKey(doctorID, establishmentID string, date calendar.Date, slot string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", slotHoldPrefix, doctorID, establishmentID, date, slot)
}

// Hold claims the slot until ttl elapses
func (a *SlotHoldAdapter) Hold(ctx context.Context, hold *entities.SlotHold, ttl time.Duration) error {
	key := holdKey(hold.DoctorID, hold.EstablishmentID, hold.Date, hold.Slot)

	ok, err := a.client.Client().SetNX(ctx, key, hold.Token, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to hold slot: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", entities.ErrSlotAlreadyHeld, key)
	}

	hold.ExpiresAt = a.now().Add(ttl)
	return nil
}

// Release drops the claim if the token still owns it
func (a *SlotHoldAdapter) Release(ctx context.Context, hold *entities.SlotHold) error {
	key := holdKey(hold.DoctorID, hold.EstablishmentID, hold.Date, hold.Slot)
	if err := releaseScript.Run(ctx, a.client.Client(), []string{key}, hold.Token).Err(); err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

// HeldSlots reports which labels carry a live claim
func (a *SlotHoldAdapter) HeldSlots(ctx context.Context, doctorID, establishmentID string, date calendar.Date, labels []string) (map[string]bool, error) {
	held := make(map[string]bool, len(labels))
	if len(labels) == 0 {
		return held, nil
	}

	keys := make([]string, len(labels))
	for i, label := range labels {
		keys[i] = holdKey(doctorID, establishmentID, date, label)
	}

	values, err := a.client.Client().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read slot holds: %w", err)
	}
	for i, v := range values {
		if v != nil {
			held[labels[i]] = true
		}
	}
	return held, nil
}
