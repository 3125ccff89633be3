package providers

import (
	"context"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
)

// EventChannelProviderUpdates carries every provider view change
const EventChannelProviderUpdates = "providers:updates"

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error

	// Subscribe returns a channel of events that is closed when ctx ends or the bus closes
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}
