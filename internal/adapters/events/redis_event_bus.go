package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/redis"
)

// subscriberBuffer bounds how many undelivered events a slow subscriber may hold.
const subscriberBuffer = 100

var errBusClosed = errors.New("event bus closed")

// channelSubscription is one Redis subscription fanned out to local listeners.
type channelSubscription struct {
	pubsub    *redis.PubSub
	listeners map[chan *entities.ProviderEvent]struct{}
}

// RedisEventBus delivers provider events over Redis Pub/Sub.
type RedisEventBus struct {
	client   *redisclient.Client
	mu       sync.RWMutex
	channels map[string]*channelSubscription
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRedisEventBus creates an event bus on top of client.
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		channels: make(map[string]*channelSubscription),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func decodeEvent(payload string) (*entities.ProviderEvent, error) {
	var event entities.ProviderEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("event %q has no type", event.ID)
	}
	return &event, nil
}

func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal provider event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("published provider event")
	return nil
}

// Subscribe returns a channel of events published on channel. The returned
// channel is closed once ctx is done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	listener := make(chan *entities.ProviderEvent, subscriberBuffer)

	b.mu.Lock()
	if b.ctx.Err() != nil {
		b.mu.Unlock()
		return nil, errBusClosed
	}
	sub, ok := b.channels[channel]
	if !ok {
		sub = &channelSubscription{
			pubsub:    b.client.Client().Subscribe(b.ctx, channel),
			listeners: make(map[chan *entities.ProviderEvent]struct{}),
		}
		b.channels[channel] = sub
		go b.forward(channel, sub.pubsub)
	}
	sub.listeners[listener] = struct{}{}
	listeners := len(sub.listeners)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("listeners", listeners).Msg("subscribed to provider events")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.unsubscribe(channel, listener)
	}()

	return listener, nil
}

func (b *RedisEventBus) forward(channel string, pubsub *redis.PubSub) {
	messages := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := decodeEvent(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("discarding malformed provider event")
				continue
			}
			b.broadcast(channel, event)
		}
	}
}

func (b *RedisEventBus) broadcast(channel string, event *entities.ProviderEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, ok := b.channels[channel]
	if !ok {
		return
	}
	for listener := range sub.listeners {
		select {
		case listener <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("listener full, dropping provider event")
		}
	}
}

func (b *RedisEventBus) unsubscribe(channel string, listener chan *entities.ProviderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.channels[channel]
	if !ok {
		return
	}
	if _, ok := sub.listeners[listener]; !ok {
		return
	}
	delete(sub.listeners, listener)
	close(listener)

	if len(sub.listeners) > 0 {
		return
	}
	delete(b.channels, channel)
	if err := sub.pubsub.Close(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to close subscription")
	}
}

// Close stops every subscription and closes all listener channels.
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel, sub := range b.channels {
		if err := sub.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", channel, err))
		}
		for listener := range sub.listeners {
			close(listener)
		}
		delete(b.channels, channel)
	}
	return errors.Join(errs...)
}
