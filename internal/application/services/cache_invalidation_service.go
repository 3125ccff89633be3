package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached provider views when the provider
// rows behind them change. Booking counts are never cached, so only the
// provider view needs invalidating.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for provider events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to provider updates: %w", err)
	}

	s.done.Add(1)
	go s.processEvents(eventChan)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.done.Wait()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ProviderEvent) {
	defer s.done.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event != nil {
				s.handleEvent(event)
			}
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ProviderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.With().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("doctor_id", event.DoctorID).
		Logger()

	// Cached views are keyed by query hash, not by provider, so any change
	// invalidates them all.
	n, err := s.InvalidateProviderViews(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate provider views")
		return
	}
	logger.Info().Int("keys", n).Msg("invalidated provider views")
}

// InvalidateProviderViews removes every cached provider view query
func (s *CacheInvalidationService) InvalidateProviderViews(ctx context.Context) (int, error) {
	n, err := s.cache.DeletePattern(ctx, providers.ProviderViewKeyPrefix+"*")
	if err != nil {
		return n, fmt.Errorf("failed to invalidate provider views: %w", err)
	}
	return n, nil
}
