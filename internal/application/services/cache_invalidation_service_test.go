package services_test

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/backend/internal/application/services"
	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/providers"
)

// MockCacheProvider for testing
type MockCacheProvider struct {
	mu         sync.Mutex
	data       map[string][]byte
	patternErr error
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.patternErr != nil {
		return 0, m.patternErr
	}
	n := 0
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
			n++
		}
	}
	return n, nil
}

func (m *MockCacheProvider) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// MockEventBus for testing
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.ProviderEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{subscribers: make(map[string][]chan *entities.ProviderEvent)}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		ch <- event
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.ProviderEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}

type failingEventBus struct{ MockEventBus }

func (f *failingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	return nil, errors.New("redis down")
}

func TestCacheInvalidationService_Start(t *testing.T) {
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	require.NoError(t, service.Start())
	assert.Equal(t, 1, eventBus.SubscriberCount(providers.EventChannelProviderUpdates))

	service.Stop()
}

func TestCacheInvalidationService_StartFailsWithoutSubscription(t *testing.T) {
	service := services.NewCacheInvalidationService(NewMockCacheProvider(), &failingEventBus{})

	assert.ErrorContains(t, service.Start(), "redis down")
}

func TestCacheInvalidationService_DropsProviderViewsOnEvent(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCacheProvider()
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(cache, eventBus)

	require.NoError(t, service.Start())
	defer service.Stop()

	require.NoError(t, cache.Set(ctx, providers.ProviderViewKeyPrefix+"abc", []byte("[]"), time.Minute))
	require.NoError(t, cache.Set(ctx, providers.ProviderViewKeyPrefix+"def", []byte("[]"), time.Minute))
	require.NoError(t, cache.Set(ctx, "slothold:doc-1:est-1:2026-03-02:09:00", []byte("tok"), time.Minute))

	event := entities.NewProviderEvent(entities.ProviderEventReindexed, "", "")
	require.NoError(t, eventBus.Publish(ctx, providers.EventChannelProviderUpdates, event))

	assert.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 10*time.Millisecond)
	_, err := cache.Get(ctx, "slothold:doc-1:est-1:2026-03-02:09:00")
	assert.NoError(t, err)
}

func TestCacheInvalidationService_StopsWhenBusCloses(t *testing.T) {
	eventBus := NewMockEventBus()
	service := services.NewCacheInvalidationService(NewMockCacheProvider(), eventBus)
	require.NoError(t, service.Start())

	require.NoError(t, eventBus.Close())

	done := make(chan struct{})
	go func() {
		service.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not stop after the bus closed")
	}
}

func TestCacheInvalidationService_InvalidateProviderViewsError(t *testing.T) {
	cache := NewMockCacheProvider()
	cache.patternErr = errors.New("scan failed")
	service := services.NewCacheInvalidationService(cache, NewMockEventBus())

	_, err := service.InvalidateProviderViews(context.Background())
	assert.ErrorContains(t, err, "scan failed")
}
