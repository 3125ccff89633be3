package database

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/providers"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
)

// CachedProviderAdapter wraps a ProviderRepository with caching. Only the
// provider view is cached; bookings are always read live.
type CachedProviderAdapter struct {
	adapter repositories.ProviderRepository
	cache   providers.CacheProvider
	ttl     time.Duration
}

// NewCachedProviderAdapter creates a new cached provider adapter
func NewCachedProviderAdapter(adapter repositories.ProviderRepository, cache providers.CacheProvider, ttl time.Duration) repositories.ProviderRepository {
	return &CachedProviderAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
	}
}

func providerViewCacheKey(query repositories.ProviderQuery) string {
	ids := append([]string(nil), query.SpecializationIDs...)
	sort.Strings(ids)
	query.SpecializationIDs = ids

	data, _ := json.Marshal(query)
	sum := sha1.Sum(data)
	return providers.ProviderViewKeyPrefix + hex.EncodeToString(sum[:])
}

// QueryDenormalizedProviders serves the provider view from cache when possible
func (a *CachedProviderAdapter) QueryDenormalizedProviders(ctx context.Context, query repositories.ProviderQuery) ([]*entities.ProviderSearchRow, error) {
	cacheKey := providerViewCacheKey(query)

	cached, err := a.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var rows []*entities.ProviderSearchRow
		if err := json.Unmarshal(cached, &rows); err == nil {
			return rows, nil
		}
		log.Warn().Err(err).Str("key", cacheKey).Msg("failed to decode cached provider view")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("key", cacheKey).Msg("provider view cache unavailable")
	}

	rows, err := a.adapter.QueryDenormalizedProviders(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache provider view")
		}
	}
	return rows, nil
}
