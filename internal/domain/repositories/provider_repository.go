package repositories

import (
	"context"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
)

// ProviderQuery is the fragment of a search predicate a store can push down.
// Everything else is evaluated in memory by the search engine.
type ProviderQuery struct {
	SpecializationIDs []string
	City              string
	Locality          string
	EstablishmentID   string
	OnlyVerified      bool
}

// ProviderRepository supplies the denormalized provider view.
type ProviderRepository interface {
	// QueryDenormalizedProviders returns one row per (provider, establishment)
	// pairing of active, non-deleted timings matching query.
	QueryDenormalizedProviders(ctx context.Context, query ProviderQuery) ([]*entities.ProviderSearchRow, error)
}

// ProviderIndexRepository maintains a search index of provider rows.
type ProviderIndexRepository interface {
	ProviderRepository

	// EnsureCollection creates the index if it does not exist.
	EnsureCollection(ctx context.Context) error

	// Index upserts rows into the index.
	Index(ctx context.Context, rows []*entities.ProviderSearchRow) error
}
