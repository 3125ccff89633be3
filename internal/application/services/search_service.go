package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/internal/loaders"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
	"github.com/zatekoja/carefinder/backend/pkg/geo"
	"github.com/zatekoja/carefinder/backend/pkg/pagination"
)

// SearchRequest is a normalized listing request.
type SearchRequest struct {
	Filter entities.SearchFilter
	Sort   entities.SortKey
	Offset int
	Limit  int
	// IsExport returns every match and ignores Offset and Limit.
	IsExport bool
	// IncludeAvailability attaches the full availability window to each row.
	IncludeAvailability bool
}

// SearchService ranks doctors and establishments over the denormalized provider view.
type SearchService struct {
	providers    repositories.ProviderRepository
	timings      repositories.TimingRepository
	appointments repositories.AppointmentRepository
	availability *AvailabilityService
	metrics      *observability.Metrics
}

// NewSearchService creates a new search service
func NewSearchService(
	providers repositories.ProviderRepository,
	timings repositories.TimingRepository,
	appointments repositories.AppointmentRepository,
	availability *AvailabilityService,
	metrics *observability.Metrics,
) *SearchService {
	return &SearchService{
		providers:    providers,
		timings:      timings,
		appointments: appointments,
		availability: availability,
		metrics:      metrics,
	}
}

// SearchDoctors returns one ranked row per matching provider. A provider
// matching at several establishments is represented by its best-ranked pairing
// and lists every matching establishment.
func (s *SearchService) SearchDoctors(ctx context.Context, req SearchRequest, now time.Time) (pagination.Page[entities.RankedProviderRow], error) {
	ctx, span := observability.StartSpan(ctx, "search.doctors",
		attribute.Int("search.sort", int(req.Sort)),
		attribute.Bool("search.geo", req.Filter.Coordinates != nil),
	)
	defer span.End()
	started := time.Now()

	ranked, err := s.rank(ctx, req, now, "search_doctors")
	if err != nil {
		observability.RecordError(span, err)
		return pagination.Page[entities.RankedProviderRow]{}, err
	}

	grouped := groupByProvider(ranked)
	page := pagination.Paginate(grouped, req.Offset, req.Limit, req.IsExport)

	observability.RecordSearchMetric(ctx, s.metrics, "doctors", page.Total, time.Since(started))
	span.SetAttributes(attribute.Int("search.total", page.Total))
	return page, nil
}

// SearchEstablishments returns one ranked row per establishment with a
// matching doctor, listing those doctors in rank order.
func (s *SearchService) SearchEstablishments(ctx context.Context, req SearchRequest, now time.Time) (pagination.Page[entities.RankedEstablishmentRow], error) {
	ctx, span := observability.StartSpan(ctx, "search.establishments",
		attribute.Int("search.sort", int(req.Sort)),
		attribute.Bool("search.geo", req.Filter.Coordinates != nil),
	)
	defer span.End()
	started := time.Now()

	ranked, err := s.rank(ctx, req, now, "search_establishments")
	if err != nil {
		observability.RecordError(span, err)
		return pagination.Page[entities.RankedEstablishmentRow]{}, err
	}

	grouped := groupByEstablishment(ranked)
	page := pagination.Paginate(grouped, req.Offset, req.Limit, req.IsExport)

	observability.RecordSearchMetric(ctx, s.metrics, "establishments", page.Total, time.Since(started))
	span.SetAttributes(attribute.Int("search.total", page.Total))
	return page, nil
}

// rank fetches, filters and orders the matching (provider, establishment) rows.
func (s *SearchService) rank(ctx context.Context, req SearchRequest, now time.Time, operation string) ([]*rankedRow, error) {
	queried := time.Now()
	rows, err := s.providers.QueryDenormalizedProviders(ctx, repositories.ProviderQuery{
		SpecializationIDs: req.Filter.SpecializationIDs,
		City:              req.Filter.City,
		Locality:          req.Filter.Locality,
		OnlyVerified:      true,
	})
	observability.RecordDBMetric(ctx, s.metrics, "query_providers", time.Since(queried))
	if err != nil {
		return nil, err
	}

	clock := s.availability.Clock()
	matcher := newRowMatcher(req.Filter, clock, now)

	candidates := make([]*rankedRow, 0, len(rows))
	for _, row := range rows {
		if !matcher.matches(row) {
			continue
		}
		r := &rankedRow{row: row}
		if req.Filter.Coordinates != nil && row.Location != nil {
			d := geo.DistanceKm(*req.Filter.Coordinates, *row.Location)
			r.distance = &d
		}
		candidates = append(candidates, r)
	}

	windowDays := 0
	switch {
	case req.IncludeAvailability:
		windowDays = s.availability.WindowDays()
	case req.Filter.Availability == entities.AvailabilityToday:
		windowDays = 1
	case req.Filter.Availability == entities.AvailabilityTomorrow:
		windowDays = 2
	}

	if windowDays > 0 && len(candidates) > 0 {
		candidates, err = s.attachAvailability(ctx, candidates, clock.Today(now), windowDays, now, operation)
		if err != nil {
			return nil, err
		}
		candidates = filterByRemaining(candidates, req.Filter.Availability)
	}

	sortRows(candidates, req.Sort, req.Filter.Coordinates != nil)
	return candidates, nil
}

// attachAvailability computes the availability window of every candidate.
// Candidates whose computation fails are dropped, logged and counted; only
// cancellation aborts the request.
func (s *SearchService) attachAvailability(
	ctx context.Context,
	candidates []*rankedRow,
	start calendar.Date,
	windowDays int,
	now time.Time,
	operation string,
) ([]*rankedRow, error) {
	l := loaders.NewLoaders(s.timings, s.appointments)
	cache := newAvailabilityCache()

	var g errgroup.Group
	g.SetLimit(s.availability.concurrency)
	for _, c := range candidates {
		g.Go(func() error {
			key := c.row.TimingKey()
			days, err := cache.get(key, func() ([]entities.AvailabilityDay, error) {
				timing, err := l.LoadTiming(ctx, key)
				if err != nil {
					return nil, err
				}
				return s.availability.computeWith(ctx, l, key.DoctorID, timing, start, windowDays, now)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.failed = true
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("doctor_id", key.DoctorID).
					Str("establishment_id", key.EstablishmentID).
					Str("operation", operation).
					Msg("availability failed, row excluded")
				observability.RecordAvailabilityFailure(ctx, s.metrics, operation)
				return nil
			}
			c.availability = days
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(entities.ErrAvailabilityQueryFailed, err)
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if !c.failed {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// filterByRemaining keeps rows with capacity left on the requested day.
// Availability always starts at today, so today is index 0 and tomorrow index 1.
func filterByRemaining(rows []*rankedRow, filter entities.AvailabilityFilter) []*rankedRow {
	var idx int
	switch filter {
	case entities.AvailabilityToday:
		idx = 0
	case entities.AvailabilityTomorrow:
		idx = 1
	default:
		return rows
	}

	kept := rows[:0]
	for _, r := range rows {
		if idx < len(r.availability) && r.availability[idx].RemainingSlots > 0 {
			kept = append(kept, r)
		}
	}
	return kept
}

// availabilityCache computes each timing's window once per request.
type availabilityCache struct {
	mu      sync.Mutex
	entries map[entities.TimingKey]*availabilityEntry
}

type availabilityEntry struct {
	once sync.Once
	days []entities.AvailabilityDay
	err  error
}

func newAvailabilityCache() *availabilityCache {
	return &availabilityCache{entries: make(map[entities.TimingKey]*availabilityEntry)}
}

func (c *availabilityCache) get(key entities.TimingKey, compute func() ([]entities.AvailabilityDay, error)) ([]entities.AvailabilityDay, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &availabilityEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.days, entry.err = compute()
	})
	return entry.days, entry.err
}
