package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/adapters/cache"
	"github.com/zatekoja/carefinder/backend/internal/adapters/database"
	"github.com/zatekoja/carefinder/backend/internal/adapters/events"
	"github.com/zatekoja/carefinder/backend/internal/adapters/search"
	"github.com/zatekoja/carefinder/backend/internal/api/handlers"
	"github.com/zatekoja/carefinder/backend/internal/api/routes"
	"github.com/zatekoja/carefinder/backend/internal/application/services"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis backs the provider view cache and slot holds. Both are optional.
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; running without provider cache and slot holds")
	} else {
		defer redisClient.Close()
	}

	timingAdapter := database.NewTimingAdapter(pgClient)
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)

	providerRepo, err := providerRepository(ctx, cfg, pgClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider store")
	}
	if redisClient != nil && cfg.Search.ProviderCacheTTL > 0 {
		cacheProvider := cache.NewRedisAdapter(redisClient)
		providerRepo = database.NewCachedProviderAdapter(providerRepo, cacheProvider, cfg.Search.ProviderCacheTTL)
		log.Info().Dur("ttl", cfg.Search.ProviderCacheTTL).Msg("provider view cache enabled")

		// Reindex and timing change events drop cached views before their TTL.
		eventBus := events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
		invalidation := services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("failed to start cache invalidation")
		} else {
			defer invalidation.Stop()
		}
	}

	var holdRepo repositories.SlotHoldRepository
	if redisClient != nil {
		holdRepo = cache.NewSlotHoldAdapter(redisClient)
	}

	availabilityService := services.NewAvailabilityService(
		timingAdapter,
		appointmentAdapter,
		holdRepo,
		cfg.Availability.Clock(),
		services.AvailabilityOptions{
			WindowDays:     cfg.Availability.WindowDays,
			MaxConcurrency: cfg.Availability.MaxConcurrency,
		},
		metrics,
	)
	searchService := services.NewSearchService(providerRepo, timingAdapter, appointmentAdapter, availabilityService, metrics)

	var reservationHandler *handlers.ReservationHandler
	if holdRepo != nil {
		reservationService := services.NewReservationService(availabilityService, holdRepo, cfg.Availability.SlotHoldTTL, metrics)
		reservationHandler = handlers.NewReservationHandler(reservationService)
	}

	router := routes.NewRouter(
		handlers.NewSearchHandler(searchService, cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize),
		handlers.NewAvailabilityHandler(availabilityService),
		reservationHandler,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("search_backend", cfg.Search.Backend).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

// providerRepository selects where denormalized provider rows are read from.
func providerRepository(ctx context.Context, cfg *config.Config, pgClient *postgres.Client) (repositories.ProviderRepository, error) {
	if cfg.Search.Backend != "typesense" {
		return database.NewProviderAdapter(pgClient), nil
	}

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return nil, err
	}
	index := search.NewProviderIndexAdapter(tsClient)
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return index, nil
}
