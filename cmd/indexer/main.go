package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/adapters/database"
	"github.com/zatekoja/carefinder/backend/internal/adapters/events"
	"github.com/zatekoja/carefinder/backend/internal/adapters/search"
	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/providers"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.ProvidersCollection).Msg("deleting collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.ProvidersCollection).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete collection")
		}
	}

	index := search.NewProviderIndexAdapter(tsClient)
	if err := index.EnsureCollection(ctx); err != nil {
		return err
	}

	// Unverified rows are indexed too; the search filter pushes is_verified down.
	rows, err := database.NewProviderAdapter(pgClient).QueryDenormalizedProviders(ctx, repositories.ProviderQuery{})
	if err != nil {
		return err
	}

	started := time.Now()
	if err := index.Index(ctx, rows); err != nil {
		return err
	}

	log.Info().Int("rows", len(rows)).Dur("took", time.Since(started)).Msg("indexed provider rows")

	announceReindex(ctx, cfg)
	return nil
}

// announceReindex tells API instances to drop cached provider views.
func announceReindex(ctx context.Context, cfg *config.Config) {
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("skipping reindex announcement")
		return
	}
	defer redisClient.Close()

	bus := events.NewRedisEventBus(redisClient)
	defer bus.Close()

	event := entities.NewProviderEvent(entities.ProviderEventReindexed, "", "")
	if err := bus.Publish(ctx, providers.EventChannelProviderUpdates, event); err != nil {
		log.Warn().Err(err).Msg("failed to announce reindex")
	}
}
