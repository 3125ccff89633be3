package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/carefinder/backend/internal/adapters/database"
	"github.com/zatekoja/carefinder/backend/internal/application/services"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
	"github.com/zatekoja/carefinder/backend/pkg/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	doctorID        string
	establishmentID string
	date            string
	days            int
	timeout         time.Duration
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "availability",
		Short:        "Inspect doctor availability computed from weekly timings and bookings",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.doctorID, "doctor", "", "doctor id")
	root.PersistentFlags().StringVar(&opts.establishmentID, "establishment", "", "establishment id")
	root.PersistentFlags().StringVar(&opts.date, "date", "", "first date (YYYY-MM-DD), defaults to today")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "query timeout")
	_ = root.MarkPersistentFlagRequired("doctor")

	window := &cobra.Command{
		Use:   "window",
		Short: "Print remaining slots per day for the availability window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.establishmentID == "" {
				return fmt.Errorf("--establishment is required")
			}
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *services.AvailabilityService, start calendar.Date, now time.Time) error {
				days := opts.days
				if days == 0 {
					days = svc.WindowDays()
				}
				result, err := svc.ComputeForDoctor(ctx, opts.doctorID, opts.establishmentID, start, days, now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	window.Flags().IntVar(&opts.days, "days", 0, "number of days, defaults to the configured window")

	slots := &cobra.Command{
		Use:   "slots",
		Short: "Print the open slot labels for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.establishmentID == "" {
				return fmt.Errorf("--establishment is required")
			}
			return withService(cmd.Context(), opts, func(ctx context.Context, svc *services.AvailabilityService, date calendar.Date, now time.Time) error {
				result, err := svc.DaySlots(ctx, opts.doctorID, opts.establishmentID, date, now)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	root.AddCommand(window, slots)
	return root
}

// withService wires the availability service against Postgres and resolves
// the requested date in the configured civil clock.
func withService(ctx context.Context, opts *options, run func(context.Context, *services.AvailabilityService, calendar.Date, time.Time) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-cli", cfg.Env)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	now := time.Now()
	clock := cfg.Availability.Clock()
	date := clock.Today(now)
	if opts.date != "" {
		if date, err = calendar.ParseDate(opts.date); err != nil {
			return err
		}
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	svc := services.NewAvailabilityService(
		database.NewTimingAdapter(pgClient),
		database.NewAppointmentAdapter(pgClient),
		nil,
		clock,
		services.AvailabilityOptions{
			WindowDays:     cfg.Availability.WindowDays,
			MaxConcurrency: cfg.Availability.MaxConcurrency,
		},
		nil,
	)
	return run(ctx, svc, date, now)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
