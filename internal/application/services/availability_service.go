package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/internal/loaders"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// DefaultWindowDays is the rolling availability horizon.
const DefaultWindowDays = 14

// BookingCounter counts the appointments that consume a doctor's capacity on a date.
type BookingCounter interface {
	CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error)
}

// AvailabilityOptions tunes the availability calculator.
type AvailabilityOptions struct {
	WindowDays     int
	MaxConcurrency int
}

// AvailabilityService computes remaining slot capacity from weekly timings and bookings.
type AvailabilityService struct {
	timings      repositories.TimingRepository
	appointments repositories.AppointmentRepository
	holds        repositories.SlotHoldRepository
	clock        calendar.Clock
	windowDays   int
	concurrency  int
	metrics      *observability.Metrics
}

// NewAvailabilityService creates a new availability service. holds and metrics may be nil.
func NewAvailabilityService(
	timings repositories.TimingRepository,
	appointments repositories.AppointmentRepository,
	holds repositories.SlotHoldRepository,
	clock calendar.Clock,
	opts AvailabilityOptions,
	metrics *observability.Metrics,
) *AvailabilityService {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultWindowDays
	}
	return &AvailabilityService{
		timings:      timings,
		appointments: appointments,
		holds:        holds,
		clock:        clock,
		windowDays:   opts.WindowDays,
		concurrency:  opts.MaxConcurrency,
		metrics:      metrics,
	}
}

// Clock returns the civil clock availability is computed in.
func (s *AvailabilityService) Clock() calendar.Clock {
	return s.clock
}

// WindowDays returns the configured availability horizon.
func (s *AvailabilityService) WindowDays() int {
	return s.windowDays
}

// ComputeAvailability returns one AvailabilityDay per date of the window,
// in ascending order starting at windowStart. A non-positive windowDays uses
// the configured horizon.
func (s *AvailabilityService) ComputeAvailability(
	ctx context.Context,
	doctorID string,
	timing *entities.WeeklyTiming,
	windowStart calendar.Date,
	windowDays int,
	now time.Time,
) ([]entities.AvailabilityDay, error) {
	return s.computeWith(ctx, s.appointments, doctorID, timing, windowStart, windowDays, now)
}

func (s *AvailabilityService) computeWith(
	ctx context.Context,
	counter BookingCounter,
	doctorID string,
	timing *entities.WeeklyTiming,
	windowStart calendar.Date,
	windowDays int,
	now time.Time,
) ([]entities.AvailabilityDay, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}

	today := s.clock.Today(now)
	nowTOD := s.clock.TimeOfDay(now)

	days := make([]entities.AvailabilityDay, windowDays)
	for i := range days {
		date := windowStart.AddDays(i)
		var current *calendar.TimeOfDay
		if date == today {
			current = &nowTOD
		}
		nominal, passed, err := daySlotCounts(timing, date, current)
		if err != nil {
			return nil, fmt.Errorf("doctor %s on %s: %w", doctorID, date, err)
		}
		days[i] = entities.AvailabilityDay{
			Date:        date,
			DoctorID:    doctorID,
			TotalSlots:  nominal,
			PassedSlots: passed,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range days {
		g.Go(func() error {
			n, err := counter.CountActiveAppointments(gctx, doctorID, days[i].Date)
			if err != nil {
				return err
			}
			days[i].BookedCount = n
			return nil
		})
	}
	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: doctor %s: %w", entities.ErrAvailabilityQueryFailed, doctorID, err)
	}

	for i := range days {
		remaining := days[i].TotalSlots - days[i].PassedSlots - days[i].BookedCount
		if remaining < 0 {
			remaining = 0
		}
		days[i].RemainingSlots = remaining
	}
	return days, nil
}

// ComputeForDoctor loads the doctor's timing at the establishment and computes
// its availability window.
func (s *AvailabilityService) ComputeForDoctor(
	ctx context.Context,
	doctorID, establishmentID string,
	windowStart calendar.Date,
	windowDays int,
	now time.Time,
) (*entities.DoctorAvailability, error) {
	ctx, span := observability.StartSpan(ctx, "availability.compute",
		attribute.String("doctor.id", doctorID),
		attribute.String("establishment.id", establishmentID),
	)
	defer span.End()

	timing, err := s.timings.GetByDoctorAndEstablishment(ctx, doctorID, establishmentID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	days, err := s.ComputeAvailability(ctx, doctorID, timing, windowStart, windowDays, now)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return &entities.DoctorAvailability{
		DoctorID:        doctorID,
		EstablishmentID: establishmentID,
		Days:            days,
	}, nil
}

// ComputeBatch computes the availability window of every (doctor, establishment)
// key. Keys whose timing is missing or whose computation fails are left out of
// the result, logged and counted. Only cancellation of ctx aborts the batch.
func (s *AvailabilityService) ComputeBatch(
	ctx context.Context,
	keys []entities.TimingKey,
	windowStart calendar.Date,
	windowDays int,
	now time.Time,
) ([]entities.DoctorAvailability, error) {
	if len(keys) == 0 {
		return []entities.DoctorAvailability{}, nil
	}

	timings, err := s.timings.GetByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	ordered := make([]*entities.WeeklyTiming, 0, len(keys))
	for _, key := range keys {
		timing, ok := timings[key]
		if !ok {
			observability.LoggerFromContext(ctx).Warn().
				Str("doctor_id", key.DoctorID).
				Str("establishment_id", key.EstablishmentID).
				Msg("no timing found, doctor excluded from batch")
			observability.RecordAvailabilityFailure(ctx, s.metrics, "batch")
			continue
		}
		ordered = append(ordered, timing)
	}

	counter := loaders.NewLoaders(s.timings, s.appointments)
	return s.computeMany(ctx, counter, ordered, windowStart, windowDays, now, "batch")
}

// computeMany runs the calculator for each timing concurrently and returns the
// successful results in input order.
func (s *AvailabilityService) computeMany(
	ctx context.Context,
	counter BookingCounter,
	timings []*entities.WeeklyTiming,
	windowStart calendar.Date,
	windowDays int,
	now time.Time,
	operation string,
) ([]entities.DoctorAvailability, error) {
	results := make([]*entities.DoctorAvailability, len(timings))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, timing := range timings {
		g.Go(func() error {
			days, err := s.computeWith(ctx, counter, timing.DoctorID, timing, windowStart, windowDays, now)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("doctor_id", timing.DoctorID).
					Str("establishment_id", timing.EstablishmentID).
					Str("operation", operation).
					Msg("availability failed, doctor excluded")
				observability.RecordAvailabilityFailure(ctx, s.metrics, operation)
				return nil
			}
			results[i] = &entities.DoctorAvailability{
				DoctorID:        timing.DoctorID,
				EstablishmentID: timing.EstablishmentID,
				Days:            days,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]entities.DoctorAvailability, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// FindAvailableDoctors lists the doctors at an establishment with at least one
// remaining slot on date.
func (s *AvailabilityService) FindAvailableDoctors(
	ctx context.Context,
	establishmentID string,
	date calendar.Date,
	now time.Time,
) ([]entities.AvailableDoctor, error) {
	ctx, span := observability.StartSpan(ctx, "availability.find_available_doctors",
		attribute.String("establishment.id", establishmentID),
		attribute.String("date", date.String()),
	)
	defer span.End()

	timings, err := s.timings.ListByEstablishment(ctx, establishmentID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	counter := loaders.NewLoaders(s.timings, s.appointments)
	results, err := s.computeMany(ctx, counter, timings, date, 1, now, "available_doctors")
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	doctors := []entities.AvailableDoctor{}
	for _, r := range results {
		if r.Days[0].RemainingSlots > 0 {
			doctors = append(doctors, entities.AvailableDoctor{
				DoctorID:        r.DoctorID,
				EstablishmentID: r.EstablishmentID,
				Date:            date,
				RemainingSlots:  r.Days[0].RemainingSlots,
			})
		}
	}
	sort.SliceStable(doctors, func(i, j int) bool {
		return doctors[i].RemainingSlots > doctors[j].RemainingSlots
	})
	return doctors, nil
}

// DaySlots lists the slot labels still open on date: started slots on today,
// labels taken by active appointments and labels under a live hold are removed.
// Live holds also count against RemainingSlots, and the list never offers more
// labels than RemainingSlots, since bookings at other establishments consume
// the same capacity without occupying a label here.
func (s *AvailabilityService) DaySlots(
	ctx context.Context,
	doctorID, establishmentID string,
	date calendar.Date,
	now time.Time,
) (*entities.DaySlots, error) {
	result, _, err := s.slotCapacity(ctx, doctorID, establishmentID, date, now)
	return result, err
}

// slotCapacity returns the open slots together with the capacity left after
// live holds. The capacity is not clamped, so a negative value means more
// holds exist than the doctor can honour.
func (s *AvailabilityService) slotCapacity(
	ctx context.Context,
	doctorID, establishmentID string,
	date calendar.Date,
	now time.Time,
) (*entities.DaySlots, int, error) {
	timing, err := s.timings.GetByDoctorAndEstablishment(ctx, doctorID, establishmentID)
	if err != nil {
		return nil, 0, err
	}
	return s.daySlots(ctx, timing, date, now)
}

func (s *AvailabilityService) daySlots(
	ctx context.Context,
	timing *entities.WeeklyTiming,
	date calendar.Date,
	now time.Time,
) (*entities.DaySlots, int, error) {
	result := &entities.DaySlots{
		DoctorID:        timing.DoctorID,
		EstablishmentID: timing.EstablishmentID,
		Date:            date,
		Slots:           []string{},
	}

	today := s.clock.Today(now)
	if date.Before(today) {
		return result, 0, nil
	}

	labels, err := GenerateSlots(timing, date)
	if err != nil {
		return nil, 0, err
	}

	days, err := s.ComputeAvailability(ctx, timing.DoctorID, timing, date, 1, now)
	if err != nil {
		return nil, 0, err
	}
	capacity := days[0].RemainingSlots
	if capacity == 0 || len(labels) == 0 {
		return result, capacity, nil
	}

	booked, err := s.appointments.ListBookedSlotTimes(ctx, timing.DoctorID, timing.EstablishmentID, date)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", entities.ErrAvailabilityQueryFailed, err)
	}
	taken := make(map[string]int, len(booked))
	for _, b := range booked {
		if tod, err := calendar.ParseTimeOfDay(b); err == nil {
			taken[tod.String()]++
		}
	}

	nowTOD := s.clock.TimeOfDay(now)
	open := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		if date == today {
			if tod, _ := calendar.ParseTimeOfDay(label); tod < nowTOD {
				continue
			}
		}
		if taken[label] > 0 {
			taken[label]--
			continue
		}
		if !seen[label] {
			seen[label] = true
			open = append(open, label)
		}
	}

	if s.holds != nil && len(open) > 0 {
		held, err := s.holds.HeldSlots(ctx, timing.DoctorID, timing.EstablishmentID, date, open)
		if err != nil {
			return nil, 0, err
		}
		filtered := open[:0]
		for _, label := range open {
			if held[label] {
				capacity--
				continue
			}
			filtered = append(filtered, label)
		}
		open = filtered
	}

	sort.Strings(open)
	result.RemainingSlots = max(capacity, 0)
	if len(open) > result.RemainingSlots {
		open = open[:result.RemainingSlots]
	}
	result.Slots = open
	return result, capacity, nil
}
