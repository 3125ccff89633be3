// Package loaders batches the store reads a single listing request fans out to.
// Loaders cache per instance, so a new set is created for every request.
package loaders

import (
	"context"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

const defaultWait = 2 * time.Millisecond

// Loaders contains the request-scoped dataloaders
type Loaders struct {
	TimingLoader       *dataloader.Loader[entities.TimingKey, *entities.WeeklyTiming]
	BookingCountLoader *dataloader.Loader[entities.BookingKey, int]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(timingRepo repositories.TimingRepository, appointmentRepo repositories.AppointmentRepository) *Loaders {
	return &Loaders{
		TimingLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []entities.TimingKey) []*dataloader.Result[*entities.WeeklyTiming] {
				results := make([]*dataloader.Result[*entities.WeeklyTiming], len(keys))
				timings, err := timingRepo.GetByKeys(ctx, keys)

				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[*entities.WeeklyTiming]{Error: err}
					} else if t, ok := timings[key]; ok {
						results[i] = &dataloader.Result[*entities.WeeklyTiming]{Data: t}
					} else {
						results[i] = &dataloader.Result[*entities.WeeklyTiming]{
							Error: fmt.Errorf("%w: %s", entities.ErrTimingNotFound, key),
						}
					}
				}
				return results
			},
			dataloader.WithWait[entities.TimingKey, *entities.WeeklyTiming](defaultWait),
		),
		BookingCountLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []entities.BookingKey) []*dataloader.Result[int] {
				results := make([]*dataloader.Result[int], len(keys))
				counts, err := appointmentRepo.CountActiveAppointmentsBatch(ctx, keys)

				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[int]{Error: err}
					} else {
						results[i] = &dataloader.Result[int]{Data: counts[key]}
					}
				}
				return results
			},
			dataloader.WithWait[entities.BookingKey, int](defaultWait),
		),
	}
}

// LoadTiming returns the weekly timing for key.
func (l *Loaders) LoadTiming(ctx context.Context, key entities.TimingKey) (*entities.WeeklyTiming, error) {
	return l.TimingLoader.Load(ctx, key)()
}

// CountActiveAppointments batches booking counts across every caller of the
// same request.
func (l *Loaders) CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error) {
	return l.BookingCountLoader.Load(ctx, entities.BookingKey{DoctorID: doctorID, Date: date})()
}
