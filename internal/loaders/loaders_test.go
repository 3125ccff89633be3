package loaders

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

type stubTimings struct {
	calls   atomic.Int32
	timings map[entities.TimingKey]*entities.WeeklyTiming
	err     error
}

func (s *stubTimings) GetByDoctorAndEstablishment(ctx context.Context, doctorID, establishmentID string) (*entities.WeeklyTiming, error) {
	return nil, errors.New("not used")
}

func (s *stubTimings) GetByKeys(ctx context.Context, keys []entities.TimingKey) (map[entities.TimingKey]*entities.WeeklyTiming, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.timings, nil
}

func (s *stubTimings) ListByEstablishment(ctx context.Context, establishmentID string) ([]*entities.WeeklyTiming, error) {
	return nil, errors.New("not used")
}

type stubAppointments struct {
	calls  atomic.Int32
	mu     sync.Mutex
	seen   []entities.BookingKey
	counts map[entities.BookingKey]int
}

func (s *stubAppointments) CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error) {
	return 0, errors.New("not used")
}

func (s *stubAppointments) CountActiveAppointmentsBatch(ctx context.Context, keys []entities.BookingKey) (map[entities.BookingKey]int, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, keys...)
	s.mu.Unlock()
	return s.counts, nil
}

func (s *stubAppointments) ListBookedSlotTimes(ctx context.Context, doctorID, establishmentID string, date calendar.Date) ([]string, error) {
	return nil, errors.New("not used")
}

func TestBookingCountLoader_BatchesConcurrentLoads(t *testing.T) {
	day := calendar.Date{Year: 2026, Month: time.March, Day: 2}
	appts := &stubAppointments{counts: map[entities.BookingKey]int{
		{DoctorID: "doc-1", Date: day}: 4,
	}}
	l := NewLoaders(&stubTimings{}, appts)

	var wg sync.WaitGroup
	results := make([]int, 14)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := l.CountActiveAppointments(context.Background(), "doc-1", day.AddDays(i))
			assert.NoError(t, err)
			results[i] = n
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, results[0])
	for _, n := range results[1:] {
		assert.Zero(t, n)
	}
	assert.LessOrEqual(t, int(appts.calls.Load()), 14)
	assert.Len(t, appts.seen, 14)
}

func TestTimingLoader_MissingKey(t *testing.T) {
	found := entities.TimingKey{DoctorID: "doc-1", EstablishmentID: "est-1"}
	timings := &stubTimings{timings: map[entities.TimingKey]*entities.WeeklyTiming{
		found: {DoctorID: "doc-1", EstablishmentID: "est-1"},
	}}
	l := NewLoaders(timings, &stubAppointments{})

	timing, err := l.LoadTiming(context.Background(), found)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", timing.DoctorID)

	_, err = l.LoadTiming(context.Background(), entities.TimingKey{DoctorID: "doc-2", EstablishmentID: "est-1"})
	assert.ErrorIs(t, err, entities.ErrTimingNotFound)
}

func TestTimingLoader_StoreError(t *testing.T) {
	storeErr := errors.New("db down")
	l := NewLoaders(&stubTimings{err: storeErr}, &stubAppointments{})

	_, err := l.LoadTiming(context.Background(), entities.TimingKey{DoctorID: "doc-1", EstablishmentID: "est-1"})
	assert.ErrorIs(t, err, storeErr)
}
