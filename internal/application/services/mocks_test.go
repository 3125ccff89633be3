package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

type MockTimingRepository struct {
	mock.Mock
}

func (m *MockTimingRepository) GetByDoctorAndEstablishment(ctx context.Context, doctorID, establishmentID string) (*entities.WeeklyTiming, error) {
	args := m.Called(ctx, doctorID, establishmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WeeklyTiming), args.Error(1)
}

func (m *MockTimingRepository) GetByKeys(ctx context.Context, keys []entities.TimingKey) (map[entities.TimingKey]*entities.WeeklyTiming, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entities.TimingKey]*entities.WeeklyTiming), args.Error(1)
}

func (m *MockTimingRepository) ListByEstablishment(ctx context.Context, establishmentID string) ([]*entities.WeeklyTiming, error) {
	args := m.Called(ctx, establishmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WeeklyTiming), args.Error(1)
}

// fakeAppointments answers booking counts from a map. It is safe for the
// concurrent fan-out the calculator performs.
type fakeAppointments struct {
	counts map[entities.BookingKey]int
	booked map[entities.BookingKey][]string
	fail   map[entities.BookingKey]error
	delay  time.Duration
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{
		counts: map[entities.BookingKey]int{},
		booked: map[entities.BookingKey][]string{},
		fail:   map[entities.BookingKey]error{},
	}
}

func (f *fakeAppointments) CountActiveAppointments(ctx context.Context, doctorID string, date calendar.Date) (int, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	key := entities.BookingKey{DoctorID: doctorID, Date: date}
	if err := f.fail[key]; err != nil {
		return 0, err
	}
	return f.counts[key], nil
}

func (f *fakeAppointments) CountActiveAppointmentsBatch(ctx context.Context, keys []entities.BookingKey) (map[entities.BookingKey]int, error) {
	out := make(map[entities.BookingKey]int, len(keys))
	for _, key := range keys {
		n, err := f.CountActiveAppointments(ctx, key.DoctorID, key.Date)
		if err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, nil
}

func (f *fakeAppointments) ListBookedSlotTimes(ctx context.Context, doctorID, establishmentID string, date calendar.Date) ([]string, error) {
	key := entities.BookingKey{DoctorID: doctorID, Date: date}
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	return f.booked[key], nil
}

type MockSlotHoldRepository struct {
	mock.Mock
}

func (m *MockSlotHoldRepository) Hold(ctx context.Context, hold *entities.SlotHold, ttl time.Duration) error {
	args := m.Called(ctx, hold, ttl)
	return args.Error(0)
}

func (m *MockSlotHoldRepository) Release(ctx context.Context, hold *entities.SlotHold) error {
	args := m.Called(ctx, hold)
	return args.Error(0)
}

func (m *MockSlotHoldRepository) HeldSlots(ctx context.Context, doctorID, establishmentID string, date calendar.Date, labels []string) (map[string]bool, error) {
	args := m.Called(ctx, doctorID, establishmentID, date, labels)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) QueryDenormalizedProviders(ctx context.Context, query repositories.ProviderQuery) ([]*entities.ProviderSearchRow, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderSearchRow), args.Error(1)
}
