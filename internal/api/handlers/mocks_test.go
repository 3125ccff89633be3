package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/carefinder/backend/internal/application/services"
	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
	"github.com/zatekoja/carefinder/backend/pkg/pagination"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchDoctors(ctx context.Context, req services.SearchRequest, now time.Time) (pagination.Page[entities.RankedProviderRow], error) {
	args := m.Called(ctx, req, now)
	return args.Get(0).(pagination.Page[entities.RankedProviderRow]), args.Error(1)
}

func (m *MockSearchService) SearchEstablishments(ctx context.Context, req services.SearchRequest, now time.Time) (pagination.Page[entities.RankedEstablishmentRow], error) {
	args := m.Called(ctx, req, now)
	return args.Get(0).(pagination.Page[entities.RankedEstablishmentRow]), args.Error(1)
}

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) Clock() calendar.Clock {
	return calendar.DefaultClock()
}

func (m *MockAvailabilityService) WindowDays() int {
	return 14
}

func (m *MockAvailabilityService) ComputeForDoctor(ctx context.Context, doctorID, establishmentID string, windowStart calendar.Date, windowDays int, now time.Time) (*entities.DoctorAvailability, error) {
	args := m.Called(ctx, doctorID, establishmentID, windowStart, windowDays, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DoctorAvailability), args.Error(1)
}

func (m *MockAvailabilityService) DaySlots(ctx context.Context, doctorID, establishmentID string, date calendar.Date, now time.Time) (*entities.DaySlots, error) {
	args := m.Called(ctx, doctorID, establishmentID, date, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DaySlots), args.Error(1)
}

func (m *MockAvailabilityService) FindAvailableDoctors(ctx context.Context, establishmentID string, date calendar.Date, now time.Time) ([]entities.AvailableDoctor, error) {
	args := m.Called(ctx, establishmentID, date, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.AvailableDoctor), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) ReserveSlot(ctx context.Context, doctorID, establishmentID string, date calendar.Date, slot string, now time.Time) (*entities.SlotHold, error) {
	args := m.Called(ctx, doctorID, establishmentID, date, slot, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SlotHold), args.Error(1)
}

func (m *MockReservationService) ReleaseSlot(ctx context.Context, hold *entities.SlotHold) error {
	args := m.Called(ctx, hold)
	return args.Error(0)
}
