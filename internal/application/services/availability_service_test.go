package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

var clinicClock = calendar.DefaultClock()

// at returns the instant of hh:mm on date in the clinic's civil time.
func at(date calendar.Date, hh, mm int) time.Time {
	return time.Date(date.Year, date.Month, date.Day, hh, mm, 0, 0, clinicClock.Location())
}

func newTestAvailabilityService(appts *fakeAppointments, timings *MockTimingRepository, holds repositories.SlotHoldRepository) *AvailabilityService {
	if timings == nil {
		timings = new(MockTimingRepository)
	}
	svc := NewAvailabilityService(timings, appts, nil, clinicClock, AvailabilityOptions{}, nil)
	if holds != nil {
		svc.holds = holds
	}
	return svc
}

func TestComputeAvailability_ExactSlotArithmetic(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "09:47"})

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 8, 30))

	require.NoError(t, err)
	assert.Equal(t, 3, days[0].TotalSlots)
	assert.Equal(t, 0, days[0].PassedSlots)
	assert.Equal(t, 3, days[0].RemainingSlots)
}

func TestComputeAvailability_PartialDayExhaustion(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "09:47"})

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 9, 20))

	require.NoError(t, err)
	assert.Equal(t, 2, days[0].PassedSlots)
	assert.Equal(t, 1, days[0].RemainingSlots)

	// The following Monday is not today, so nothing has passed.
	assert.Equal(t, 3, days[7].RemainingSlots)
}

func TestComputeAvailability_TodayFollowsCivilOffset(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "09:47"})

	// 03:50 UTC is 09:20 at +05:30.
	now := time.Date(2026, time.March, 2, 3, 50, 0, 0, time.UTC)
	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 1, now)

	require.NoError(t, err)
	assert.Equal(t, 1, days[0].RemainingSlots)
}

func TestComputeAvailability_BookedExceedsNominal(t *testing.T) {
	appts := newFakeAppointments()
	appts.counts[entities.BookingKey{DoctorID: "doc-1", Date: monday}] = 5
	svc := newTestAvailabilityService(appts, nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "09:47"})

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 7, 0))

	require.NoError(t, err)
	assert.Equal(t, 5, days[0].BookedCount)
	assert.Equal(t, 0, days[0].RemainingSlots)
}

func TestComputeAvailability_InactiveTimingHasNoCapacity(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := &entities.WeeklyTiming{
		DoctorID:            "doc-1",
		SlotDurationMinutes: 10,
		IsActive:            false,
		Schedule: entities.WeeklySchedule{
			time.Monday: {{From: "08:00", To: "20:00"}}, time.Tuesday: {{From: "08:00", To: "20:00"}},
			time.Wednesday: {{From: "08:00", To: "20:00"}}, time.Thursday: {{From: "08:00", To: "20:00"}},
			time.Friday: {{From: "08:00", To: "20:00"}}, time.Saturday: {{From: "08:00", To: "20:00"}},
			time.Sunday: {{From: "08:00", To: "20:00"}},
		},
	}

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 0, 0))

	require.NoError(t, err)
	for _, day := range days {
		assert.Zero(t, day.RemainingSlots, day.Date.String())
	}
}

func TestComputeAvailability_WindowShape(t *testing.T) {
	appts := newFakeAppointments()
	appts.delay = time.Millisecond
	svc := newTestAvailabilityService(appts, nil, nil)
	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "12:00"})
	start := calendar.Date{Year: 2026, Month: time.February, Day: 24}

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, start, 14, at(start, 10, 0))

	require.NoError(t, err)
	require.Len(t, days, 14)
	assert.Equal(t, start, days[0].Date)
	for i := 1; i < len(days); i++ {
		assert.True(t, days[i-1].Date.Before(days[i].Date))
		assert.Equal(t, start.AddDays(i), days[i].Date)
	}
	for _, day := range days {
		assert.GreaterOrEqual(t, day.RemainingSlots, 0)
	}
}

func TestComputeAvailability_DefaultWindow(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "12:00"})

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 0, at(monday, 8, 0))

	require.NoError(t, err)
	assert.Len(t, days, DefaultWindowDays)
}

func TestComputeAvailability_BookingStoreFailure(t *testing.T) {
	appts := newFakeAppointments()
	storeErr := errors.New("connection refused")
	appts.fail[entities.BookingKey{DoctorID: "doc-1", Date: monday.AddDays(3)}] = storeErr
	svc := newTestAvailabilityService(appts, nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "10:00"})

	days, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 8, 0))

	assert.Nil(t, days)
	assert.ErrorIs(t, err, entities.ErrAvailabilityQueryFailed)
	assert.ErrorIs(t, err, storeErr)
}

func TestComputeAvailability_Cancelled(t *testing.T) {
	appts := newFakeAppointments()
	appts.delay = time.Second
	svc := newTestAvailabilityService(appts, nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "10:00"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	started := time.Now()
	days, err := svc.ComputeAvailability(ctx, "doc-1", timing, monday, 14, at(monday, 8, 0))

	assert.Nil(t, days)
	assert.ErrorIs(t, err, entities.ErrAvailabilityQueryFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestComputeAvailability_MalformedTemplate(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAppointments(), nil, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "late"})

	_, err := svc.ComputeAvailability(context.Background(), "doc-1", timing, monday, 14, at(monday, 8, 0))

	assert.ErrorIs(t, err, entities.ErrMalformedTimeRange)
}

func TestComputeBatch_ExcludesFailures(t *testing.T) {
	timings := new(MockTimingRepository)
	svc := newTestAvailabilityService(newFakeAppointments(), timings, nil)

	good := mondayTiming(15, entities.TimeRange{From: "09:00", To: "10:00"})
	bad := mondayTiming(15, entities.TimeRange{From: "09:00", To: "ten"})
	bad.DoctorID = "doc-2"

	keys := []entities.TimingKey{good.Key(), bad.Key(), {DoctorID: "doc-3", EstablishmentID: "est-1"}}
	timings.On("GetByKeys", mock.Anything, keys).Return(map[entities.TimingKey]*entities.WeeklyTiming{
		good.Key(): good,
		bad.Key():  bad,
	}, nil)

	results, err := svc.ComputeBatch(context.Background(), keys, monday, 7, at(monday, 8, 0))

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DoctorID)
	assert.Len(t, results[0].Days, 7)
	assert.Equal(t, 4, results[0].Days[0].RemainingSlots)
	timings.AssertExpectations(t)
}

func TestComputeBatch_BookingStoreDownExcludesEveryone(t *testing.T) {
	timings := new(MockTimingRepository)
	appts := newFakeAppointments()
	appts.fail[entities.BookingKey{DoctorID: "doc-1", Date: monday}] = errors.New("timeout")
	svc := newTestAvailabilityService(appts, timings, nil)

	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "10:00"})
	keys := []entities.TimingKey{timing.Key()}
	timings.On("GetByKeys", mock.Anything, keys).
		Return(map[entities.TimingKey]*entities.WeeklyTiming{timing.Key(): timing}, nil)

	results, err := svc.ComputeBatch(context.Background(), keys, monday, 3, at(monday, 8, 0))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestComputeBatch_Cancelled(t *testing.T) {
	timings := new(MockTimingRepository)
	svc := newTestAvailabilityService(newFakeAppointments(), timings, nil)
	timing := mondayTiming(15, entities.TimeRange{From: "09:00", To: "10:00"})
	keys := []entities.TimingKey{timing.Key()}
	timings.On("GetByKeys", mock.Anything, keys).
		Return(map[entities.TimingKey]*entities.WeeklyTiming{timing.Key(): timing}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ComputeBatch(ctx, keys, monday, 3, at(monday, 8, 0))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindAvailableDoctors(t *testing.T) {
	timings := new(MockTimingRepository)
	appts := newFakeAppointments()
	svc := newTestAvailabilityService(appts, timings, nil)

	open := mondayTiming(30, entities.TimeRange{From: "09:00", To: "11:00"})
	full := mondayTiming(30, entities.TimeRange{From: "09:00", To: "10:00"})
	full.DoctorID = "doc-full"
	appts.counts[entities.BookingKey{DoctorID: "doc-full", Date: monday}] = 2
	closed := mondayTiming(30)
	closed.DoctorID = "doc-closed"

	timings.On("ListByEstablishment", mock.Anything, "est-1").
		Return([]*entities.WeeklyTiming{full, open, closed}, nil)

	doctors, err := svc.FindAvailableDoctors(context.Background(), "est-1", monday, at(monday, 8, 0))

	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "doc-1", doctors[0].DoctorID)
	assert.Equal(t, 4, doctors[0].RemainingSlots)
}

func TestDaySlots(t *testing.T) {
	timings := new(MockTimingRepository)
	holds := new(MockSlotHoldRepository)
	appts := newFakeAppointments()
	svc := newTestAvailabilityService(appts, timings, holds)

	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "12:00"})
	timings.On("GetByDoctorAndEstablishment", mock.Anything, "doc-1", "est-1").Return(timing, nil)

	key := entities.BookingKey{DoctorID: "doc-1", Date: monday}
	appts.counts[key] = 1
	appts.booked[key] = []string{"11:00"}

	holds.On("HeldSlots", mock.Anything, "doc-1", "est-1", monday, []string{"10:00", "10:30", "11:30"}).
		Return(map[string]bool{"10:30": true}, nil)

	slots, err := svc.DaySlots(context.Background(), "doc-1", "est-1", monday, at(monday, 9, 40))

	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "11:30"}, slots.Slots)
	assert.Equal(t, 2, slots.RemainingSlots)
	holds.AssertExpectations(t)
}

func TestDaySlots_BookingsElsewhereCapOpenLabels(t *testing.T) {
	timings := new(MockTimingRepository)
	holds := new(MockSlotHoldRepository)
	appts := newFakeAppointments()
	svc := newTestAvailabilityService(appts, timings, holds)

	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "11:00"})
	timings.On("GetByDoctorAndEstablishment", mock.Anything, "doc-1", "est-1").Return(timing, nil)

	// Three bookings at another establishment occupy no label here.
	appts.counts[entities.BookingKey{DoctorID: "doc-1", Date: monday}] = 3
	holds.On("HeldSlots", mock.Anything, "doc-1", "est-1", monday, mock.Anything).Return(map[string]bool{}, nil)

	slots, err := svc.DaySlots(context.Background(), "doc-1", "est-1", monday, at(monday, 8, 0))

	require.NoError(t, err)
	assert.Equal(t, 1, slots.RemainingSlots)
	assert.Equal(t, []string{"09:00"}, slots.Slots)
}

func TestDaySlots_HoldsExhaustCapacity(t *testing.T) {
	timings := new(MockTimingRepository)
	holds := new(MockSlotHoldRepository)
	appts := newFakeAppointments()
	svc := newTestAvailabilityService(appts, timings, holds)

	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "11:00"})
	timings.On("GetByDoctorAndEstablishment", mock.Anything, "doc-1", "est-1").Return(timing, nil)

	appts.counts[entities.BookingKey{DoctorID: "doc-1", Date: monday}] = 3
	holds.On("HeldSlots", mock.Anything, "doc-1", "est-1", monday, mock.Anything).
		Return(map[string]bool{"10:00": true}, nil)

	slots, err := svc.DaySlots(context.Background(), "doc-1", "est-1", monday, at(monday, 8, 0))

	require.NoError(t, err)
	assert.Zero(t, slots.RemainingSlots)
	assert.Empty(t, slots.Slots)
}

func TestDaySlots_PastDateIsEmpty(t *testing.T) {
	timings := new(MockTimingRepository)
	svc := newTestAvailabilityService(newFakeAppointments(), timings, nil)
	timing := mondayTiming(30, entities.TimeRange{From: "09:00", To: "12:00"})
	timings.On("GetByDoctorAndEstablishment", mock.Anything, "doc-1", "est-1").Return(timing, nil)

	slots, err := svc.DaySlots(context.Background(), "doc-1", "est-1", monday, at(monday.AddDays(1), 8, 0))

	require.NoError(t, err)
	assert.Empty(t, slots.Slots)
	assert.Zero(t, slots.RemainingSlots)
}
