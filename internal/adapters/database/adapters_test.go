package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

var testDate = calendar.Date{Year: 2026, Month: time.March, Day: 2}

func setupMockDB(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

func timingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "doctor_id", "establishment_id", "slot_duration_minutes", "schedule",
		"consultation_fee", "video_consultation_fee", "is_active", "is_verified",
		"is_deleted", "created_at", "updated_at",
	})
}

const mondaySchedule = `{"monday":[{"from":"09:00","to":"12:00","day_part":"morning"}]}`

func TestTimingAdapter_GetByDoctorAndEstablishment(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewTimingAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "weekly_timings" WHERE .*"doctor_id" = 'doc-1'.*"establishment_id" = 'est-1'`).
		WillReturnRows(timingRows().AddRow("t1", "doc-1", "est-1", 15, []byte(mondaySchedule), 500.0, 300.0, true, true, false, now, now))

	timing, err := adapter.GetByDoctorAndEstablishment(context.Background(), "doc-1", "est-1")

	require.NoError(t, err)
	assert.Equal(t, 15, timing.SlotDurationMinutes)
	assert.Equal(t, "12:00", timing.Schedule.Ranges(time.Monday)[0].To)
	assert.Equal(t, entities.DayPartMorning, timing.Schedule.Ranges(time.Monday)[0].DayPart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimingAdapter_GetByDoctorAndEstablishment_NotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewTimingAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "weekly_timings"`).WillReturnRows(timingRows())

	_, err := adapter.GetByDoctorAndEstablishment(context.Background(), "doc-1", "est-1")

	assert.ErrorIs(t, err, entities.ErrTimingNotFound)
}

func TestTimingAdapter_GetByKeys(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewTimingAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "weekly_timings" WHERE .* OR .*`).
		WillReturnRows(timingRows().
			AddRow("t1", "doc-1", "est-1", 15, []byte(mondaySchedule), 500.0, 0.0, true, true, false, now, now).
			AddRow("t2", "doc-2", "est-1", 20, []byte(`{}`), 700.0, 0.0, true, true, false, now, now))

	keys := []entities.TimingKey{
		{DoctorID: "doc-1", EstablishmentID: "est-1"},
		{DoctorID: "doc-2", EstablishmentID: "est-1"},
		{DoctorID: "doc-3", EstablishmentID: "est-1"},
	}
	timings, err := adapter.GetByKeys(context.Background(), keys)

	require.NoError(t, err)
	assert.Len(t, timings, 2)
	assert.Equal(t, "t2", timings[keys[1]].ID)
	assert.NotContains(t, timings, keys[2])
}

func TestTimingAdapter_GetByKeys_Empty(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewTimingAdapter(client)

	timings, err := adapter.GetByKeys(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, timings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_CountActiveAppointments(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "appointments" WHERE .*"appointment_date" = '2026-03-02'.*"status" NOT IN \('cancelled', 'rescheduled'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := adapter.CountActiveAppointments(context.Background(), "doc-1", testDate)

	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentAdapter_CountActiveAppointments_Error(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.CountActiveAppointments(context.Background(), "doc-1", testDate)

	assert.Error(t, err)
}

func TestAppointmentAdapter_CountActiveAppointmentsBatch(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)
	next := testDate.AddDays(1)

	mock.ExpectQuery(`SELECT "doctor_id", "appointment_date", COUNT\(\*\) AS "booked" FROM "appointments" .*GROUP BY "doctor_id", "appointment_date"`).
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id", "appointment_date", "booked"}).
			AddRow("doc-1", testDate.In(time.UTC), 2).
			AddRow("doc-2", next.In(time.UTC), 5).
			// Not requested: doc-1 on the next day.
			AddRow("doc-1", next.In(time.UTC), 9))

	keys := []entities.BookingKey{
		{DoctorID: "doc-1", Date: testDate},
		{DoctorID: "doc-2", Date: next},
		{DoctorID: "doc-2", Date: testDate},
	}
	counts, err := adapter.CountActiveAppointmentsBatch(context.Background(), keys)

	require.NoError(t, err)
	assert.Equal(t, map[entities.BookingKey]int{
		keys[0]: 2,
		keys[1]: 5,
		keys[2]: 0,
	}, counts)
}

func TestAppointmentAdapter_ListBookedSlotTimes(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAppointmentAdapter(client)

	mock.ExpectQuery(`SELECT "slot_time" FROM "appointments" WHERE .*"establishment_id" = 'est-1'.*ORDER BY "slot_time" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"slot_time"}).AddRow("09:00").AddRow("09:15"))

	slots, err := adapter.ListBookedSlotTimes(context.Background(), "doc-1", "est-1", testDate)

	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:15"}, slots)
}

func providerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"provider_id", "provider_name", "establishment_id", "establishment_name", "establishment_type",
		"specialization_ids", "specialization_names", "service_names",
		"consultation_fee", "video_consultation_fee", "slot_duration_minutes", "is_active", "schedule",
		"street", "locality", "city", "state", "country", "latitude", "longitude",
		"rating", "recommended", "experience_years", "is_verified", "created_at",
	})
}

func TestProviderAdapter_QueryDenormalizedProviders(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewProviderAdapter(client)
	created := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "weekly_timings" AS "t" INNER JOIN "doctors" AS "d" .* INNER JOIN "establishments" AS "e" .*` +
		`EXISTS \(SELECT 1 FROM doctor_specializations ds WHERE .*ANY\('\{"spec-1"\}'\)\).*` +
		`"e"."city" ILIKE '%Pune%'.*ORDER BY "t"."created_at" DESC`).
		WillReturnRows(providerRows().
			AddRow("doc-1", "Dr. Asha Rao", "est-1", "City Clinic", "clinic",
				"{spec-1,spec-2}", `{Cardiologist,"General Physician"}`, "{ECG}",
				800.0, nil, 15, true, []byte(mondaySchedule),
				"12 MG Road", "Shivajinagar", "Pune", "MH", "IN", 18.53, 73.85,
				4.6, 2, 11, true, created).
			AddRow("doc-2", "Dr. Vikram", "est-2", "Care Hospital", "hospital",
				"{spec-1}", "{Cardiologist}", "{}",
				600.0, 400.0, 20, true, []byte(`{}`),
				nil, nil, "Pune", nil, nil, nil, nil,
				nil, nil, nil, true, created))

	rows, err := adapter.QueryDenormalizedProviders(context.Background(), repositories.ProviderQuery{
		SpecializationIDs: []string{"spec-1"},
		City:              "Pune",
		OnlyVerified:      true,
	})

	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, []string{"spec-1", "spec-2"}, first.SpecializationIDs)
	assert.Equal(t, []string{"Cardiologist", "General Physician"}, first.SpecializationNames)
	assert.Equal(t, "Shivajinagar", first.Address.Locality)
	require.NotNil(t, first.Location)
	assert.InDelta(t, 18.53, first.Location.Lat, 1e-9)
	assert.Equal(t, 2, first.Recommended)
	assert.Len(t, first.Schedule.Ranges(time.Monday), 1)

	second := rows[1]
	assert.Nil(t, second.Location)
	assert.Empty(t, second.ServiceNames)
	assert.Equal(t, 400.0, second.VideoConsultationFee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderAdapter_QueryDenormalizedProviders_Error(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewProviderAdapter(client)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("timeout"))

	_, err := adapter.QueryDenormalizedProviders(context.Background(), repositories.ProviderQuery{})

	assert.Error(t, err)
}
