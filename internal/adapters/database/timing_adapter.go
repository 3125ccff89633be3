package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/carefinder/backend/pkg/errors"
)

var timingColumns = []interface{}{
	"id", "doctor_id", "establishment_id", "slot_duration_minutes", "schedule",
	"consultation_fee", "video_consultation_fee", "is_active", "is_verified",
	"is_deleted", "created_at", "updated_at",
}

// TimingAdapter implements the TimingRepository interface
type TimingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTimingAdapter creates a new timing adapter
func NewTimingAdapter(client *postgres.Client) repositories.TimingRepository {
	return &TimingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByDoctorAndEstablishment retrieves the live timing of a doctor at an establishment
func (a *TimingAdapter) GetByDoctorAndEstablishment(ctx context.Context, doctorID, establishmentID string) (*entities.WeeklyTiming, error) {
	query, args, err := a.db.Select(timingColumns...).
		From("weekly_timings").
		Where(goqu.Ex{
			"doctor_id":        doctorID,
			"establishment_id": establishmentID,
			"is_deleted":       false,
		}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	timing := &entities.WeeklyTiming{}
	err = a.client.DBX().GetContext(ctx, timing, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", entities.ErrTimingNotFound, doctorID, establishmentID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get timing", err)
	}
	return timing, nil
}

// GetByKeys retrieves the live timings of many (doctor, establishment) pairs in one query
func (a *TimingAdapter) GetByKeys(ctx context.Context, keys []entities.TimingKey) (map[entities.TimingKey]*entities.WeeklyTiming, error) {
	result := make(map[entities.TimingKey]*entities.WeeklyTiming, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	pairs := make([]goqu.Expression, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, goqu.Ex{"doctor_id": k.DoctorID, "establishment_id": k.EstablishmentID})
	}

	query, args, err := a.db.Select(timingColumns...).
		From("weekly_timings").
		Where(goqu.Ex{"is_deleted": false}, goqu.Or(pairs...)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var timings []*entities.WeeklyTiming
	if err := a.client.DBX().SelectContext(ctx, &timings, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to get timings", err)
	}

	for _, t := range timings {
		result[t.Key()] = t
	}
	return result, nil
}

// ListByEstablishment retrieves every live timing at an establishment
func (a *TimingAdapter) ListByEstablishment(ctx context.Context, establishmentID string) ([]*entities.WeeklyTiming, error) {
	query, args, err := a.db.Select(timingColumns...).
		From("weekly_timings").
		Where(goqu.Ex{
			"establishment_id": establishmentID,
			"is_deleted":       false,
		}).
		Order(goqu.I("doctor_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	timings := []*entities.WeeklyTiming{}
	if err := a.client.DBX().SelectContext(ctx, &timings, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list timings", err)
	}
	return timings, nil
}
