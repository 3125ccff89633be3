package repositories

import (
	"context"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
)

// TimingRepository reads weekly timing templates.
type TimingRepository interface {
	// GetByDoctorAndEstablishment returns the non-deleted timing of a doctor at
	// an establishment, or entities.ErrTimingNotFound.
	GetByDoctorAndEstablishment(ctx context.Context, doctorID, establishmentID string) (*entities.WeeklyTiming, error)

	// GetByKeys returns the timings found for keys. Missing keys are absent from the map.
	GetByKeys(ctx context.Context, keys []entities.TimingKey) (map[entities.TimingKey]*entities.WeeklyTiming, error)

	// ListByEstablishment returns every non-deleted timing at an establishment.
	ListByEstablishment(ctx context.Context, establishmentID string) ([]*entities.WeeklyTiming, error)
}
