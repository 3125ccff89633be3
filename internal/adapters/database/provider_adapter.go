package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/domain/repositories"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/carefinder/backend/pkg/errors"
	"github.com/zatekoja/carefinder/backend/pkg/geo"
)

// ProviderAdapter serves the denormalized provider view straight from PostgreSQL
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

const (
	specializationIDsColumn   = "COALESCE((SELECT array_agg(ds.specialization_id ORDER BY ds.specialization_id) FROM doctor_specializations ds WHERE ds.doctor_id = d.id), '{}')"
	specializationNamesColumn = "COALESCE((SELECT array_agg(s.name ORDER BY s.name) FROM doctor_specializations ds JOIN specializations s ON s.id = ds.specialization_id WHERE ds.doctor_id = d.id), '{}')"
	serviceNamesColumn        = "COALESCE((SELECT array_agg(sv.name ORDER BY sv.name) FROM doctor_services sv WHERE sv.doctor_id = d.id), '{}')"
)

// providerRecord is one row of the provider join as scanned from the database.
type providerRecord struct {
	ProviderID           string                  `db:"provider_id"`
	ProviderName         string                  `db:"provider_name"`
	EstablishmentID      string                  `db:"establishment_id"`
	EstablishmentName    string                  `db:"establishment_name"`
	EstablishmentType    string                  `db:"establishment_type"`
	SpecializationIDs    pq.StringArray          `db:"specialization_ids"`
	SpecializationNames  pq.StringArray          `db:"specialization_names"`
	ServiceNames         pq.StringArray          `db:"service_names"`
	ConsultationFee      float64                 `db:"consultation_fee"`
	VideoConsultationFee sql.NullFloat64         `db:"video_consultation_fee"`
	SlotDurationMinutes  int                     `db:"slot_duration_minutes"`
	IsActive             bool                    `db:"is_active"`
	Schedule             entities.WeeklySchedule `db:"schedule"`
	Street               sql.NullString          `db:"street"`
	Locality             sql.NullString          `db:"locality"`
	City                 sql.NullString          `db:"city"`
	State                sql.NullString          `db:"state"`
	Country              sql.NullString          `db:"country"`
	Latitude             sql.NullFloat64         `db:"latitude"`
	Longitude            sql.NullFloat64         `db:"longitude"`
	Rating               sql.NullFloat64         `db:"rating"`
	Recommended          sql.NullInt64           `db:"recommended"`
	ExperienceYears      sql.NullInt64           `db:"experience_years"`
	IsVerified           bool                    `db:"is_verified"`
	CreatedAt            time.Time               `db:"created_at"`
}

func (r *providerRecord) toEntity() *entities.ProviderSearchRow {
	row := &entities.ProviderSearchRow{
		ProviderID:           r.ProviderID,
		ProviderName:         r.ProviderName,
		EstablishmentID:      r.EstablishmentID,
		EstablishmentName:    r.EstablishmentName,
		EstablishmentType:    r.EstablishmentType,
		SpecializationIDs:    []string(r.SpecializationIDs),
		SpecializationNames:  []string(r.SpecializationNames),
		ServiceNames:         []string(r.ServiceNames),
		ConsultationFee:      r.ConsultationFee,
		VideoConsultationFee: r.VideoConsultationFee.Float64,
		SlotDurationMinutes:  r.SlotDurationMinutes,
		IsActive:             r.IsActive,
		Schedule:             r.Schedule,
		Address: entities.Address{
			Street:   r.Street.String,
			Locality: r.Locality.String,
			City:     r.City.String,
			State:    r.State.String,
			Country:  r.Country.String,
		},
		Rating:          r.Rating.Float64,
		Recommended:     int(r.Recommended.Int64),
		ExperienceYears: int(r.ExperienceYears.Int64),
		IsVerified:      r.IsVerified,
		CreatedAt:       r.CreatedAt,
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		row.Location = &geo.Point{Lat: r.Latitude.Float64, Lon: r.Longitude.Float64}
	}
	return row
}

// providerViewQuery builds the (provider, establishment) join with the
// store-side part of query pushed down.
func (a *ProviderAdapter) providerViewQuery(query repositories.ProviderQuery) *goqu.SelectDataset {
	ds := a.db.From(goqu.T("weekly_timings").As("t")).
		InnerJoin(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("t.doctor_id")))).
		InnerJoin(goqu.T("establishments").As("e"), goqu.On(goqu.I("e.id").Eq(goqu.I("t.establishment_id")))).
		Select(
			goqu.I("d.id").As("provider_id"),
			goqu.I("d.name").As("provider_name"),
			goqu.I("e.id").As("establishment_id"),
			goqu.I("e.name").As("establishment_name"),
			goqu.I("e.type").As("establishment_type"),
			goqu.L(specializationIDsColumn).As("specialization_ids"),
			goqu.L(specializationNamesColumn).As("specialization_names"),
			goqu.L(serviceNamesColumn).As("service_names"),
			goqu.I("t.consultation_fee"),
			goqu.I("t.video_consultation_fee"),
			goqu.I("t.slot_duration_minutes"),
			goqu.I("t.is_active"),
			goqu.I("t.schedule"),
			goqu.I("e.street"),
			goqu.I("e.locality"),
			goqu.I("e.city"),
			goqu.I("e.state"),
			goqu.I("e.country"),
			goqu.I("e.latitude"),
			goqu.I("e.longitude"),
			goqu.I("d.rating"),
			goqu.I("d.recommended"),
			goqu.I("d.experience_years"),
			goqu.I("t.is_verified"),
			goqu.I("t.created_at"),
		).
		Where(
			goqu.I("t.is_deleted").IsFalse(),
			goqu.I("t.is_active").IsTrue(),
			goqu.I("d.is_deleted").IsFalse(),
			goqu.I("e.is_deleted").IsFalse(),
		)

	if query.OnlyVerified {
		ds = ds.Where(goqu.I("t.is_verified").IsTrue())
	}
	if len(query.SpecializationIDs) > 0 {
		ds = ds.Where(goqu.L(
			"EXISTS (SELECT 1 FROM doctor_specializations ds WHERE ds.doctor_id = d.id AND ds.specialization_id = ANY(?))",
			pq.Array(query.SpecializationIDs),
		))
	}
	if query.City != "" {
		ds = ds.Where(goqu.I("e.city").ILike("%" + query.City + "%"))
	}
	if query.Locality != "" {
		ds = ds.Where(goqu.I("e.locality").ILike("%" + query.Locality + "%"))
	}
	if query.EstablishmentID != "" {
		ds = ds.Where(goqu.I("e.id").Eq(query.EstablishmentID))
	}

	return ds.Order(goqu.I("t.created_at").Desc(), goqu.I("d.id").Asc(), goqu.I("e.id").Asc())
}

// QueryDenormalizedProviders returns one row per matching (provider, establishment) pairing
func (a *ProviderAdapter) QueryDenormalizedProviders(ctx context.Context, query repositories.ProviderQuery) ([]*entities.ProviderSearchRow, error) {
	sqlQuery, args, err := a.providerViewQuery(query).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build provider query", err)
	}

	var records []providerRecord
	if err := a.client.DBX().SelectContext(ctx, &records, sqlQuery, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to query providers", err)
	}

	rows := make([]*entities.ProviderSearchRow, len(records))
	for i := range records {
		rows[i] = records[i].toEntity()
	}
	return rows, nil
}
