package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carefinder/backend/pkg/config"
)

type seedEstablishment struct {
	id, name, kind, locality, city string
	lat, lon                       float64
}

type seedDoctor struct {
	id, name        string
	rating          float64
	recommended     int
	experienceYears int
	specialization  string
	services        []string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("carefinder-seed", cfg.Env)

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	schema, err := os.ReadFile("migrations/001_initial_schema.sql")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read schema")
	}
	if _, err := pgClient.DB().ExecContext(ctx, string(schema)); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE appointments, weekly_timings, doctor_services, doctor_specializations, specializations, establishments, doctors CASCADE`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	db := goqu.New("postgres", pgClient.DB())
	now := time.Now()

	specializations := map[string]string{
		uuid.NewString(): "Dentist",
		uuid.NewString(): "Cardiologist",
		uuid.NewString(): "Dermatologist",
	}
	specByName := map[string]string{}
	var specRows []interface{}
	for id, name := range specializations {
		specByName[name] = id
		specRows = append(specRows, goqu.Record{"id": id, "name": name})
	}
	mustExec(ctx, db.Insert("specializations").Rows(specRows...), "specializations")

	establishments := []seedEstablishment{
		{uuid.NewString(), "Smile Dental Clinic", "clinic", "Indiranagar", "Bengaluru", 12.9784, 77.6408},
		{uuid.NewString(), "Apollo Heart Centre", "hospital", "Jayanagar", "Bengaluru", 12.9250, 77.5938},
		{uuid.NewString(), "Skin & Care", "clinic", "Koregaon Park", "Pune", 18.5362, 73.8940},
	}
	for _, e := range establishments {
		mustExec(ctx, db.Insert("establishments").Rows(goqu.Record{
			"id": e.id, "name": e.name, "type": e.kind, "locality": e.locality, "city": e.city,
			"state": "", "country": "India", "latitude": e.lat, "longitude": e.lon,
		}), "establishment "+e.name)
	}

	doctors := []seedDoctor{
		{uuid.NewString(), "Dr. Asha Rao", 4.7, 120, 12, "Dentist", []string{"Root Canal", "Teeth Whitening"}},
		{uuid.NewString(), "Dr. Vikram Shah", 4.4, 80, 20, "Cardiologist", []string{"ECG", "Angioplasty"}},
		{uuid.NewString(), "Dr. Meera Iyer", 4.9, 200, 8, "Dermatologist", []string{"Acne Treatment"}},
	}
	for _, d := range doctors {
		mustExec(ctx, db.Insert("doctors").Rows(goqu.Record{
			"id": d.id, "name": d.name, "rating": d.rating,
			"recommended": d.recommended, "experience_years": d.experienceYears,
		}), "doctor "+d.name)
		mustExec(ctx, db.Insert("doctor_specializations").Rows(goqu.Record{
			"doctor_id": d.id, "specialization_id": specByName[d.specialization],
		}), "doctor specialization")
		for _, service := range d.services {
			mustExec(ctx, db.Insert("doctor_services").Rows(goqu.Record{"doctor_id": d.id, "name": service}), "doctor service")
		}
	}

	weekdays := entities.WeeklySchedule{
		time.Monday:    {{From: "09:00", To: "13:00"}, {From: "17:00", To: "20:00"}},
		time.Tuesday:   {{From: "09:00", To: "13:00"}},
		time.Wednesday: {{From: "09:00", To: "13:00"}, {From: "17:00", To: "20:00"}},
		time.Thursday:  {{From: "09:00", To: "13:00"}},
		time.Friday:    {{From: "09:00", To: "13:00"}, {From: "17:00", To: "20:00"}},
		time.Saturday:  {{From: "10:00", To: "14:00"}},
	}
	schedule, err := json.Marshal(weekdays)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode schedule")
	}

	for i, d := range doctors {
		for j, e := range establishments {
			if (i+j)%2 == 1 {
				continue
			}
			mustExec(ctx, db.Insert("weekly_timings").Rows(goqu.Record{
				"id":                     uuid.NewString(),
				"doctor_id":              d.id,
				"establishment_id":       e.id,
				"slot_duration_minutes":  15,
				"schedule":               string(schedule),
				"consultation_fee":       float64(300 + 200*i),
				"video_consultation_fee": float64(250 + 150*i),
				"is_active":              true,
				"is_verified":            true,
				"created_at":             now.Add(-time.Duration(i+j) * time.Hour),
			}), "weekly timing")
		}
	}

	today := now.Format("2006-01-02")
	for _, slot := range []string{"09:00", "09:15", "09:30"} {
		mustExec(ctx, db.Insert("appointments").Rows(goqu.Record{
			"id":               uuid.NewString(),
			"doctor_id":        doctors[0].id,
			"establishment_id": establishments[0].id,
			"appointment_date": today,
			"slot_time":        slot,
			"status":           string(entities.AppointmentStatusConfirmed),
		}), "appointment")
	}

	log.Info().
		Int("doctors", len(doctors)).
		Int("establishments", len(establishments)).
		Msg("seeding complete")
}

func mustExec(ctx context.Context, ds *goqu.InsertDataset, what string) {
	if _, err := ds.Executor().ExecContext(ctx); err != nil {
		log.Fatal().Err(err).Str("row", what).Msg("failed to seed")
	}
}
