package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// AvailabilityService defines the availability operations the handler needs
type AvailabilityService interface {
	Clock() calendar.Clock
	WindowDays() int
	ComputeForDoctor(ctx context.Context, doctorID, establishmentID string, windowStart calendar.Date, windowDays int, now time.Time) (*entities.DoctorAvailability, error)
	DaySlots(ctx context.Context, doctorID, establishmentID string, date calendar.Date, now time.Time) (*entities.DaySlots, error)
	FindAvailableDoctors(ctx context.Context, establishmentID string, date calendar.Date, now time.Time) ([]entities.AvailableDoctor, error)
}

// AvailabilityHandler handles availability requests
type AvailabilityHandler struct {
	service AvailabilityService
	now     func() time.Time
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		now:     time.Now,
	}
}

// dateParam reads an ISO date query parameter, defaulting to today.
func dateParam(r *http.Request, name string, today calendar.Date) (calendar.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return today, true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		return calendar.Date{}, false
	}
	return d, true
}

// GetDoctorAvailability handles GET /api/doctors/{id}/availability
func (h *AvailabilityHandler) GetDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	establishmentID := r.URL.Query().Get("establishment_id")
	if doctorID == "" || establishmentID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID and establishment_id are required")
		return
	}

	now := h.now()
	today := h.service.Clock().Today(now)

	start, ok := dateParam(r, "start", today)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid start date format (use YYYY-MM-DD)")
		return
	}
	if start.Before(today) {
		respondWithError(w, http.StatusBadRequest, "start must not be before today")
		return
	}

	days := h.service.WindowDays()
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > h.service.WindowDays() {
			respondWithError(w, http.StatusBadRequest, "days must be between 1 and "+strconv.Itoa(h.service.WindowDays()))
			return
		}
		days = n
	}

	availability, err := h.service.ComputeForDoctor(r.Context(), doctorID, establishmentID, start, days, now)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, availability)
}

// GetDaySlots handles GET /api/doctors/{id}/slots
func (h *AvailabilityHandler) GetDaySlots(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")
	establishmentID := r.URL.Query().Get("establishment_id")
	if doctorID == "" || establishmentID == "" {
		respondWithError(w, http.StatusBadRequest, "doctor ID and establishment_id are required")
		return
	}

	now := h.now()
	date, ok := dateParam(r, "date", h.service.Clock().Today(now))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}

	slots, err := h.service.DaySlots(r.Context(), doctorID, establishmentID, date, now)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, slots)
}

// GetAvailableDoctors handles GET /api/establishments/{id}/available-doctors
func (h *AvailabilityHandler) GetAvailableDoctors(w http.ResponseWriter, r *http.Request) {
	establishmentID := r.PathValue("id")
	if establishmentID == "" {
		respondWithError(w, http.StatusBadRequest, "establishment ID is required")
		return
	}

	now := h.now()
	date, ok := dateParam(r, "date", h.service.Clock().Today(now))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}

	doctors, err := h.service.FindAvailableDoctors(r.Context(), establishmentID, date, now)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"establishment_id": establishmentID,
		"date":             date,
		"doctors":          doctors,
	})
}
