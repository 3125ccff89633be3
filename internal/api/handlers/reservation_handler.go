package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// ReservationService defines the slot hold operations the handler needs
type ReservationService interface {
	ReserveSlot(ctx context.Context, doctorID, establishmentID string, date calendar.Date, slot string, now time.Time) (*entities.SlotHold, error)
	ReleaseSlot(ctx context.Context, hold *entities.SlotHold) error
}

// ReservationHandler handles slot hold requests
type ReservationHandler struct {
	service ReservationService
	now     func() time.Time
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(service ReservationService) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		now:     time.Now,
	}
}

type reservationRequest struct {
	EstablishmentID string        `json:"establishment_id"`
	Date            calendar.Date `json:"date"`
	Slot            string        `json:"slot"`
}

// ReserveSlot handles POST /api/doctors/{id}/reservations
func (h *ReservationHandler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	doctorID := r.PathValue("id")

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if doctorID == "" || req.EstablishmentID == "" || req.Date.IsZero() || req.Slot == "" {
		respondWithError(w, http.StatusBadRequest, "establishment_id, date and slot are required")
		return
	}

	hold, err := h.service.ReserveSlot(r.Context(), doctorID, req.EstablishmentID, req.Date, req.Slot, h.now())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, hold)
}

// ReleaseSlot handles DELETE /api/doctors/{id}/reservations/{token}
func (h *ReservationHandler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hold := &entities.SlotHold{
		Token:           r.PathValue("token"),
		DoctorID:        r.PathValue("id"),
		EstablishmentID: q.Get("establishment_id"),
		Slot:            q.Get("slot"),
	}
	date, err := calendar.ParseDate(q.Get("date"))
	if err != nil || hold.Token == "" || hold.EstablishmentID == "" || hold.Slot == "" {
		respondWithError(w, http.StatusBadRequest, "establishment_id, date and slot are required")
		return
	}
	hold.Date = date

	if err := h.service.ReleaseSlot(r.Context(), hold); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
