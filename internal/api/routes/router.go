package routes

import (
	"net/http"

	"github.com/zatekoja/carefinder/backend/internal/api/handlers"
	"github.com/zatekoja/carefinder/backend/internal/api/middleware"
	"github.com/zatekoja/carefinder/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler       *handlers.SearchHandler
	availabilityHandler *handlers.AvailabilityHandler
	reservationHandler  *handlers.ReservationHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. reservationHandler may be nil when no slot
// hold store is configured.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	reservationHandler *handlers.ReservationHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		searchHandler:       searchHandler,
		availabilityHandler: availabilityHandler,
		reservationHandler:  reservationHandler,
		allowedOrigins:      allowedOrigins,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Listings
	r.mux.HandleFunc("GET /api/doctors/search", r.searchHandler.SearchDoctors)
	r.mux.HandleFunc("GET /api/hospitals/search", r.searchHandler.SearchHospitals)

	// Availability
	r.mux.HandleFunc("GET /api/doctors/{id}/availability", r.availabilityHandler.GetDoctorAvailability)
	r.mux.HandleFunc("GET /api/doctors/{id}/slots", r.availabilityHandler.GetDaySlots)
	r.mux.HandleFunc("GET /api/establishments/{id}/available-doctors", r.availabilityHandler.GetAvailableDoctors)

	// Slot holds
	if r.reservationHandler != nil {
		r.mux.HandleFunc("POST /api/doctors/{id}/reservations", r.reservationHandler.ReserveSlot)
		r.mux.HandleFunc("DELETE /api/doctors/{id}/reservations/{token}", r.reservationHandler.ReleaseSlot)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = middleware.CaptureRoute(r.mux)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so preflight requests short-circuit early
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
