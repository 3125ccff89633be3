package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/application/services"
	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/pagination"
)

// SearchService defines the listing operations the handler needs
type SearchService interface {
	SearchDoctors(ctx context.Context, req services.SearchRequest, now time.Time) (pagination.Page[entities.RankedProviderRow], error)
	SearchEstablishments(ctx context.Context, req services.SearchRequest, now time.Time) (pagination.Page[entities.RankedEstablishmentRow], error)
}

// SearchHandler handles doctor and hospital listing requests
type SearchHandler struct {
	service         SearchService
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service SearchService, defaultPageSize, maxPageSize int) *SearchHandler {
	return &SearchHandler{
		service:         service,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		now:             time.Now,
	}
}

// parseSearchRequest reads the listing query string. Multi-valued filters
// may be repeated or comma separated.
func (h *SearchHandler) parseSearchRequest(r *http.Request) (services.SearchRequest, error) {
	q := r.URL.Query()

	filter, sortKey, err := services.ParseSearchFilter(services.RawSearchFilter{
		Specializations: q["specialization"],
		FeeRanges:       q["fee"],
		TimeOfDay:       q["time_of_day"],
		Availability:    q.Get("availability"),
		SortBy:          q.Get("sort_by"),
		FreeText:        q.Get("q"),
		Coordinates:     q.Get("coordinates"),
		City:            q.Get("city"),
		Locality:        q.Get("locality"),
		Type:            q.Get("type"),
	})
	if err != nil {
		return services.SearchRequest{}, err
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	offset, limit := pagination.Window(page, pageSize, h.defaultPageSize, h.maxPageSize)

	isExport, _ := strconv.ParseBool(q.Get("is_export"))
	includeAvailability, _ := strconv.ParseBool(q.Get("include_availability"))

	return services.SearchRequest{
		Filter:              filter,
		Sort:                sortKey,
		Offset:              offset,
		Limit:               limit,
		IsExport:            isExport,
		IncludeAvailability: includeAvailability,
	}, nil
}

// SearchDoctors handles GET /api/doctors/search
func (h *SearchHandler) SearchDoctors(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseSearchRequest(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	page, err := h.service.SearchDoctors(r.Context(), req, h.now())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

// SearchHospitals handles GET /api/hospitals/search
func (h *SearchHandler) SearchHospitals(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseSearchRequest(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	page, err := h.service.SearchEstablishments(r.Context(), req, h.now())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}
