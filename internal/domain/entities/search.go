package entities

import (
	"github.com/zatekoja/carefinder/backend/pkg/geo"
)

// AvailabilityFilter restricts results to providers open on a given day.
type AvailabilityFilter int

const (
	AvailabilityAny AvailabilityFilter = iota
	AvailabilityToday
	AvailabilityTomorrow
)

// String returns the filter's query-string name.
func (a AvailabilityFilter) String() string {
	switch a {
	case AvailabilityToday:
		return "today"
	case AvailabilityTomorrow:
		return "tomorrow"
	default:
		return "any"
	}
}

// FeeRange is an inclusive fee bracket. A nil Max is unbounded.
type FeeRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether fee falls inside the bracket.
func (r FeeRange) Contains(fee float64) bool {
	if fee < r.Min {
		return false
	}
	return r.Max == nil || fee <= *r.Max
}

// SearchFilter is the normalized predicate of a provider or establishment search.
type SearchFilter struct {
	SpecializationIDs []string
	FeeRanges         []FeeRange
	DayParts          []DayPart
	Availability      AvailabilityFilter
	FreeText          string
	Coordinates       *geo.Point
	City              string
	Locality          string
	EstablishmentType string
}

// SortKey selects the order of a ranked listing.
type SortKey int

const (
	SortDefault SortKey = iota
	SortNewest
	SortRating
	SortFeeAsc
	SortFeeDesc
	SortExperience
	SortRecommended
	SortVideoFeeAsc
	SortVideoFeeDesc
	SortNearest
)

var sortKeyNames = map[SortKey]string{
	SortDefault:      "default",
	SortNewest:       "newest",
	SortRating:       "rating",
	SortFeeAsc:       "fee_asc",
	SortFeeDesc:      "fee_desc",
	SortExperience:   "experience",
	SortRecommended:  "recommended",
	SortVideoFeeAsc:  "video_fee_asc",
	SortVideoFeeDesc: "video_fee_desc",
	SortNearest:      "distance",
}

// String returns the sort key's query-string name.
func (k SortKey) String() string {
	if name, ok := sortKeyNames[k]; ok {
		return name
	}
	return "unknown"
}

// SortKeyByName resolves a query-string name to its key.
func SortKeyByName(name string) (SortKey, bool) {
	for k, n := range sortKeyNames {
		if n == name {
			return k, true
		}
	}
	return SortDefault, false
}

// Valid reports whether k is one of the declared sort keys.
func (k SortKey) Valid() bool {
	return k >= SortDefault && k <= SortNearest
}

// EstablishmentSummary is one establishment a ranked provider practises at.
type EstablishmentSummary struct {
	EstablishmentID      string     `json:"establishment_id"`
	Name                 string     `json:"name"`
	Type                 string     `json:"type"`
	ConsultationFee      float64    `json:"consultation_fee"`
	VideoConsultationFee float64    `json:"video_consultation_fee"`
	Address              Address    `json:"address"`
	Location             *geo.Point `json:"location,omitempty"`
	DistanceKm           *float64   `json:"distance_km,omitempty"`
}

// RankedProviderRow is one provider in a ranked listing. The embedded row is
// the representative (best-ranked) establishment pairing.
type RankedProviderRow struct {
	ProviderSearchRow
	DistanceKm     *float64               `json:"distance_km,omitempty"`
	Establishments []EstablishmentSummary `json:"establishments"`
	Availability   []AvailabilityDay      `json:"availability,omitempty"`
}

// DoctorSummary is one doctor practising at a ranked establishment.
type DoctorSummary struct {
	ProviderID           string            `json:"provider_id"`
	Name                 string            `json:"name"`
	SpecializationNames  []string          `json:"specialization_names"`
	ConsultationFee      float64           `json:"consultation_fee"`
	VideoConsultationFee float64           `json:"video_consultation_fee"`
	Rating               float64           `json:"rating"`
	ExperienceYears      int               `json:"experience_years"`
	Availability         []AvailabilityDay `json:"availability,omitempty"`
}

// RankedEstablishmentRow is one establishment in a ranked hospital listing.
type RankedEstablishmentRow struct {
	EstablishmentID string          `json:"establishment_id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Address         Address         `json:"address"`
	Location        *geo.Point      `json:"location,omitempty"`
	DistanceKm      *float64        `json:"distance_km,omitempty"`
	Doctors         []DoctorSummary `json:"doctors"`
}
