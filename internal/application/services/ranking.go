package services

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/calendar"
)

// rankedRow is a candidate (provider, establishment) row with the values
// computed for it during a request.
type rankedRow struct {
	row          *entities.ProviderSearchRow
	distance     *float64
	availability []entities.AvailabilityDay
	failed       bool
}

// rowMatcher evaluates the in-memory part of a search predicate.
type rowMatcher struct {
	filter      entities.SearchFilter
	specialties map[string]bool
	text        *regexp.Regexp
	city        string
	locality    string
	today       time.Weekday
	tomorrow    time.Weekday
	now         calendar.TimeOfDay
}

func newRowMatcher(filter entities.SearchFilter, clock calendar.Clock, now time.Time) *rowMatcher {
	today := clock.Today(now)
	m := &rowMatcher{
		filter:   filter,
		text:     freeTextPattern(filter.FreeText),
		city:     strings.ToLower(filter.City),
		locality: strings.ToLower(filter.Locality),
		today:    today.Weekday(),
		tomorrow: today.AddDays(1).Weekday(),
		now:      clock.TimeOfDay(now),
	}
	if len(filter.SpecializationIDs) > 0 {
		m.specialties = make(map[string]bool, len(filter.SpecializationIDs))
		for _, id := range filter.SpecializationIDs {
			m.specialties[id] = true
		}
	}
	return m
}

func (m *rowMatcher) matches(row *entities.ProviderSearchRow) bool {
	if m.specialties != nil && !m.matchesSpecialty(row) {
		return false
	}
	if len(m.filter.FeeRanges) > 0 && !m.matchesFee(row.ConsultationFee) {
		return false
	}
	if len(m.filter.DayParts) > 0 && !row.Schedule.HasDayPart(m.filter.DayParts) {
		return false
	}
	if !m.matchesAvailability(row) {
		return false
	}
	if m.text != nil && !m.matchesText(row) {
		return false
	}
	if m.city != "" && !strings.Contains(strings.ToLower(row.Address.City), m.city) {
		return false
	}
	if m.locality != "" && !strings.Contains(strings.ToLower(row.Address.Locality), m.locality) {
		return false
	}
	if m.filter.EstablishmentType != "" && !strings.EqualFold(row.EstablishmentType, m.filter.EstablishmentType) {
		return false
	}
	return true
}

func (m *rowMatcher) matchesSpecialty(row *entities.ProviderSearchRow) bool {
	for _, id := range row.SpecializationIDs {
		if m.specialties[id] {
			return true
		}
	}
	return false
}

func (m *rowMatcher) matchesFee(fee float64) bool {
	for _, r := range m.filter.FeeRanges {
		if r.Contains(fee) {
			return true
		}
	}
	return false
}

// matchesAvailability checks the schedule only: today needs a range closing
// after now, tomorrow needs any range.
func (m *rowMatcher) matchesAvailability(row *entities.ProviderSearchRow) bool {
	switch m.filter.Availability {
	case entities.AvailabilityToday:
		for _, r := range row.Schedule.Ranges(m.today) {
			if to, err := calendar.ParseTimeOfDay(r.To); err == nil && to > m.now {
				return true
			}
		}
		return false
	case entities.AvailabilityTomorrow:
		return len(row.Schedule.Ranges(m.tomorrow)) > 0
	default:
		return true
	}
}

func (m *rowMatcher) matchesText(row *entities.ProviderSearchRow) bool {
	if m.text.MatchString(row.ProviderName) || m.text.MatchString(row.EstablishmentName) {
		return true
	}
	for _, name := range row.SpecializationNames {
		if m.text.MatchString(name) {
			return true
		}
	}
	for _, name := range row.ServiceNames {
		if m.text.MatchString(name) {
			return true
		}
	}
	return false
}

// effectiveSortKey resolves the default key: nearest first with coordinates,
// newest first otherwise. Distance ordering without coordinates falls back to newest.
func effectiveSortKey(key entities.SortKey, geoMode bool) entities.SortKey {
	switch {
	case key == entities.SortDefault && geoMode:
		return entities.SortNearest
	case key == entities.SortDefault, key == entities.SortNearest && !geoMode:
		return entities.SortNewest
	default:
		return key
	}
}

// compareByKey orders a before b (-1), after (1) or leaves them tied (0).
func compareByKey(key entities.SortKey, a, b *rankedRow) int {
	ra, rb := a.row, b.row
	switch key {
	case entities.SortNewest:
		return -compareTime(ra.CreatedAt, rb.CreatedAt)
	case entities.SortRating:
		return -compareFloat(ra.Rating, rb.Rating)
	case entities.SortFeeAsc:
		return compareFloat(ra.ConsultationFee, rb.ConsultationFee)
	case entities.SortFeeDesc:
		return -compareFloat(ra.ConsultationFee, rb.ConsultationFee)
	case entities.SortExperience:
		return -compareInt(ra.ExperienceYears, rb.ExperienceYears)
	case entities.SortRecommended:
		return compareInt(ra.Recommended, rb.Recommended)
	case entities.SortVideoFeeAsc:
		return compareFloat(ra.VideoConsultationFee, rb.VideoConsultationFee)
	case entities.SortVideoFeeDesc:
		return -compareFloat(ra.VideoConsultationFee, rb.VideoConsultationFee)
	case entities.SortNearest:
		return compareDistance(a.distance, b.distance)
	default:
		return 0
	}
}

// sortRows orders rows by key, then by distance in geo mode, then newest
// first, then by ids so equal rows always come out in the same order.
func sortRows(rows []*rankedRow, key entities.SortKey, geoMode bool) {
	key = effectiveSortKey(key, geoMode)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := compareByKey(key, a, b); c != 0 {
			return c < 0
		}
		if geoMode && key != entities.SortNearest {
			if c := compareDistance(a.distance, b.distance); c != 0 {
				return c < 0
			}
		}
		if key != entities.SortNewest {
			if c := compareTime(a.row.CreatedAt, b.row.CreatedAt); c != 0 {
				return c > 0
			}
		}
		if a.row.ProviderID != b.row.ProviderID {
			return a.row.ProviderID < b.row.ProviderID
		}
		return a.row.EstablishmentID < b.row.EstablishmentID
	})
}

// groupByProvider keeps the first (best-ranked) row of each provider and nests
// the provider's other establishments under it in rank order.
func groupByProvider(rows []*rankedRow) []entities.RankedProviderRow {
	out := []entities.RankedProviderRow{}
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		summary := establishmentSummary(r)
		if i, ok := index[r.row.ProviderID]; ok {
			if !hasEstablishment(out[i].Establishments, r.row.EstablishmentID) {
				out[i].Establishments = append(out[i].Establishments, summary)
			}
			continue
		}
		index[r.row.ProviderID] = len(out)
		out = append(out, entities.RankedProviderRow{
			ProviderSearchRow: *r.row,
			DistanceKm:        r.distance,
			Establishments:    []entities.EstablishmentSummary{summary},
			Availability:      r.availability,
		})
	}
	return out
}

// groupByEstablishment keeps each establishment at the rank of its best row and
// lists its doctors in rank order.
func groupByEstablishment(rows []*rankedRow) []entities.RankedEstablishmentRow {
	out := []entities.RankedEstablishmentRow{}
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		doctor := entities.DoctorSummary{
			ProviderID:           r.row.ProviderID,
			Name:                 r.row.ProviderName,
			SpecializationNames:  r.row.SpecializationNames,
			ConsultationFee:      r.row.ConsultationFee,
			VideoConsultationFee: r.row.VideoConsultationFee,
			Rating:               r.row.Rating,
			ExperienceYears:      r.row.ExperienceYears,
			Availability:         r.availability,
		}
		if i, ok := index[r.row.EstablishmentID]; ok {
			if !hasDoctor(out[i].Doctors, r.row.ProviderID) {
				out[i].Doctors = append(out[i].Doctors, doctor)
			}
			continue
		}
		index[r.row.EstablishmentID] = len(out)
		out = append(out, entities.RankedEstablishmentRow{
			EstablishmentID: r.row.EstablishmentID,
			Name:            r.row.EstablishmentName,
			Type:            r.row.EstablishmentType,
			Address:         r.row.Address,
			Location:        r.row.Location,
			DistanceKm:      r.distance,
			Doctors:         []entities.DoctorSummary{doctor},
		})
	}
	return out
}

func establishmentSummary(r *rankedRow) entities.EstablishmentSummary {
	return entities.EstablishmentSummary{
		EstablishmentID:      r.row.EstablishmentID,
		Name:                 r.row.EstablishmentName,
		Type:                 r.row.EstablishmentType,
		ConsultationFee:      r.row.ConsultationFee,
		VideoConsultationFee: r.row.VideoConsultationFee,
		Address:              r.row.Address,
		Location:             r.row.Location,
		DistanceKm:           r.distance,
	}
}

func hasEstablishment(list []entities.EstablishmentSummary, id string) bool {
	for _, e := range list {
		if e.EstablishmentID == id {
			return true
		}
	}
	return false
}

func hasDoctor(list []entities.DoctorSummary, id string) bool {
	for _, d := range list {
		if d.ProviderID == id {
			return true
		}
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}

// compareDistance sorts known distances ascending and unknown ones last.
func compareDistance(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return compareFloat(*a, *b)
	}
}
