package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/carefinder/backend/internal/domain/entities"
	"github.com/zatekoja/carefinder/backend/pkg/geo"
)

// RawSearchFilter carries the filter fields of a listing request as received.
type RawSearchFilter struct {
	Specializations []string
	FeeRanges       []string
	TimeOfDay       []string
	Availability    string
	SortBy          string
	FreeText        string
	Coordinates     string
	City            string
	Locality        string
	Type            string
}

// ParseSearchFilter normalizes raw request fields into a predicate and sort key.
// Malformed coordinates only disable geo mode. Every other malformed value
// yields entities.ErrInvalidFilter.
func ParseSearchFilter(raw RawSearchFilter) (entities.SearchFilter, entities.SortKey, error) {
	filter := entities.SearchFilter{
		SpecializationIDs: compact(raw.Specializations),
		FreeText:          strings.TrimSpace(raw.FreeText),
		City:              strings.TrimSpace(raw.City),
		Locality:          strings.TrimSpace(raw.Locality),
		EstablishmentType: strings.TrimSpace(raw.Type),
	}

	for _, s := range compact(raw.FeeRanges) {
		r, err := ParseFeeRange(s)
		if err != nil {
			return entities.SearchFilter{}, entities.SortDefault, err
		}
		filter.FeeRanges = append(filter.FeeRanges, r)
	}

	for _, s := range compact(raw.TimeOfDay) {
		part, err := entities.ParseDayPart(s)
		if err != nil {
			return entities.SearchFilter{}, entities.SortDefault, fmt.Errorf("%w: %v", entities.ErrInvalidFilter, err)
		}
		filter.DayParts = append(filter.DayParts, part)
	}

	availability, err := ParseAvailabilityFilter(raw.Availability)
	if err != nil {
		return entities.SearchFilter{}, entities.SortDefault, err
	}
	filter.Availability = availability

	sortKey, err := ParseSortKey(raw.SortBy)
	if err != nil {
		return entities.SearchFilter{}, entities.SortDefault, err
	}

	if c := strings.TrimSpace(raw.Coordinates); c != "" {
		point, err := geo.ParseLonLat(c)
		if err != nil {
			log.Debug().Err(err).Str("coordinates", c).Msg("geo disabled: malformed coordinates")
		} else {
			filter.Coordinates = &point
		}
	}

	return filter, sortKey, nil
}

// ParseFeeRange parses "Free", "500+" and "100 - 300" style brackets.
func ParseFeeRange(s string) (entities.FeeRange, error) {
	value := strings.TrimSpace(s)
	if strings.EqualFold(value, "free") {
		zero := 0.0
		return entities.FeeRange{Min: 0, Max: &zero}, nil
	}

	if strings.HasSuffix(value, "+") {
		min, err := parseFee(strings.TrimSuffix(value, "+"))
		if err != nil {
			return entities.FeeRange{}, fmt.Errorf("%w: fee range %q", entities.ErrInvalidFilter, s)
		}
		return entities.FeeRange{Min: min}, nil
	}

	parts := strings.Split(value, "-")
	if len(parts) != 2 {
		return entities.FeeRange{}, fmt.Errorf("%w: fee range %q", entities.ErrInvalidFilter, s)
	}
	min, err := parseFee(parts[0])
	if err != nil {
		return entities.FeeRange{}, fmt.Errorf("%w: fee range %q", entities.ErrInvalidFilter, s)
	}
	max, err := parseFee(parts[1])
	if err != nil || max < min {
		return entities.FeeRange{}, fmt.Errorf("%w: fee range %q", entities.ErrInvalidFilter, s)
	}
	return entities.FeeRange{Min: min, Max: &max}, nil
}

func parseFee(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative fee %v", v)
	}
	return v, nil
}

// ParseAvailabilityFilter accepts "", "0"/"any", "1"/"today" and "2"/"tomorrow".
func ParseAvailabilityFilter(s string) (entities.AvailabilityFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "any":
		return entities.AvailabilityAny, nil
	case "1", "today":
		return entities.AvailabilityToday, nil
	case "2", "tomorrow":
		return entities.AvailabilityTomorrow, nil
	default:
		return entities.AvailabilityAny, fmt.Errorf("%w: availability %q", entities.ErrInvalidFilter, s)
	}
}

// ParseSortKey accepts the numeric codes 0-9 or their names.
func ParseSortKey(s string) (entities.SortKey, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return entities.SortDefault, nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		key := entities.SortKey(n)
		if !key.Valid() {
			return entities.SortDefault, fmt.Errorf("%w: sort %q", entities.ErrInvalidFilter, s)
		}
		return key, nil
	}
	if key, ok := entities.SortKeyByName(value); ok {
		return key, nil
	}
	return entities.SortDefault, fmt.Errorf("%w: sort %q", entities.ErrInvalidFilter, s)
}

// freeTextPattern compiles a case-insensitive matcher in which each run of
// whitespace in the query matches any gap, including none.
func freeTextPattern(query string) *regexp.Regexp {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return nil
	}
	for i, t := range tokens {
		tokens[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile("(?i)" + strings.Join(tokens, ".*"))
}

// compact splits comma separated values, trims them and drops empties.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
