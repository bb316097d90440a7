package types

import "errors"

// Sentinel errors shared across the planning pipeline.
var (
	// ErrNoSpotsFound is returned when zero candidate spots survive the
	// rating/coordinate filter for a destination. It short-circuits the
	// distance and optimization stages.
	ErrNoSpotsFound = errors.New("NO_SPOTS_FOUND")

	// ErrExtractionFailed is returned when the intent extractor cannot
	// produce a schema-valid TripIntent from the user text.
	ErrExtractionFailed = errors.New("trip intent extraction failed")
)

// KeywordGroups holds the named search-keyword groups produced by the
// extractor (primary, secondary, extra1, extra2, ...). They diversify the
// places search so a single theme does not dominate discovery.
type KeywordGroups map[string]string

// TripIntent is the structured trip-parameter record extracted from free
// text. Destination is always present; nil pointers mean "unknown", not zero.
type TripIntent struct {
	Origin         *string       `json:"origin"`
	Destination    string        `json:"destination"`
	DurationDays   *int          `json:"duration_days"`
	StartDate      *string       `json:"start_date"`
	Travelers      int           `json:"travelers"`
	Budget         *float64      `json:"budget"`
	PlaceCategory  *string       `json:"place_category"`
	Interests      []string      `json:"interests"`
	SearchKeywords KeywordGroups `json:"search_keywords"`
	SearchRadiusKm int           `json:"search_radius_km"`
	MaxSpots       int           `json:"max_spots"`

	// NeedsDateClarification is set when the user named a start date that
	// lies in the past. The pipeline must not auto-correct it; the caller
	// surfaces a clarification request instead.
	NeedsDateClarification bool `json:"-"`
}
