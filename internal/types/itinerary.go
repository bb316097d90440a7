package types

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Activity is one narrated stop inside a day. The composer is generative
// output, so coordinates may arrive as numbers, numeric strings, or be
// missing entirely; they are kept loose here and resolved via LatLon.
// The model has historically emitted both "long" and "lng" keys.
type Activity struct {
	SpotName           string      `json:"spot_name"`
	Lat                interface{} `json:"lat"`
	Long               interface{} `json:"long,omitempty"`
	Lng                interface{} `json:"lng,omitempty"`
	Description        string      `json:"description"`
	EstimatedTimeSpent string      `json:"estimated_time_spent"`
	Weather            string      `json:"weather,omitempty"`
}

// LatLon resolves the activity coordinates, accepting float64, json.Number
// and numeric strings. ok is false when either coordinate is unusable.
func (a *Activity) LatLon() (lat, lon float64, ok bool) {
	lat, ok = toFloat(a.Lat)
	if !ok {
		return 0, 0, false
	}
	lonRaw := a.Long
	if lonRaw == nil {
		lonRaw = a.Lng
	}
	lon, ok = toFloat(lonRaw)
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ItineraryPlan is one candidate plan as emitted by the composer.
type ItineraryPlan struct {
	Date          string                 `json:"date"`
	DurationDays  int                    `json:"duration_days"`
	ItineraryName string                 `json:"itinerary_name"`
	Hotel         HotelAnchor            `json:"hotel"`
	Itinerary     map[string][]*Activity `json:"itinerary"`

	// CardIndex is an opaque caller tag round-tripped on the enhance flow.
	CardIndex *int `json:"card_index,omitempty"`

	// Error and RawText mark a degraded artifact: the composer output could
	// not be parsed even after repair and the raw text is carried instead.
	Error   string `json:"error,omitempty"`
	RawText string `json:"raw_text,omitempty"`
}

// Degraded reports whether this plan is a degraded artifact rather than a
// usable itinerary.
func (p *ItineraryPlan) Degraded() bool { return p.Error != "" }

// TripSummary is the derived per-plan header attached during enrichment.
type TripSummary struct {
	TripName      string `json:"trip_name"`
	ItineraryName string `json:"itinerary_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DurationDays  int    `json:"duration_days"`
	Destination   string `json:"destination"`
}

// OptimizedRoute wraps a day's re-sequenced activity list. Polyline is
// reserved for path geometry and always nil in this design.
type OptimizedRoute struct {
	OptimizedOrder []*Activity `json:"optimized_order"`
	Polyline       *string     `json:"polyline"`
}

// EnrichedPlan is the final per-plan artifact: re-sequenced days with
// weather attached, route wrappers and the trip summary.
type EnrichedPlan struct {
	TripDetails     TripSummary               `json:"trip_details"`
	Hotel           HotelAnchor               `json:"hotel"`
	OptimizedRoutes map[string]OptimizedRoute `json:"optimized_routes"`
	Itinerary       map[string][]*Activity    `json:"itinerary"`
	CardIndex       *int                      `json:"card_index,omitempty"`

	Error   string `json:"error,omitempty"`
	RawText string `json:"raw_text,omitempty"`
}

// SortedDayKeys returns day labels in calendar order. Labels follow the
// "Day N" convention; anything else sorts lexically after the numbered days.
// Both enrichment traversals must use the same ordering or the positional
// weather attribution breaks.
func SortedDayKeys[V any](days map[string]V) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := dayNumber(keys[i])
		nj, jok := dayNumber(keys[j])
		switch {
		case iok && jok:
			return ni < nj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func dayNumber(label string) (int, bool) {
	rest, found := strings.CutPrefix(label, "Day ")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}
