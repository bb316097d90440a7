package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roamplan/go-trip-planner/internal/types"
)

const (
	// minRating is the retention floor for discovered spots.
	minRating = 3.5

	// perQueryLimit caps how many raw results a single query contributes.
	perQueryLimit = 10

	// maxQueryGroups bounds the number of keyword groups turned into queries.
	maxQueryGroups = 10

	// spotBuffer is added to the requested maximum before the early exit
	// kicks in, so deduplication losses do not starve the pool.
	spotBuffer = 3
)

var _ Service = (*ServiceImpl)(nil)

// Service discovers candidate spots for a trip intent.
type Service interface {
	DiscoverSpots(ctx context.Context, intent *types.TripIntent) (*Result, error)
}

// Result is the discovery output: the surviving spot pool and the hotel
// anchor picked among them.
type Result struct {
	Spots []types.CandidateSpot `json:"spots"`
	Hotel types.HotelAnchor     `json:"hotel_location"`
}

type ServiceImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	rng        *rand.Rand
}

func NewServiceImpl(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *ServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ServiceImpl{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// placesResponse exposes only the fields the pipeline depends on; everything
// else in the provider document is ignored.
type placesResponse struct {
	Results []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Geometry struct {
			Location *struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating       float64  `json:"rating"`
		Types        []string `json:"types"`
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

// DiscoverSpots issues one text-search query per keyword group, sequentially
// so it can stop early once enough unique spots survive the filter. Zero
// survivors is a structured failure (types.ErrNoSpotsFound), not a panic.
func (s *ServiceImpl) DiscoverSpots(ctx context.Context, intent *types.TripIntent) (*Result, error) {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "DiscoverSpots", trace.WithAttributes(
		attribute.String("trip.destination", intent.Destination),
		attribute.Int("trip.max_spots", intent.MaxSpots),
	))
	defer span.End()

	maxRequired := intent.MaxSpots + spotBuffer
	keywords := orderedKeywords(intent.SearchKeywords)
	if len(keywords) > maxQueryGroups {
		keywords = keywords[:maxQueryGroups]
	}

	order := make([]string, 0, maxRequired)
	byID := make(map[string]types.CandidateSpot)

	for _, kw := range keywords {
		query := fmt.Sprintf("%s top attractions in %s", kw, intent.Destination)
		results, err := s.textSearch(ctx, query, intent.Destination)
		if err != nil {
			// A single failed query narrows coverage but does not abort
			// discovery; remaining groups may still fill the pool.
			s.logger.WarnContext(ctx, "Places query failed",
				slog.String("query", query), slog.Any("error", err))
			continue
		}

		for _, spot := range results {
			if _, seen := byID[spot.ID]; !seen {
				order = append(order, spot.ID)
			}
			byID[spot.ID] = spot // last-seen wins on duplicate id
		}

		if len(order) >= maxRequired {
			break
		}
	}

	spots := make([]types.CandidateSpot, 0, len(order))
	for _, id := range order {
		spots = append(spots, byID[id])
	}
	if len(spots) > maxRequired {
		spots = spots[:maxRequired]
	}

	if len(spots) == 0 {
		span.SetStatus(codes.Error, "No spots found")
		s.logger.WarnContext(ctx, "No spots survived filtering",
			slog.String("destination", intent.Destination))
		return nil, fmt.Errorf("%w: no spots found for destination %q", types.ErrNoSpotsFound, intent.Destination)
	}

	hotel := spots[s.rng.Intn(len(spots))]

	span.SetAttributes(attribute.Int("spots.count", len(spots)))
	span.SetStatus(codes.Ok, "Spots discovered")
	return &Result{Spots: spots, Hotel: hotel}, nil
}

// textSearch runs one provider query, truncates to the per-query cap and
// applies the rating/coordinate filter.
func (s *ServiceImpl) textSearch(ctx context.Context, query, location string) ([]types.CandidateSpot, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("%s in %s", query, location))
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places bad status: %s", resp.Status)
	}

	var payload placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("places decode: %w", err)
	}

	results := payload.Results
	if len(results) > perQueryLimit {
		results = results[:perQueryLimit]
	}

	spots := make([]types.CandidateSpot, 0, len(results))
	for _, r := range results {
		if r.Rating < minRating || r.Geometry.Location == nil {
			continue
		}
		spot := types.CandidateSpot{
			ID:     r.PlaceID,
			Name:   r.Name,
			Lat:    r.Geometry.Location.Lat,
			Lng:    r.Geometry.Location.Lng,
			Rating: r.Rating,
			Types:  r.Types,
		}
		if r.OpeningHours != nil {
			spot.OpenNow = r.OpeningHours.OpenNow
		}
		spots = append(spots, spot)
	}
	return spots, nil
}

// orderedKeywords flattens the keyword groups deterministically: primary,
// secondary, then the extras in name order.
func orderedKeywords(groups types.KeywordGroups) []string {
	rank := func(key string) int {
		switch key {
		case "primary":
			return 0
		case "secondary":
			return 1
		default:
			return 2
		}
	}
	keys := make([]string, 0, len(groups))
	for k, v := range groups {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if rank(keys[i]) != rank(keys[j]) {
			return rank(keys[i]) < rank(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}
