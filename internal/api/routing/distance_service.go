package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roamplan/go-trip-planner/internal/types"
)

const (
	// perKmCost converts kilometres into the trip's currency estimate.
	perKmCost = 15

	// maxSpotDistanceKm drops spots too far from the hotel anchor to be
	// worth a day trip.
	maxSpotDistanceKm = 150.0

	// avgSpeedKmph backs the local spot-to-spot travel time approximation.
	avgSpeedKmph = 35.0
)

var _ DistanceService = (*DistanceServiceImpl)(nil)

// DistanceService turns the discovered spot pool into routing features:
// hotel-to-spot distances from the provider, a local pairwise matrix, and
// the travel budget consumed so far.
type DistanceService interface {
	ComputeDistanceFeatures(ctx context.Context, hotel types.HotelAnchor, spots []types.CandidateSpot) (*DistanceFeatures, error)
}

// DistanceFeatures is the routing stage output consumed by the day packer.
type DistanceFeatures struct {
	Spots      []types.SpotDistance `json:"spots_distance_features"`
	Matrix     types.SpotMatrix     `json:"distance_matrix"`
	BudgetUsed int                  `json:"budget_used_so_far"`
}

type DistanceServiceImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewDistanceServiceImpl(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *DistanceServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &DistanceServiceImpl{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// matrixResponse mirrors the slice of the provider document the pipeline
// reads. Distances arrive in metres, durations in seconds.
type matrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// ComputeDistanceFeatures issues one batched matrix call from the hotel to
// every spot, filters out unreachable and too-distant spots, then builds the
// local pairwise matrix for the survivors without further API calls.
func (s *DistanceServiceImpl) ComputeDistanceFeatures(ctx context.Context, hotel types.HotelAnchor, spots []types.CandidateSpot) (*DistanceFeatures, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "ComputeDistanceFeatures", trace.WithAttributes(
		attribute.Int("spots.count", len(spots)),
	))
	defer span.End()

	resp, err := s.hotelToSpots(ctx, hotel, spots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Distance matrix call failed")
		s.logger.ErrorContext(ctx, "Distance matrix call failed", slog.Any("error", err))
		return nil, err
	}
	if len(resp.Rows) == 0 {
		err := fmt.Errorf("distance matrix response has no rows")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty distance matrix")
		return nil, err
	}

	features := make([]types.SpotDistance, 0, len(spots))
	budgetUsed := 0
	for i, el := range resp.Rows[0].Elements {
		if i >= len(spots) {
			break
		}
		if el.Status != "OK" {
			continue
		}
		distKm := round2(el.Distance.Value / 1000)
		timeMin := round1(el.Duration.Value / 60)
		if distKm > maxSpotDistanceKm {
			continue
		}

		cost := int(distKm * perKmCost)
		budgetUsed += cost
		spot := spots[i]
		features = append(features, types.SpotDistance{
			Name:                spot.Name,
			DistanceFromHotelKm: distKm,
			TravelTimeMin:       timeMin,
			TravelCost:          cost,
			Lat:                 spot.Lat,
			Lng:                 spot.Lng,
		})
	}

	matrix := BuildSpotMatrix(features)

	span.SetAttributes(
		attribute.Int("spots.reachable", len(features)),
		attribute.Int("budget.used", budgetUsed),
	)
	span.SetStatus(codes.Ok, "Distance features computed")
	return &DistanceFeatures{
		Spots:      features,
		Matrix:     matrix,
		BudgetUsed: budgetUsed,
	}, nil
}

func (s *DistanceServiceImpl) hotelToSpots(ctx context.Context, hotel types.HotelAnchor, spots []types.CandidateSpot) (*matrixResponse, error) {
	dests := make([]string, len(spots))
	for i, sp := range spots {
		dests[i] = fmt.Sprintf("%f,%f", sp.Lat, sp.Lng)
	}

	params := url.Values{}
	params.Set("origins", fmt.Sprintf("%f,%f", hotel.Lat, hotel.Lng))
	params.Set("destinations", strings.Join(dests, "|"))
	params.Set("units", "metric")
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build distance matrix request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("distance matrix bad status: %s", resp.Status)
	}

	var payload matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("distance matrix decode: %w", err)
	}
	return &payload, nil
}

// BuildSpotMatrix computes the directed pairwise matrix for the surviving
// spots from great-circle distance at the assumed average speed. No external
// call is made here.
func BuildSpotMatrix(spots []types.SpotDistance) types.SpotMatrix {
	matrix := make(types.SpotMatrix, len(spots))
	for i, from := range spots {
		row := make(map[string]types.DistanceEdge, len(spots)-1)
		for j, to := range spots {
			if i == j {
				continue
			}
			distKm := HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
			row[to.Name] = types.DistanceEdge{
				DistanceKm: round1(distKm),
				TimeMin:    round1(distKm / avgSpeedKmph * 60),
			}
		}
		matrix[from.Name] = row
	}
	return matrix
}
