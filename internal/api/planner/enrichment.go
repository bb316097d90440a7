package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roamplan/go-trip-planner/app/observability/metrics"
	"github.com/roamplan/go-trip-planner/internal/api/routing"
	"github.com/roamplan/go-trip-planner/internal/api/weather"
	"github.com/roamplan/go-trip-planner/internal/types"
)

// Enricher finalizes composed plans: re-sequences each day from the hotel,
// attaches per-stop weather, and derives the trip summary.
type Enricher struct {
	logger         *slog.Logger
	weatherService weather.Service
	artifactFile   string
}

func NewEnricher(weatherService weather.Service, artifactFile string, logger *slog.Logger) *Enricher {
	return &Enricher{
		logger:         logger,
		weatherService: weatherService,
		artifactFile:   artifactFile,
	}
}

// EnrichAll enriches every plan and persists the combined artifact to disk.
// A failed artifact write is logged, not fatal: the enriched plans are the
// product, the file is a convenience copy.
func (e *Enricher) EnrichAll(ctx context.Context, plans []*types.ItineraryPlan) []*types.EnrichedPlan {
	ctx, span := otel.Tracer("Enricher").Start(ctx, "EnrichAll", trace.WithAttributes(
		attribute.Int("plans.count", len(plans)),
	))
	defer span.End()

	enriched := make([]*types.EnrichedPlan, 0, len(plans))
	for _, plan := range plans {
		enriched = append(enriched, e.enrichPlan(ctx, plan))
	}

	if e.artifactFile != "" {
		if err := writeArtifact(e.artifactFile, enriched); err != nil {
			e.logger.WarnContext(ctx, "Failed to write itinerary artifact",
				slog.String("file", e.artifactFile), slog.Any("error", err))
		}
	}

	span.SetStatus(codes.Ok, "Plans enriched")
	return enriched
}

func (e *Enricher) enrichPlan(ctx context.Context, plan *types.ItineraryPlan) *types.EnrichedPlan {
	if plan.Degraded() {
		return &types.EnrichedPlan{
			Error:     plan.Error,
			RawText:   plan.RawText,
			CardIndex: plan.CardIndex,
		}
	}

	hotel := plan.Hotel

	dayKeys := types.SortedDayKeys(plan.Itinerary)
	optimized := make(map[string][]*types.Activity, len(dayKeys))
	for _, key := range dayKeys {
		optimized[key] = routing.ReorderDay(hotel, plan.Itinerary[key])
	}

	e.attachWeather(ctx, dayKeys, optimized)

	routes := make(map[string]types.OptimizedRoute, len(dayKeys))
	for i, key := range dayKeys {
		routes[fmt.Sprintf("Day %d", i+1)] = types.OptimizedRoute{OptimizedOrder: optimized[key]}
	}

	startDate, err := time.Parse("2006-01-02", plan.Date)
	if err != nil {
		startDate = time.Now()
	}
	endDate := startDate.AddDate(0, 0, len(optimized)-1)

	destination := hotel.Name
	if destination == "" {
		destination = "Unknown"
	}
	tripName := "Trip to Destination"
	if hotel.Name != "" {
		tripName = "Trip to " + hotel.Name
	}

	return &types.EnrichedPlan{
		TripDetails: types.TripSummary{
			TripName:      tripName,
			ItineraryName: plan.ItineraryName,
			StartDate:     startDate.Format("2006-01-02"),
			EndDate:       endDate.Format("2006-01-02"),
			DurationDays:  len(optimized),
			Destination:   destination,
		},
		Hotel:           hotel,
		OptimizedRoutes: routes,
		Itinerary:       optimized,
		CardIndex:       plan.CardIndex,
	}
}

// attachWeather fans out one lookup per activity and writes results back in
// the same day-key traversal order the dispatch used. Activities without
// parseable coordinates get "unknown" without a lookup.
func (e *Enricher) attachWeather(ctx context.Context, dayKeys []string, days map[string][]*types.Activity) {
	var acts []*types.Activity
	for _, key := range dayKeys {
		acts = append(acts, days[key]...)
	}
	if len(acts) == 0 {
		return
	}

	results := make([]string, len(acts))
	g, gctx := errgroup.WithContext(ctx)
	for i, act := range acts {
		lat, lon, ok := act.LatLon()
		if !ok {
			results[i] = weather.ConditionUnknown
			continue
		}
		metrics.Get().WeatherLookupsTotal.Add(ctx, 1)
		g.Go(func() error {
			results[i] = e.weatherService.Lookup(gctx, lat, lon)
			return nil
		})
	}
	_ = g.Wait()

	for i, act := range acts {
		act.Weather = results[i]
	}
}

// writeArtifact mirrors the run output to a local JSON file, indented and
// with unescaped non-ASCII text preserved.
func writeArtifact(path string, plans []*types.EnrichedPlan) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(plans)
}
