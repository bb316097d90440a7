package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the pipeline's metric instruments.
type AppMetrics struct {
	PlanRequestsTotal        metric.Int64Counter
	PlanFailuresTotal        metric.Int64Counter
	StageDurationSeconds     metric.Float64Histogram
	SpotsDiscoveredTotal     metric.Int64Counter
	WeatherLookupsTotal      metric.Int64Counter
	JSONRepairCallsTotal     metric.Int64Counter
	DegradedArtifactsTotal   metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments only once.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-trip-planner")
		var err error
		m := &AppMetrics{}

		m.PlanRequestsTotal, err = meter.Int64Counter(
			"plan_requests_total",
			metric.WithDescription("Total number of planning runs started"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_requests_total: %v", err)
		}

		m.PlanFailuresTotal, err = meter.Int64Counter(
			"plan_failures_total",
			metric.WithDescription("Total number of planning runs that aborted"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_failures_total: %v", err)
		}

		m.StageDurationSeconds, err = meter.Float64Histogram(
			"pipeline_stage_duration_seconds",
			metric.WithDescription("Duration of individual pipeline stages in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create pipeline_stage_duration_seconds: %v", err)
		}

		m.SpotsDiscoveredTotal, err = meter.Int64Counter(
			"spots_discovered_total",
			metric.WithDescription("Total number of candidate spots surviving the filter"),
			metric.WithUnit("{spot}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create spots_discovered_total: %v", err)
		}

		m.WeatherLookupsTotal, err = meter.Int64Counter(
			"weather_lookups_total",
			metric.WithDescription("Total number of weather lookups dispatched"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create weather_lookups_total: %v", err)
		}

		m.JSONRepairCallsTotal, err = meter.Int64Counter(
			"json_repair_calls_total",
			metric.WithDescription("Total number of model-assisted JSON repair calls"),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create json_repair_calls_total: %v", err)
		}

		m.DegradedArtifactsTotal, err = meter.Int64Counter(
			"degraded_artifacts_total",
			metric.WithDescription("Total number of degraded itinerary artifacts returned"),
			metric.WithUnit("{artifact}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create degraded_artifacts_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
