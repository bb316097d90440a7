package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roamplan/go-trip-planner/app/observability/metrics"
	"github.com/roamplan/go-trip-planner/internal/api/discovery"
	"github.com/roamplan/go-trip-planner/internal/api/intent"
	"github.com/roamplan/go-trip-planner/internal/api/routing"
	"github.com/roamplan/go-trip-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service runs the end-to-end planning pipeline: intent extraction, spot
// discovery, routing, day packing, narrative composition and enrichment.
type Service interface {
	GeneratePlan(ctx context.Context, req GenerateRequest) (*PlanResponse, error)
	EnhancePlan(ctx context.Context, req EnhanceRequest) (*PlanResponse, error)
	GetPlanRun(ctx context.Context, runID uuid.UUID) (*types.ItineraryArtifact, error)
}

type GenerateRequest struct {
	Query string `json:"query"`
}

// EnhanceRequest reruns the pipeline with an additional instruction folded
// into the original query. CardIndex is an opaque client tag round-tripped
// onto every returned plan.
type EnhanceRequest struct {
	Query        string `json:"query"`
	EnhanceQuery string `json:"user_enhance"`
	CardIndex    *int   `json:"card_index,omitempty"`
}

type PlanResponse struct {
	RunID                  uuid.UUID             `json:"run_id"`
	Destination            string                `json:"destination"`
	Plans                  []*types.EnrichedPlan `json:"plans"`
	BudgetUsed             int                   `json:"budget_used"`
	NeedsDateClarification bool                  `json:"needs_date_clarification,omitempty"`
	StageTimings           map[string]float64    `json:"stage_timings_sec"`
}

type ServiceImpl struct {
	logger           *slog.Logger
	intentService    intent.Service
	discoveryService discovery.Service
	distanceService  routing.DistanceService
	composer         *Composer
	enricher         *Enricher
	repo             Repository
}

func NewServiceImpl(
	intentService intent.Service,
	discoveryService discovery.Service,
	distanceService routing.DistanceService,
	composer *Composer,
	enricher *Enricher,
	repo Repository,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		intentService:    intentService,
		discoveryService: discoveryService,
		distanceService:  distanceService,
		composer:         composer,
		enricher:         enricher,
		repo:             repo,
	}
}

func (s *ServiceImpl) GeneratePlan(ctx context.Context, req GenerateRequest) (*PlanResponse, error) {
	return s.runPipeline(ctx, req.Query, nil)
}

// EnhancePlan folds the refinement instruction into the original query and
// reruns the full pipeline, tagging every resulting plan with the caller's
// card index.
func (s *ServiceImpl) EnhancePlan(ctx context.Context, req EnhanceRequest) (*PlanResponse, error) {
	combined := fmt.Sprintf("%s %s", req.EnhanceQuery, req.Query)
	return s.runPipeline(ctx, combined, req.CardIndex)
}

func (s *ServiceImpl) GetPlanRun(ctx context.Context, runID uuid.UUID) (*types.ItineraryArtifact, error) {
	return s.repo.GetArtifactByRunID(ctx, runID)
}

func (s *ServiceImpl) runPipeline(ctx context.Context, userQuery string, cardIndex *int) (*PlanResponse, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "RunPipeline", trace.WithAttributes(
		attribute.Int("query.length", len(userQuery)),
	))
	defer span.End()

	m := metrics.Get()
	m.PlanRequestsTotal.Add(ctx, 1)
	timings := make(map[string]float64)

	stage := func(name string, start time.Time) {
		elapsed := time.Since(start).Seconds()
		timings[name] = elapsed
		m.StageDurationSeconds.Record(ctx, elapsed, metric.WithAttributes(attribute.String("stage", name)))
	}

	fail := func(stageName string, err error) (*PlanResponse, error) {
		m.PlanFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, stageName+" failed")
		s.logger.ErrorContext(ctx, "Planning pipeline aborted",
			slog.String("stage", stageName), slog.Any("error", err))
		return nil, err
	}

	start := time.Now()
	tripIntent, err := s.intentService.ExtractTripIntent(ctx, userQuery)
	stage("intent", start)
	if err != nil {
		return fail("intent", err)
	}

	start = time.Now()
	discovered, err := s.discoveryService.DiscoverSpots(ctx, tripIntent)
	stage("discovery", start)
	if err != nil {
		return fail("discovery", err)
	}
	m.SpotsDiscoveredTotal.Add(ctx, int64(len(discovered.Spots)))

	start = time.Now()
	features, err := s.distanceService.ComputeDistanceFeatures(ctx, discovered.Hotel, discovered.Spots)
	stage("routing", start)
	if err != nil {
		return fail("routing", err)
	}

	start = time.Now()
	packed := routing.PackDays(discovered.Hotel, features)
	stage("packing", start)

	start = time.Now()
	plans, err := s.composer.ComposePlans(ctx, userQuery, packed)
	stage("composition", start)
	if err != nil {
		return fail("composition", err)
	}
	if cardIndex != nil {
		for _, p := range plans {
			p.CardIndex = cardIndex
		}
	}

	start = time.Now()
	enriched := s.enricher.EnrichAll(ctx, plans)
	stage("enrichment", start)

	runID := uuid.New()
	s.persistArtifact(ctx, runID, userQuery, tripIntent.Destination, enriched)

	span.SetAttributes(
		attribute.String("run.id", runID.String()),
		attribute.Int("plans.count", len(enriched)),
	)
	span.SetStatus(codes.Ok, "Pipeline complete")

	return &PlanResponse{
		RunID:                  runID,
		Destination:            tripIntent.Destination,
		Plans:                  enriched,
		BudgetUsed:             features.BudgetUsed,
		NeedsDateClarification: tripIntent.NeedsDateClarification,
		StageTimings:           timings,
	}, nil
}

// persistArtifact stores the run for later retrieval. Storage trouble does
// not fail the run; the caller already has the plans in hand.
func (s *ServiceImpl) persistArtifact(ctx context.Context, runID uuid.UUID, userQuery, destination string, plans []*types.EnrichedPlan) {
	document, err := json.Marshal(plans)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to marshal plan artifact", slog.Any("error", err))
		return
	}
	artifact := types.ItineraryArtifact{
		ID:          uuid.New(),
		RunID:       runID,
		UserQuery:   userQuery,
		Destination: destination,
		PlanCount:   len(plans),
		Document:    document,
		CreatedAt:   time.Now(),
	}
	if err := s.repo.SaveArtifact(ctx, artifact); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist plan artifact",
			slog.String("run_id", runID.String()), slog.Any("error", err))
	}
}
