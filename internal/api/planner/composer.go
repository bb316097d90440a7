package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	generativeAI "github.com/roamplan/go-trip-planner/internal/api/generative_ai"
	"github.com/roamplan/go-trip-planner/internal/types"
)

const (
	composerTemperature        = 0.6
	composerTopP               = 0.8
	composerMaxTokens    int32 = 24000
)

// Composer asks the model for three disjoint candidate plans built from the
// day-packed spot structure. Raw output goes through the recovery engine, so
// ComposePlans always yields at least one plan, possibly degraded.
type Composer struct {
	logger   *slog.Logger
	aiClient generativeAI.Generator
	recovery *RecoveryEngine
}

func NewComposer(aiClient generativeAI.Generator, recovery *RecoveryEngine, logger *slog.Logger) *Composer {
	return &Composer{logger: logger, aiClient: aiClient, recovery: recovery}
}

func (c *Composer) ComposePlans(ctx context.Context, userQuery string, packed types.PackedDays) ([]*types.ItineraryPlan, error) {
	ctx, span := otel.Tracer("Composer").Start(ctx, "ComposePlans")
	defer span.End()

	payload := make(map[string]interface{}, len(packed.Days)+1)
	for label, day := range packed.Days {
		payload[label] = day.Stops
	}
	payload["hotel_location"] = packed.Hotel

	packedJSON, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Payload marshal failed")
		return nil, fmt.Errorf("failed to marshal packed days: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](composerTemperature),
		TopP:             genai.Ptr[float32](composerTopP),
		MaxOutputTokens:  composerMaxTokens,
		ResponseMIMEType: "application/json",
	}

	raw, err := c.aiClient.GenerateContent(ctx, getComposerPrompt(userQuery, string(packedJSON)), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Composer model call failed")
		c.logger.ErrorContext(ctx, "Composer model call failed", slog.Any("error", err))
		return nil, fmt.Errorf("composer model call: %w", err)
	}

	plans := c.recovery.RecoverPlans(ctx, raw)
	if shared := overlappingSpotNames(plans); len(shared) > 0 {
		span.SetAttributes(attribute.StringSlice("plans.shared_spots", shared))
		c.logger.WarnContext(ctx, "Composed plans are not disjoint",
			slog.Any("shared_spots", shared))
	}
	span.SetAttributes(attribute.Int("plans.count", len(plans)))
	span.SetStatus(codes.Ok, "Plans composed")
	return plans, nil
}

// overlappingSpotNames returns the spot names that appear in more than one
// plan's activity set. The composer prompt demands disjoint plans, so a
// non-empty result marks a contract violation worth surfacing.
func overlappingSpotNames(plans []*types.ItineraryPlan) []string {
	seen := make(map[string]int)
	var shared []string
	for _, plan := range plans {
		if plan.Degraded() {
			continue
		}
		inPlan := make(map[string]bool)
		for _, acts := range plan.Itinerary {
			for _, act := range acts {
				if act.SpotName == "" || inPlan[act.SpotName] {
					continue
				}
				inPlan[act.SpotName] = true
				seen[act.SpotName]++
				if seen[act.SpotName] == 2 {
					shared = append(shared, act.SpotName)
				}
			}
		}
	}
	sort.Strings(shared)
	return shared
}
