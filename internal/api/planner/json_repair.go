package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/roamplan/go-trip-planner/app/observability/metrics"
	generativeAI "github.com/roamplan/go-trip-planner/internal/api/generative_ai"
	"github.com/roamplan/go-trip-planner/internal/types"
)

const degradedError = "Invalid JSON even after fix"

// RecoveryEngine turns raw composer text into parsed plans. Local recovery
// (fence stripping, a brace-balance retry) runs before the model-assisted
// repair call so the second model invocation is paid only when needed.
type RecoveryEngine struct {
	logger   *slog.Logger
	aiClient generativeAI.Generator
}

func NewRecoveryEngine(aiClient generativeAI.Generator, logger *slog.Logger) *RecoveryEngine {
	return &RecoveryEngine{logger: logger, aiClient: aiClient}
}

// RecoverPlans never fails: when nothing parses even after repair it returns
// a single degraded plan carrying the raw text, which callers surface as a
// degraded success.
func (r *RecoveryEngine) RecoverPlans(ctx context.Context, raw string) []*types.ItineraryPlan {
	ctx, span := otel.Tracer("RecoveryEngine").Start(ctx, "RecoverPlans")
	defer span.End()

	cleaned := stripFences(raw)

	if plans, err := parsePlans(cleaned); err == nil {
		span.SetStatus(codes.Ok, "Parsed directly")
		return plans
	}

	if strings.Count(cleaned, "{") == strings.Count(cleaned, "}") {
		if plans, err := parsePlans(cleaned); err == nil {
			span.SetStatus(codes.Ok, "Parsed after balance retry")
			return plans
		}
	}

	r.logger.WarnContext(ctx, "Composer output failed local parsing, running model-assisted repair",
		slog.Int("raw_len", len(raw)))
	metrics.Get().JSONRepairCallsTotal.Add(ctx, 1)
	span.AddEvent("json repair call")

	fixed, err := r.repair(ctx, cleaned)
	if err == nil {
		if plans, perr := parsePlans(fixed); perr == nil {
			span.SetStatus(codes.Ok, "Parsed after repair")
			return plans
		}
	} else {
		r.logger.ErrorContext(ctx, "JSON repair call failed", slog.Any("error", err))
	}

	metrics.Get().DegradedArtifactsTotal.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("artifact.degraded", true))
	span.SetStatus(codes.Error, "Unrecoverable composer output")
	return []*types.ItineraryPlan{{Error: degradedError, RawText: cleaned}}
}

func (r *RecoveryEngine) repair(ctx context.Context, badJSON string) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens:  composerMaxTokens,
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	txt, err := r.aiClient.GenerateContent(ctx, getRepairPrompt(badJSON), config)
	if err != nil {
		return "", fmt.Errorf("repair model call: %w", err)
	}
	return stripFences(txt), nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") && strings.HasSuffix(text, "```") {
		return strings.TrimSpace(text[7 : len(text)-3])
	}
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		return strings.TrimSpace(text[3 : len(text)-3])
	}
	return text
}

// parsePlans accepts either an array of plans or a single plan object; a
// single object comes back as a one-element slice.
func parsePlans(text string) ([]*types.ItineraryPlan, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty composer output")
	}

	if strings.HasPrefix(text, "[") {
		var plans []*types.ItineraryPlan
		if err := json.Unmarshal([]byte(text), &plans); err != nil {
			return nil, err
		}
		if len(plans) == 0 {
			return nil, fmt.Errorf("composer output is an empty array")
		}
		return plans, nil
	}

	var plan types.ItineraryPlan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, err
	}
	return []*types.ItineraryPlan{&plan}, nil
}
