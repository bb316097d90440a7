package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	generativeAI "github.com/roamplan/go-trip-planner/internal/api/generative_ai"
	"github.com/roamplan/go-trip-planner/internal/types"
)

const (
	defaultTemperature  = 0.2
	defaultDurationDays = 3
	defaultRadiusKm     = 75

	// maxSpotCap is requested from the model regardless of caller hints so a
	// verbose request cannot inflate downstream API cost.
	maxSpotCap = 21

	maxKeywordGroups = 10
)

var _ Service = (*ServiceImpl)(nil)

// Service converts free text into a structured TripIntent.
type Service interface {
	ExtractTripIntent(ctx context.Context, userText string) (*types.TripIntent, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	aiClient generativeAI.Generator
	now      func() time.Time
}

func NewServiceImpl(aiClient generativeAI.Generator, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		aiClient: aiClient,
		now:      time.Now,
	}
}

// tripIntentSchema constrains the extraction output. Any response that does
// not satisfy it is an extraction failure, never coerced.
var tripIntentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"origin":         {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"destination":    {Type: genai.TypeString},
		"duration_days":  {Type: genai.TypeInteger, Nullable: genai.Ptr(true)},
		"start_date":     {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"travelers":      {Type: genai.TypeInteger, Nullable: genai.Ptr(true)},
		"budget":         {Type: genai.TypeNumber, Nullable: genai.Ptr(true)},
		"place_category": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"interests":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		// Structured output needs fixed keys, so the group slots are
		// enumerated up to the ten-group search bound.
		"search_keywords": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"primary":   {Type: genai.TypeString},
				"secondary": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra1":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra2":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra3":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra4":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra5":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra6":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra7":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				"extra8":    {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			},
			Required: []string{"primary"},
		},
		"search_radius_km": {Type: genai.TypeInteger},
		"max_spots":        {Type: genai.TypeInteger},
	},
	Required: []string{"destination", "interests", "search_keywords"},
}

func (s *ServiceImpl) ExtractTripIntent(ctx context.Context, userText string) (*types.TripIntent, error) {
	ctx, span := otel.Tracer("IntentService").Start(ctx, "ExtractTripIntent", trace.WithAttributes(
		attribute.Int("prompt.length", len(userText)),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](defaultTemperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    tripIntentSchema,
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: getTripIntentSystemPrompt(s.now())}}},
	}

	txt, err := s.aiClient.GenerateContent(ctx, userText, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		s.logger.ErrorContext(ctx, "Intent extraction model call failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}

	intent, err := parseTripIntent(txt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Schema validation failed")
		s.logger.ErrorContext(ctx, "Intent extraction output rejected",
			slog.Any("error", err), slog.Int("response_len", len(txt)))
		return nil, fmt.Errorf("%w: %v", types.ErrExtractionFailed, err)
	}

	s.applyDefaults(intent)

	span.SetAttributes(
		attribute.String("trip.destination", intent.Destination),
		attribute.Int("trip.keyword_groups", len(intent.SearchKeywords)),
		attribute.Bool("trip.needs_date_clarification", intent.NeedsDateClarification),
	)
	span.SetStatus(codes.Ok, "Trip intent extracted")
	return intent, nil
}

func parseTripIntent(jsonStr string) (*types.TripIntent, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(jsonStr)))
	dec.DisallowUnknownFields()

	var intent types.TripIntent
	if err := dec.Decode(&intent); err != nil {
		return nil, fmt.Errorf("failed to parse trip intent JSON: %w", err)
	}

	if strings.TrimSpace(intent.Destination) == "" {
		return nil, fmt.Errorf("trip intent has no destination")
	}
	if len(nonEmptyGroups(intent.SearchKeywords)) == 0 {
		return nil, fmt.Errorf("trip intent has no search keyword groups")
	}
	return &intent, nil
}

func nonEmptyGroups(groups types.KeywordGroups) types.KeywordGroups {
	out := make(types.KeywordGroups, len(groups))
	for k, v := range groups {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// applyDefaults fills in unknown fields with the documented defaults and
// flags past start dates for clarification. It never rewrites a named date.
func (s *ServiceImpl) applyDefaults(intent *types.TripIntent) {
	intent.SearchKeywords = nonEmptyGroups(intent.SearchKeywords)
	if len(intent.SearchKeywords) > maxKeywordGroups {
		// Keep the map as-is; discovery bounds the queries it issues.
		s.logger.Warn("Extractor produced more keyword groups than the search bound",
			slog.Int("groups", len(intent.SearchKeywords)))
	}

	if intent.DurationDays == nil {
		d := defaultDurationDays
		intent.DurationDays = &d
	}
	if intent.Travelers <= 0 {
		intent.Travelers = 1
	}
	if intent.SearchRadiusKm <= 0 {
		intent.SearchRadiusKm = defaultRadiusKm
	}
	intent.MaxSpots = maxSpotCap

	today := s.now().Format("2006-01-02")
	if intent.StartDate == nil || strings.TrimSpace(*intent.StartDate) == "" {
		intent.StartDate = &today
		return
	}
	named, err := time.Parse("2006-01-02", *intent.StartDate)
	if err != nil {
		intent.StartDate = &today
		return
	}
	if named.Format("2006-01-02") < today {
		intent.NeedsDateClarification = true
	}
}
