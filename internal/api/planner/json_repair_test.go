package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/roamplan/go-trip-planner/app/observability/metrics"
)

func TestMain(m *testing.M) {
	// Instruments resolve against the global no-op meter provider in tests.
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockGenerator is a mock implementation of generativeAI.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, config)
	return args.String(0), args.Error(1)
}

const validPlanJSON = `{
	"date": "2026-09-10",
	"duration_days": 2,
	"itinerary_name": "Coastal Escape",
	"hotel": {"name": "Sea View", "lat": 15.5, "lng": 73.8},
	"itinerary": {
		"Day 1": [{"spot_name": "Dream Beach", "lat": 15.0, "long": 73.9,
			"description": "calm sandy beach", "estimated_time_spent": "2 hours"}],
		"Day 2": [{"spot_name": "Old Fort", "lat": 15.1, "long": 73.95,
			"description": "historic sea fort", "estimated_time_spent": "1.5 hours"}]
	}
}`

func TestRecoverPlans(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a clean array directly", func(t *testing.T) {
		mockAI := new(MockGenerator)
		engine := NewRecoveryEngine(mockAI, testLogger())

		plans := engine.RecoverPlans(ctx, "["+validPlanJSON+"]")

		require.Len(t, plans, 1)
		assert.Equal(t, "Coastal Escape", plans[0].ItineraryName)
		assert.False(t, plans[0].Degraded())
		mockAI.AssertNotCalled(t, "GenerateContent")
	})

	t.Run("normalizes a single object to a one-element slice", func(t *testing.T) {
		engine := NewRecoveryEngine(new(MockGenerator), testLogger())

		plans := engine.RecoverPlans(ctx, validPlanJSON)

		require.Len(t, plans, 1)
		assert.Equal(t, 2, plans[0].DurationDays)
	})

	t.Run("strips json code fences", func(t *testing.T) {
		engine := NewRecoveryEngine(new(MockGenerator), testLogger())

		plans := engine.RecoverPlans(ctx, "```json\n"+validPlanJSON+"\n```")

		require.Len(t, plans, 1)
		assert.False(t, plans[0].Degraded())
	})

	t.Run("strips bare code fences", func(t *testing.T) {
		engine := NewRecoveryEngine(new(MockGenerator), testLogger())

		plans := engine.RecoverPlans(ctx, "```\n"+validPlanJSON+"\n```")

		require.Len(t, plans, 1)
		assert.False(t, plans[0].Degraded())
	})

	t.Run("model repair rescues broken output", func(t *testing.T) {
		mockAI := new(MockGenerator)
		// Missing closing brace: unbalanced, so local retry is skipped.
		broken := `{"date": "2026-09-10", "itinerary_name": "Broken"`
		mockAI.On("GenerateContent", ctx, mock.Anything, mock.Anything).
			Return(validPlanJSON, nil).Once()

		engine := NewRecoveryEngine(mockAI, testLogger())
		plans := engine.RecoverPlans(ctx, broken)

		require.Len(t, plans, 1)
		assert.Equal(t, "Coastal Escape", plans[0].ItineraryName)
		mockAI.AssertExpectations(t)
	})

	t.Run("repair uses zero temperature", func(t *testing.T) {
		mockAI := new(MockGenerator)
		mockAI.On("GenerateContent", ctx, mock.Anything, mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
			return cfg.Temperature != nil && *cfg.Temperature == 0.0 &&
				cfg.MaxOutputTokens == composerMaxTokens
		})).Return(validPlanJSON, nil).Once()

		engine := NewRecoveryEngine(mockAI, testLogger())
		engine.RecoverPlans(ctx, `{"broken":`)
		mockAI.AssertExpectations(t)
	})

	t.Run("degrades when repair output is still unusable", func(t *testing.T) {
		mockAI := new(MockGenerator)
		mockAI.On("GenerateContent", ctx, mock.Anything, mock.Anything).
			Return("still { not json", nil).Once()

		engine := NewRecoveryEngine(mockAI, testLogger())
		plans := engine.RecoverPlans(ctx, `{"broken":`)

		require.Len(t, plans, 1)
		assert.True(t, plans[0].Degraded())
		assert.Equal(t, degradedError, plans[0].Error)
		assert.Equal(t, `{"broken":`, plans[0].RawText)
	})

	t.Run("degrades when the repair call itself fails", func(t *testing.T) {
		mockAI := new(MockGenerator)
		mockAI.On("GenerateContent", ctx, mock.Anything, mock.Anything).
			Return("", errors.New("model unavailable")).Once()

		engine := NewRecoveryEngine(mockAI, testLogger())
		plans := engine.RecoverPlans(ctx, `[{"bad":`)

		require.Len(t, plans, 1)
		assert.True(t, plans[0].Degraded())
		assert.NotEmpty(t, plans[0].RawText)
	})

	t.Run("recovery is idempotent on already-valid output", func(t *testing.T) {
		engine := NewRecoveryEngine(new(MockGenerator), testLogger())

		first := engine.RecoverPlans(ctx, validPlanJSON)
		second := engine.RecoverPlans(ctx, validPlanJSON)
		assert.Equal(t, first, second)
	})
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}

func TestParsePlans(t *testing.T) {
	t.Run("empty array is rejected", func(t *testing.T) {
		_, err := parsePlans("[]")
		assert.Error(t, err)
	})

	t.Run("empty string is rejected", func(t *testing.T) {
		_, err := parsePlans("   ")
		assert.Error(t, err)
	})
}
