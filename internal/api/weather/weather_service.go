package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// maxRetries is the number of additional attempts after the first.
	maxRetries = 2

	// backoffBase doubles per attempt.
	backoffBase = 1 * time.Second

	requestTimeout = 10 * time.Second

	cacheTTL     = 15 * time.Minute
	cacheCleanup = 30 * time.Minute
)

// ConditionUnknown is returned whenever the provider cannot be reached or
// answers with an unusable document. Lookups never fail the caller.
const ConditionUnknown = "unknown"

var _ Service = (*ServiceImpl)(nil)

// Service resolves a coordinate to a coarse weather condition drawn from a
// small vocabulary: rainy, cloudy, clear, a lowercased provider condition,
// or unknown.
type Service interface {
	Lookup(ctx context.Context, lat, lon float64) string
}

type ServiceImpl struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      *cache.Cache
}

func NewServiceImpl(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *ServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &ServiceImpl{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cache:      cache.New(cacheTTL, cacheCleanup),
	}
}

type weatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Lookup fetches the current condition for a coordinate, retrying transport
// failures with exponential backoff. Nearby activities share a cache slot so
// a multi-plan run does not hammer the provider for the same block.
func (s *ServiceImpl) Lookup(ctx context.Context, lat, lon float64) string {
	key := fmt.Sprintf("%.3f:%.3f", lat, lon)
	if cond, found := s.cache.Get(key); found {
		return cond.(string)
	}

	cond := s.fetchCondition(ctx, lat, lon)
	s.cache.Set(key, cond, cache.DefaultExpiration)
	return cond
}

func (s *ServiceImpl) fetchCondition(ctx context.Context, lat, lon float64) string {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))
	params.Set("appid", s.apiKey)
	params.Set("units", "metric")
	reqURL := s.baseURL + "?" + params.Encode()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		payload, err := s.fetchOnce(ctx, reqURL)
		if err == nil {
			return normalizeCondition(payload)
		}
		s.logger.DebugContext(ctx, "Weather fetch attempt failed",
			slog.Int("attempt", attempt), slog.Any("error", err))
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ConditionUnknown
			case <-time.After(backoffBase << attempt):
			}
		}
	}
	return ConditionUnknown
}

func (s *ServiceImpl) fetchOnce(ctx context.Context, reqURL string) (*weatherResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather bad status: %s", resp.Status)
	}

	var payload weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func normalizeCondition(payload *weatherResponse) string {
	if payload == nil || len(payload.Weather) == 0 {
		return ConditionUnknown
	}
	cond := strings.ToLower(payload.Weather[0].Main)
	switch {
	case strings.Contains(cond, "rain"):
		return "rainy"
	case strings.Contains(cond, "cloud"):
		return "cloudy"
	case strings.Contains(cond, "clear"):
		return "clear"
	case cond == "":
		return ConditionUnknown
	default:
		return cond
	}
}
