package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/go-trip-planner/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type placeFixture struct {
	PlaceID string                 `json:"place_id"`
	Name    string                 `json:"name"`
	Rating  float64                `json:"rating"`
	Geo     map[string]interface{} `json:"geometry"`
}

func place(id, name string, rating, lat, lng float64) placeFixture {
	return placeFixture{
		PlaceID: id,
		Name:    name,
		Rating:  rating,
		Geo: map[string]interface{}{
			"location": map[string]float64{"lat": lat, "lng": lng},
		},
	}
}

func placeNoCoords(id, name string, rating float64) placeFixture {
	return placeFixture{PlaceID: id, Name: name, Rating: rating, Geo: map[string]interface{}{}}
}

func writeResults(w http.ResponseWriter, results []placeFixture) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
}

func testIntent(groups types.KeywordGroups, maxSpots int) *types.TripIntent {
	return &types.TripIntent{
		Destination:    "Goa",
		SearchKeywords: groups,
		MaxSpots:       maxSpots,
	}
}

func TestDiscoverSpots(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by rating and coordinates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeResults(w, []placeFixture{
				place("p1", "Good Spot", 4.2, 15.5, 73.8),
				place("p2", "Low Rated", 3.1, 15.6, 73.9),
				placeNoCoords("p3", "No Coords", 4.8),
			})
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		result, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{"primary": "beaches"}, 21))

		require.NoError(t, err)
		require.Len(t, result.Spots, 1)
		assert.Equal(t, "Good Spot", result.Spots[0].Name)
	})

	t.Run("deduplicates by id with last seen winning", func(t *testing.T) {
		call := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			call++
			if call == 1 {
				writeResults(w, []placeFixture{place("dup", "First Name", 4.0, 15.5, 73.8)})
				return
			}
			writeResults(w, []placeFixture{place("dup", "Second Name", 4.5, 15.5, 73.8)})
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		result, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{
			"primary":   "beaches",
			"secondary": "forts",
		}, 21))

		require.NoError(t, err)
		require.Len(t, result.Spots, 1)
		assert.Equal(t, "Second Name", result.Spots[0].Name)
		assert.Equal(t, 4.5, result.Spots[0].Rating)
	})

	t.Run("truncates each query to ten raw results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var results []placeFixture
			for i := 0; i < 25; i++ {
				results = append(results, place(fmt.Sprintf("p%d", i), fmt.Sprintf("Spot %d", i), 4.0, 15.5, 73.8))
			}
			writeResults(w, results)
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		result, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{"primary": "beaches"}, 21))

		require.NoError(t, err)
		assert.Len(t, result.Spots, 10)
	})

	t.Run("stops issuing queries once the pool is full", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			var results []placeFixture
			for i := 0; i < 10; i++ {
				results = append(results, place(fmt.Sprintf("c%d-p%d", calls, i), "Spot", 4.0, 15.5, 73.8))
			}
			writeResults(w, results)
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		groups := types.KeywordGroups{
			"primary": "a", "secondary": "b", "extra1": "c", "extra2": "d", "extra3": "e",
		}
		// 5 unique spots requested: one query already overshoots 5+3.
		result, err := svc.DiscoverSpots(ctx, testIntent(groups, 5))

		require.NoError(t, err)
		assert.Equal(t, 1, calls, "early exit should stop after the first query")
		assert.Len(t, result.Spots, 8, "pool is capped at max spots plus buffer")
	})

	t.Run("returns structured failure when nothing survives", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeResults(w, nil)
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		_, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{"primary": "beaches"}, 21))

		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrNoSpotsFound))
	})

	t.Run("a failed query does not abort discovery", func(t *testing.T) {
		call := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			call++
			if call == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			writeResults(w, []placeFixture{place("ok", "Survivor", 4.1, 15.5, 73.8)})
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		result, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{
			"primary":   "beaches",
			"secondary": "forts",
		}, 21))

		require.NoError(t, err)
		require.Len(t, result.Spots, 1)
		assert.Equal(t, "Survivor", result.Spots[0].Name)
	})

	t.Run("hotel anchor is one of the surviving spots", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeResults(w, []placeFixture{
				place("p1", "A", 4.0, 15.5, 73.8),
				place("p2", "B", 4.1, 15.6, 73.9),
				place("p3", "C", 4.2, 15.7, 74.0),
			})
		}))
		defer srv.Close()

		svc := NewServiceImpl(srv.Client(), srv.URL, "test-key", testLogger())
		result, err := svc.DiscoverSpots(ctx, testIntent(types.KeywordGroups{"primary": "beaches"}, 21))

		require.NoError(t, err)
		assert.Contains(t, result.Spots, result.Hotel)
	})
}

func TestOrderedKeywords(t *testing.T) {
	groups := types.KeywordGroups{
		"extra2":    "history",
		"primary":   "beaches",
		"extra1":    "nightlife",
		"secondary": "forts",
		"blank":     "  ",
	}

	got := orderedKeywords(groups)
	assert.Equal(t, []string{"beaches", "forts", "nightlife", "history"}, got)
}
