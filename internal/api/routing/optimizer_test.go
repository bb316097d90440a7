package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamplan/go-trip-planner/internal/types"
)

func TestHaversineKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, HaversineKm(15.5, 73.8, 15.5, 73.8))
	})

	t.Run("known distance Panaji to Margao", func(t *testing.T) {
		// Panaji (15.4909, 73.8278) to Margao (15.2832, 73.9862), roughly 29 km.
		d := HaversineKm(15.4909, 73.8278, 15.2832, 73.9862)
		assert.InDelta(t, 29.0, d, 2.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineKm(15.0, 73.0, 16.0, 74.0)
		b := HaversineKm(16.0, 74.0, 15.0, 73.0)
		assert.InDelta(t, a, b, 1e-9)
	})
}

func TestBuildSpotMatrix(t *testing.T) {
	spots := []types.SpotDistance{
		{Name: "A", Lat: 15.0, Lng: 73.0},
		{Name: "B", Lat: 15.1, Lng: 73.1},
		{Name: "C", Lat: 15.2, Lng: 73.2},
	}

	matrix := BuildSpotMatrix(spots)

	t.Run("no self edges", func(t *testing.T) {
		for name, row := range matrix {
			_, ok := row[name]
			assert.False(t, ok, "spot %s should not have an edge to itself", name)
		}
	})

	t.Run("all ordered pairs present", func(t *testing.T) {
		require.Len(t, matrix, 3)
		for _, row := range matrix {
			assert.Len(t, row, 2)
		}
	})

	t.Run("time derives from distance at average speed", func(t *testing.T) {
		edge := matrix["A"]["B"]
		assert.Greater(t, edge.DistanceKm, 0.0)
		assert.InDelta(t, edge.DistanceKm/35.0*60, edge.TimeMin, 0.1)
	})

	t.Run("rounded to one decimal", func(t *testing.T) {
		edge := matrix["A"]["C"]
		assert.Equal(t, math.Round(edge.DistanceKm*10)/10, edge.DistanceKm)
		assert.Equal(t, math.Round(edge.TimeMin*10)/10, edge.TimeMin)
	})
}

func packInput(spots []types.SpotDistance) *DistanceFeatures {
	return &DistanceFeatures{Spots: spots, Matrix: BuildSpotMatrix(spots)}
}

func TestPackDays(t *testing.T) {
	hotel := types.HotelAnchor{Name: "Base Hotel", Lat: 15.5, Lng: 73.75}

	t.Run("all spots fit in one day when travel is cheap", func(t *testing.T) {
		spots := []types.SpotDistance{
			{Name: "Far", DistanceFromHotelKm: 30, TravelTimeMin: 45, Lat: 15.7, Lng: 73.9},
			{Name: "Near", DistanceFromHotelKm: 5, TravelTimeMin: 10, Lat: 15.51, Lng: 73.76},
			{Name: "Mid", DistanceFromHotelKm: 15, TravelTimeMin: 25, Lat: 15.6, Lng: 73.8},
			{Name: "Mid2", DistanceFromHotelKm: 16, TravelTimeMin: 26, Lat: 15.61, Lng: 73.81},
			{Name: "Near2", DistanceFromHotelKm: 6, TravelTimeMin: 11, Lat: 15.52, Lng: 73.77},
		}

		packed := PackDays(hotel, packInput(spots))

		require.Len(t, packed.Days, 1)
		day := packed.Days["Day 1"]
		require.Len(t, day.Stops, 5)
		assert.Equal(t, "Near", day.Stops[0].Name, "first pick must be nearest to hotel")
		assert.LessOrEqual(t, day.TravelMinutes, maxDailyTravelMin)
		assert.Equal(t, hotel, packed.Hotel)
	})

	t.Run("spots roll over when the ceiling is hit", func(t *testing.T) {
		// Each hop between these costs well over half the ceiling, so at
		// most two fit per day from the hotel.
		spots := []types.SpotDistance{
			{Name: "S1", DistanceFromHotelKm: 10, TravelTimeMin: 300, Lat: 10.0, Lng: 70.0},
			{Name: "S2", DistanceFromHotelKm: 20, TravelTimeMin: 300, Lat: 12.0, Lng: 72.0},
			{Name: "S3", DistanceFromHotelKm: 30, TravelTimeMin: 300, Lat: 14.0, Lng: 74.0},
		}

		packed := PackDays(hotel, packInput(spots))

		total := 0
		for _, day := range packed.Days {
			total += len(day.Stops)
			assert.NotEmpty(t, day.Stops)
		}
		assert.Equal(t, 3, total, "every spot must be placed exactly once")
		assert.GreaterOrEqual(t, len(packed.Days), 2)
	})

	t.Run("ceiling is respected per day", func(t *testing.T) {
		spots := []types.SpotDistance{
			{Name: "A", DistanceFromHotelKm: 10, TravelTimeMin: 200, Lat: 15.0, Lng: 73.0},
			{Name: "B", DistanceFromHotelKm: 12, TravelTimeMin: 200, Lat: 15.05, Lng: 73.05},
			{Name: "C", DistanceFromHotelKm: 14, TravelTimeMin: 200, Lat: 17.0, Lng: 75.0},
		}

		packed := PackDays(hotel, packInput(spots))
		for label, day := range packed.Days {
			assert.LessOrEqualf(t, day.TravelMinutes, maxDailyTravelMin,
				"%s exceeds the daily travel ceiling", label)
		}
	})

	t.Run("placement is a permutation of the input", func(t *testing.T) {
		spots := []types.SpotDistance{
			{Name: "A", DistanceFromHotelKm: 3, TravelTimeMin: 400, Lat: 15.0, Lng: 73.0},
			{Name: "B", DistanceFromHotelKm: 8, TravelTimeMin: 400, Lat: 15.5, Lng: 73.5},
			{Name: "C", DistanceFromHotelKm: 1, TravelTimeMin: 400, Lat: 14.9, Lng: 72.9},
			{Name: "D", DistanceFromHotelKm: 6, TravelTimeMin: 400, Lat: 15.3, Lng: 73.3},
		}

		packed := PackDays(hotel, packInput(spots))

		seen := map[string]int{}
		for _, day := range packed.Days {
			for _, stop := range day.Stops {
				seen[stop.Name]++
			}
		}
		require.Len(t, seen, 4)
		for name, count := range seen {
			assert.Equalf(t, 1, count, "spot %s placed %d times", name, count)
		}
	})

	t.Run("empty input yields no days", func(t *testing.T) {
		packed := PackDays(hotel, packInput(nil))
		assert.Empty(t, packed.Days)
	})
}

func TestReorderDay(t *testing.T) {
	hotel := types.HotelAnchor{Name: "Hotel", Lat: 15.0, Lng: 73.0}

	act := func(name string, lat, lng interface{}) *types.Activity {
		return &types.Activity{SpotName: name, Lat: lat, Long: lng}
	}

	t.Run("orders by nearest neighbor from hotel", func(t *testing.T) {
		far := act("Far", 16.0, 74.0)
		near := act("Near", 15.01, 73.01)
		mid := act("Mid", 15.5, 73.5)

		ordered := ReorderDay(hotel, []*types.Activity{far, near, mid})

		require.Len(t, ordered, 3)
		assert.Equal(t, "Near", ordered[0].SpotName)
		assert.Equal(t, "Mid", ordered[1].SpotName)
		assert.Equal(t, "Far", ordered[2].SpotName)
	})

	t.Run("keeps every activity", func(t *testing.T) {
		input := []*types.Activity{
			act("A", 15.2, 73.2), act("B", 15.1, 73.1), act("C", 15.3, 73.3),
		}
		ordered := ReorderDay(hotel, input)
		assert.ElementsMatch(t, input, ordered)
	})

	t.Run("unparsable coordinates sort last and are not dropped", func(t *testing.T) {
		broken := act("Broken", "not-a-number", nil)
		good := act("Good", 15.1, 73.1)

		ordered := ReorderDay(hotel, []*types.Activity{broken, good})

		require.Len(t, ordered, 2)
		assert.Equal(t, "Good", ordered[0].SpotName)
		assert.Equal(t, "Broken", ordered[1].SpotName)
	})

	t.Run("string coordinates are accepted", func(t *testing.T) {
		a := act("A", "15.9", "73.9")
		b := act("B", "15.05", "73.05")

		ordered := ReorderDay(hotel, []*types.Activity{a, b})
		assert.Equal(t, "B", ordered[0].SpotName)
	})

	t.Run("empty day", func(t *testing.T) {
		assert.Empty(t, ReorderDay(hotel, nil))
	})
}
