package routing

import (
	"fmt"
	"math"
	"sort"

	"github.com/roamplan/go-trip-planner/internal/types"
)

// maxDailyTravelMin is the travel-time ceiling for one packed day.
const maxDailyTravelMin = 480.0

// unknownEdgeMin ranks spots missing a matrix edge last during selection.
const unknownEdgeMin = 999999.0

// PackDays assigns every spot to a calendar day under the daily travel
// ceiling. Spots are pre-sorted ascending by hotel distance; each day opens
// with the nearest-to-hotel unplaced spot and then greedily chains to the
// nearest unplaced spot from the current location. A spot whose travel time
// would breach the ceiling rolls over to a later day. Every spot is placed,
// so the day count is unbounded here.
func PackDays(hotel types.HotelAnchor, features *DistanceFeatures) types.PackedDays {
	remaining := make([]types.SpotDistance, len(features.Spots))
	copy(remaining, features.Spots)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].DistanceFromHotelKm < remaining[j].DistanceFromHotelKm
	})

	days := make(map[string]types.DayPlan)
	day := 1
	for len(remaining) > 0 {
		plan := types.DayPlan{Stops: []types.DayStop{}}
		atHotel := true
		currentLoc := ""

		for len(remaining) > 0 {
			var idx int
			var travelTime float64
			if atHotel {
				idx = 0
				travelTime = remaining[0].TravelTimeMin
			} else {
				idx, travelTime = nearestFrom(features.Matrix, currentLoc, remaining)
			}

			// A spot unreachable within a fresh day would stall the loop
			// forever; place it alone rather than drop it.
			if plan.TravelMinutes+travelTime > maxDailyTravelMin && len(plan.Stops) > 0 {
				break
			}

			next := remaining[idx]
			plan.TravelMinutes += travelTime
			plan.Stops = append(plan.Stops, types.DayStop{
				Name: next.Name,
				Lat:  next.Lat,
				Lng:  next.Lng,
			})
			currentLoc = next.Name
			atHotel = false
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}

		days[fmt.Sprintf("Day %d", day)] = plan
		day++
	}

	return types.PackedDays{Days: days, Hotel: hotel}
}

// nearestFrom picks the unplaced spot with the cheapest matrix edge from the
// current location. Missing edges sort last for selection but count as zero
// travel once chosen, matching the matrix being an approximation.
func nearestFrom(matrix types.SpotMatrix, from string, remaining []types.SpotDistance) (int, float64) {
	row := matrix[from]
	bestIdx := 0
	bestKey := math.Inf(1)
	for i, spot := range remaining {
		key := unknownEdgeMin
		if edge, ok := row[spot.Name]; ok {
			key = edge.TimeMin
		}
		if key < bestKey {
			bestKey = key
			bestIdx = i
		}
	}
	travel := 0.0
	if edge, ok := row[remaining[bestIdx].Name]; ok {
		travel = edge.TimeMin
	}
	return bestIdx, travel
}

// ReorderDay re-sequences one narrated day's activities by repeated
// nearest-neighbor selection starting from the hotel, using live
// great-circle distance. Activities without parseable coordinates rank at
// infinite distance so they land at the end without being dropped; they do
// not advance the current position.
func ReorderDay(hotel types.HotelAnchor, activities []*types.Activity) []*types.Activity {
	if len(activities) == 0 {
		return []*types.Activity{}
	}

	curLat, curLng := hotel.Lat, hotel.Lng
	unvisited := make([]*types.Activity, len(activities))
	copy(unvisited, activities)

	ordered := make([]*types.Activity, 0, len(activities))
	for len(unvisited) > 0 {
		bestIdx := 0
		bestDist := math.Inf(1)
		for i, act := range unvisited {
			d := math.Inf(1)
			if lat, lng, ok := act.LatLon(); ok {
				d = HaversineKm(curLat, curLng, lat, lng)
			}
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}

		next := unvisited[bestIdx]
		ordered = append(ordered, next)
		if lat, lng, ok := next.LatLon(); ok {
			curLat, curLng = lat, lng
		}
		unvisited = append(unvisited[:bestIdx], unvisited[bestIdx+1:]...)
	}
	return ordered
}
