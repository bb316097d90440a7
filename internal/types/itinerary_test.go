package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortedDayKeys(t *testing.T) {
	t.Run("numeric day order, not lexical", func(t *testing.T) {
		days := map[string][]*Activity{
			"Day 10": {}, "Day 2": {}, "Day 1": {},
		}
		assert.Equal(t, []string{"Day 1", "Day 2", "Day 10"}, SortedDayKeys(days))
	})

	t.Run("unlabeled keys sort after numbered days", func(t *testing.T) {
		days := map[string]int{"Day 2": 0, "Extras": 0, "Day 1": 0}
		assert.Equal(t, []string{"Day 1", "Day 2", "Extras"}, SortedDayKeys(days))
	})

	t.Run("stable across repeated calls", func(t *testing.T) {
		days := map[string]int{"Day 3": 0, "Day 1": 0, "Day 2": 0}
		first := SortedDayKeys(days)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, SortedDayKeys(days))
		}
	})
}

func TestActivityLatLon(t *testing.T) {
	t.Run("float coordinates", func(t *testing.T) {
		a := &Activity{Lat: 15.5, Long: 73.8}
		lat, lon, ok := a.LatLon()
		require.True(t, ok)
		assert.Equal(t, 15.5, lat)
		assert.Equal(t, 73.8, lon)
	})

	t.Run("string coordinates", func(t *testing.T) {
		a := &Activity{Lat: " 15.5 ", Long: "73.8"}
		lat, lon, ok := a.LatLon()
		require.True(t, ok)
		assert.Equal(t, 15.5, lat)
		assert.Equal(t, 73.8, lon)
	})

	t.Run("lng key is a fallback for long", func(t *testing.T) {
		a := &Activity{Lat: 15.5, Lng: 73.8}
		_, lon, ok := a.LatLon()
		require.True(t, ok)
		assert.Equal(t, 73.8, lon)
	})

	t.Run("missing longitude fails", func(t *testing.T) {
		a := &Activity{Lat: 15.5}
		_, _, ok := a.LatLon()
		assert.False(t, ok)
	})

	t.Run("garbage fails", func(t *testing.T) {
		a := &Activity{Lat: "north-ish", Long: 73.8}
		_, _, ok := a.LatLon()
		assert.False(t, ok)
	})

	t.Run("decoded JSON numbers resolve", func(t *testing.T) {
		var a Activity
		require.NoError(t, json.Unmarshal([]byte(`{"spot_name":"X","lat":15.5,"long":"73.8"}`), &a))
		lat, lon, ok := a.LatLon()
		require.True(t, ok)
		assert.Equal(t, 15.5, lat)
		assert.Equal(t, 73.8, lon)
	})
}
