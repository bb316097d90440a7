package types

// CandidateSpot is a discovered point of interest. ID is the provider's
// place id, unique per search query and used for deduplication.
type CandidateSpot struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Rating  float64  `json:"rating"`
	Types   []string `json:"types"`
	OpenNow *bool    `json:"open_now"`
}

// HotelAnchor is the fixed per-plan routing origin/destination. It is a
// uniform random pick among the surviving candidate spots; there is no
// hotel-specific search at the external boundary.
type HotelAnchor = CandidateSpot

// DistanceEdge is a directed pairwise measurement between two locations.
// Spot-to-spot edges are derived from great-circle distance at an assumed
// average speed and must not be mistaken for road-network answers.
type DistanceEdge struct {
	DistanceKm float64 `json:"distance_km"`
	TimeMin    float64 `json:"time_min"`
}

// SpotMatrix maps origin name -> destination name -> edge for the local
// spot-to-spot approximation.
type SpotMatrix map[string]map[string]DistanceEdge

// SpotDistance carries the hotel-to-spot routing answer for one spot,
// plus the derived travel-cost estimate.
type SpotDistance struct {
	Name                string  `json:"name"`
	DistanceFromHotelKm float64 `json:"distance_from_hotel_km"`
	TravelTimeMin       float64 `json:"travel_time_min"`
	TravelCost          int     `json:"travel_cost"`
	EntryFee            int     `json:"entry_fee"`
	Lat                 float64 `json:"lat"`
	Lng                 float64 `json:"lng"`
}

// DayStop is one packed stop within a day.
type DayStop struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// DayPlan is an ordered sequence of stops assigned to one calendar day.
// TravelMinutes is the cumulative travel time consumed and never exceeds
// the daily ceiling enforced by the packer.
type DayPlan struct {
	Stops         []DayStop `json:"stops"`
	TravelMinutes float64   `json:"travel_minutes"`
}

// PackedDays is the packer output handed to the composer: day label ->
// ordered stops, with the hotel anchor alongside. Days returns labels in
// calendar order.
type PackedDays struct {
	Days  map[string]DayPlan `json:"days"`
	Hotel HotelAnchor        `json:"hotel_location"`
}
