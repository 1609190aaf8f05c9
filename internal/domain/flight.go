package domain

import "github.com/google/uuid"

// Flight is one schedule of a route joined with its airline, airports and
// route metrics.
type Flight struct {
	RouteID              uuid.UUID `json:"route_id"`
	AirlineID            string    `json:"airline_id"`
	AirlineName          *string   `json:"airline_name"`
	AirlineIATA          *string   `json:"airline_iata"`
	FlightScheduleID     uuid.UUID `json:"flight_schedule_id"`
	FlightNumber         string    `json:"flight_number"`
	DepartTimeLocal      string    `json:"depart_time_local"`
	ArriveTimeLocal      string    `json:"arrive_time_local"`
	AircraftISO          string    `json:"aircraft_iso"`
	SourceAirportID      string    `json:"source_airport_id"`
	SourceName           *string   `json:"source_name"`
	SourceIATA           *string   `json:"source_iata"`
	DestinationAirportID string    `json:"destination_airport_id"`
	DestinationName      *string   `json:"destination_name"`
	DestinationIATA      *string   `json:"destination_iata"`
	Stops                int       `json:"stops"`
	DistanceKm           *float64  `json:"distance_km"`
	CO2TotalKg           *float64  `json:"co2_total_kg"`
}

// PricedFlight is a Flight with its duration and fare quote.
type PricedFlight struct {
	Flight
	DurationMinutes int       `json:"duration_minutes"`
	Pricing         FareQuote `json:"pricing"`
}
