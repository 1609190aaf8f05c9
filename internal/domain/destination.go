package domain

type Airport struct {
	ID       int64
	Name     *string
	City     *string
	IATACode *string
}

const (
	DestinationTypeAirport = "airport"
	DestinationTypeCity    = "city"
)

// Destination is either a single airport option or a city grouping several
// airports in Content.
type Destination struct {
	Type      string        `json:"type"`
	Value     string        `json:"value"`
	AirportID string        `json:"airportId,omitempty"`
	Trigger   string        `json:"trigger,omitempty"`
	Content   []Destination `json:"content,omitempty"`
}
