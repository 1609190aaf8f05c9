package pricing

import "github.com/Domenick1991/flighter/internal/domain"

// Itinerary describes what a traveller is about to buy. Return is nil for
// one-way trips.
type Itinerary struct {
	Departure  domain.FareQuote
	Return     *domain.FareQuote
	Class      domain.FlightClass
	Passengers int
}

// Breakdown is the checkout-time price summary of an itinerary.
type Breakdown struct {
	Currency     string  `json:"currency"`
	BasePrice    float64 `json:"base_price"`
	TaxesAndFees float64 `json:"taxes_and_fees"`
	TotalPrice   float64 `json:"total_price"`
}

// Quote sums the class fare of every leg for every passenger and adds taxes.
// Extras are priced by the client and are not part of the breakdown.
func Quote(it Itinerary) Breakdown {
	passengers := it.Passengers
	if passengers < 1 {
		passengers = 1
	}

	base := float64(it.Departure.For(it.Class) * int64(passengers))
	if it.Return != nil {
		base += float64(it.Return.For(it.Class) * int64(passengers))
	}
	taxes := TaxesAndFees(base)

	return Breakdown{
		Currency:     domain.CurrencyUSD,
		BasePrice:    base,
		TaxesAndFees: taxes,
		TotalPrice:   base + taxes,
	}
}
