package domain

const CurrencyUSD = "USD"

// FareQuote holds whole-dollar fares per cabin class.
type FareQuote struct {
	Currency       string `json:"currency"`
	Economy        int64  `json:"economy"`
	PremiumEconomy int64  `json:"premium_economy"`
	Business       int64  `json:"business"`
	First          int64  `json:"first"`
}

// For returns the fare of the given class. Unknown classes price as economy.
func (q FareQuote) For(class FlightClass) int64 {
	switch class {
	case FlightClassPremiumEconomy:
		return q.PremiumEconomy
	case FlightClassBusiness:
		return q.Business
	case FlightClassFirst:
		return q.First
	default:
		return q.Economy
	}
}
