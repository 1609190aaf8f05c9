// Package pricing computes per-class fares for a flight from its distance,
// number of stops and travel month.
package pricing

import (
	"math"
	"time"

	"github.com/Domenick1991/flighter/internal/domain"
)

const (
	perKm        = 0.12
	perStop      = 22.0
	baseFee      = 85.0
	minimumFare  = 79
	taxesAndFees = 0.18

	premiumEconomyFactor = 1.45
	businessFactor       = 2.65
	firstFactor          = 3.6
)

// SeasonalMultiplier returns the demand multiplier for a travel month.
func SeasonalMultiplier(month time.Month) float64 {
	switch month {
	case time.December, time.January, time.February:
		return 1.15
	case time.June, time.July, time.August:
		return 1.25
	case time.April, time.May, time.September, time.October:
		return 1.05
	default:
		return 0.95
	}
}

// ComputeFares prices every cabin class. Fares are rounded half away from
// zero and never fall below the minimum fare.
func ComputeFares(distanceKm float64, stops int, month time.Month) domain.FareQuote {
	base := distanceKm*perKm + float64(stops)*perStop + baseFee
	adjusted := base * SeasonalMultiplier(month)

	return domain.FareQuote{
		Currency:       domain.CurrencyUSD,
		Economy:        fare(adjusted),
		PremiumEconomy: fare(adjusted * premiumEconomyFactor),
		Business:       fare(adjusted * businessFactor),
		First:          fare(adjusted * firstFactor),
	}
}

func fare(value float64) int64 {
	rounded := int64(math.Round(value))
	if rounded < minimumFare {
		return minimumFare
	}
	return rounded
}

// TaxesAndFees applies the flat checkout rate to a base price.
func TaxesAndFees(base float64) float64 {
	return math.Round(base * taxesAndFees)
}
