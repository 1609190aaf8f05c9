package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

type FlightClass string

const (
	FlightClassEconomy        FlightClass = "economy"
	FlightClassPremiumEconomy FlightClass = "premium-economy"
	FlightClassBusiness       FlightClass = "business"
	FlightClassFirst          FlightClass = "first-class"
)

func (c FlightClass) Valid() bool {
	switch c {
	case FlightClassEconomy, FlightClassPremiumEconomy, FlightClassBusiness, FlightClassFirst:
		return true
	}
	return false
}

// Booking is a confirmed reservation. BookingReference is assigned once at
// creation and never changes.
type Booking struct {
	ID                  uuid.UUID       `json:"booking_id"`
	BookingReference    string          `json:"booking_reference"`
	PassengerFullName   string          `json:"passenger_full_name"`
	PassengerEmail      string          `json:"passenger_email"`
	PassengerPhone      string          `json:"passenger_phone"`
	DepartureScheduleID uuid.UUID       `json:"departure_schedule_id"`
	ReturnScheduleID    *uuid.UUID      `json:"return_schedule_id"`
	Adults              int             `json:"adults"`
	Children            int             `json:"children"`
	FlightClass         FlightClass     `json:"flight_class"`
	BasePrice           float64         `json:"base_price"`
	ExtrasPrice         float64         `json:"extras_price"`
	TaxesAndFees        float64         `json:"taxes_and_fees"`
	TotalPrice          float64         `json:"total_price"`
	ExtrasJSON          json.RawMessage `json:"extras_json"`
	Status              BookingStatus   `json:"status"`
	HoldUntil           time.Time       `json:"hold_until"`
	PaymentMethod       string          `json:"payment_method"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	CardLastFour        *string         `json:"card_last_four"`
	CreatedAt           time.Time       `json:"created_at"`
}
