package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/kafka"
	"github.com/Domenick1991/flighter/internal/payment"
	"github.com/Domenick1991/flighter/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HoldWindow is how long after creation a booking is held.
const HoldWindow = 15 * time.Minute

var (
	ErrInvalidInput      = errors.New("invalid booking input")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrNotFound          = errors.New("booking not found")
	ErrReferenceConflict = errors.New("booking reference conflict")
)

type BookingUseCase interface {
	CreateConfirmedBooking(ctx context.Context, input CreateBookingInput) (*Confirmation, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Issuer interface {
	GenerateBookingReference() string
	DeriveLookupToken(reference, email string) string
}

type CreateBookingInput struct {
	PassengerFullName   string
	PassengerEmail      string
	PassengerPhone      string
	DepartureScheduleID uuid.UUID
	ReturnScheduleID    *uuid.UUID
	Adults              int
	Children            int
	FlightClass         domain.FlightClass
	BasePrice           float64
	ExtrasPrice         float64
	TaxesAndFees        float64
	TotalPrice          float64
	Extras              json.RawMessage
	PaymentMethod       string
	CardLastFour        *string
}

// Confirmation is the result of a successful create. LookupToken is not
// persisted anywhere.
type Confirmation struct {
	Booking     *domain.Booking
	LookupToken string
}

type BookingService struct {
	bookings           repository.BookingRepository
	gateway            payment.Gateway
	issuer             Issuer
	producer           Producer
	log                *zap.Logger
	bookingTopic       string
	notificationsTopic string
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithBookingTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.bookingTopic = topic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// NewBookingService builds the create flow. producer may be nil, in which
// case no events are published.
func NewBookingService(
	bookings repository.BookingRepository,
	gateway payment.Gateway,
	issuer Issuer,
	producer Producer,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings: bookings,
		gateway:  gateway,
		issuer:   issuer,
		producer: producer,
		log:      log.With(zap.String("service", "booking")),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateConfirmedBooking charges the passenger and, once the charge is
// approved, stores a confirmed booking. A decline writes nothing.
func (s *BookingService) CreateConfirmedBooking(ctx context.Context, input CreateBookingInput) (*Confirmation, error) {
	input = normalize(input)
	if err := validate(input); err != nil {
		return nil, err
	}

	outcome, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Amount:        input.TotalPrice,
		Currency:      domain.CurrencyUSD,
		Method:        input.PaymentMethod,
		CardLastFour:  input.CardLastFour,
		CustomerEmail: input.PassengerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("charge payment: %w", err)
	}
	if outcome != payment.Approved {
		s.log.Info("payment declined", zap.String("email", input.PassengerEmail))
		return nil, ErrPaymentDeclined
	}

	booking, err := s.insert(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.publish(ctx, booking); err != nil {
		s.log.Warn("failed to publish booking event",
			zap.String("booking_reference", booking.BookingReference),
			zap.Error(err),
		)
	}

	return &Confirmation{
		Booking:     booking,
		LookupToken: s.issuer.DeriveLookupToken(booking.BookingReference, booking.PassengerEmail),
	}, nil
}

// insert stores the booking, drawing a second reference if the first one
// is already taken.
func (s *BookingService) insert(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	for attempt := 0; attempt < 2; attempt++ {
		// Postgres keeps microseconds; truncating keeps the returned booking
		// equal to the stored row.
		createdAt := s.now().Truncate(time.Microsecond)
		booking := newBooking(input, s.issuer.GenerateBookingReference(), createdAt)

		err := s.bookings.Insert(ctx, booking)
		if err == nil {
			return booking, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("store booking: %w", err)
		}
		s.log.Warn("booking reference collision", zap.String("booking_reference", booking.BookingReference))
	}

	return nil, ErrReferenceConflict
}

// newBooking builds the row to insert. HoldUntil is always HoldWindow after
// CreatedAt.
func newBooking(input CreateBookingInput, reference string, createdAt time.Time) *domain.Booking {
	return &domain.Booking{
		BookingReference:    reference,
		PassengerFullName:   input.PassengerFullName,
		PassengerEmail:      input.PassengerEmail,
		PassengerPhone:      input.PassengerPhone,
		DepartureScheduleID: input.DepartureScheduleID,
		ReturnScheduleID:    input.ReturnScheduleID,
		Adults:              input.Adults,
		Children:            input.Children,
		FlightClass:         input.FlightClass,
		BasePrice:           input.BasePrice,
		ExtrasPrice:         input.ExtrasPrice,
		TaxesAndFees:        input.TaxesAndFees,
		TotalPrice:          input.TotalPrice,
		ExtrasJSON:          input.Extras,
		Status:              domain.BookingStatusConfirmed,
		HoldUntil:           createdAt.Add(HoldWindow),
		PaymentMethod:       input.PaymentMethod,
		PaymentStatus:       domain.PaymentStatusCompleted,
		CardLastFour:        input.CardLastFour,
		CreatedAt:           createdAt,
	}
}

func (s *BookingService) publish(ctx context.Context, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:              kafka.EventBookingConfirmed,
		BookingID:         booking.ID.String(),
		BookingReference:  booking.BookingReference,
		PassengerFullName: booking.PassengerFullName,
		Email:             booking.PassengerEmail,
		FlightClass:       string(booking.FlightClass),
		TotalPrice:        booking.TotalPrice,
		Status:            string(booking.Status),
		HoldUntil:         booking.HoldUntil,
		OccurredAt:        s.now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.BookingReference, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.BookingReference, event)
	}
	return nil
}

const defaultPaymentMethod = "card"

func normalize(in CreateBookingInput) CreateBookingInput {
	in.PassengerFullName = strings.TrimSpace(in.PassengerFullName)
	in.PassengerEmail = strings.TrimSpace(in.PassengerEmail)
	in.PassengerPhone = strings.TrimSpace(in.PassengerPhone)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" {
		in.PaymentMethod = defaultPaymentMethod
	}
	if string(in.Extras) == "null" {
		in.Extras = nil
	}
	return in
}

// validate repeats the boundary checks that the store relies on.
func validate(in CreateBookingInput) error {
	switch {
	case in.PassengerFullName == "":
		return fmt.Errorf("%w: passenger name is required", ErrInvalidInput)
	case in.PassengerEmail == "":
		return fmt.Errorf("%w: passenger email is required", ErrInvalidInput)
	case in.DepartureScheduleID == uuid.Nil:
		return fmt.Errorf("%w: departure schedule is required", ErrInvalidInput)
	case in.Adults < 1:
		return fmt.Errorf("%w: at least one adult is required", ErrInvalidInput)
	case in.Children < 0:
		return fmt.Errorf("%w: children must not be negative", ErrInvalidInput)
	case !in.FlightClass.Valid():
		return fmt.Errorf("%w: unknown flight class %q", ErrInvalidInput, in.FlightClass)
	case in.BasePrice < 0, in.ExtrasPrice < 0, in.TaxesAndFees < 0, in.TotalPrice < 0:
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidInput)
	case in.CardLastFour != nil && !isFourDigits(*in.CardLastFour):
		return fmt.Errorf("%w: card_last_four must be 4 digits", ErrInvalidInput)
	}
	return nil
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var _ BookingUseCase = (*BookingService)(nil)
