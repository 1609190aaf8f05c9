package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Insert(ctx context.Context, booking *domain.Booking) error
	FindByReference(ctx context.Context, reference string) (*domain.Booking, error)
	FindByEmail(ctx context.Context, email string, limit int) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `booking_id, booking_reference, passenger_full_name, passenger_email, passenger_phone,
	departure_schedule_id, return_schedule_id, adults, children, flight_class,
	base_price, extras_price, taxes_and_fees, total_price, extras_json,
	status, hold_until, payment_method, payment_status, card_last_four, created_at`

// Insert stores a new booking as given, including CreatedAt, and fills in
// its ID. A duplicate booking reference yields ErrConflict.
func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	var extras any
	if len(booking.ExtrasJSON) > 0 {
		extras = booking.ExtrasJSON
	}

	err := r.db.QueryRow(ctx, `INSERT INTO bookings (
		booking_reference, passenger_full_name, passenger_email, passenger_phone,
		departure_schedule_id, return_schedule_id, adults, children, flight_class,
		base_price, extras_price, taxes_and_fees, total_price, extras_json,
		status, hold_until, payment_method, payment_status, card_last_four, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING booking_id`,
		booking.BookingReference, booking.PassengerFullName, booking.PassengerEmail, booking.PassengerPhone,
		booking.DepartureScheduleID, booking.ReturnScheduleID, booking.Adults, booking.Children, booking.FlightClass,
		booking.BasePrice, booking.ExtrasPrice, booking.TaxesAndFees, booking.TotalPrice, extras,
		booking.Status, booking.HoldUntil, booking.PaymentMethod, booking.PaymentStatus, booking.CardLastFour,
		booking.CreatedAt,
	).Scan(&booking.ID)
	if err := classify(err); err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("insert booking %s: %w", booking.BookingReference, err)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) FindByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference=$1`, reference)
	b, err := scanBooking(row)
	if err != nil {
		return nil, classify(err)
	}
	return b, nil
}

func (r *PGBookingRepository) FindByEmail(ctx context.Context, email string, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE passenger_email=$1 ORDER BY created_at DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var extras []byte
	if err := row.Scan(
		&b.ID, &b.BookingReference, &b.PassengerFullName, &b.PassengerEmail, &b.PassengerPhone,
		&b.DepartureScheduleID, &b.ReturnScheduleID, &b.Adults, &b.Children, &b.FlightClass,
		&b.BasePrice, &b.ExtrasPrice, &b.TaxesAndFees, &b.TotalPrice, &extras,
		&b.Status, &b.HoldUntil, &b.PaymentMethod, &b.PaymentStatus, &b.CardLastFour, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		b.ExtrasJSON = extras
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
