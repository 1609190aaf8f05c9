package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/issuer"
	"github.com/Domenick1991/flighter/internal/repository"
)

const DefaultEmailLookupLimit = 20

type LookupUseCase interface {
	GetByReferenceAndToken(ctx context.Context, reference, token string) (*domain.Booking, error)
	LookupByReferenceAndLastName(ctx context.Context, reference, lastName string) (*AccessGrant, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Booking, error)
}

type TokenDeriver interface {
	DeriveLookupToken(reference, email string) string
}

// AccessGrant hands a passenger the token for their own booking.
type AccessGrant struct {
	BookingReference string `json:"booking_reference"`
	Token            string `json:"token"`
}

// LookupService reads bookings. Every failure to match a booking, whatever
// the cause, is reported as ErrNotFound.
type LookupService struct {
	bookings   repository.BookingRepository
	tokens     TokenDeriver
	emailLimit int
}

func NewLookupService(bookings repository.BookingRepository, tokens TokenDeriver, emailLimit int) *LookupService {
	if emailLimit <= 0 {
		emailLimit = DefaultEmailLookupLimit
	}
	return &LookupService{
		bookings:   bookings,
		tokens:     tokens,
		emailLimit: emailLimit,
	}
}

func (s *LookupService) GetByReferenceAndToken(ctx context.Context, reference, token string) (*domain.Booking, error) {
	b, err := s.find(ctx, reference)
	if err != nil {
		return nil, err
	}

	expected := s.tokens.DeriveLookupToken(b.BookingReference, b.PassengerEmail)
	if !issuer.VerifyLookupToken(token, expected) {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *LookupService) LookupByReferenceAndLastName(ctx context.Context, reference, lastName string) (*AccessGrant, error) {
	b, err := s.find(ctx, reference)
	if err != nil {
		return nil, err
	}

	lastName = strings.TrimSpace(lastName)
	if lastName == "" || !strings.EqualFold(lastNameOf(b.PassengerFullName), lastName) {
		return nil, ErrNotFound
	}

	return &AccessGrant{
		BookingReference: b.BookingReference,
		Token:            s.tokens.DeriveLookupToken(b.BookingReference, b.PassengerEmail),
	}, nil
}

// ListByEmail returns the most recent bookings for an email. Callers are
// expected to have authorized the request.
func (s *LookupService) ListByEmail(ctx context.Context, email string) ([]domain.Booking, error) {
	bookings, err := s.bookings.FindByEmail(ctx, strings.TrimSpace(email), s.emailLimit)
	if err != nil {
		return nil, fmt.Errorf("list bookings by email: %w", err)
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return bookings, nil
}

func (s *LookupService) find(ctx context.Context, reference string) (*domain.Booking, error) {
	b, err := s.bookings.FindByReference(ctx, strings.TrimSpace(reference))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return b, nil
}

func lastNameOf(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

var _ LookupUseCase = (*LookupService)(nil)
