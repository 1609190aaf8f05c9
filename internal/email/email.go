package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Domenick1991/flighter/internal/kafka"
	"go.uber.org/zap"
)

// TokenDeriver re-derives the lookup token of a booking.
type TokenDeriver interface {
	DeriveLookupToken(reference, email string) string
}

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender renders booking confirmation emails. Delivery is a log line; there
// is no SMTP transport.
type Sender struct {
	publicURL string
	tokens    TokenDeriver
	log       *zap.Logger
}

func NewSender(publicURL string, tokens TokenDeriver, log *zap.Logger) *Sender {
	return &Sender{
		publicURL: strings.TrimRight(publicURL, "/"),
		tokens:    tokens,
		log:       log.With(zap.String("component", "email")),
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Email == "" {
		return fmt.Errorf("booking %s has no recipient", event.BookingReference)
	}

	msg := s.Compose(event)
	s.log.Info("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("booking_reference", event.BookingReference),
	)
	return nil
}

func (s *Sender) Compose(event kafka.BookingEvent) Message {
	link := s.ManageLink(event.BookingReference, event.Email)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", event.PassengerFullName)
	fmt.Fprintf(&b, "Your booking %s is %s.\n", event.BookingReference, event.Status)
	fmt.Fprintf(&b, "Total paid: %.2f USD\n", event.TotalPrice)
	fmt.Fprintf(&b, "Manage your booking: %s\n", link)

	return Message{
		To:      event.Email,
		Subject: "Booking confirmed: " + event.BookingReference,
		Body:    b.String(),
	}
}

func (s *Sender) ManageLink(reference, email string) string {
	q := url.Values{}
	q.Set("ref", reference)
	q.Set("token", s.tokens.DeriveLookupToken(reference, email))
	return s.publicURL + "/booking/confirmation?" + q.Encode()
}
