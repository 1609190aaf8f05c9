// Package issuer generates booking references and derives the HMAC lookup
// tokens that grant read access to a booking.
//
// Tokens are never stored. Anyone holding the process secret can recompute
// the token of a booking from its reference and passenger email, so a
// token can be re-issued at any time and stays valid as long as the secret
// does.
package issuer

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// DevelopmentSecret is used when no secret is configured. It must never be
// used in production; see config.Check.
const DevelopmentSecret = "development-only-booking-secret"

const (
	ReferencePrefix = "FLT-"
	TokenLength     = sha256.Size * 2

	suffixLength = 4
	base36Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Issuer struct {
	secret  []byte
	devMode bool
	now     func() time.Time
	intN    func(n int) int
}

type Option func(*Issuer)

// WithClock overrides the time source used for reference timestamps.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// WithRandom overrides the source of the random reference suffix.
func WithRandom(intN func(n int) int) Option {
	return func(i *Issuer) {
		i.intN = intN
	}
}

func New(secret string, opts ...Option) *Issuer {
	i := &Issuer{
		secret: []byte(secret),
		now:    time.Now,
		intN:   rand.IntN,
	}
	if secret == "" || secret == DevelopmentSecret {
		i.secret = []byte(DevelopmentSecret)
		i.devMode = true
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// UsingDevelopmentSecret reports whether tokens are signed with the
// built-in development secret.
func (i *Issuer) UsingDevelopmentSecret() bool {
	return i.devMode
}

// GenerateBookingReference returns "FLT-" followed by the current epoch
// milliseconds and four random characters, all base36 upper case.
// Uniqueness is left to the store.
func (i *Issuer) GenerateBookingReference() string {
	millis := i.now().UnixMilli()

	var b strings.Builder
	b.WriteString(ReferencePrefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(millis, 36)))
	for n := 0; n < suffixLength; n++ {
		b.WriteByte(base36Digits[i.intN(len(base36Digits))])
	}
	return b.String()
}

// DeriveLookupToken returns the hex HMAC-SHA256 of "reference:email" with
// the email lower-cased.
func (i *Issuer) DeriveLookupToken(bookingReference, passengerEmail string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(bookingReference + ":" + strings.ToLower(passengerEmail)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyLookupToken compares two tokens in constant time. Tokens of
// different length never match.
func VerifyLookupToken(provided, expected string) bool {
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
