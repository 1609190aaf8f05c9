package booking

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/issuer"
	"github.com/Domenick1991/flighter/internal/kafka"
	"github.com/Domenick1991/flighter/internal/payment"
	"github.com/Domenick1991/flighter/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	fixedNow    = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	referenceRe = regexp.MustCompile(`^FLT-[0-9A-Z]+[0-9A-Z]{4}$`)
)

func validInput() CreateBookingInput {
	return CreateBookingInput{
		PassengerFullName:   "Jane Doe",
		PassengerEmail:      "Jane@Example.com",
		PassengerPhone:      "+15550100",
		DepartureScheduleID: uuid.MustParse("7b0c7f5e-7d0a-4a8e-9b7e-1f2a3b4c5d6e"),
		Adults:              2,
		FlightClass:         domain.FlightClassEconomy,
		BasePrice:           362,
		TaxesAndFees:        65,
		TotalPrice:          427,
		Extras:              json.RawMessage(`{"seats":["12A","12B"]}`),
	}
}

// sequentialRandom makes every generated reference distinct.
func sequentialRandom() func(int) int {
	n := 0
	return func(max int) int {
		n++
		return n % max
	}
}

func newTestService(repo *MockBookingRepository, gw *MockGateway, producer Producer) (*BookingService, *issuer.Issuer) {
	iss := issuer.New("test-secret", issuer.WithRandom(sequentialRandom()))
	svc := NewBookingService(repo, gw, iss, producer, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }),
		WithBookingTopic("booking_topic"),
	)
	return svc, iss
}

func setStoreFields(args mock.Arguments) {
	b := args.Get(1).(*domain.Booking)
	b.ID = uuid.MustParse("11111111-2222-3333-4444-555555555555")
}

func TestBookingService_CreateConfirmedBooking_Success(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	producer := &MockProducer{}
	svc, iss := newTestService(repo, gw, producer)
	ctx := context.Background()

	gw.On("Charge", ctx, mock.MatchedBy(func(req payment.ChargeRequest) bool {
		return req.Amount == 427 && req.Method == "card" && req.Currency == "USD"
	})).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).Run(setStoreFields).Return(nil).Once()
	producer.On("Publish", ctx, "booking_topic", mock.Anything, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingConfirmed && e.Email == "Jane@Example.com"
	})).Return(nil).Once()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	require.NoError(t, err)
	b := confirmation.Booking
	assert.Regexp(t, referenceRe, b.BookingReference)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, domain.PaymentStatusCompleted, b.PaymentStatus)
	assert.Equal(t, fixedNow, b.CreatedAt)
	assert.Equal(t, fixedNow.Add(15*time.Minute), b.HoldUntil)
	assert.Equal(t, 427.0, b.TotalPrice)
	assert.Equal(t, "card", b.PaymentMethod)
	assert.Equal(t, iss.DeriveLookupToken(b.BookingReference, "jane@example.com"), confirmation.LookupToken)
	assert.Len(t, confirmation.LookupToken, issuer.TokenLength)

	gw.AssertExpectations(t)
	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateConfirmedBooking_Declined(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	producer := &MockProducer{}
	svc, _ := newTestService(repo, gw, producer)
	ctx := context.Background()

	gw.On("Charge", ctx, mock.Anything).Return(payment.Declined, nil).Once()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Nil(t, confirmation)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CreateConfirmedBooking_GatewayError(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	svc, _ := newTestService(repo, gw, nil)
	ctx := context.Background()

	gw.On("Charge", ctx, mock.Anything).Return(payment.Declined, errors.New("provider down")).Once()

	_, err := svc.CreateConfirmedBooking(ctx, validInput())

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentDeclined)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestBookingService_CreateConfirmedBooking_ConflictRetriedOnce(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	svc, _ := newTestService(repo, gw, nil)
	ctx := context.Background()

	var refs []string
	capture := func(args mock.Arguments) {
		refs = append(refs, args.Get(1).(*domain.Booking).BookingReference)
	}

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Run(capture).Return(repository.ErrConflict).Once()
	repo.On("Insert", ctx, mock.Anything).Run(capture).Return(nil).Once()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.NotEqual(t, refs[0], refs[1])
	assert.Equal(t, refs[1], confirmation.Booking.BookingReference)
	repo.AssertExpectations(t)
}

func TestBookingService_CreateConfirmedBooking_HoldWindowFollowsCreatedAt(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	ctx := context.Background()

	// Each clock read lands 3.5s and some nanoseconds later.
	tick := fixedNow.Add(123 * time.Nanosecond)
	clock := func() time.Time {
		tick = tick.Add(3500 * time.Millisecond)
		return tick
	}
	svc := NewBookingService(repo, gw, issuer.New("test-secret", issuer.WithRandom(sequentialRandom())), nil, zap.NewNop(),
		WithClock(clock),
	)

	var inserted []domain.Booking
	capture := func(args mock.Arguments) {
		inserted = append(inserted, *args.Get(1).(*domain.Booking))
	}

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Run(capture).Return(repository.ErrConflict).Once()
	repo.On("Insert", ctx, mock.Anything).Run(capture).Return(nil).Once()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	require.NoError(t, err)
	require.Len(t, inserted, 2)
	for _, b := range inserted {
		assert.False(t, b.CreatedAt.IsZero())
		assert.Equal(t, HoldWindow, b.HoldUntil.Sub(b.CreatedAt))
		assert.Zero(t, b.CreatedAt.Nanosecond()%1000)
	}
	b := confirmation.Booking
	assert.Equal(t, inserted[1].CreatedAt, b.CreatedAt)
	assert.Equal(t, HoldWindow, b.HoldUntil.Sub(b.CreatedAt))
	repo.AssertExpectations(t)
}

func TestBookingService_CreateConfirmedBooking_SecondConflict(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	svc, _ := newTestService(repo, gw, nil)
	ctx := context.Background()

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Return(repository.ErrConflict).Twice()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	assert.ErrorIs(t, err, ErrReferenceConflict)
	assert.Nil(t, confirmation)
	repo.AssertNumberOfCalls(t, "Insert", 2)
}

func TestBookingService_CreateConfirmedBooking_StoreError(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	svc, _ := newTestService(repo, gw, nil)
	ctx := context.Background()
	storeErr := errors.New("connection reset")

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Return(storeErr).Once()

	_, err := svc.CreateConfirmedBooking(ctx, validInput())

	assert.ErrorIs(t, err, storeErr)
	repo.AssertNumberOfCalls(t, "Insert", 1)
}

func TestBookingService_CreateConfirmedBooking_PublishFailureIgnored(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	producer := &MockProducer{}
	svc, _ := newTestService(repo, gw, producer)
	svc.notificationsTopic = "notifications"
	ctx := context.Background()

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Run(setStoreFields).Return(nil).Once()
	producer.On("Publish", ctx, "booking_topic", mock.Anything, mock.Anything).Return(errors.New("broker unavailable")).Once()

	confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())

	require.NoError(t, err)
	assert.NotEmpty(t, confirmation.LookupToken)
	producer.AssertNotCalled(t, "Publish", ctx, "notifications", mock.Anything, mock.Anything)
}

func TestBookingService_CreateConfirmedBooking_PublishesToNotifications(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	producer := &MockProducer{}
	svc, _ := newTestService(repo, gw, producer)
	WithNotificationsTopic("notifications")(svc)
	ctx := context.Background()

	gw.On("Charge", ctx, mock.Anything).Return(payment.Approved, nil).Once()
	repo.On("Insert", ctx, mock.Anything).Run(setStoreFields).Return(nil).Once()
	producer.On("Publish", ctx, "booking_topic", mock.Anything, mock.Anything).Return(nil).Once()
	producer.On("Publish", ctx, "notifications", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateConfirmedBooking(ctx, validInput())

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateConfirmedBooking_ValidationErrors(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := &MockGateway{}
	svc, _ := newTestService(repo, gw, nil)
	badCard := "12a4"

	testCases := []struct {
		name   string
		mutate func(*CreateBookingInput)
	}{
		{"blank name", func(in *CreateBookingInput) { in.PassengerFullName = "   " }},
		{"no email", func(in *CreateBookingInput) { in.PassengerEmail = "" }},
		{"no schedule", func(in *CreateBookingInput) { in.DepartureScheduleID = uuid.Nil }},
		{"no adults", func(in *CreateBookingInput) { in.Adults = 0 }},
		{"negative children", func(in *CreateBookingInput) { in.Children = -1 }},
		{"unknown class", func(in *CreateBookingInput) { in.FlightClass = "coach" }},
		{"negative total", func(in *CreateBookingInput) { in.TotalPrice = -1 }},
		{"bad card", func(in *CreateBookingInput) { in.CardLastFour = &badCard }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			confirmation, err := svc.CreateConfirmedBooking(context.Background(), in)

			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, confirmation)
		})
	}

	gw.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestBookingService_ForcedSimulatedGateway(t *testing.T) {
	repo := &MockBookingRepository{}
	// A draw of 0.99 would decline without the force flag.
	gw := payment.NewSimulatedGateway(true, payment.WithDraw(func() float64 { return 0.99 }))
	iss := issuer.New("s")
	svc := NewBookingService(repo, gw, iss, nil, zap.NewNop())
	ctx := context.Background()

	repo.On("Insert", ctx, mock.Anything).Return(nil).Times(5)

	for i := 0; i < 5; i++ {
		confirmation, err := svc.CreateConfirmedBooking(ctx, validInput())
		require.NoError(t, err)

		b := confirmation.Booking
		assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
		assert.Equal(t, domain.PaymentStatusCompleted, b.PaymentStatus)
		assert.Regexp(t, referenceRe, b.BookingReference)
		assert.Equal(t, iss.DeriveLookupToken(b.BookingReference, b.PassengerEmail), confirmation.LookupToken)
	}
	repo.AssertExpectations(t)
}

func TestBookingService_UnforcedSimulatedGatewayDeclines(t *testing.T) {
	repo := &MockBookingRepository{}
	gw := payment.NewSimulatedGateway(false, payment.WithDraw(func() float64 { return 0.99 }))
	svc := NewBookingService(repo, gw, issuer.New("s"), nil, zap.NewNop())

	confirmation, err := svc.CreateConfirmedBooking(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Nil(t, confirmation)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestNormalize(t *testing.T) {
	in := validInput()
	in.PassengerFullName = "  Jane Doe "
	in.Extras = json.RawMessage("null")

	out := normalize(in)

	assert.Equal(t, "Jane Doe", out.PassengerFullName)
	assert.Equal(t, "card", out.PaymentMethod)
	assert.Nil(t, out.Extras)
}
