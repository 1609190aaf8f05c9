package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const BookingTokenHeader = "X-Booking-Token"

type BookingHandler struct {
	bookings booking.BookingUseCase
	lookup   booking.LookupUseCase
	admin    AdminKey
	log      *zap.Logger
}

type createBookingRequest struct {
	PassengerFullName   string          `json:"passenger_full_name" binding:"required,notblank,max=255"`
	PassengerEmail      string          `json:"passenger_email" binding:"required,trimmed_email,max=255"`
	PassengerPhone      string          `json:"passenger_phone" binding:"required,min=5,max=50"`
	DepartureScheduleID string          `json:"departure_schedule_id" binding:"required,uuid"`
	ReturnScheduleID    *string         `json:"return_schedule_id" binding:"omitempty,uuid"`
	Adults              int             `json:"adults" binding:"required,min=1,max=9"`
	Children            int             `json:"children" binding:"min=0,max=9"`
	FlightClass         string          `json:"flight_class" binding:"required,oneof=economy premium-economy business first-class"`
	BasePrice           *float64        `json:"base_price" binding:"required,min=0"`
	ExtrasPrice         float64         `json:"extras_price" binding:"min=0"`
	TaxesAndFees        *float64        `json:"taxes_and_fees" binding:"required,min=0"`
	TotalPrice          *float64        `json:"total_price" binding:"required,min=0"`
	ExtrasJSON          json.RawMessage `json:"extras_json"`
	PaymentMethod       string          `json:"payment_method" binding:"omitempty,max=50"`
	CardLastFour        *string         `json:"card_last_four" binding:"omitempty,len=4,numeric"`
}

type createBookingResponse struct {
	Success            bool                 `json:"success"`
	BookingID          uuid.UUID            `json:"booking_id"`
	BookingReference   string               `json:"booking_reference"`
	BookingLookupToken string               `json:"booking_lookup_token"`
	Status             domain.BookingStatus `json:"status"`
	Message            string               `json:"message"`
}

type getBookingQuery struct {
	Ref   string `form:"ref" binding:"omitempty,max=20"`
	Email string `form:"email" binding:"omitempty,trimmed_email"`
	Token string `form:"token" binding:"omitempty,len=64"`
}

type lookupRequest struct {
	BookingReference string `json:"booking_reference" binding:"required,notblank,max=20"`
	LastName         string `json:"last_name" binding:"required,notblank,max=255"`
}

type lookupResponse struct {
	Success          bool   `json:"success"`
	BookingReference string `json:"booking_reference"`
	Token            string `json:"token"`
}

func NewBookingHandler(bookings booking.BookingUseCase, lookup booking.LookupUseCase, admin AdminKey, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		lookup:   lookup,
		admin:    admin,
		log:      log.With(zap.String("handler", "bookings")),
	}
}

// Register mounts the handler. lookupLimit guards the read endpoints.
func (h *BookingHandler) Register(router *gin.RouterGroup, lookupLimit ...gin.HandlerFunc) {
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, lookupLimit...), handler)
	}

	router.POST("", h.create)
	router.GET("", limited(h.get)...)
	router.POST("/lookup", limited(h.lookupAccess)...)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid booking payload", err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid booking payload", err)
		return
	}

	confirmation, err := h.bookings.CreateConfirmedBooking(c.Request.Context(), input)
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "Invalid booking payload")
		return
	case errors.Is(err, booking.ErrPaymentDeclined):
		respondError(c, http.StatusPaymentRequired, "Payment processing failed. Please try again.")
		return
	default:
		h.log.Error("booking creation failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to create booking. Please try again.")
		return
	}

	c.JSON(http.StatusOK, createBookingResponse{
		Success:            true,
		BookingID:          confirmation.Booking.ID,
		BookingReference:   confirmation.Booking.BookingReference,
		BookingLookupToken: confirmation.LookupToken,
		Status:             confirmation.Booking.Status,
		Message:            "Booking confirmed successfully",
	})
}

// get serves both the token-gated reference lookup and the admin email
// listing.
func (h *BookingHandler) get(c *gin.Context) {
	var q getBookingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid booking lookup parameters", err)
		return
	}
	q.Ref = strings.TrimSpace(q.Ref)
	q.Email = strings.TrimSpace(q.Email)

	switch {
	case q.Ref != "" && q.Email != "":
		respondError(c, http.StatusBadRequest, "Use either booking reference lookup or email lookup, not both")
	case q.Ref != "":
		h.getByReference(c, q)
	case q.Email != "":
		h.listByEmail(c, q.Email)
	default:
		respondError(c, http.StatusBadRequest, "Please provide booking reference or email lookup")
	}
}

func (h *BookingHandler) getByReference(c *gin.Context, q getBookingQuery) {
	token := q.Token
	if token == "" {
		token = strings.TrimSpace(c.GetHeader(BookingTokenHeader))
	}
	if token == "" {
		respondError(c, http.StatusUnauthorized, "Missing booking lookup token")
		return
	}

	b, err := h.lookup.GetByReferenceAndToken(c.Request.Context(), q.Ref, token)
	if errors.Is(err, booking.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Booking not found")
		return
	}
	if err != nil {
		h.log.Error("booking retrieval failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to retrieve booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) listByEmail(c *gin.Context, email string) {
	if !h.admin.Enabled() {
		respondError(c, http.StatusForbidden, "Email booking lookup is disabled")
		return
	}
	if !h.admin.Verify(c.GetHeader(AdminKeyHeader)) {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bookings, err := h.lookup.ListByEmail(c.Request.Context(), email)
	if err != nil {
		h.log.Error("booking list failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to retrieve booking")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) lookupAccess(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, http.StatusBadRequest, "Invalid booking lookup payload", err)
		return
	}

	grant, err := h.lookup.LookupByReferenceAndLastName(c.Request.Context(), req.BookingReference, req.LastName)
	if errors.Is(err, booking.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Booking not found")
		return
	}
	if err != nil {
		h.log.Error("booking lookup failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to lookup booking. Please try again.")
		return
	}

	c.JSON(http.StatusOK, lookupResponse{
		Success:          true,
		BookingReference: grant.BookingReference,
		Token:            grant.Token,
	})
}

func (r createBookingRequest) toInput() (booking.CreateBookingInput, error) {
	departure, err := uuid.Parse(r.DepartureScheduleID)
	if err != nil {
		return booking.CreateBookingInput{}, err
	}

	var returnID *uuid.UUID
	if r.ReturnScheduleID != nil && *r.ReturnScheduleID != "" {
		id, err := uuid.Parse(*r.ReturnScheduleID)
		if err != nil {
			return booking.CreateBookingInput{}, err
		}
		returnID = &id
	}

	return booking.CreateBookingInput{
		PassengerFullName:   r.PassengerFullName,
		PassengerEmail:      strings.TrimSpace(r.PassengerEmail),
		PassengerPhone:      r.PassengerPhone,
		DepartureScheduleID: departure,
		ReturnScheduleID:    returnID,
		Adults:              r.Adults,
		Children:            r.Children,
		FlightClass:         domain.FlightClass(r.FlightClass),
		BasePrice:           *r.BasePrice,
		ExtrasPrice:         r.ExtrasPrice,
		TaxesAndFees:        *r.TaxesAndFees,
		TotalPrice:          *r.TotalPrice,
		Extras:              r.ExtrasJSON,
		PaymentMethod:       r.PaymentMethod,
		CardLastFour:        r.CardLastFour,
	}, nil
}
